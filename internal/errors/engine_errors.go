package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Engine errors, all recoverable and reported to the caller
	ErrorCategoryInsufficientData  ErrorCategory = "INSUFFICIENT_DATA"
	ErrorCategoryInvalidGridCount  ErrorCategory = "INVALID_GRID_COUNT"
	ErrorCategoryMissingColumns    ErrorCategory = "MISSING_COLUMNS"
	ErrorCategoryEmptyHistory      ErrorCategory = "EMPTY_HISTORY"
	ErrorCategoryEmptyBook         ErrorCategory = "EMPTY_BOOK"
	ErrorCategoryDivisionUndefined ErrorCategory = "DIVISION_UNDEFINED"
	ErrorCategoryInvalidInput      ErrorCategory = "INVALID_INPUT"

	// Collaborator errors
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryExchange      ErrorCategory = "EXCHANGE"
	ErrorCategoryNetwork       ErrorCategory = "NETWORK"
	ErrorCategoryTimeout       ErrorCategory = "TIMEOUT"
	ErrorCategoryRateLimit     ErrorCategory = "RATE_LIMIT"
	ErrorCategoryTemporary     ErrorCategory = "TEMPORARY"
)

// Sentinels for errors.Is. Matching compares categories only.
var (
	ErrInsufficientData  = &EngineError{Category: ErrorCategoryInsufficientData}
	ErrInvalidGridCount  = &EngineError{Category: ErrorCategoryInvalidGridCount}
	ErrMissingColumns    = &EngineError{Category: ErrorCategoryMissingColumns}
	ErrEmptyHistory      = &EngineError{Category: ErrorCategoryEmptyHistory}
	ErrEmptyBook         = &EngineError{Category: ErrorCategoryEmptyBook}
	ErrDivisionUndefined = &EngineError{Category: ErrorCategoryDivisionUndefined}
	ErrInvalidInput      = &EngineError{Category: ErrorCategoryInvalidInput}
	ErrRateLimit         = &EngineError{Category: ErrorCategoryRateLimit}
	ErrConfiguration     = &EngineError{Category: ErrorCategoryConfiguration}
)

// EngineError represents a categorized error with context
type EngineError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *EngineError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(strings.ReplaceAll(string(e.Category), "_", " "))
	}
	prefix := string(e.Category)
	if e.Component != "" {
		prefix = fmt.Sprintf("%s:%s", e.Category, e.Component)
	}
	if e.Operation != "" {
		msg = fmt.Sprintf("%s: %s", e.Operation, msg)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, msg, e.Underlying)
	}
	return fmt.Sprintf("[%s] %s", prefix, msg)
}

// Unwrap returns the underlying error for error unwrapping
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target is an EngineError of the same category
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Category == t.Category
}

// IsRetryable returns whether this error can be retried
func (e *EngineError) IsRetryable() bool {
	return e.Retryable
}

// NewEngineError creates a new categorized error
func NewEngineError(category ErrorCategory, component, operation, message string) *EngineError {
	return &EngineError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with engine error context
func WrapError(err error, category ErrorCategory, component, operation string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable sets the retryable flag
func (e *EngineError) WithRetryable(retryable bool) *EngineError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryTemporary, ErrorCategoryRateLimit:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err carries a retryable EngineError
func IsRetryable(err error) bool {
	var engErr *EngineError
	return stderrors.As(err, &engErr) && engErr.Retryable
}

// CategoryOf returns the category of the first EngineError in err's chain
func CategoryOf(err error) (ErrorCategory, bool) {
	var engErr *EngineError
	if stderrors.As(err, &engErr) {
		return engErr.Category, true
	}
	return "", false
}

// CategorizeError attempts to categorize a generic error coming from a collaborator
func CategorizeError(err error, component, operation string) *EngineError {
	if err == nil {
		return nil
	}

	var engErr *EngineError
	if stderrors.As(err, &engErr) {
		return engErr
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "context deadline exceeded") {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") {
		return WrapError(err, ErrorCategoryRateLimit, component, operation)
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") {
		return WrapError(err, ErrorCategoryNetwork, component, operation)
	}

	return WrapError(err, ErrorCategoryExchange, component, operation)
}

// Constructors for the engine taxonomy

func NewInsufficientData(component, operation string, have, need int) *EngineError {
	return NewEngineError(ErrorCategoryInsufficientData, component, operation,
		fmt.Sprintf("insufficient data: have %d values, need %d", have, need)).
		WithContext("have", have).WithContext("need", need)
}

func NewInvalidGridCount(component, operation string, gridCount int) *EngineError {
	return NewEngineError(ErrorCategoryInvalidGridCount, component, operation,
		fmt.Sprintf("grid count must be at least 2, got %d", gridCount)).
		WithContext("grid_count", gridCount)
}

func NewMissingColumns(component, operation, message string) *EngineError {
	return NewEngineError(ErrorCategoryMissingColumns, component, operation, message)
}

func NewEmptyHistory(component, operation string) *EngineError {
	return NewEngineError(ErrorCategoryEmptyHistory, component, operation, "candle history is empty")
}

func NewEmptyBook(component, operation, side string) *EngineError {
	return NewEngineError(ErrorCategoryEmptyBook, component, operation,
		fmt.Sprintf("order book %s side is empty", side)).WithContext("side", side)
}

func NewDivisionUndefined(component, operation, message string) *EngineError {
	return NewEngineError(ErrorCategoryDivisionUndefined, component, operation, message)
}

func NewInvalidInput(component, operation, message string) *EngineError {
	return NewEngineError(ErrorCategoryInvalidInput, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *EngineError {
	return NewEngineError(ErrorCategoryConfiguration, component, operation, message)
}

func NewRateLimitError(component, operation string, err error) *EngineError {
	return WrapError(err, ErrorCategoryRateLimit, component, operation)
}

func NewExchangeError(component, operation string, err error) *EngineError {
	return WrapError(err, ErrorCategoryExchange, component, operation)
}

// RecoveryAction is what a batch or polling caller should do after an error
type RecoveryAction string

const (
	RecoveryActionRetry RecoveryAction = "RETRY"
	RecoveryActionSkip  RecoveryAction = "SKIP"
	RecoveryActionStop  RecoveryAction = "STOP"
	RecoveryActionWait  RecoveryAction = "WAIT"
)

// GetRecoveryAction suggests a recovery action based on error category
func (e *EngineError) GetRecoveryAction() RecoveryAction {
	switch e.Category {
	case ErrorCategoryConfiguration:
		return RecoveryActionStop
	case ErrorCategoryRateLimit:
		return RecoveryActionWait
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryTemporary:
		return RecoveryActionRetry
	default:
		return RecoveryActionSkip
	}
}

// ErrorStats tracks error statistics across a batch
type ErrorStats struct {
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*EngineError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*EngineError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *EngineError) {
	if err == nil {
		return
	}
	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate returns the share of errors that belong to category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}
