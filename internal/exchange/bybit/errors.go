package bybit

import (
	"errors"
	"fmt"
	"net/http"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
)

// BybitError represents a Bybit API error with additional context
type BybitError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *BybitError) Error() string {
	return fmt.Sprintf("Bybit API error %d: %s", e.Code, e.Message)
}

// Common Bybit error codes
const (
	ErrCodeInvalidAPIKey     = 10003
	ErrCodeInvalidSignature  = 10004
	ErrCodeRateLimitExceeded = 10006
	ErrCodeSymbolNotFound    = 10001
)

// IsRateLimitError checks if the error is due to rate limiting
func IsRateLimitError(err error) bool {
	var bybitErr *BybitError
	if errors.As(err, &bybitErr) {
		return bybitErr.Code == ErrCodeRateLimitExceeded || bybitErr.Code == http.StatusTooManyRequests
	}
	return false
}

// ParseAPIError extracts error information from the API response
func ParseAPIError(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	return &BybitError{Code: retCode, Message: retMsg}
}

// classify maps a client error onto the engine taxonomy
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if IsRateLimitError(err) {
		return engerrors.NewRateLimitError("bybit", operation, err)
	}
	var bybitErr *BybitError
	if errors.As(err, &bybitErr) {
		return engerrors.NewExchangeError("bybit", operation, err).WithContext("code", bybitErr.Code)
	}
	return engerrors.CategorizeError(err, "bybit", operation)
}
