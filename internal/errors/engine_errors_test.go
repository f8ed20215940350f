package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineError_IsMatchesCategory(t *testing.T) {
	err := NewInsufficientData("indicators", "RSI", 3, 15)
	wrapped := fmt.Errorf("scoring BTCUSDT: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrInsufficientData))
	assert.False(t, stderrors.Is(wrapped, ErrEmptyBook))
}

func TestEngineError_Message(t *testing.T) {
	err := NewInvalidGridCount("grid", "ComputeGrid", 1)
	assert.Contains(t, err.Error(), "INVALID_GRID_COUNT:grid")
	assert.Contains(t, err.Error(), "grid count must be at least 2, got 1")
	assert.Equal(t, 1, err.Context["grid_count"])
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCategory
	}{
		{"timeout", stderrors.New("context deadline exceeded"), ErrorCategoryTimeout},
		{"rate limit", stderrors.New("Too Many Requests"), ErrorCategoryRateLimit},
		{"network", stderrors.New("dial tcp: connection refused"), ErrorCategoryNetwork},
		{"unknown", stderrors.New("boom"), ErrorCategoryExchange},
		{"already categorized", NewEmptyHistory("backtest", "Run"), ErrorCategoryEmptyHistory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError(tt.err, "exchange", "Klines")
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, got.Category)
		})
	}

	assert.Nil(t, CategorizeError(nil, "exchange", "Klines"))
}

func TestGetRecoveryAction(t *testing.T) {
	assert.Equal(t, RecoveryActionWait, NewRateLimitError("x", "y", stderrors.New("429")).GetRecoveryAction())
	assert.Equal(t, RecoveryActionSkip, NewEmptyBook("x", "y", "bids").GetRecoveryAction())
	assert.Equal(t, RecoveryActionStop, NewConfigurationError("x", "y", "bad").GetRecoveryAction())
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)
	stats.RecordError(NewEmptyHistory("a", "b"))
	stats.RecordError(NewEmptyHistory("a", "b"))
	stats.RecordError(NewEmptyBook("a", "b", "asks"))
	stats.RecordError(nil)

	assert.Equal(t, 3, stats.TotalErrors)
	assert.Len(t, stats.RecentErrors, 2)
	assert.InDelta(t, 2.0/3.0, stats.GetErrorRate(ErrorCategoryEmptyHistory), 1e-9)

	cat, ok := CategoryOf(fmt.Errorf("wrapped: %w", NewEmptyBook("a", "b", "bids")))
	assert.True(t, ok)
	assert.Equal(t, ErrorCategoryEmptyBook, cat)
}
