package grid

import (
	"fmt"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

const (
	// DefaultGridCount is used when a request does not name a grid count
	DefaultGridCount = 10
	// DefaultRangeMultiplier spans the grid over twice the average volatility
	DefaultRangeMultiplier = 2.0
)

// Calculator derives grid plans from a price and its volatility
type Calculator struct {
	rangeMultiplier float64
}

// NewCalculator creates a calculator. A non-positive multiplier falls back to the default.
func NewCalculator(rangeMultiplier float64) *Calculator {
	if rangeMultiplier <= 0 {
		rangeMultiplier = DefaultRangeMultiplier
	}
	return &Calculator{rangeMultiplier: rangeMultiplier}
}

// ComputeGrid builds a grid symmetric around currentPrice.
//
// The total span is volatilityPct * multiplier percent on each side of the price, the
// levels are linear between the bounds, and the expected profit per grid is the move from
// one level to the next relative to the current price. Volatility must be positive and
// small enough that the lower bound stays above zero.
func (c *Calculator) ComputeGrid(symbol string, currentPrice, volatilityPct float64, gridCount int) (*types.GridPlan, error) {
	if gridCount < 2 {
		return nil, engerrors.NewInvalidGridCount("grid", "ComputeGrid", gridCount).
			WithContext("symbol", symbol)
	}
	if currentPrice <= 0 {
		return nil, engerrors.NewDivisionUndefined("grid", "ComputeGrid",
			fmt.Sprintf("current price must be positive, got: %f", currentPrice)).
			WithContext("symbol", symbol)
	}
	if volatilityPct <= 0 {
		return nil, engerrors.NewInvalidInput("grid", "ComputeGrid",
			fmt.Sprintf("volatility must be positive, got: %f", volatilityPct)).
			WithContext("symbol", symbol)
	}

	rangePct := volatilityPct * c.rangeMultiplier
	if rangePct >= 100 {
		return nil, engerrors.NewInvalidInput("grid", "ComputeGrid",
			fmt.Sprintf("range of %.2f%% puts the lower bound at or below zero", rangePct)).
			WithContext("symbol", symbol)
	}
	upper := currentPrice * (1 + rangePct/100)
	lower := currentPrice * (1 - rangePct/100)

	perGrid := (upper - lower) / float64(gridCount-1) / currentPrice * 100

	return &types.GridPlan{
		Symbol:                   symbol,
		CurrentPrice:             currentPrice,
		UpperBound:               upper,
		LowerBound:               lower,
		GridCount:                gridCount,
		Levels:                   LinearLevels(lower, upper, gridCount),
		ExpectedProfitPerGridPct: perGrid,
		TotalExpectedProfitPct:   perGrid * float64(gridCount-1),
	}, nil
}
