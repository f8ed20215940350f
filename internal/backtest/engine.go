package backtest

import (
	"fmt"
	"math"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/internal/grid"
	"github.com/ducminhle1904/gridscope/pkg/data"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

// Options tune the simulator
type Options struct {
	// SingleActionPerLevel suppresses the sell at a level where a buy already
	// fired during the same candle.
	SingleActionPerLevel bool
}

// Engine replays candle history through a grid spanning the observed price range.
// It holds no state between runs and is safe for concurrent use.
type Engine struct {
	opts Options
}

// NewEngine creates a backtest engine
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// state is the per-run portfolio. Every Run owns a fresh one.
type state struct {
	base   float64
	quote  float64
	trades []types.Trade
}

// Run simulates the grid strategy over candles.
//
// Levels are spaced linearly between the lowest low and the highest high of the whole
// history. Each candle whose range touches level i buys investment/gridCount of quote
// when i is not the top level and enough quote is left, then sells base/(gridCount-i)
// when i is not the bottom level and base is held.
func (e *Engine) Run(symbol string, candles []types.OHLCV, gridCount int, investment float64) (*types.BacktestResult, error) {
	if len(candles) == 0 {
		return nil, engerrors.NewEmptyHistory("backtest", "Run").WithContext("symbol", symbol)
	}
	if gridCount < 2 {
		return nil, engerrors.NewInvalidGridCount("backtest", "Run", gridCount).WithContext("symbol", symbol)
	}
	if investment <= 0 || math.IsNaN(investment) || math.IsInf(investment, 0) {
		return nil, engerrors.NewInvalidInput("backtest", "Run",
			fmt.Sprintf("investment must be positive, got: %f", investment))
	}
	if err := validateCandles(candles); err != nil {
		return nil, err
	}
	if err := data.ValidateTimeSequence(candles); err != nil {
		return nil, engerrors.CategorizeError(err, "backtest", "Run").WithContext("symbol", symbol)
	}

	low, high := priceRange(candles)
	levels := grid.LinearLevels(low, high, gridCount)
	orderAmount := investment / float64(gridCount)

	st := &state{quote: investment, trades: make([]types.Trade, 0)}
	peak := investment
	maxDrawdown := 0.0

	for _, candle := range candles {
		for i, level := range levels {
			if !grid.CrossedLevel(candle, level) {
				continue
			}

			bought := false
			if i < len(levels)-1 && st.quote >= orderAmount {
				amount := orderAmount / level
				st.base += amount
				st.quote -= orderAmount
				st.trades = append(st.trades, types.Trade{
					Timestamp: candle.Timestamp,
					Side:      types.SideBuy,
					Price:     level,
					Amount:    amount,
					Total:     orderAmount,
				})
				bought = true
			}

			if bought && e.opts.SingleActionPerLevel {
				continue
			}

			if i > 0 && st.base > 0 {
				amount := st.base / float64(gridCount-i)
				total := amount * level
				st.base -= amount
				st.quote += total
				st.trades = append(st.trades, types.Trade{
					Timestamp: candle.Timestamp,
					Side:      types.SideSell,
					Price:     level,
					Amount:    amount,
					Total:     total,
				})
			}
		}

		equity := st.quote + st.base*candle.Close
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}

	lastClose := candles[len(candles)-1].Close
	finalValue := st.quote + st.base*lastClose
	profit := finalValue - investment

	return &types.BacktestResult{
		Symbol:            symbol,
		InitialInvestment: investment,
		FinalValue:        finalValue,
		Profit:            profit,
		ProfitPct:         profit / investment * 100,
		Trades:            st.trades,
		TradeCount:        len(st.trades),
		GridLevels:        levels,
		BaseAsset:         st.base,
		QuoteAsset:        st.quote,
		LastClose:         lastClose,
		MaxDrawdownPct:    maxDrawdown * 100,
		Summary:           Summarize(st.trades),
	}, nil
}

func validateCandles(candles []types.OHLCV) error {
	for i, c := range candles {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return engerrors.NewMissingColumns("backtest", "Run",
					fmt.Sprintf("candle %d has a missing or non-numeric price field", i)).
					WithContext("index", i)
			}
		}
		if c.Low <= 0 {
			return engerrors.NewDivisionUndefined("backtest", "Run",
				fmt.Sprintf("candle %d has non-positive low %f", i, c.Low)).
				WithContext("index", i)
		}
		if c.Open <= 0 || c.High <= 0 || c.Close <= 0 {
			return engerrors.NewInvalidInput("backtest", "Run",
				fmt.Sprintf("candle %d has a non-positive price", i)).
				WithContext("index", i)
		}
		if c.High < c.Low {
			return engerrors.NewInvalidInput("backtest", "Run",
				fmt.Sprintf("candle %d has high %f below low %f", i, c.High, c.Low)).
				WithContext("index", i)
		}
	}
	return nil
}

func priceRange(candles []types.OHLCV) (low, high float64) {
	low, high = candles[0].Low, candles[0].High
	for _, c := range candles[1:] {
		if c.Low < low {
			low = c.Low
		}
		if c.High > high {
			high = c.High
		}
	}
	return low, high
}
