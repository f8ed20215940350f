package reporting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// DefaultConsoleReporter renders results with go-pretty tables
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func keyValueColumns(t table.Writer) {
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, WidthMax: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 60, Align: text.AlignLeft},
	})
}

// PrintGridPlan prints bounds, expected profit and every level of a grid
func (r *DefaultConsoleReporter) PrintGridPlan(w io.Writer, plan *types.GridPlan) {
	if plan == nil {
		return
	}
	t := newTable(w, fmt.Sprintf("GRID PLAN %s", plan.Symbol))
	t.AppendRows([]table.Row{
		{"💲 Current Price", formatPrice(plan.CurrentPrice)},
		{"⬆️ Upper Bound", formatPrice(plan.UpperBound)},
		{"⬇️ Lower Bound", formatPrice(plan.LowerBound)},
		{"🔢 Grid Count", plan.GridCount},
		{"🎯 Profit per Grid", fmt.Sprintf("%.4f%%", plan.ExpectedProfitPerGridPct)},
		{"📈 Total Profit", fmt.Sprintf("%.4f%%", plan.TotalExpectedProfitPct)},
	})
	t.AppendSeparator()
	for i := len(plan.Levels) - 1; i >= 0; i-- {
		t.AppendRow(table.Row{fmt.Sprintf("Level %d", i+1), formatPrice(plan.Levels[i])})
	}
	keyValueColumns(t)
	t.Render()
	fmt.Fprintln(w)
}

// PrintBacktest prints the backtest outcome and its trade summary
func (r *DefaultConsoleReporter) PrintBacktest(w io.Writer, result *types.BacktestResult) {
	if result == nil {
		return
	}
	s := result.Summary
	t := newTable(w, fmt.Sprintf("BACKTEST %s", result.Symbol))
	t.AppendRows([]table.Row{
		{"💰 Initial Investment", fmt.Sprintf("$%.2f", result.InitialInvestment)},
		{"💰 Final Value", fmt.Sprintf("$%.2f", result.FinalValue)},
		{"📈 Profit", fmt.Sprintf("$%.2f (%.2f%%)", result.Profit, result.ProfitPct)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", result.MaxDrawdownPct)},
		{"🔢 Grid Levels", len(result.GridLevels)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🔄 Trades", result.TradeCount},
		{"🟢 Buys", fmt.Sprintf("%d @ avg %s", s.BuyCount, formatPrice(s.AvgBuyPrice))},
		{"🔴 Sells", fmt.Sprintf("%d @ avg %s", s.SellCount, formatPrice(s.AvgSellPrice))},
		{"💵 Realized Cash P/L", fmt.Sprintf("$%.2f", s.RealizedCashPL)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🪙 Base Held", fmt.Sprintf("%.8f", result.BaseAsset)},
		{"💵 Quote Held", fmt.Sprintf("$%.2f", result.QuoteAsset)},
		{"🏁 Last Close", formatPrice(result.LastClose)},
	})
	keyValueColumns(t)
	t.Render()
	fmt.Fprintln(w)
}

// PrintGridLevels prints fills and realized P&L per grid level, top level first
func (r *DefaultConsoleReporter) PrintGridLevels(w io.Writer, result *types.BacktestResult) {
	if result == nil || len(result.GridLevels) == 0 {
		return
	}
	stats, rng := AnalyzeGridLevels(result)
	t := newTable(w, fmt.Sprintf("GRID LEVELS %s", result.Symbol))
	t.AppendHeader(table.Row{"Level", "Price", "Buys", "Sells", "Volume", "Realized P&L", "Win Rate"})
	for i := len(stats) - 1; i >= 0; i-- {
		s := stats[i]
		t.AppendRow(table.Row{
			s.Level, formatPrice(s.Price), s.Buys, s.Sells, fmt.Sprintf("$%.2f", s.TotalVolume),
			fmt.Sprintf("$%.2f", s.RealizedPnL), fmt.Sprintf("%.0f%%", s.WinRate*100),
		})
	}
	t.AppendFooter(table.Row{
		"Range", fmt.Sprintf("%s - %s", formatPrice(rng.MinFillPrice), formatPrice(rng.MaxFillPrice)),
		"", "", fmt.Sprintf("%.1f%% used", rng.RangeUsedPct), fmt.Sprintf("%d idle", rng.LevelsIdle), "",
	})
	t.Render()
	fmt.Fprintln(w)
}

// PrintPairs prints a top pairs scan
func (r *DefaultConsoleReporter) PrintPairs(w io.Writer, title string, pairs []types.PairSummary) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"#", "Symbol", "Price", "24h %", "24h Volume", "RSI", "Signal", "Grid Score", "Volatility %"})
	for i, p := range pairs {
		t.AppendRow(table.Row{
			i + 1, p.Symbol, formatPrice(p.Price), fmt.Sprintf("%+.2f", p.Change24hPct),
			formatVolume(p.Volume24h), fmt.Sprintf("%.2f", p.RSI), colorSignal(p.Signal),
			p.GridScore, fmt.Sprintf("%.2f", p.VolatilityPct),
		})
	}
	t.Render()
	fmt.Fprintln(w)
}

// PrintGridCandidates prints the grid pair screener output
func (r *DefaultConsoleReporter) PrintGridCandidates(w io.Writer, pairs []types.GridCandidate) {
	t := newTable(w, "GRID TRADING PAIRS")
	t.AppendHeader(table.Row{"#", "Symbol", "Price", "Hourly Vol %", "24h Volume", "Range", "Width %", "Grids", "Potential %"})
	for i, p := range pairs {
		t.AppendRow(table.Row{
			i + 1, p.Symbol, formatPrice(p.CurrentPrice), fmt.Sprintf("%.2f", p.AvgHourlyVolatility),
			formatVolume(p.Volume24h), fmt.Sprintf("%s - %s", formatPrice(p.RangeLow), formatPrice(p.RangeHigh)),
			fmt.Sprintf("%.2f", p.RangeWidthPct), p.SuggestedGrids, fmt.Sprintf("%.2f", p.ProfitPotentialPct),
		})
	}
	t.Render()
	fmt.Fprintln(w)
}

// PrintSignals prints scored signals
func (r *DefaultConsoleReporter) PrintSignals(w io.Writer, results []types.SignalResult) {
	t := newTable(w, "SIGNALS")
	t.AppendHeader(table.Row{"#", "Symbol", "Signal", "Grid Score", "Volatility %", "RSI", "MACD", "MACD Signal", "Candle"})
	for i, s := range results {
		t.AppendRow(table.Row{
			i + 1, s.Symbol, colorSignal(s.Signal), s.GridScore, fmt.Sprintf("%.2f", s.VolatilityPct),
			fmt.Sprintf("%.2f", s.RSI), fmt.Sprintf("%.6f", s.MACD), fmt.Sprintf("%.6f", s.MACDSignal),
			s.Timestamp.UTC().Format("2006-01-02 15:04"),
		})
	}
	t.Render()
	fmt.Fprintln(w)
}

// PrintTrends prints moving-average crossover readings
func (r *DefaultConsoleReporter) PrintTrends(w io.Writer, results []types.TrendResult) {
	t := newTable(w, "TREND SIGNALS")
	t.AppendHeader(table.Row{"#", "Symbol", "Signal", "Confidence", "Price", "1 Bar %", "Momentum %", "Fast MA", "Slow MA", "Volume %"})
	for i, s := range results {
		t.AppendRow(table.Row{
			i + 1, s.Symbol, colorSignal(s.Signal), fmt.Sprintf("%.2f", s.Confidence), formatPrice(s.CurrentPrice),
			fmt.Sprintf("%+.2f", s.PriceChangePct), fmt.Sprintf("%+.2f", s.MomentumPct),
			formatPrice(s.FastMA), formatPrice(s.SlowMA), fmt.Sprintf("%+.2f", s.VolumeChangePct),
		})
	}
	t.Render()
	fmt.Fprintln(w)
}

// PrintOrderBook prints spread, pressure, walls and the depth distribution of both sides
func (r *DefaultConsoleReporter) PrintOrderBook(w io.Writer, symbol string, a *types.OrderBookAnalysis) {
	if a == nil {
		return
	}
	t := newTable(w, fmt.Sprintf("ORDER BOOK %s", symbol))
	t.AppendRows([]table.Row{
		{"↔️ Spread", fmt.Sprintf("%s (%.4f%%)", formatPrice(a.Spread), a.SpreadPct)},
		{"⚖️ Buy/Sell Ratio", fmt.Sprintf("%.4f", a.BuySellRatio)},
	})
	t.AppendSeparator()
	for i, l := range a.SupportLevels {
		t.AppendRow(table.Row{fmt.Sprintf("🟢 Support %d", i+1), fmt.Sprintf("%s x %.4f", formatPrice(l.Price), l.Quantity)})
	}
	t.AppendSeparator()
	for i, l := range a.ResistanceLevels {
		t.AppendRow(table.Row{fmt.Sprintf("🔴 Resistance %d", i+1), fmt.Sprintf("%s x %.4f", formatPrice(l.Price), l.Quantity)})
	}
	keyValueColumns(t)
	t.Render()

	d := newTable(w, "DEPTH DISTRIBUTION")
	d.AppendHeader(table.Row{"Bid Range", "Bid Notional", "Ask Range", "Ask Notional"})
	rows := len(a.BidDistribution)
	if len(a.AskDistribution) > rows {
		rows = len(a.AskDistribution)
	}
	for i := 0; i < rows; i++ {
		row := table.Row{"", "", "", ""}
		if i < len(a.BidDistribution) {
			row[0], row[1] = a.BidDistribution[i].Range(), formatVolume(a.BidDistribution[i].Volume)
		}
		if i < len(a.AskDistribution) {
			row[2], row[3] = a.AskDistribution[i].Range(), formatVolume(a.AskDistribution[i].Volume)
		}
		d.AppendRow(row)
	}
	d.Render()
	fmt.Fprintln(w)
}

func colorSignal(s types.Signal) string {
	switch s {
	case types.SignalBuy:
		return text.FgGreen.Sprint(s.String())
	case types.SignalSell:
		return text.FgRed.Sprint(s.String())
	default:
		return s.String()
	}
}

func formatPrice(p float64) string {
	switch {
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}

func formatVolume(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
