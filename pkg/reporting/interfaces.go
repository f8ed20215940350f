package reporting

import (
	"io"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// Package reporting renders engine results as console tables and output files

// ConsoleReporter renders results as tables
type ConsoleReporter interface {
	PrintGridPlan(w io.Writer, plan *types.GridPlan)
	PrintBacktest(w io.Writer, result *types.BacktestResult)
	PrintPairs(w io.Writer, title string, pairs []types.PairSummary)
	PrintGridCandidates(w io.Writer, pairs []types.GridCandidate)
	PrintSignals(w io.Writer, results []types.SignalResult)
	PrintTrends(w io.Writer, results []types.TrendResult)
	PrintOrderBook(w io.Writer, symbol string, analysis *types.OrderBookAnalysis)
	PrintGridLevels(w io.Writer, result *types.BacktestResult)
}

// FileReporter writes a backtest trade log to disk
type FileReporter interface {
	WriteTradesCSV(result *types.BacktestResult, path string) error
	WriteTradesXLSX(result *types.BacktestResult, path string) error
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PriceStyle    int
	PercentStyle  int
	BuyStyle      int
	SellStyle     int
	SummaryStyle  int
	HeatColdStyle int
	HeatWarmStyle int
	HeatHotStyle  int
}

// ReportingConfig selects the outputs of a backtest report
type ReportingConfig struct {
	EnableConsole   bool
	EnableFiles     bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
}
