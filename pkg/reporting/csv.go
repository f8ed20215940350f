package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// TradeCSVHeader is the column layout of the trade log
var TradeCSVHeader = []string{"Timestamp", "Side", "Price", "Amount", "Total"}

// DefaultCSVReporter writes the trade log as CSV
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes one row per simulated fill followed by a summary row.
// A path ending in .xlsx is written as a workbook instead.
func (r *DefaultCSVReporter) WriteTradesCSV(result *types.BacktestResult, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteTradesXLSX(result, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(TradeCSVHeader); err != nil {
		return err
	}
	for _, t := range result.Trades {
		row := []string{
			t.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			string(t.Side),
			fmt.Sprintf("%.8f", t.Price),
			fmt.Sprintf("%.8f", t.Amount),
			fmt.Sprintf("%.8f", t.Total),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	summary := make([]string, len(TradeCSVHeader))
	summary[len(summary)-1] = fmt.Sprintf("SUMMARY: final_value=$%.2f; profit=$%.2f; profit_pct=%.2f%%; trades=%d",
		result.FinalValue, result.Profit, result.ProfitPct, result.TradeCount)
	if err := w.Write(summary); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

// WriteTradesCSV is a convenience wrapper around the default CSV reporter
func WriteTradesCSV(result *types.BacktestResult, path string) error {
	return NewDefaultCSVReporter().WriteTradesCSV(result, path)
}
