package reporting

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// DefaultReporter bundles the console and file reporters
type DefaultReporter struct {
	*DefaultConsoleReporter
	csv   *DefaultCSVReporter
	excel *DefaultExcelReporter
}

// NewDefaultReporter creates a reporter with every output available
func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		DefaultConsoleReporter: NewDefaultConsoleReporter(),
		csv:                    NewDefaultCSVReporter(),
		excel:                  NewDefaultExcelReporter(),
	}
}

// WriteTradesCSV writes the trade log as CSV
func (r *DefaultReporter) WriteTradesCSV(result *types.BacktestResult, path string) error {
	return r.csv.WriteTradesCSV(result, path)
}

// WriteTradesXLSX writes the backtest workbook
func (r *DefaultReporter) WriteTradesXLSX(result *types.BacktestResult, path string) error {
	return r.excel.WriteTradesXLSX(result, path)
}

var (
	_ ConsoleReporter = (*DefaultReporter)(nil)
	_ FileReporter    = (*DefaultReporter)(nil)
)

// ReportingManager writes backtest results according to a ReportingConfig
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
	out      io.Writer
}

// NewReportingManager creates a reporting manager that prints to stdout
func NewReportingManager(config ReportingConfig) *ReportingManager {
	return &ReportingManager{
		reporter: NewDefaultReporter(),
		config:   config,
		out:      os.Stdout,
	}
}

// WithOutput redirects console output
func (m *ReportingManager) WithOutput(w io.Writer) *ReportingManager {
	m.out = w
	return m
}

// ReportBacktest prints the result and writes the enabled files under
// <OutputDirectory>/<SYMBOL>_<interval>. It returns the paths written.
func (m *ReportingManager) ReportBacktest(result *types.BacktestResult, interval string) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.PrintBacktest(m.out, result)
		m.reporter.PrintGridLevels(m.out, result)
	}
	if !m.config.EnableFiles {
		return nil, nil
	}

	dir := DefaultOutputDir(m.config.OutputDirectory, result.Symbol, interval)
	var written []string

	if m.config.CSVEnabled {
		path := filepath.Join(dir, "trades.csv")
		if err := m.reporter.WriteTradesCSV(result, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if m.config.ExcelEnabled {
		path := filepath.Join(dir, "trades.xlsx")
		if err := m.reporter.WriteTradesXLSX(result, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if m.config.JSONEnabled {
		path := filepath.Join(dir, "result.json")
		if err := WriteJSON(result, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
