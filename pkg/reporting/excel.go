package reporting

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// Sheet names of the backtest workbook
const (
	TradesSheet  = "Trades"
	SummarySheet = "Summary"
	LevelsSheet  = "Grid Levels"
)

// DefaultExcelReporter writes the backtest workbook
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteTradesXLSX writes a workbook with the trade log, a summary and the grid levels
func (r *DefaultExcelReporter) WriteTradesXLSX(result *types.BacktestResult, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), TradesSheet); err != nil {
		return err
	}
	for _, name := range []string{SummarySheet, LevelsSheet} {
		if _, err := fx.NewSheet(name); err != nil {
			return err
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, result, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, result, styles); err != nil {
		return err
	}
	if err := r.writeLevelsSheet(fx, result, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	thin := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	// Header style - Dark slate gray background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thin,
	})
	if err != nil {
		return styles, err
	}

	customPrice := "0.00000000"
	styles.PriceStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &customPrice,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       thin,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thin,
	})
	if err != nil {
		return styles, err
	}

	// Buy rows light blue, sell rows light green
	styles.BuyStyle, err = fx.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E6F3FF"}, Pattern: 1},
		Border: thin,
	})
	if err != nil {
		return styles, err
	}
	styles.SellStyle, err = fx.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E6FFE6"}, Pattern: 1},
		Border: thin,
	})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return styles, err
	}

	// Level heat map: cold blue, warm yellow, hot red
	heat := []struct {
		dst   *int
		color string
	}{
		{&styles.HeatColdStyle, "DDEBF7"},
		{&styles.HeatWarmStyle, "FFF2CC"},
		{&styles.HeatHotStyle, "F8CBAD"},
	}
	for _, h := range heat {
		*h.dst, err = fx.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{h.color}, Pattern: 1},
			Border: thin,
		})
		if err != nil {
			return styles, err
		}
	}
	return styles, nil
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, result *types.BacktestResult, styles ExcelStyles) error {
	const sheet = TradesSheet
	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "B", "B", 8)
	fx.SetColWidth(sheet, "C", "E", 16)

	if err := writeHeader(fx, sheet, TradeCSVHeader, styles.HeaderStyle); err != nil {
		return err
	}

	for i, t := range result.Trades {
		row := i + 2
		values := []interface{}{t.Timestamp.UTC().Format("2006-01-02 15:04:05"), string(t.Side), t.Price, t.Amount, t.Total}
		rowStyle := styles.BuyStyle
		if t.Side == types.SideSell {
			rowStyle = styles.SellStyle
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			style := rowStyle
			switch col {
			case 2, 3:
				style = styles.PriceStyle
			case 4:
				style = styles.CurrencyStyle
			}
			fx.SetCellStyle(sheet, cell, cell, style)
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, result *types.BacktestResult, styles ExcelStyles) error {
	const sheet = SummarySheet
	fx.SetColWidth(sheet, "A", "A", 24)
	fx.SetColWidth(sheet, "B", "B", 20)

	if err := writeHeader(fx, sheet, []string{"Metric", "Value"}, styles.HeaderStyle); err != nil {
		return err
	}

	s := result.Summary
	_, rng := AnalyzeGridLevels(result)
	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Symbol", result.Symbol, 0},
		{"Initial Investment", result.InitialInvestment, styles.CurrencyStyle},
		{"Final Value", result.FinalValue, styles.CurrencyStyle},
		{"Profit", result.Profit, styles.CurrencyStyle},
		{"Profit %", result.ProfitPct / 100, styles.PercentStyle},
		{"Max Drawdown %", result.MaxDrawdownPct / 100, styles.PercentStyle},
		{"Trades", result.TradeCount, 0},
		{"Buys", s.BuyCount, 0},
		{"Sells", s.SellCount, 0},
		{"Avg Buy Price", s.AvgBuyPrice, styles.PriceStyle},
		{"Avg Sell Price", s.AvgSellPrice, styles.PriceStyle},
		{"Realized Cash P/L", s.RealizedCashPL, styles.CurrencyStyle},
		{"Base Held", result.BaseAsset, styles.PriceStyle},
		{"Quote Held", result.QuoteAsset, styles.CurrencyStyle},
		{"Last Close", result.LastClose, styles.PriceStyle},
		{"Lowest Fill", rng.MinFillPrice, styles.PriceStyle},
		{"Highest Fill", rng.MaxFillPrice, styles.PriceStyle},
		{"Grid Range Used %", rng.RangeUsedPct / 100, styles.PercentStyle},
		{"Levels Triggered", rng.LevelsTriggered, 0},
		{"Levels Idle", rng.LevelsIdle, 0},
	}
	for i, row := range rows {
		label := fmt.Sprintf("A%d", i+2)
		value := fmt.Sprintf("B%d", i+2)
		fx.SetCellValue(sheet, label, row.label)
		fx.SetCellStyle(sheet, label, label, styles.SummaryStyle)
		if err := fx.SetCellValue(sheet, value, row.value); err != nil {
			return err
		}
		if row.style != 0 {
			fx.SetCellStyle(sheet, value, value, row.style)
		}
	}
	return nil
}

// LevelsHeader is the header row of the grid levels sheet
var LevelsHeader = []string{"Level", "Price", "Buys", "Sells", "Volume", "Realized P&L", "Avg P&L", "Win Rate", "Status"}

// writeLevelsSheet writes per-level fills and realized P&L, shaded cold to hot by P&L
func (r *DefaultExcelReporter) writeLevelsSheet(fx *excelize.File, result *types.BacktestResult, styles ExcelStyles) error {
	const sheet = LevelsSheet
	fx.SetColWidth(sheet, "A", "A", 8)
	fx.SetColWidth(sheet, "B", "I", 14)

	if err := writeHeader(fx, sheet, LevelsHeader, styles.HeaderStyle); err != nil {
		return err
	}

	stats, _ := AnalyzeGridLevels(result)
	minPnL, maxPnL := math.Inf(1), math.Inf(-1)
	for _, s := range stats {
		minPnL = math.Min(minPnL, s.RealizedPnL)
		maxPnL = math.Max(maxPnL, s.RealizedPnL)
	}

	for i, s := range stats {
		row := i + 2
		status := "Unused"
		if s.Used() {
			status = "Used"
		}
		values := []interface{}{s.Level, s.Price, s.Buys, s.Sells, s.TotalVolume, s.RealizedPnL, s.AvgPnL, s.WinRate, status}

		rowStyle := styles.HeatColdStyle
		if maxPnL > minPnL {
			switch score := (s.RealizedPnL - minPnL) / (maxPnL - minPnL) * 100; {
			case score > 66:
				rowStyle = styles.HeatHotStyle
			case score > 33:
				rowStyle = styles.HeatWarmStyle
			}
		}

		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			style := rowStyle
			switch col {
			case 1:
				style = styles.PriceStyle
			case 4, 5, 6:
				style = styles.CurrencyStyle
			case 7:
				style = styles.PercentStyle
			}
			fx.SetCellStyle(sheet, cell, cell, style)
		}
	}
	return nil
}

// WriteTradesXLSX is a convenience wrapper around the default Excel reporter
func WriteTradesXLSX(result *types.BacktestResult, path string) error {
	return NewDefaultExcelReporter().WriteTradesXLSX(result, path)
}
