package backtest

import "github.com/ducminhle1904/gridscope/pkg/types"

// Summarize aggregates a trade log into fill counts, volumes and average prices
func Summarize(trades []types.Trade) types.TradeSummary {
	var s types.TradeSummary
	for _, t := range trades {
		switch t.Side {
		case types.SideBuy:
			s.BuyCount++
			s.BaseBought += t.Amount
			s.QuoteSpent += t.Total
		case types.SideSell:
			s.SellCount++
			s.BaseSold += t.Amount
			s.QuoteReceived += t.Total
		}
	}

	if s.BaseBought > 0 {
		s.AvgBuyPrice = s.QuoteSpent / s.BaseBought
	}
	if s.BaseSold > 0 {
		s.AvgSellPrice = s.QuoteReceived / s.BaseSold
	}
	s.RealizedCashPL = s.QuoteReceived - s.QuoteSpent

	return s
}

// ReconcileFinalValue rebuilds the final portfolio value from the trade log alone:
// investment - spent + received + remaining base marked at lastClose
func ReconcileFinalValue(investment, lastClose float64, trades []types.Trade) float64 {
	s := Summarize(trades)
	remaining := s.BaseBought - s.BaseSold
	return investment - s.QuoteSpent + s.QuoteReceived + remaining*lastClose
}
