package exchange

import (
	"fmt"
	"strings"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/internal/exchange/binance"
	"github.com/ducminhle1904/gridscope/internal/exchange/bybit"
	"github.com/ducminhle1904/gridscope/pkg/config"
)

// SupportedExchanges lists the venue names NewSource accepts
func SupportedExchanges() []string {
	return []string{"binance", "bybit"}
}

// NewSource creates the market data source named in cfg
func NewSource(cfg config.ExchangeConfig) (MarketDataSource, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "binance":
		return binance.NewSource(binance.Config{
			APIKey:    cfg.Binance.APIKey,
			APISecret: cfg.Binance.APISecret,
			BaseURL:   cfg.Binance.BaseURL,
			Testnet:   cfg.Binance.Testnet,
		}), nil
	case "bybit":
		return bybit.NewSource(bybit.Config{
			APIKey:    cfg.Bybit.APIKey,
			APISecret: cfg.Bybit.APISecret,
			BaseURL:   cfg.Bybit.BaseURL,
			Testnet:   cfg.Bybit.Testnet,
		}), nil
	default:
		return nil, engerrors.NewConfigurationError("exchange", "NewSource",
			fmt.Sprintf("exchange %q is not supported, use one of: %s", cfg.Name, strings.Join(SupportedExchanges(), ", ")))
	}
}
