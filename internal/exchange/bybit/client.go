package bybit

import (
	"context"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	// BaseURL overrides the mainnet/testnet endpoint when set
	BaseURL string
	Testnet bool
}

// marketAPI is the subset of the v5 market endpoints the source reads
type marketAPI interface {
	kline(ctx context.Context, params map[string]interface{}) (*bybit_api.ServerResponse, error)
	tickers(ctx context.Context, params map[string]interface{}) (*bybit_api.ServerResponse, error)
	orderBook(ctx context.Context, params map[string]interface{}) (*bybit_api.ServerResponse, error)
}

// Client wraps the Bybit API client
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = bybit_api.MAINNET
		if config.Testnet {
			baseURL = bybit_api.TESTNET
		}
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
	}
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	if c.testnet {
		return "testnet"
	}
	return "mainnet"
}

func (c *Client) kline(ctx context.Context, params map[string]interface{}) (*bybit_api.ServerResponse, error) {
	return c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
}

func (c *Client) tickers(ctx context.Context, params map[string]interface{}) (*bybit_api.ServerResponse, error) {
	return c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
}

func (c *Client) orderBook(ctx context.Context, params map[string]interface{}) (*bybit_api.ServerResponse, error) {
	return c.httpClient.NewUtaBybitServiceWithParams(params).GetOrderBookInfo(ctx)
}
