// Command gridscope screens spot markets for grid trading, lays out grids,
// replays them over candle history and serves the same operations over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ducminhle1904/gridscope/internal/exchange"
	"github.com/ducminhle1904/gridscope/internal/logger"
	"github.com/ducminhle1904/gridscope/internal/market"
	"github.com/ducminhle1904/gridscope/internal/monitoring"
	"github.com/ducminhle1904/gridscope/internal/screener"
	"github.com/ducminhle1904/gridscope/pkg/config"
	"github.com/ducminhle1904/gridscope/pkg/data"
	"github.com/ducminhle1904/gridscope/pkg/reporting"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(&appState{newSource: exchange.NewSource})
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// appState holds everything the commands share. It is filled by the Before hook.
type appState struct {
	newSource func(config.ExchangeConfig) (exchange.MarketDataSource, error)

	cfg      *config.Config
	log      *logger.Logger
	health   *monitoring.HealthChecker
	poller   *market.Poller
	screener *screener.Screener
	candles  data.DataProvider
	console  *reporting.DefaultConsoleReporter
}

func newApp(st *appState) *cli.App {
	return &cli.App{
		Name:    ProjectName,
		Usage:   "grid trading screener, calculator and backtester",
		Version: GetFullVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "configuration file (JSON or YAML)", EnvVars: []string{"GRIDSCOPE_CONFIG"}},
			&cli.StringFlag{Name: "env", Value: ".env", Usage: "environment file with exchange credentials"},
			&cli.StringFlag{Name: "exchange", Usage: "market data venue: binance or bybit"},
			&cli.StringFlag{Name: "quote", Usage: "quote asset of screened pairs"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "json", Usage: "print results as JSON instead of tables"},
		},
		Before: st.setup,
		After:  st.teardown,
		Commands: []*cli.Command{
			st.gridCommand(),
			st.backtestCommand(),
			st.downloadCommand(),
			st.scanCommand(),
			st.pairsCommand(),
			st.signalsCommand(),
			st.trendCommand(),
			st.orderBookCommand(),
			st.serveCommand(),
			st.configCommand(),
			{
				Name:  "version",
				Usage: "print build information",
				Action: func(c *cli.Context) error {
					PrintVersion(c.App.Writer)
					return nil
				},
			},
		},
	}
}

func (st *appState) setup(c *cli.Context) error {
	if err := config.LoadEnvFile(c.String("env")); err != nil {
		return err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("exchange") {
		cfg.Exchange.Name = c.String("exchange")
	}
	if c.IsSet("quote") {
		cfg.Market.QuoteAsset = c.String("quote")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}

	log, err := logger.New(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File, Console: c.App.ErrWriter})
	if err != nil {
		return err
	}

	source, err := st.newSource(cfg.Exchange)
	if err != nil {
		log.Close()
		return err
	}

	st.cfg = cfg
	st.log = log
	st.health = monitoring.NewHealthChecker(2 * cfg.PollInterval())
	st.poller = market.NewPoller(source, market.ConfigFrom(cfg), log.Zap(), st.health)
	st.screener = screener.New(st.poller, screener.ConfigFrom(cfg), log.Zap())
	st.candles = data.NewCachedProvider(data.NewCSVProvider(log.Zap()), cfg.CacheTTL(), log.Zap())
	st.console = reporting.NewDefaultConsoleReporter()

	log.Debug("configuration loaded",
		zap.String("exchange", cfg.Exchange.Name),
		zap.String("quote", cfg.Market.QuoteAsset))
	return nil
}

func (st *appState) teardown(c *cli.Context) error {
	if st.log != nil {
		return st.log.Close()
	}
	return nil
}

// render prints v as JSON when --json is set and as a table otherwise
func (st *appState) render(c *cli.Context, v any, table func(io.Writer)) error {
	if c.Bool("json") {
		return reporting.PrintJSON(c.App.Writer, v)
	}
	table(c.App.Writer)
	return nil
}
