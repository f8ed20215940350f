package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/xhit/go-str2duration/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ducminhle1904/gridscope/internal/api"
	"github.com/ducminhle1904/gridscope/internal/backtest"
	"github.com/ducminhle1904/gridscope/internal/grid"
	"github.com/ducminhle1904/gridscope/internal/monitoring"
	"github.com/ducminhle1904/gridscope/internal/orderbook"
	"github.com/ducminhle1904/gridscope/pkg/config"
	"github.com/ducminhle1904/gridscope/pkg/data"
	"github.com/ducminhle1904/gridscope/pkg/reporting"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

func (st *appState) gridCommand() *cli.Command {
	return &cli.Command{
		Name:  "grid",
		Usage: "lay out grid levels around the current price",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Required: true, Usage: "base asset or pair, e.g. BTC or BTCUSDT"},
			&cli.IntFlag{Name: "grids", Aliases: []string{"n"}, Usage: "number of grid levels (default from config)"},
			&cli.Float64Flag{Name: "price", Usage: "use this price instead of the market"},
			&cli.Float64Flag{Name: "volatility", Usage: "average hourly volatility in percent, required with --price"},
		},
		Action: st.gridAction,
	}
}

func (st *appState) gridAction(c *cli.Context) error {
	symbol := strings.ToUpper(c.String("symbol"))
	count := c.Int("grids")
	if count == 0 {
		count = st.cfg.Grid.DefaultCount
	}

	price, volatility := c.Float64("price"), c.Float64("volatility")
	if !c.IsSet("price") {
		pair, err := st.screener.FindPair(c.Context, symbol)
		if err != nil {
			return err
		}
		price = pair.Price
		if !c.IsSet("volatility") {
			volatility = pair.VolatilityPct
		}
	}

	start := time.Now()
	plan, err := grid.NewCalculator(st.cfg.Grid.RangeMultiplier).ComputeGrid(symbol, price, volatility, count)
	monitoring.RecordComputation("grid", start, err)
	if err != nil {
		return err
	}
	return st.render(c, plan, func(w io.Writer) { st.console.PrintGridPlan(w, plan) })
}

func (st *appState) backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "replay grids over candle history",
		Description: "Candles come from --data files, else from " +
			"{data_root}/{exchange}/{category}/{SYMBOL}/{minutes}/candles.csv, else from the exchange.",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "symbol", Aliases: []string{"s"}, Usage: "symbols to test, repeatable"},
			&cli.StringSliceFlag{Name: "data", Aliases: []string{"d"}, Usage: "candle CSV or JSON kline files, paired with --symbol by position"},
			&cli.StringFlag{Name: "interval", Aliases: []string{"i"}, Usage: "candle interval (default from config)"},
			&cli.IntFlag{Name: "grids", Aliases: []string{"n"}, Usage: "number of grid levels (default from config)"},
			&cli.Float64Flag{Name: "investment", Usage: "starting quote balance (default from config)"},
			&cli.BoolFlag{Name: "single-action", Usage: "at most one fill per level per candle"},
			&cli.BoolFlag{Name: "offline", Usage: "never fetch candles from the exchange"},
			&cli.StringFlag{Name: "period", Usage: "keep only the most recent span of candles, e.g. 30d or 12h"},
			&cli.TimestampFlag{Name: "from", Layout: dateLayout, Usage: "first candle date, YYYY-MM-DD"},
			&cli.TimestampFlag{Name: "to", Layout: dateLayout, Usage: "last candle date, YYYY-MM-DD, inclusive"},
			&cli.IntFlag{Name: "workers", Usage: "parallel backtests (default from config)"},
			&cli.StringFlag{Name: "out-dir", Aliases: []string{"o"}, Value: reporting.DefaultResultsRoot, Usage: "directory for result files"},
			&cli.BoolFlag{Name: "csv", Usage: "write trades.csv"},
			&cli.BoolFlag{Name: "xlsx", Usage: "write trades.xlsx"},
			&cli.BoolFlag{Name: "save-json", Usage: "write result.json"},
			&cli.BoolFlag{Name: "log-trades", Usage: "log every simulated fill at debug level"},
		},
		Action: st.backtestAction,
	}
}

func (st *appState) backtestAction(c *cli.Context) error {
	cfg := st.cfg
	interval := c.String("interval")
	if interval == "" {
		interval = cfg.Backtest.Interval
	}
	gridCount := c.Int("grids")
	if gridCount == 0 {
		gridCount = cfg.Backtest.GridCount
	}
	investment := c.Float64("investment")
	if investment == 0 {
		investment = cfg.Backtest.Investment
	}
	workers := c.Int("workers")
	if workers == 0 {
		workers = cfg.Backtest.Workers
	}
	opts := cfg.BacktestOptions()
	if c.IsSet("single-action") {
		opts.SingleActionPerLevel = c.Bool("single-action")
	}

	window, err := windowFromFlags(c)
	if err != nil {
		return err
	}
	jobs, results, err := st.backtestJobs(c.Context, c.StringSlice("symbol"), c.StringSlice("data"), interval, c.Bool("offline"), window)
	if err != nil {
		return err
	}
	for i := range jobs {
		jobs[i].GridCount = gridCount
		jobs[i].Investment = investment
	}

	progress := backtest.NewProgressTracker(len(jobs) + len(results))
	report := func(r backtest.JobResult) {
		progress.Record(r)
		done, failed, total, pct := progress.GetProgress()
		fmt.Fprintf(c.App.ErrWriter, "⏳ [%d/%d] %s finished in %s (%.0f%%, %d failed, ETA %s)\n",
			done, total, r.Symbol, r.Duration.Round(time.Millisecond), pct, failed,
			progress.EstimateTimeRemaining().Round(time.Second))
	}
	for _, r := range results {
		report(r)
	}
	if len(jobs) > 0 {
		ran, err := backtest.RunBatch(c.Context, jobs, workers, opts, report)
		if err != nil {
			return err
		}
		results = append(results, ran...)
	}

	manager := reporting.NewReportingManager(reporting.ReportingConfig{
		EnableConsole:   !c.Bool("json"),
		EnableFiles:     c.Bool("csv") || c.Bool("xlsx") || c.Bool("save-json"),
		OutputDirectory: c.String("out-dir"),
		CSVEnabled:      c.Bool("csv"),
		ExcelEnabled:    c.Bool("xlsx"),
		JSONEnabled:     c.Bool("save-json"),
	}).WithOutput(c.App.Writer)

	var (
		succeeded []*types.BacktestResult
		firstErr  error
	)
	for _, r := range results {
		if r.Error != nil {
			st.log.Error("backtest failed", zap.String("symbol", r.Symbol), zap.Error(r.Error))
			monitoring.RecordError(r.Error)
			if firstErr == nil {
				firstErr = r.Error
			}
			continue
		}
		monitoring.RecordBacktest(r.Result)
		st.log.Backtest(r.Result)
		if c.Bool("log-trades") {
			for _, trade := range r.Result.Trades {
				st.log.Trade(r.Symbol, trade)
			}
		}

		written, err := manager.ReportBacktest(r.Result, interval)
		if err != nil {
			return fmt.Errorf("report %s: %w", r.Symbol, err)
		}
		for _, path := range written {
			fmt.Fprintf(c.App.ErrWriter, "💾 %s\n", path)
		}
		succeeded = append(succeeded, r.Result)
	}

	if c.Bool("json") {
		if err := reporting.PrintJSON(c.App.Writer, succeeded); err != nil {
			return err
		}
	}
	if len(succeeded) == 0 && firstErr != nil {
		return firstErr
	}
	return nil
}

const dateLayout = "2006-01-02"

// candleWindow narrows a series before it is replayed
type candleWindow struct {
	period   time.Duration
	from, to time.Time
}

func windowFromFlags(c *cli.Context) (candleWindow, error) {
	var w candleWindow
	if raw := c.String("period"); raw != "" {
		d, err := str2duration.ParseDuration(raw)
		if err != nil || d <= 0 {
			return w, fmt.Errorf("invalid --period %q", raw)
		}
		w.period = d
	}
	if from := c.Timestamp("from"); from != nil {
		w.from = *from
	}
	if to := c.Timestamp("to"); to != nil {
		w.to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !w.from.IsZero() && !w.to.IsZero() && w.to.Before(w.from) {
		return w, errors.New("--to is before --from")
	}
	return w, nil
}

func (w candleWindow) apply(candles []types.OHLCV) []types.OHLCV {
	if !w.from.IsZero() || !w.to.IsZero() {
		candles = data.FilterByDateRange(candles, w.from, w.to)
	}
	return data.FilterByPeriod(candles, w.period)
}

// backtestJobs resolves a candle series per symbol. Explicit files win, then the
// local data tree, then the exchange unless offline is set. A symbol whose candles
// cannot be loaded or fail validation becomes a failed result and the rest go on.
func (st *appState) backtestJobs(ctx context.Context, symbols, files []string, interval string, offline bool, window candleWindow) ([]backtest.Job, []backtest.JobResult, error) {
	if len(symbols) == 0 && len(files) == 0 {
		return nil, nil, errors.New("at least one --symbol or --data is required")
	}

	var (
		jobs   []backtest.Job
		failed []backtest.JobResult
	)
	add := func(symbol string, candles []types.OHLCV, err error) {
		if err == nil {
			candles = window.apply(candles)
			err = st.candles.ValidateData(candles)
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", symbol, err)
			st.log.Warn("skipping backtest", zap.String("symbol", symbol), zap.Error(err))
			failed = append(failed, backtest.JobResult{Symbol: symbol, Error: err})
			return
		}
		jobs = append(jobs, backtest.Job{Symbol: symbol, Candles: candles})
	}

	for i, path := range files {
		symbol := symbolFromPath(path)
		if i < len(symbols) {
			symbol = strings.ToUpper(symbols[i])
		}
		candles, err := st.loadFile(path)
		add(symbol, candles, err)
	}

	for _, symbol := range symbols[min(len(files), len(symbols)):] {
		pair := st.screener.Pair(symbol)
		candles, err := st.loadCandles(ctx, pair, interval, offline)
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		add(pair, candles, err)
	}
	return jobs, failed, nil
}

// loadFile reads a CSV candle file or a JSON array of kline rows
func (st *appState) loadFile(path string) ([]types.OHLCV, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data.ParseKlineJSON(raw)
	}
	return st.candles.LoadData(path)
}

func (st *appState) loadCandles(ctx context.Context, pair, interval string, offline bool) ([]types.OHLCV, error) {
	if path := data.FindDataFile(st.log.Zap(), st.cfg.Backtest.DataRoot, st.cfg.Exchange.Name, pair, interval); path != "" {
		st.log.Info("using local candles", zap.String("symbol", pair), zap.String("path", path))
		return st.candles.LoadData(path)
	}
	if offline {
		return nil, errors.New("no local candle file and --offline is set")
	}
	return st.poller.Klines(ctx, pair, interval, st.cfg.Backtest.Limit)
}

// symbolFromPath reads the symbol out of a data tree path
// (.../{SYMBOL}/{minutes}/candles.csv) or falls back to the file name.
func symbolFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if base == "candles" {
		if dir := filepath.Base(filepath.Dir(filepath.Dir(path))); dir != "." && dir != string(filepath.Separator) {
			return strings.ToUpper(dir)
		}
	}
	return strings.ToUpper(base)
}

func (st *appState) downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "save exchange candles into the local data tree for offline backtests",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "symbol", Aliases: []string{"s"}, Required: true},
			&cli.StringSliceFlag{Name: "interval", Aliases: []string{"i"}, Usage: "intervals, default the backtest interval"},
			&cli.IntFlag{Name: "limit", Usage: "candles per series (default from config)"},
			&cli.StringFlag{Name: "category", Value: "spot"},
		},
		Action: func(c *cli.Context) error {
			intervals := c.StringSlice("interval")
			if len(intervals) == 0 {
				intervals = []string{st.cfg.Backtest.Interval}
			}
			limit := c.Int("limit")
			if limit == 0 {
				limit = st.cfg.Backtest.Limit
			}

			for _, symbol := range c.StringSlice("symbol") {
				pair := st.screener.Pair(symbol)
				for _, interval := range intervals {
					candles, err := st.poller.Klines(c.Context, pair, interval, limit)
					if err != nil {
						return fmt.Errorf("%s %s: %w", pair, interval, err)
					}
					path := data.CandleFilePath(st.cfg.Backtest.DataRoot, st.cfg.Exchange.Name, c.String("category"), pair, interval)
					if err := data.WriteCandlesCSV(path, candles); err != nil {
						return err
					}
					fmt.Fprintf(c.App.ErrWriter, "💾 %s %s: %d candles -> %s\n", pair, interval, len(candles), path)
				}
			}
			return nil
		},
	}
}

func (st *appState) scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "list the top pairs by volume with indicators and grid scores",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "number of pairs (default from config)"},
			&cli.BoolFlag{Name: "opportunities", Usage: "rank by grid score instead of volume"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("opportunities") {
				pairs, err := st.screener.GridOpportunities(c.Context)
				if err != nil {
					return err
				}
				return st.render(c, pairs, func(w io.Writer) { st.console.PrintPairs(w, "GRID OPPORTUNITIES", pairs) })
			}
			pairs, err := st.screener.TopPairs(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			return st.render(c, pairs, func(w io.Writer) { st.console.PrintPairs(w, "TOP PAIRS", pairs) })
		},
	}
}

func (st *appState) pairsCommand() *cli.Command {
	return &cli.Command{
		Name:  "pairs",
		Usage: "screen pairs whose volatility and volume suit grid trading",
		Action: func(c *cli.Context) error {
			pairs, err := st.screener.GridPairs(c.Context)
			if err != nil {
				return err
			}
			return st.render(c, pairs, func(w io.Writer) { st.console.PrintGridCandidates(w, pairs) })
		},
	}
}

func (st *appState) signalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "signals",
		Usage: "rank top pairs by signal strength",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "number of signals"},
		},
		Action: func(c *cli.Context) error {
			results, err := st.screener.Signals(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			return st.render(c, results, func(w io.Writer) { st.console.PrintSignals(w, results) })
		},
	}
}

func (st *appState) trendCommand() *cli.Command {
	return &cli.Command{
		Name:  "trend",
		Usage: "classify short-term trends",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "symbol", Aliases: []string{"s"}, Usage: "symbols to check, default the top pairs"},
		},
		Action: func(c *cli.Context) error {
			results, err := st.screener.Trends(c.Context, c.StringSlice("symbol"))
			if err != nil {
				return err
			}
			return st.render(c, results, func(w io.Writer) { st.console.PrintTrends(w, results) })
		},
	}
}

func (st *appState) orderBookCommand() *cli.Command {
	return &cli.Command{
		Name:  "orderbook",
		Usage: "analyze order book depth for one pair",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Required: true},
			&cli.IntFlag{Name: "depth", Usage: "levels per side (default from config)"},
		},
		Action: func(c *cli.Context) error {
			pair := st.screener.Pair(c.String("symbol"))
			depth := c.Int("depth")
			if depth == 0 {
				depth = st.cfg.OrderBook.DepthLimit
			}
			snapshot, err := st.poller.Depth(c.Context, pair, depth)
			if err != nil {
				return err
			}

			start := time.Now()
			analysis, err := orderbook.NewAnalyzer(st.cfg.OrderBookSettings()).AnalyzeSnapshot(*snapshot)
			monitoring.RecordComputation("orderbook", start, err)
			if err != nil {
				return err
			}

			ts := snapshot.Timestamp
			if ts.IsZero() {
				ts = time.Now().UTC()
			}
			resp := api.OrderBookResponse{Symbol: pair, OrderBookAnalysis: analysis, Timestamp: ts}
			return st.render(c, resp, func(w io.Writer) { st.console.PrintOrderBook(w, pair, analysis) })
		},
	}
}

func (st *appState) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the market poller and the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (default from config)"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("addr") {
				st.cfg.Server.Addr = c.String("addr")
			}
			svc := api.NewService(st.cfg, st.poller, st.screener, st.health, st.log)

			g, ctx := errgroup.WithContext(c.Context)
			g.Go(func() error { return st.poller.Run(ctx) })
			g.Go(func() error { return svc.Serve(ctx) })

			fmt.Fprintf(c.App.ErrWriter, "🚀 %s serving %s data on %s\n", ProjectName, st.poller.Name(), st.cfg.Server.Addr)
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func (st *appState) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "configuration helpers",
		Subcommands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "write the effective configuration to a file",
				ArgsUsage: "<path.json|path.yaml>",
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						return errors.New("a target path is required")
					}
					if err := config.Save(st.cfg, path); err != nil {
						return err
					}
					fmt.Fprintf(c.App.ErrWriter, "💾 %s\n", path)
					return nil
				},
			},
		},
	}
}
