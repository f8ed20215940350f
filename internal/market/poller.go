package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/internal/exchange"
	"github.com/ducminhle1904/gridscope/internal/monitoring"
	"github.com/ducminhle1904/gridscope/pkg/config"
	"github.com/ducminhle1904/gridscope/pkg/data"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

// Endpoint names used for single-flight keys, cache keys and metrics
const (
	EndpointTickers = "tickers"
	EndpointKlines  = "klines"
	EndpointDepth   = "depth"
)

// Config tunes the poller
type Config struct {
	// Interval between background refreshes
	Interval time.Duration
	// TTL of cached responses
	TTL   time.Duration
	Retry exchange.RetryConfig
	// MaxRecentErrors bounds the error history
	MaxRecentErrors int
	// WatchExpiry drops a kline series from the refresh set when nobody requested it
	// for this long. Zero means ten intervals.
	WatchExpiry time.Duration
	// MaxWatched caps the refresh set; the least recently requested series goes first
	MaxWatched int
}

// DefaultConfig polls every 60s and caches for 60s
func DefaultConfig() Config {
	return Config{
		Interval:        60 * time.Second,
		TTL:             60 * time.Second,
		Retry:           exchange.DefaultRetryConfig(),
		MaxRecentErrors: 50,
		MaxWatched:      256,
	}
}

// ConfigFrom maps the market section of the application config
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.Interval = cfg.PollInterval()
	c.TTL = cfg.CacheTTL()
	c.Retry.MaxRetries = cfg.Market.MaxRetries
	c.Retry.InitialDelay, c.Retry.MaxDelay = cfg.BackoffBounds()
	return c
}

type klineKey struct {
	symbol   string
	interval string
	limit    int
}

func (k klineKey) String() string {
	return fmt.Sprintf("%s|%s|%d", k.symbol, k.interval, k.limit)
}

type watchEntry struct {
	key           klineKey
	lastRequested time.Time
}

// Poller fronts a MarketDataSource with a TTL cache, one in-flight request per
// endpoint and key, and rate limit retries. It satisfies MarketDataSource itself.
type Poller struct {
	source exchange.MarketDataSource
	cfg    Config
	log    *zap.Logger
	health *monitoring.HealthChecker

	group   singleflight.Group
	tickers *data.TTLCache[[]types.InstrumentSnapshot]
	klines  *data.TTLCache[[]types.OHLCV]
	depth   *data.TTLCache[types.DepthSnapshot]

	mu      sync.Mutex
	stats   *engerrors.ErrorStats
	watched map[string]*watchEntry
	now     func() time.Time
}

// NewPoller creates a poller. health may be nil.
func NewPoller(source exchange.MarketDataSource, cfg Config, log *zap.Logger, health *monitoring.HealthChecker) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxRecentErrors <= 0 {
		cfg.MaxRecentErrors = DefaultConfig().MaxRecentErrors
	}
	if cfg.MaxWatched <= 0 {
		cfg.MaxWatched = DefaultConfig().MaxWatched
	}
	return &Poller{
		source:  source,
		cfg:     cfg,
		log:     log.With(zap.String("exchange", source.Name())),
		health:  health,
		tickers: data.NewTTLCache[[]types.InstrumentSnapshot](cfg.TTL),
		klines:  data.NewTTLCache[[]types.OHLCV](cfg.TTL),
		depth:   data.NewTTLCache[types.DepthSnapshot](cfg.TTL),
		stats:   engerrors.NewErrorStats(cfg.MaxRecentErrors),
		watched: make(map[string]*watchEntry),
		now:     time.Now,
	}
}

// Name returns the underlying venue name
func (p *Poller) Name() string { return p.source.Name() }

// Tickers returns cached 24h statistics, fetching them when stale
func (p *Poller) Tickers(ctx context.Context) ([]types.InstrumentSnapshot, error) {
	v, err := fetchCached(ctx, p, p.tickers, EndpointTickers, "all", p.source.Tickers)
	if err != nil {
		return nil, err
	}
	out := make([]types.InstrumentSnapshot, len(v))
	copy(out, v)
	return out, nil
}

// Klines returns cached candles, fetching them when stale. Series fetched successfully
// are refreshed by Run until they go unrequested for WatchExpiry.
func (p *Poller) Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	key := klineKey{symbol: strings.ToUpper(symbol), interval: interval, limit: limit}
	v, err := p.fetchKlines(ctx, key)
	if err != nil {
		return nil, err
	}
	p.watch(key)

	out := make([]types.OHLCV, len(v))
	copy(out, v)
	return out, nil
}

// Depth returns a cached order book snapshot, fetching it when stale
func (p *Poller) Depth(ctx context.Context, symbol string, limit int) (*types.DepthSnapshot, error) {
	key := fmt.Sprintf("%s|%d", strings.ToUpper(symbol), limit)
	v, err := fetchCached(ctx, p, p.depth, EndpointDepth, key, func(ctx context.Context) (types.DepthSnapshot, error) {
		snap, err := p.source.Depth(ctx, symbol, limit)
		if err != nil {
			return types.DepthSnapshot{}, err
		}
		return *snap, nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ExpiresAt reports when the cached entry for endpoint and key goes stale
func (p *Poller) ExpiresAt(endpoint, key string) (time.Time, bool) {
	switch endpoint {
	case EndpointTickers:
		return p.tickers.ExpiresAt(key)
	case EndpointKlines:
		return p.klines.ExpiresAt(key)
	case EndpointDepth:
		return p.depth.ExpiresAt(key)
	}
	return time.Time{}, false
}

// Run refreshes tickers and every watched kline series on each interval until ctx
// is done. Failures are logged and counted, never fatal. A series whose refresh fails
// with a non-transient error leaves the watch set.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.cfg.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.log.Info("market poller started", zap.Duration("interval", interval))
	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Info("market poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// Watched returns how many kline series Run keeps fresh
func (p *Poller) Watched() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watched)
}

func (p *Poller) watch(key klineKey) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := key.String()
	if e, ok := p.watched[id]; ok {
		e.lastRequested = p.now()
		return
	}
	if len(p.watched) >= p.cfg.MaxWatched {
		var oldest string
		for k, e := range p.watched {
			if oldest == "" || e.lastRequested.Before(p.watched[oldest].lastRequested) {
				oldest = k
			}
		}
		delete(p.watched, oldest)
	}
	p.watched[id] = &watchEntry{key: key, lastRequested: p.now()}
}

func (p *Poller) unwatch(key klineKey) {
	p.mu.Lock()
	delete(p.watched, key.String())
	p.mu.Unlock()
}

// liveKeys drops expired series and returns the rest
func (p *Poller) liveKeys() []klineKey {
	expiry := p.cfg.WatchExpiry
	if expiry <= 0 {
		interval := p.cfg.Interval
		if interval <= 0 {
			interval = DefaultConfig().Interval
		}
		expiry = 10 * interval
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-expiry)
	keys := make([]klineKey, 0, len(p.watched))
	for id, e := range p.watched {
		if e.lastRequested.Before(cutoff) {
			delete(p.watched, id)
			continue
		}
		keys = append(keys, e.key)
	}
	return keys
}

func (p *Poller) refresh(ctx context.Context) {
	p.tickers.Delete("all")
	if _, err := p.Tickers(ctx); err != nil {
		p.log.Warn("ticker refresh failed", zap.Error(err))
	}

	for _, k := range p.liveKeys() {
		if ctx.Err() != nil {
			return
		}
		p.klines.Delete(k.String())
		_, err := p.fetchKlines(ctx, k)
		if err == nil {
			continue
		}
		action := engerrors.CategorizeError(err, "market", EndpointKlines).GetRecoveryAction()
		p.log.Warn("kline refresh failed", zap.String("symbol", k.symbol),
			zap.String("recovery", string(action)), zap.Error(err))
		if action == engerrors.RecoveryActionSkip || action == engerrors.RecoveryActionStop {
			p.unwatch(k)
		}
	}

	purged := p.tickers.Purge() + p.klines.Purge() + p.depth.Purge()
	if purged > 0 {
		p.log.Debug("purged expired market data", zap.Int("entries", purged))
	}
}

func (p *Poller) fetchKlines(ctx context.Context, key klineKey) ([]types.OHLCV, error) {
	return fetchCached(ctx, p, p.klines, EndpointKlines, key.String(), func(ctx context.Context) ([]types.OHLCV, error) {
		return p.source.Klines(ctx, key.symbol, key.interval, key.limit)
	})
}

// ErrorRate returns the share of recorded fetch errors in category
func (p *Poller) ErrorRate(category engerrors.ErrorCategory) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.GetErrorRate(category)
}

// TotalErrors returns how many fetches failed since start
func (p *Poller) TotalErrors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.TotalErrors
}

func (p *Poller) recordFailure(endpoint string, err error) *engerrors.EngineError {
	engErr := engerrors.CategorizeError(err, "market", endpoint)
	p.mu.Lock()
	p.stats.RecordError(engErr)
	p.mu.Unlock()
	monitoring.RecordError(engErr)
	if p.health != nil {
		p.health.RecordFailure(engErr)
	}
	return engErr
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// fetchCached serves key from cache or joins a single shared fetch with retries. The
// shared fetch is detached from any one caller's cancellation; each caller stops
// waiting when its own ctx is done.
func fetchCached[V any](ctx context.Context, p *Poller, cache *data.TTLCache[V], endpoint, key string, fetch func(context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok := cache.Get(key); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(endpoint+":"+key, func() (interface{}, error) {
		if v, ok := cache.Get(key); ok {
			return v, nil
		}

		var out V
		start := time.Now()
		err := exchange.Retry(fetchCtx, p.cfg.Retry, func(attempt int, err error, delay time.Duration) {
			monitoring.RecordRateLimitRetry(p.source.Name(), endpoint)
			p.log.Warn("rate limited, backing off",
				zap.String("endpoint", endpoint), zap.String("key", key),
				zap.Int("attempt", attempt), zap.Duration("delay", delay))
		}, func() error {
			v, err := fetch(fetchCtx)
			if err != nil {
				return err
			}
			out = v
			return nil
		})
		monitoring.ObserveFetch(p.source.Name(), endpoint, time.Since(start))

		if err != nil {
			if isContextError(err) {
				return nil, err
			}
			return nil, p.recordFailure(endpoint, err)
		}
		cache.Set(key, out)
		if p.health != nil {
			p.health.RecordFetch()
		}
		return out, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			p.log.Debug("joined in-flight request", zap.String("endpoint", endpoint), zap.String("key", key))
		}
		return res.Val.(V), nil
	}
}
