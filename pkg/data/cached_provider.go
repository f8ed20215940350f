package data

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// CachedProvider wraps another DataProvider with a TTL cache keyed by source
type CachedProvider struct {
	provider DataProvider
	cache    *TTLCache[[]types.OHLCV]
	log      *zap.Logger
}

// NewCachedProvider creates a new cached data provider. A zero ttl never expires entries.
func NewCachedProvider(provider DataProvider, ttl time.Duration, log *zap.Logger) *CachedProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedProvider{
		provider: provider,
		cache:    NewTTLCache[[]types.OHLCV](ttl),
		log:      log,
	}
}

// GetName returns the name of the underlying provider with cache indication
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData returns cached candles for source or loads and caches them
func (p *CachedProvider) LoadData(source string) ([]types.OHLCV, error) {
	if cached, ok := p.cache.Get(source); ok {
		return copyCandles(cached), nil
	}

	p.log.Debug("loading historical data", zap.String("file", filepath.Base(source)))
	data, err := p.provider.LoadData(source)
	if err != nil {
		p.log.Error("failed to load data", zap.String("file", filepath.Base(source)), zap.Error(err))
		return nil, err
	}

	p.cache.Set(source, copyCandles(data))
	p.log.Info("loaded and cached data", zap.String("file", filepath.Base(source)), zap.Int("records", len(data)))
	return data, nil
}

// ValidateData validates data using the underlying provider
func (p *CachedProvider) ValidateData(data []types.OHLCV) error {
	return p.provider.ValidateData(data)
}

// ClearCache clears all cached data
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}

// GetCacheSize returns the number of cached entries
func (p *CachedProvider) GetCacheSize() int {
	return p.cache.Size()
}

func copyCandles(data []types.OHLCV) []types.OHLCV {
	out := make([]types.OHLCV, len(data))
	copy(out, data)
	return out
}
