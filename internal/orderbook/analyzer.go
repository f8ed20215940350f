package orderbook

import (
	"fmt"
	"math"
	"sort"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

// Config controls how much detail the analysis keeps
type Config struct {
	// TopLevels is the number of support and resistance levels per side
	TopLevels int
	// Buckets is the number of equal-width price buckets per side
	Buckets int
}

// DefaultConfig returns 5 levels and 20 buckets
func DefaultConfig() Config {
	return Config{TopLevels: 5, Buckets: 20}
}

// Analyzer derives spread, imbalance and volume structure from a depth snapshot
type Analyzer struct {
	config Config
}

// NewAnalyzer creates a new order book analyzer
func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.TopLevels <= 0 {
		cfg.TopLevels = 5
	}
	if cfg.Buckets <= 0 {
		cfg.Buckets = 20
	}
	return &Analyzer{config: cfg}
}

// AnalyzeSnapshot analyzes both sides of a depth snapshot
func (a *Analyzer) AnalyzeSnapshot(snapshot types.DepthSnapshot) (*types.OrderBookAnalysis, error) {
	res, err := a.Analyze(snapshot.Bids, snapshot.Asks)
	if err != nil {
		return nil, fmt.Errorf("analyze %s order book: %w", snapshot.Symbol, err)
	}
	return res, nil
}

// Analyze computes the order book analysis. Both sides must be non-empty.
func (a *Analyzer) Analyze(bids, asks []types.PriceLevel) (*types.OrderBookAnalysis, error) {
	if len(bids) == 0 {
		return nil, engerrors.NewEmptyBook("orderbook", "Analyze", "bid")
	}
	if len(asks) == 0 {
		return nil, engerrors.NewEmptyBook("orderbook", "Analyze", "ask")
	}

	bestBid := bids[0].Price
	for _, b := range bids[1:] {
		bestBid = math.Max(bestBid, b.Price)
	}
	bestAsk := asks[0].Price
	for _, ask := range asks[1:] {
		bestAsk = math.Min(bestAsk, ask.Price)
	}
	if bestAsk == 0 {
		return nil, engerrors.NewDivisionUndefined("orderbook", "Analyze", "best ask price is 0")
	}

	spread := bestAsk - bestBid

	return &types.OrderBookAnalysis{
		Spread:           spread,
		SpreadPct:        spread / bestAsk * 100,
		BuySellRatio:     BuySellRatio(bids, asks),
		SupportLevels:    TopLevels(bids, a.config.TopLevels),
		ResistanceLevels: TopLevels(asks, a.config.TopLevels),
		BidDistribution:  Distribution(bids, a.config.Buckets),
		AskDistribution:  Distribution(asks, a.config.Buckets),
	}, nil
}

// BuySellRatio is bid notional over ask notional, or 0 when there is no ask notional
func BuySellRatio(bids, asks []types.PriceLevel) float64 {
	var bidNotional, askNotional float64
	for _, b := range bids {
		bidNotional += b.Notional()
	}
	for _, ask := range asks {
		askNotional += ask.Notional()
	}
	if askNotional == 0 {
		return 0
	}
	return bidNotional / askNotional
}

// TopLevels groups equal prices, sums their quantity and returns the n largest.
// Equal quantities are ordered by ascending price.
func TopLevels(side []types.PriceLevel, n int) []types.VolumeLevel {
	grouped := make(map[float64]float64, len(side))
	for _, level := range side {
		grouped[level.Price] += level.Quantity
	}

	levels := make([]types.VolumeLevel, 0, len(grouped))
	for price, qty := range grouped {
		levels = append(levels, types.VolumeLevel{Price: price, Quantity: qty})
	}
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Price < levels[j].Price
	})
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Quantity > levels[j].Quantity
	})

	if len(levels) > n {
		levels = levels[:n]
	}
	return levels
}

// Distribution splits the observed price range of one side into equal-width,
// right-closed buckets and sums notional volume per bucket in price order. The
// first bucket edge sits 0.1% of the range below the minimum so the minimum is
// included; a single-price side is widened by 0.1% on each end.
func Distribution(side []types.PriceLevel, buckets int) []types.DepthBucket {
	if len(side) == 0 || buckets <= 0 {
		return nil
	}

	lo, hi := side[0].Price, side[0].Price
	for _, level := range side[1:] {
		lo = math.Min(lo, level.Price)
		hi = math.Max(hi, level.Price)
	}

	edges := bucketEdges(lo, hi, buckets)
	out := make([]types.DepthBucket, buckets)
	for i := range out {
		out[i] = types.DepthBucket{Lower: edges[i], Upper: edges[i+1]}
	}

	upperEdges := edges[1:]
	for _, level := range side {
		idx := sort.SearchFloat64s(upperEdges, level.Price)
		if idx >= buckets {
			idx = buckets - 1
		}
		out[idx].Volume += level.Notional()
	}
	return out
}

func bucketEdges(lo, hi float64, buckets int) []float64 {
	if lo == hi {
		lo -= widen(lo)
		hi += widen(hi)
		return linspace(lo, hi, buckets+1)
	}
	edges := linspace(lo, hi, buckets+1)
	edges[0] -= (hi - lo) * 0.001
	return edges
}

func widen(v float64) float64 {
	if v == 0 {
		return 0.001
	}
	return 0.001 * math.Abs(v)
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	out[n-1] = hi
	return out
}
