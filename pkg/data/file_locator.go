package data

import (
	"os"
	"strconv"
	"strings"

	"github.com/xhit/go-str2duration/v2"
	"go.uber.org/zap"
)

// IntervalToMinutes converts interval strings like "5m", "1h", "4h", "1d" to minutes.
// Plain numbers are returned unchanged; anything unparsable is returned as given.
func IntervalToMinutes(interval string) string {
	interval = strings.TrimSpace(interval)
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}
	d, err := str2duration.ParseDuration(strings.ToLower(interval))
	if err != nil || d <= 0 {
		return interval
	}
	return strconv.Itoa(int(d.Minutes()))
}

// FindDataFile locates a candle file laid out as
// {dataRoot}/{exchange}/{category}/{SYMBOL}/{minutes}/candles.csv.
// Returns an empty string when nothing exists.
func FindDataFile(log *zap.Logger, dataRoot, exchange, symbol, interval string) string {
	if log == nil {
		log = zap.NewNop()
	}

	var categories []string
	switch strings.ToLower(exchange) {
	case "bybit":
		categories = []string{"spot", "linear", "inverse"}
	case "binance":
		categories = []string{"spot", "futures"}
	default:
		categories = []string{"spot", "futures", "linear", "inverse"}
	}

	attempted := make([]string, 0, len(categories))
	for _, category := range categories {
		path := CandleFilePath(dataRoot, exchange, category, symbol, interval)
		attempted = append(attempted, path)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	log.Warn("no data file found",
		zap.String("exchange", exchange), zap.String("symbol", symbol),
		zap.String("interval", interval), zap.Strings("attempted", attempted))
	return ""
}
