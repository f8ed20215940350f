package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

// Kline row layout as served by spot exchanges:
// open_time, open, high, low, close, volume, close_time, quote_volume, trade_count,
// taker_buy_base_volume, taker_buy_quote_volume, ignore.
// Only the first six fields are read.
const (
	klineOpenTime = iota
	klineOpen
	klineHigh
	klineLow
	klineClose
	klineVolume

	klineMinFields
)

// ParseDecimal parses a numeric field exactly and converts it to float64.
// Empty or malformed values fail with a MissingColumns error naming the field.
func ParseDecimal(field, value string) (float64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, engerrors.NewMissingColumns("data", "ParseDecimal",
			fmt.Sprintf("field %s: invalid number %q", field, value)).WithContext("field", field)
	}
	return d.InexactFloat64(), nil
}

// ParseKlineRows converts raw kline rows into candles. Cells may be JSON numbers or strings.
func ParseKlineRows(rows [][]interface{}) ([]types.OHLCV, error) {
	out := make([]types.OHLCV, 0, len(rows))
	for i, row := range rows {
		if len(row) < klineMinFields {
			return nil, engerrors.NewMissingColumns("data", "ParseKlineRows",
				fmt.Sprintf("row %d has %d fields, need %d", i, len(row), klineMinFields)).
				WithContext("row", i)
		}
		cells := make([]string, klineMinFields)
		for j := 0; j < klineMinFields; j++ {
			s, err := cellString(row[j])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			cells[j] = s
		}
		candle, err := parseKlineCells(cells)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, candle)
	}
	return out, nil
}

// ParseKlineStrings converts kline rows whose cells are all strings
func ParseKlineStrings(rows [][]string) ([]types.OHLCV, error) {
	out := make([]types.OHLCV, 0, len(rows))
	for i, row := range rows {
		if len(row) < klineMinFields {
			return nil, engerrors.NewMissingColumns("data", "ParseKlineStrings",
				fmt.Sprintf("row %d has %d fields, need %d", i, len(row), klineMinFields)).
				WithContext("row", i)
		}
		candle, err := parseKlineCells(row[:klineMinFields])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, candle)
	}
	return out, nil
}

// ParseKlineJSON decodes a JSON array of kline rows
func ParseKlineJSON(raw []byte) ([]types.OHLCV, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows [][]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, engerrors.NewMissingColumns("data", "ParseKlineJSON", "kline payload is not an array of rows").
			WithContext("cause", err.Error())
	}
	return ParseKlineRows(rows)
}

func parseKlineCells(cells []string) (types.OHLCV, error) {
	ms, err := strconv.ParseInt(cells[klineOpenTime], 10, 64)
	if err != nil {
		// some feeds send the open time as a float string
		f, ferr := ParseDecimal("open_time", cells[klineOpenTime])
		if ferr != nil {
			return types.OHLCV{}, ferr
		}
		ms = int64(f)
	}

	var vals [5]float64
	names := [5]string{"open", "high", "low", "close", "volume"}
	for k := range vals {
		v, err := ParseDecimal(names[k], cells[klineOpen+k])
		if err != nil {
			return types.OHLCV{}, err
		}
		vals[k] = v
	}

	return types.OHLCV{
		Timestamp: time.UnixMilli(ms).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

func cellString(v interface{}) (string, error) {
	switch c := v.(type) {
	case string:
		return c, nil
	case json.Number:
		return c.String(), nil
	case float64:
		return decimal.NewFromFloat(c).String(), nil
	case int64:
		return strconv.FormatInt(c, 10), nil
	case int:
		return strconv.Itoa(c), nil
	default:
		return "", engerrors.NewMissingColumns("data", "ParseKlineRows",
			fmt.Sprintf("unsupported cell type %T", v))
	}
}

// ParseDepthLevels converts [price, quantity] string pairs into price levels
func ParseDepthLevels(rows [][]string) ([]types.PriceLevel, error) {
	out := make([]types.PriceLevel, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, engerrors.NewMissingColumns("data", "ParseDepthLevels",
				fmt.Sprintf("level %d has %d fields, need 2", i, len(row)))
		}
		price, err := ParseDecimal("price", row[0])
		if err != nil {
			return nil, err
		}
		qty, err := ParseDecimal("quantity", row[1])
		if err != nil {
			return nil, err
		}
		out = append(out, types.PriceLevel{Price: price, Quantity: qty})
	}
	return out, nil
}
