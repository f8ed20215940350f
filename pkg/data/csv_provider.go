package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

// CSVProvider implements DataProvider for CSV files
type CSVProvider struct {
	format CSVColumnMapping
	log    *zap.Logger
}

// NewCSVProvider creates a new CSV data provider with default format
func NewCSVProvider(log *zap.Logger) *CSVProvider {
	return NewCSVProviderWithFormat(DefaultCSVFormat, log)
}

// NewCSVProviderWithFormat creates a new CSV data provider with custom format
func NewCSVProviderWithFormat(format CSVColumnMapping, log *zap.Logger) *CSVProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &CSVProvider{
		format: format,
		log:    log,
	}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads historical data from a CSV file
func (p *CSVProvider) LoadData(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open candle file: %w", err)
	}
	defer file.Close()

	data, err := p.Read(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return data, nil
}

// Read parses candles from r. Rows with too few columns or unparsable values are
// skipped with a warning; the result is sorted with duplicate timestamps removed.
func (p *CSVProvider) Read(r io.Reader) ([]types.OHLCV, error) {
	format := p.format
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	lineNum := 0
	if format.HasHeader {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, engerrors.NewEmptyHistory("data", "ReadCSV")
			}
			return nil, err
		}
		lineNum++
	}

	var data []types.OHLCV
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum+1, err)
		}
		lineNum++

		if len(record) < format.MinColumns {
			p.log.Warn("insufficient columns, skipping",
				zap.Int("line", lineNum), zap.Int("expected", format.MinColumns), zap.Int("got", len(record)))
			continue
		}

		candle, err := p.parseRecord(record)
		if err != nil {
			p.log.Warn("invalid row, skipping", zap.Int("line", lineNum), zap.Error(err))
			continue
		}

		if candle.Open <= 0 || candle.High <= 0 || candle.Low <= 0 || candle.Close <= 0 {
			p.log.Warn("non-positive price, skipping", zap.Int("line", lineNum))
			continue
		}
		if candle.High < candle.Low {
			p.log.Warn("high below low, skipping", zap.Int("line", lineNum))
			continue
		}

		data = append(data, candle)
	}

	return Normalize(data), nil
}

func (p *CSVProvider) parseRecord(record []string) (types.OHLCV, error) {
	format := p.format

	var timestamp time.Time
	raw := record[format.TimestampCol]
	if format.DateFormat == "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return types.OHLCV{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
		timestamp = time.UnixMilli(ms).UTC()
	} else {
		t, err := time.Parse(format.DateFormat, raw)
		if err != nil {
			return types.OHLCV{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
		timestamp = t
	}

	candle := types.OHLCV{Timestamp: timestamp}
	fields := []struct {
		name string
		col  int
		dst  *float64
	}{
		{"open", format.OpenCol, &candle.Open},
		{"high", format.HighCol, &candle.High},
		{"low", format.LowCol, &candle.Low},
		{"close", format.CloseCol, &candle.Close},
		{"volume", format.VolumeCol, &candle.Volume},
	}

	for _, f := range fields {
		v, err := ParseDecimal(f.name, record[f.col])
		if err != nil {
			return types.OHLCV{}, err
		}
		*f.dst = v
	}
	return candle, nil
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return engerrors.NewEmptyHistory("data", "ValidateData")
	}

	for i, candle := range data {
		if candle.Open <= 0 || candle.High <= 0 || candle.Low <= 0 || candle.Close <= 0 {
			return engerrors.NewDivisionUndefined("data", "ValidateData",
				fmt.Sprintf("invalid price data at index %d: prices must be positive", i)).
				WithContext("index", i)
		}

		if candle.High < candle.Low {
			return engerrors.NewInvalidInput("data", "ValidateData",
				fmt.Sprintf("invalid price data at index %d: high (%.4f) cannot be less than low (%.4f)",
					i, candle.High, candle.Low)).
				WithContext("index", i)
		}
	}

	return ValidateTimeSequence(data)
}
