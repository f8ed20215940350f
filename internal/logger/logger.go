package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// Options configure a Logger
type Options struct {
	// Level is a zap level name: debug, info, warn, error
	Level string
	// File adds a JSON sink at this path when set
	File string
	// Console receives human readable output, stderr when nil
	Console io.Writer
}

// Logger is a structured logger with helpers for simulated grid activity
type Logger struct {
	zap  *zap.Logger
	file *os.File
	mu   sync.Mutex
}

// New builds a logger with a console core and an optional JSON file core
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(console), level),
	}

	l := &Logger{}
	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level))
	}

	l.zap = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return l, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Zap exposes the underlying logger for packages that take a *zap.Logger
func (l *Logger) Zap() *zap.Logger {
	return l.zap.WithOptions(zap.AddCallerSkip(-1))
}

// With returns a child logger carrying fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...)}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }

func (l *Logger) Info(msg string, fields ...zap.Field) { l.zap.Info(msg, fields...) }

func (l *Logger) Warn(msg string, fields ...zap.Field) { l.zap.Warn(msg, fields...) }

func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// Trade logs a simulated fill
func (l *Logger) Trade(symbol string, trade types.Trade) {
	l.zap.Debug("grid fill",
		zap.String("symbol", symbol),
		zap.String("side", string(trade.Side)),
		zap.Float64("price", trade.Price),
		zap.Float64("amount", trade.Amount),
		zap.Time("time", trade.Timestamp),
	)
}

// Backtest logs the outcome of a simulation
func (l *Logger) Backtest(result *types.BacktestResult) {
	l.zap.Info("backtest complete",
		zap.String("symbol", result.Symbol),
		zap.Int("grid_count", len(result.GridLevels)),
		zap.Float64("final_value", result.FinalValue),
		zap.Float64("profit_pct", result.ProfitPct),
		zap.Int("trades", result.TradeCount),
	)
}

// Close flushes buffered entries and closes the file sink
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.zap.Sync()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
