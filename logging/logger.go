// Package logging builds the structured zap logger shared by the service and the CLI
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/amirphl/avax-blinks/config"
)

func buildLumberjackSyncer(cfg config.LoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize, // megabytes before rotation
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}
}

// New returns a JSON logger writing to stdout, stderr, a rotating file, or stdout plus the file.
// Every entry carries a "service" field.
func New(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var syncers []zapcore.WriteSyncer
	switch cfg.Output {
	case "", "stdout":
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	case "stderr":
		syncers = append(syncers, zapcore.AddSync(os.Stderr))
	case "file":
		syncers = append(syncers, zapcore.AddSync(buildLumberjackSyncer(cfg)))
	case "both":
		syncers = append(syncers, zapcore.AddSync(buildLumberjackSyncer(cfg)), zapcore.AddSync(os.Stdout))
	default:
		return nil, fmt.Errorf("invalid log output %q", cfg.Output)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.NewMultiWriteSyncer(syncers...), level)

	opts := []zap.Option{zap.Fields(zap.String("service", service))}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...), nil
}
