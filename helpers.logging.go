package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SyncWrite implements zap.SyncWriter. This is a small hack to avoid usual
// `Handle is invalid` error when calling Sync() on logger using os.stdout.
type SyncWrite struct {
	out *os.File
}

func (sw *SyncWrite) Sync() error {
	return nil
}

func (sw *SyncWrite) Write(p []byte) (n int, err error) {
	return sw.out.Write(p)
}

// OpenLogFile ensures the logs folder exists and opens the log file in append mode.
// The returned closer must be called once the logger is no longer used.
func OpenLogFile(path string) (*os.File, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logging file: %s", err)
	}
	closer := func() {
		if cerr := file.Close(); cerr != nil {
			fmt.Println("error during closing of log file: ", cerr)
		}
	}
	return file, closer, nil
}

func encoderConfig(base zapcore.EncoderConfig) zapcore.EncoderConfig {
	base.TimeKey = "ts"
	base.EncodeTime = zapcore.ISO8601TimeEncoder
	base.LevelKey = "lvl"
	base.NameKey = "name"
	base.MessageKey = "msg"
	base.CallerKey = "caller"
	base.StacktraceKey = "skt"
	return base
}

// SetupLogging is a helper function that initializes the logging module.
// In production all logs are saved as json into w. In development the same
// logs are printed to standard output as well. It only adds stacktrace to
// fatal level logs. All logs come with commit, tag and build time values.
func SetupLogging(config *Config, w zapcore.WriteSyncer, clock zapcore.Clock) (*zap.Logger, func() error) {
	var core zapcore.Core
	if config.IsProduction {
		fileEncoder := zapcore.NewJSONEncoder(encoderConfig(zap.NewProductionEncoderConfig()))
		core = zapcore.NewCore(fileEncoder, w, config.LogLevel)
	} else {
		zapConfig := encoderConfig(zap.NewDevelopmentEncoderConfig())
		core = zapcore.NewTee(
			zapcore.NewCore(zapcore.NewJSONEncoder(zapConfig), w, config.LogLevel),
			zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.Lock(&SyncWrite{os.Stdout}), config.LogLevel),
		)
	}

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.FatalLevel), zap.WithClock(clock))
	logger = logger.With(
		zap.String("app.commit", config.GitCommit),
		zap.String("app.tag", config.GitTag),
		zap.String("app.built", config.BuildTime),
	)

	flusher := func() error {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("[flush logs]: %w", err)
		}
		return nil
	}

	return logger, flusher
}
