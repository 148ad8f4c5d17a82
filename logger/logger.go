package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.SugaredLogger
	atom = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	encoderCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "lvl",
		TimeKey:        "time",
		NameKey:        zapcore.OmitKey,
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(os.Stderr),
		atom,
	)

	log = zap.New(core).Sugar()
}

// SetLevel переключает уровень логирования ("debug", "info", "warn", "error").
func SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logger: неизвестный уровень %q: %w", level, err)
	}
	atom.SetLevel(lvl)
	return nil
}

// Sync сбрасывает буферы логгера; вызывается перед выходом из процесса.
func Sync() {
	_ = log.Sync()
}

func Debugf(format string, args ...any) { log.Debugf(format, args...) }
func Infof(format string, args ...any)  { log.Infof(format, args...) }
func Warnf(format string, args ...any)  { log.Warnf(format, args...) }
func Errorf(format string, args ...any) { log.Errorf(format, args...) }

// Fatalf пишет сообщение и завершает процесс с кодом 1.
func Fatalf(format string, args ...any) { log.Fatalf(format, args...) }
