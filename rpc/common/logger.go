package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Loggers lists all package loggers of dGrid
var Loggers = []string{
	"transport/conn",
	"transport/rpc",
	"rpc",
	"server",
	"store",
}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// dGridLogger implements the ILogger interface on top of the shared zap logger.
// The level is checked here, the zap core itself logs everything from debug up.
type dGridLogger struct {
	name  string
	level zap.AtomicLevel
	named atomic.Pointer[namedLogger]
}

// namedLogger caches the named child of one base logger
type namedLogger struct {
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

// sugar returns the named logger of the current base logger. The base logger
// changes when InitLoggers is called after the package logger was created.
func (l *dGridLogger) sugar() *zap.SugaredLogger {
	base := baseLogger.Load()
	if n := l.named.Load(); n != nil && n.base == base {
		return n.sugar
	}
	n := &namedLogger{base: base, sugar: base.Named(l.name).Sugar()}
	l.named.Store(n)
	return n.sugar
}

func (l *dGridLogger) SetLevel(level logger.LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

func (l *dGridLogger) Debugf(format string, args ...interface{}) {
	if l.level.Enabled(zapcore.DebugLevel) {
		l.sugar().Debugf(format, args...)
	}
}

func (l *dGridLogger) Infof(format string, args ...interface{}) {
	if l.level.Enabled(zapcore.InfoLevel) {
		l.sugar().Infof(format, args...)
	}
}

func (l *dGridLogger) Warningf(format string, args ...interface{}) {
	if l.level.Enabled(zapcore.WarnLevel) {
		l.sugar().Warnf(format, args...)
	}
}

func (l *dGridLogger) Errorf(format string, args ...interface{}) {
	if l.level.Enabled(zapcore.ErrorLevel) {
		l.sugar().Errorf(format, args...)
	}
}

func (l *dGridLogger) Panicf(format string, args ...interface{}) {
	l.sugar().Panicf(format, args...)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

var (
	baseLogger     atomic.Pointer[zap.Logger]
	installFactory sync.Once
)

func init() {
	baseLogger.Store(newZapLogger(LogConfig{}))
}

// CreateLogger implements the logger.Factory interface
func CreateLogger(pkgName string) logger.ILogger {
	return &dGridLogger{
		name:  pkgName,
		level: zap.NewAtomicLevelAt(zapcore.InfoLevel),
	}
}

// newZapLogger builds the zap logger all package loggers write through
func newZapLogger(config LogConfig) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(config.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	// package loggers filter by level themselves
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zapcore.DebugLevel),
	}

	if config.File != "" {
		rotated := zapcore.AddSync(&lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    max(config.MaxSizeMB, 10),
			MaxBackups: max(config.MaxBackups, 1),
			MaxAge:     max(config.MaxAgeDays, 7),
			Compress:   config.Compress,
		})
		cores = append(cores, zapcore.NewCore(encoder, rotated, zapcore.DebugLevel))
	}

	return zap.New(zapcore.NewTee(cores...))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

func toZapLevel(level logger.LogLevel) zapcore.Level {
	switch level {
	case logger.DEBUG:
		return zapcore.DebugLevel
	case logger.INFO:
		return zapcore.InfoLevel
	case logger.WARNING:
		return zapcore.WarnLevel
	case logger.ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.DPanicLevel
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the zap backed logger factory, applies the output
// settings of config and sets the level of all dGrid loggers.
func InitLoggers(config LogConfig) error {
	level, err := ParseLogLevel(config.Level)
	if err != nil {
		return err
	}

	old := baseLogger.Swap(newZapLogger(config))
	_ = old.Sync()

	// dragonboat panics if the factory is set twice
	installFactory.Do(func() { logger.SetLoggerFactory(CreateLogger) })

	for _, name := range Loggers {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
