package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled package logger used by the server and the CLI.
// - backed by a zap SugaredLogger with a console encoder on stdout
// - provides Debug/Info/Warn/Error/Fatal variants and Init(level)

var (
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger = build(zapcore.Lock(os.Stdout))
)

func build(ws zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level)
	return zap.New(core).Sugar()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		level.SetLevel(zapcore.FatalLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

func Debugf(format string, v ...interface{}) { logger.Debugf(format, v...) }
func Infof(format string, v ...interface{})  { logger.Infof(format, v...) }
func Warnf(format string, v ...interface{})  { logger.Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { logger.Errorf(format, v...) }

// Fatalf logs and exits with status 1 regardless of level.
func Fatalf(format string, v ...interface{}) { logger.Fatalf(format, v...) }

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	logger.Info(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	return level.Level().String()
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	_ = logger.Sync()
}
