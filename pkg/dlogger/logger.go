// Package dlogger exposes a simple zap logger, with log levels
package dlogger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelInfo sets the log level to info
	LogLevelInfo = "info"

	// LogLevelDebug sets the log level to debug
	LogLevelDebug = "debug"

	// LogLevelNone sets logger to no logging
	LogLevelNone = "none"
)

// Encoding of the log output
type Encoding string

const (
	// EncodingConsole renders human friendly log lines, for terminals
	EncodingConsole Encoding = "console"

	// EncodingJSON renders structured log lines
	EncodingJSON Encoding = "json"
)

// GetLogger returns a zap logger with the specified level, writing to stderr
func GetLogger(logLevel string) (*zap.Logger, error) {
	return GetLoggerWithEncoding(logLevel, EncodingJSON)
}

// GetLoggerWithEncoding returns a zap logger with the specified level and encoding.
//
// The console encoding drops caller and stack traces, and uses a short timestamp.
func GetLoggerWithEncoding(logLevel string, encoding Encoding) (*zap.Logger, error) {
	if logLevel == LogLevelNone {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	if encoding == EncodingConsole {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Development = false
		zapConfig.DisableCaller = true
		zapConfig.DisableStacktrace = true
		zapConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	zapConfig.OutputPaths = []string{"stderr"}

	return zapConfig.Build()
}

// MustGetLogger returns a zap logger with the specified level or panics
func MustGetLogger(logLevel string) *zap.Logger {
	l, err := GetLogger(logLevel)
	if err != nil {
		panic(err)
	}
	return l
}
