// Package dlogger builds the zap loggers used across braid, with a small
// set of named log levels suitable for a CLI flag.
package dlogger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelInfo enables informational logging
	LogLevelInfo = "info"

	// LogLevelDebug enables verbose logging
	LogLevelDebug = "debug"

	// LogLevelNone disables logging entirely
	LogLevelNone = "none"
)

// LogLevels returns the accepted level names, for flag usage strings
func LogLevels() []string {
	return []string{LogLevelNone, LogLevelInfo, LogLevelDebug}
}

// GetLogger returns a zap logger at the named level.
//
// Stacktraces are disabled: braid surfaces failures as wrapped errors, not
// panics, and traces only add noise to CLI output.
func GetLogger(logLevel string) (*zap.Logger, error) {
	switch logLevel {
	case LogLevelNone, "":
		return zap.NewNop(), nil
	case LogLevelInfo, LogLevelDebug:
	default:
		return nil, fmt.Errorf("unsupported log level %q (one of %v)", logLevel, LogLevels())
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	zapConfig.DisableStacktrace = true
	return zapConfig.Build()
}

// MustGetLogger returns a zap logger at the named level or panics
func MustGetLogger(logLevel string) *zap.Logger {
	l, err := GetLogger(logLevel)
	if err != nil {
		panic(err)
	}
	return l
}
