// Package logs builds the zap loggers statusrelay uses. stdout carries the bar
// protocol, so nothing here ever writes to it.
package logs

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"statusrelay/internal/config"
)

// SetupLogger creates the main logger from the logging configuration.
// Console output goes to stderr; file output is rotated by lumberjack.
func SetupLogger(logConfig *config.LogConfig) (*zap.Logger, error) {
	if logConfig == nil {
		logConfig = config.DefaultLogConfig()
	}

	level := parseLevel(logConfig.Level)

	var cores []zapcore.Core
	if logConfig.EnableConsole {
		cores = append(cores, createConsoleCore(logConfig, level))
	}
	if logConfig.EnableFile {
		fileCore, err := createFileCore(logConfig, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create file core: %w", err)
		}
		cores = append(cores, fileCore)
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// parseLevel maps a configured level name to a zap level. trace has no zap
// equivalent and logs at debug.
func parseLevel(name string) zapcore.Level {
	switch name {
	case config.LogLevelTrace, config.LogLevelDebug:
		return zap.DebugLevel
	case config.LogLevelInfo:
		return zap.InfoLevel
	case config.LogLevelWarn:
		return zap.WarnLevel
	case config.LogLevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return encCfg
}

func createConsoleCore(logConfig *config.LogConfig, level zapcore.Level) zapcore.Core {
	encCfg := encoderConfig()
	var encoder zapcore.Encoder
	if logConfig.JSONFormat {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}
	return zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
}

func createFileCore(logConfig *config.LogConfig, level zapcore.Level) (zapcore.Core, error) {
	logDir, err := ResolveLogDir(logConfig.LogDir)
	if err != nil {
		return nil, err
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, logConfig.Filename),
		MaxSize:    logConfig.MaxSize,
		MaxBackups: logConfig.MaxBackups,
		MaxAge:     logConfig.MaxAge,
		Compress:   logConfig.Compress,
	}

	encCfg := encoderConfig()
	var encoder zapcore.Encoder
	if logConfig.JSONFormat {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	return zapcore.NewCore(encoder, zapcore.AddSync(writer), level), nil
}

// ResolveLogDir returns dir, or $XDG_STATE_HOME/statusrelay when dir is empty,
// and makes sure it exists.
func ResolveLogDir(dir string) (string, error) {
	if dir == "" {
		base := os.Getenv("XDG_STATE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to resolve home directory: %w", err)
			}
			base = filepath.Join(home, ".local", "state")
		}
		dir = filepath.Join(base, "statusrelay")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	return dir, nil
}
