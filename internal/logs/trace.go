package logs

import (
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"statusrelay/internal/config"
)

// Trace directions
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// TraceLogger records every protocol line read from the producer and written to
// the bar in a dedicated JSON file.
type TraceLogger struct {
	logger  *zap.Logger
	config  *config.TraceLogConfig
	enabled bool
}

// NewTraceLogger creates a trace logger; a disabled one is returned when tracing is off.
func NewTraceLogger(logConfig *config.LogConfig) (*TraceLogger, error) {
	if logConfig == nil || logConfig.Trace == nil || !logConfig.Trace.Enabled {
		return &TraceLogger{enabled: false}, nil
	}

	traceConfig := logConfig.Trace

	fileLogConfig := &config.LogConfig{
		Level:         logConfig.Level,
		EnableFile:    true,
		EnableConsole: false,
		Filename:      traceConfig.Filename,
		LogDir:        logConfig.LogDir,
		MaxSize:       logConfig.MaxSize,
		MaxBackups:    logConfig.MaxBackups,
		MaxAge:        logConfig.MaxAge,
		Compress:      logConfig.Compress,
		JSONFormat:    true, // Always use JSON format for trace logs
	}

	// Lines are traced regardless of the main level
	fileCore, err := createFileCore(fileLogConfig, zapcore.DebugLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace log file core: %w", err)
	}

	return WrapTraceLogger(zap.New(fileCore), traceConfig), nil
}

// WrapTraceLogger traces to an existing logger instead of the trace file.
func WrapTraceLogger(logger *zap.Logger, traceConfig *config.TraceLogConfig) *TraceLogger {
	return &TraceLogger{
		logger:  logger,
		config:  traceConfig,
		enabled: true,
	}
}

// LogInput records a line read from the producer
func (tl *TraceLogger) LogInput(state string, seq uint64, line string) {
	if !tl.enabled || !tl.config.LogInput {
		return
	}
	tl.logLine(DirectionIn, state, seq, line, 0)
}

// LogOutput records a line written to the bar together with the time spent producing it
func (tl *TraceLogger) LogOutput(state string, seq uint64, line string, elapsed time.Duration) {
	if !tl.enabled || !tl.config.LogOutput {
		return
	}
	tl.logLine(DirectionOut, state, seq, line, elapsed)
}

func (tl *TraceLogger) logLine(direction, state string, seq uint64, line string, elapsed time.Duration) {
	payload, truncated := truncatePayload(line, tl.config.MaxPayloadSize)

	fields := []zap.Field{
		zap.String("direction", direction),
		zap.String("state", state),
		zap.Uint64("seq", seq),
		zap.Int("size", len(line)),
		zap.String("payload", payload),
	}
	if truncated {
		fields = append(fields, zap.Bool("truncated", true))
	}
	if elapsed > 0 {
		fields = append(fields, zap.Duration("elapsed", elapsed))
	}

	tl.logger.Info("protocol_line", fields...)
}

// truncatePayload cuts line to at most limit bytes without splitting a rune.
func truncatePayload(line string, limit int) (string, bool) {
	if limit <= 0 || len(line) <= limit {
		return line, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut], true
}

// Close flushes the trace log
func (tl *TraceLogger) Close() error {
	if tl.enabled && tl.logger != nil {
		return tl.logger.Sync()
	}
	return nil
}

// IsEnabled returns whether trace logging is enabled
func (tl *TraceLogger) IsEnabled() bool {
	return tl.enabled
}
