// Package logging builds the engine's slog pipeline: console plus log
// file, optionally bridged into OTel, with every record stamped with
// the live simulation context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const otelLoggerName = "quakesim-engine"

// SlogManager owns the configured logger. Setup may be called more
// than once; the bootstrap re-runs it after config is loaded.
type SlogManager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// rfc3339Times rewrites the time attribute so file and console output
// sort lexically across runs.
func rfc3339Times(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
		}
	}
	return a
}

// Setup wires the sinks. file and provider may be nil. simContext,
// when non-nil, stamps every record with the current simulation state
// (run state, elapsed seconds) so log lines line up with the frame
// they were written in.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, simContext ContextProvider) {
	m.logProvider = provider

	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: rfc3339Times,
	}

	handlers := []slog.Handler{slog.NewTextHandler(os.Stdout, opts)}
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, opts))
	}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(otelLoggerName, otelslog.WithLoggerProvider(provider)))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if simContext != nil {
		handler = NewContextHandler(handler, simContext)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes out any OTel-buffered records.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider == nil {
		return nil
	}
	return m.logProvider.ForceFlush(ctx)
}

// WriteLog emits a record attributed to a named subsystem at the given
// level. Command handlers use this for uniform command feedback.
func (m *SlogManager) WriteLog(subsystem, data, level string) {
	if m.logger == nil {
		return
	}
	switch parseLevel(level) {
	case slog.LevelDebug:
		m.logger.Debug(data, "subsystem", subsystem)
	case slog.LevelWarn:
		m.logger.Warn(data, "subsystem", subsystem)
	case slog.LevelError:
		m.logger.Error(data, "subsystem", subsystem)
	default:
		m.logger.Info(data, "subsystem", subsystem)
	}
}
