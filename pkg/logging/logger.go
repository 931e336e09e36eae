package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"fmsgo/pkg/config"
	"fmsgo/pkg/model"
)

// RequestLogger is the logger instance for HTTP requests.
var RequestLogger = slog.Default()

// eventLog is the rotating writer behind LogEvent.
var eventLog *lumberjack.Logger

// eventLogMu protects eventLog.
var eventLogMu sync.Mutex

// Init initializes the logging system based on configuration.
// It returns a cleanup function that closes the log files and restores the previous loggers.
func Init(cfg *config.LogConfig) (func(), error) {
	EnableTrace = cfg.Trace
	prevDefault, prevRequests := slog.Default(), RequestLogger

	var closers []io.Closer

	// 1. Server Logger (Stdout + File)
	serverHandler, w1, err := setupHandler(cfg.Server, true)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}
	closers = append(closers, w1)
	slog.SetDefault(slog.New(serverHandler))

	// 2. Requests Logger (File Only)
	requestHandler, w2, err := setupHandler(cfg.Requests, false)
	if err != nil {
		w1.Close()
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}
	closers = append(closers, w2)
	RequestLogger = slog.New(requestHandler)

	// 3. Event Log
	if err := SetEventLog(cfg.Events); err != nil {
		w1.Close()
		w2.Close()
		return nil, fmt.Errorf("failed to setup event log: %w", err)
	}

	return func() {
		slog.SetDefault(prevDefault)
		RequestLogger = prevRequests
		for _, c := range closers {
			c.Close()
		}
		eventLogMu.Lock()
		if eventLog != nil {
			eventLog.Close()
			eventLog = nil
		}
		eventLogMu.Unlock()
	}, nil
}

// ParseLevel maps DEBUG, INFO, WARN and ERROR (any case) to a slog level. Unknown values are INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
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

// newRotatingWriter opens a rotating log file. An existing non-empty log is rotated away so
// every run starts with a fresh file while previous runs are kept as backups.
func newRotatingWriter(s config.LogSettings) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return nil, err
	}
	w := &lumberjack.Logger{
		Filename:   s.Path,
		MaxSize:    s.MaxSizeMB, // MB, 0 means the lumberjack default
		MaxBackups: s.MaxBackups,
	}
	if info, err := os.Stat(s.Path); err == nil && info.Size() > 0 {
		if err := w.Rotate(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func setupHandler(s config.LogSettings, stdout bool) (slog.Handler, *lumberjack.Logger, error) {
	level := ParseLevel(s.Level)

	w, err := newRotatingWriter(s)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}
	fileHandler := slog.NewTextHandler(w, opts)

	if !stdout {
		return fileHandler, w, nil
	}

	// Console Handler - only INFO and up
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: max(level, slog.LevelInfo),
	})

	// Capture Handler - last line for the status endpoint
	captureHandler := slog.NewTextHandler(GlobalLogCapture, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return NewMultiHandler(fileHandler, consoleHandler, captureHandler), w, nil
}

type multiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler fans records out to every handler that accepts their level.
func NewMultiHandler(handlers ...slog.Handler) slog.Handler {
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler
// nolint:gocritic // r must be passed by value to implement slog.Handler
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// SetEventLog configures the event log file. An empty path disables it.
func SetEventLog(s config.LogSettings) error {
	eventLogMu.Lock()
	defer eventLogMu.Unlock()

	if eventLog != nil {
		eventLog.Close()
		eventLog = nil
	}
	if s.Path == "" {
		return nil
	}
	w, err := newRotatingWriter(s)
	if err != nil {
		return err
	}
	eventLog = w
	return nil
}

// LogEvent writes a flight event to the event log file.
func LogEvent(event *model.FlightEvent) {
	// Format: [2006-01-02 15:04:05] [type] Title - Summary
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] [%s] %s", ts.Format("2006-01-02 15:04:05"), event.Type, event.Title)
	if event.Summary != "" {
		line += " - " + event.Summary
	}

	// Also capture for the status endpoint
	_, _ = GlobalEventCapture.Write([]byte(line))

	eventLogMu.Lock()
	defer eventLogMu.Unlock()
	if eventLog == nil {
		return
	}
	if _, err := eventLog.Write([]byte(line + "\n")); err != nil {
		slog.Error("failed to write event log", "error", err)
	}
}
