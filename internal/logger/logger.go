// Package logger is the process-wide structured logger. It wraps log/slog
// with a colored text handler for terminals, a JSON handler for everything
// else, and a root logger that follows reconfiguration at runtime.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a logging threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// slog spaces its levels four apart, starting at -4 for debug.
func (l Level) slogLevel() slog.Level {
	return slog.Level(4 * (int(l) - 1))
}

// ParseLevel parses DEBUG, INFO, WARN (or WARNING) and ERROR, ignoring case.
// Unknown names yield LevelInfo and false.
func ParseLevel(s string) (Level, bool) {
	s = strings.ToUpper(s)
	if s == "WARNING" {
		return LevelWarn, true
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

// sink is where records go and how they are rendered.
type sink struct {
	w      io.Writer
	closer io.Closer
	color  bool
	json   bool
}

var (
	levelVar slog.LevelVar

	mu      sync.RWMutex
	current = sink{w: os.Stdout, color: isTerminal(os.Stdout.Fd())}
	base    slog.Handler

	root = slog.New(&liveHandler{})
)

func init() {
	levelVar.Set(LevelInfo.slogLevel())
	rebuild()
}

// rebuild swaps the base handler for the current sink. Level changes flow
// through levelVar and do not need one.
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: &levelVar}
	if current.json {
		base = slog.NewJSONHandler(current.w, opts)
		return
	}
	base = NewColorTextHandler(current.w, opts, current.color)
}

func currentHandler() slog.Handler {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// openOutput resolves stdout, stderr or a file path to a sink destination.
func openOutput(name string) (io.Writer, io.Closer, bool, error) {
	switch strings.ToLower(name) {
	case "stdout":
		return os.Stdout, nil, isTerminal(os.Stdout.Fd()), nil
	case "stderr":
		return os.Stderr, nil, isTerminal(os.Stderr.Fd()), nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to open log file %q: %w", name, err)
	}
	return f, f, false, nil
}

// Init applies cfg. Empty fields keep their current value. A log file opened
// by an earlier Init is closed once the output moves away from it.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, c, color, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}

		mu.Lock()
		previous := current.closer
		current.w, current.closer, current.color = w, c, color
		mu.Unlock()

		if previous != nil {
			_ = previous.Close()
		}
	}

	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	rebuild()
	return nil
}

// InitWithWriter points the logger at w. Tests use it to capture output.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	mu.Lock()
	current.w, current.color = w, enableColor
	mu.Unlock()

	SetLevel(level)
	SetFormat(format)
	rebuild()
}

// SetLevel sets the minimum level. Unknown names are ignored.
func SetLevel(level string) {
	if l, ok := ParseLevel(level); ok {
		levelVar.Set(l.slogLevel())
	}
}

// GetLevel returns the minimum level.
func GetLevel() Level {
	return Level(levelVar.Level()/4 + 1)
}

// SetFormat switches between text and json. Unknown formats are ignored.
func SetFormat(format string) {
	var asJSON bool
	switch strings.ToLower(format) {
	case "json":
		asJSON = true
	case "text":
	default:
		return
	}

	mu.Lock()
	current.json = asJSON
	mu.Unlock()
	rebuild()
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	return root
}

// ============================================================================
// Structured Logging API
// ============================================================================

// Debug logs at debug level.
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) { root.Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { root.Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { root.Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { root.Error(msg, args...) }

// DebugCtx logs at debug level, adding the LogContext fields of ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, LevelDebug, msg, args)
}

// InfoCtx logs at info level, adding the LogContext fields of ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, LevelInfo, msg, args)
}

// WarnCtx logs at warn level, adding the LogContext fields of ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, LevelWarn, msg, args)
}

// ErrorCtx logs at error level, adding the LogContext fields of ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	logCtx(ctx, LevelError, msg, args)
}

func logCtx(ctx context.Context, level Level, msg string, args []any) {
	if !root.Enabled(ctx, level.slogLevel()) {
		return
	}
	root.Log(ctx, level.slogLevel(), msg, contextArgs(ctx, args)...)
}

// contextArgs puts the non-empty LogContext fields in front of args.
func contextArgs(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := [...]struct{ key, value string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeyListenerID, lc.ListenerID},
		{KeyQueueName, lc.QueueName},
	}
	out := make([]any, 0, 2*len(fields)+len(args))
	for _, f := range fields {
		if f.value != "" {
			out = append(out, f.key, f.value)
		}
	}
	return append(out, args...)
}

// With returns a logger with extra attributes. It keeps following SetLevel,
// SetFormat and Init.
func With(args ...any) *slog.Logger {
	return root.With(args...)
}

// Duration returns the milliseconds elapsed since start.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
