package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// poster is the subset of *fluent.Fluent the logger ships records through.
type poster interface {
	Post(tag string, message any) error
}

type Config struct {
	// Writer defaults to os.Stdout.
	Writer io.Writer
	Level  slog.Level
	JSON   bool
	Color  bool

	// Sink receives a copy of every record at or above SinkLevel, tagged
	// with the level name.
	Sink      poster
	SinkLevel slog.Level
}

type Logger struct {
	l         *slog.Logger
	sink      poster
	sinkLevel slog.Level
	fields    map[string]any
}

func New(conf Config) *Logger {
	w := conf.Writer
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler

	switch {
	case conf.JSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: conf.Level}) //nolint:exhaustruct
	case conf.Color:
		//nolint:exhaustruct
		handler = tint.NewHandler(w, &tint.Options{
			Level:      conf.Level,
			TimeFormat: time.DateTime,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: conf.Level}) //nolint:exhaustruct
	}

	return &Logger{
		l:         slog.New(handler),
		sink:      conf.Sink,
		sinkLevel: conf.SinkLevel,
		fields:    map[string]any{},
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(Config{Writer: io.Discard}) //nolint:exhaustruct
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	fields := make(map[string]any, len(l.fields)+len(args)/2) //nolint:gomnd
	for k, v := range l.fields {
		fields[k] = v
	}

	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}

	return &Logger{
		l:         l.l.With(args...),
		sink:      l.sink,
		sinkLevel: l.sinkLevel,
		fields:    fields,
	}
}

func (l *Logger) LogErrorf(format string, v ...any) {
	l.log(slog.LevelError, format, v...)
}

func (l *Logger) LogWarn(format string, v ...any) {
	l.log(slog.LevelWarn, format, v...)
}

func (l *Logger) LogInfo(format string, v ...any) {
	l.log(slog.LevelInfo, format, v...)
}

func (l *Logger) LogDebug(format string, v ...any) {
	l.log(slog.LevelDebug, format, v...)
}

func (l *Logger) log(level slog.Level, format string, v ...any) {
	ctx := context.Background()

	toStd := l.l.Enabled(ctx, level)
	toSink := l.sink != nil && level >= l.sinkLevel

	if !toStd && !toSink {
		return
	}

	msg := fmt.Sprintf(format, v...)

	if toStd {
		l.l.Log(ctx, level, msg)
	}

	if toSink {
		l.post(level, msg)
	}
}

func (l *Logger) post(level slog.Level, msg string) {
	name := strings.ToLower(level.String())

	data := make(map[string]any, len(l.fields)+3) //nolint:gomnd
	for k, v := range l.fields {
		data[k] = v
	}

	data["level"] = name
	data["message"] = msg
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	if err := l.sink.Post(name, data); err != nil {
		l.l.Warn("could not ship log record", slog.String("error", err.Error()))
	}
}
