package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger is the logging interface used across the chat client.
type Logger interface {
	Info(msg string, obj any)
	Warn(msg string, obj any)
	Debug(msg string, obj any)
	Error(msg string, obj any)
}

// NopLogger discards all log messages.
type NopLogger struct{}

func (NopLogger) Info(string, any)  {}
func (NopLogger) Warn(string, any)  {}
func (NopLogger) Debug(string, any) {}
func (NopLogger) Error(string, any) {}

type writerLogger struct {
	mu     *sync.Mutex
	w      io.Writer
	fields map[string]any
	now    func() time.Time
}

// NewWriterLogger builds a logger that writes one line per record to w.
func NewWriterLogger(w io.Writer) Logger {
	return writerLogger{mu: &sync.Mutex{}, w: w, now: time.Now}
}

// WithFields returns a logger that stamps every record with fields. A writer
// logger renders them as sorted key=value pairs; any other logger gets them
// appended to the message. NopLogger is returned as is.
func WithFields(l Logger, fields map[string]any) Logger {
	if len(fields) == 0 || l == nil {
		return l
	}
	switch base := l.(type) {
	case NopLogger:
		return base
	case writerLogger:
		base.fields = mergeFields(base.fields, fields)
		return base
	case fieldLogger:
		base.fields = mergeFields(base.fields, fields)
		return base
	default:
		return fieldLogger{next: l, fields: mergeFields(nil, fields)}
	}
}

func mergeFields(base, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, fields[k])
	}
	return sb.String()
}

// fieldLogger carries fields into a logger this package did not build.
type fieldLogger struct {
	next   Logger
	fields map[string]any
}

func (l fieldLogger) Info(msg string, obj any)  { l.next.Info(msg+formatFields(l.fields), obj) }
func (l fieldLogger) Warn(msg string, obj any)  { l.next.Warn(msg+formatFields(l.fields), obj) }
func (l fieldLogger) Debug(msg string, obj any) { l.next.Debug(msg+formatFields(l.fields), obj) }
func (l fieldLogger) Error(msg string, obj any) { l.next.Error(msg+formatFields(l.fields), obj) }

func (l writerLogger) write(level, msg string, obj any) {
	if l.w == nil {
		return
	}

	var sb []byte
	sb = append(sb, l.now().Format(time.RFC3339)...)
	sb = append(sb, fmt.Sprintf(" %-5s %s", level, msg)...)
	sb = append(sb, formatFields(l.fields)...)

	if obj != nil {
		b, err := json.Marshal(obj)
		if err != nil {
			sb = append(sb, fmt.Sprintf(" obj=%q", fmt.Sprintf("%+v", obj))...)
		} else {
			sb = append(sb, " obj="...)
			sb = append(sb, b...)
		}
	}
	sb = append(sb, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(sb)
}

func (l writerLogger) Info(msg string, obj any)  { l.write("INFO", msg, obj) }
func (l writerLogger) Warn(msg string, obj any)  { l.write("WARN", msg, obj) }
func (l writerLogger) Debug(msg string, obj any) { l.write("DEBUG", msg, obj) }
func (l writerLogger) Error(msg string, obj any) { l.write("ERROR", msg, obj) }

// Debug writes a debug log when enabled and logger is non-nil.
func Debug(enabled bool, logger Logger, msg string, obj any) {
	if !enabled || logger == nil {
		return
	}
	logger.Debug(msg, obj)
}

// Debugf is a format-style variant of Debug.
func Debugf(enabled bool, logger Logger, format string, args ...any) {
	Debug(enabled, logger, fmt.Sprintf(format, args...), nil)
}

// Error writes an error log when logger is non-nil.
func Error(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Error(msg, obj)
}
