package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const logTimestampLayout = "2006-01-02 15:04:05"

// runIDWidth is how much of a run token the console shows.
const runIDWidth = 8

// consoleHidden lists keys kept out of console lines; the JSON log keeps them.
var consoleHidden = map[string]bool{
	FieldEventType: true,
}

// prettyHandler renders one line per record:
//
//	2024-03-15 12:00:00 INFO [migrate] – file moved path=a.jpg destination=/photos/2024/03/a.jpg
type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     slog.Leveler
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		flattenAttr(&fields, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&fields, h.groups, attr)
		return true
	})

	var line strings.Builder
	line.Grow(128 + len(fields)*24)
	h.writeHeader(&line, record, componentOf(fields))
	for _, item := range fields {
		if item.key == "" || item.key == FieldComponent || consoleHidden[item.key] {
			continue
		}
		value := renderValue(item.value, true)
		if item.key == FieldRunID && len(value) > runIDWidth {
			value = value[:runIDWidth]
		}
		line.WriteByte(' ')
		line.WriteString(item.key)
		line.WriteByte('=')
		line.WriteString(value)
	}
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, line.String())
	return err
}

func (h *prettyHandler) writeHeader(line *strings.Builder, record slog.Record, component string) {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line.WriteString(ts.In(time.Local).Format(logTimestampLayout))
	line.WriteByte(' ')
	line.WriteString(levelLabel(record.Level))
	if component != "" {
		line.WriteString(" [" + component + "]")
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	line.WriteString(" – " + message)
	if !h.addSource {
		return
	}
	if src := record.Source(); src != nil {
		line.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
	}
}

// componentOf returns the innermost component attribute, so a component
// logger derived from another one reports its own name.
func componentOf(fields []kv) string {
	component := ""
	for _, item := range fields {
		if item.key == FieldComponent {
			component = renderValue(item.value, false)
		}
	}
	return component
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

type kv struct {
	key   string
	value slog.Value
}

// flattenAttr expands groups into dotted keys.
func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string(nil), prefix...), attr.Key)
		}
		for _, member := range attr.Value.Group() {
			flattenAttr(dst, next, member)
		}
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(prefix, ".") + "." + key
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
