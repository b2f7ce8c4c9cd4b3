// Package telemetry routes protocol diagnostics through the terminal
// event sink. Instead of maintaining a log stream of its own, the
// slog.Handler here renders records as sink events, so diagnostics
// share the screen with chat output: warnings and errors surface as
// info lines the user sees unprompted, while debug-level records ride
// the sink's debug channel and stay hidden until the user toggles
// `--debug`.
package telemetry

import (
	"context"
	"log/slog"
	"strings"

	"github.com/teldufalsari/simi/internal/events"
)

// New returns a logger for one subsystem, writing through sink at the
// level the CLI verbosity implies.
func New(sink events.Sink, verbosity int, subsystem string) *slog.Logger {
	h := NewSinkHandler(sink, VerbosityToLevel(verbosity))
	return slog.New(h).With("subsystem", subsystem)
}

// SinkHandler is a slog.Handler rendering records onto an events.Sink.
// Records at warn or above surface as Info events; everything quieter
// goes to Debug, gated by the sink's own debug toggle.
type SinkHandler struct {
	sink   events.Sink
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

// NewSinkHandler builds a handler that drops records below level.
func NewSinkHandler(sink events.Sink, level slog.Level) *SinkHandler {
	return &SinkHandler{sink: sink, level: level}
}

func (h *SinkHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *SinkHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	prefix := groupPrefix(h.groups)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, prefix, a)
		return true
	})
	if r.Level >= slog.LevelWarn {
		h.sink.Info(b.String())
	} else {
		h.sink.Debug(b.String())
	}
	return nil
}

// WithAttrs qualifies the new attrs with the open groups at call time,
// so attrs added before a WithGroup stay outside that group.
func (h *SinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	prefix := groupPrefix(h.groups)
	qualified := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	qualified = append(qualified, h.attrs...)
	for _, a := range attrs {
		qualified = append(qualified, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	next.attrs = qualified
	return &next
}

func (h *SinkHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}

func groupPrefix(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	return strings.Join(groups, ".") + "."
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(a.Value.Resolve().String())
}

// VerbosityToLevel converts a 0-5 CLI verbosity knob to a slog.Level.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v <= 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
