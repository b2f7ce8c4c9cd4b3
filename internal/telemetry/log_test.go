package telemetry

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/teldufalsari/simi/internal/events"
)

func TestSinkHandlerRoutesLevels(t *testing.T) {
	sink := &events.RecordingSink{}
	log := slog.New(NewSinkHandler(sink, slog.LevelDebug))
	log.Debug("frame decoded", "type", "Request")
	log.Warn("listener closed")

	lines := sink.Snapshot()
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "debug: ") || !strings.Contains(lines[0], "type=Request") {
		t.Errorf("debug record rendered as %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "info: ") {
		t.Errorf("warn record rendered as %q, want an info event", lines[1])
	}
}

func TestSinkHandlerLevelGate(t *testing.T) {
	sink := &events.RecordingSink{}
	log := slog.New(NewSinkHandler(sink, slog.LevelWarn))
	log.Info("below the gate")
	if got := sink.Snapshot(); len(got) != 0 {
		t.Fatalf("expected info suppressed below warn, got %v", got)
	}
}

func TestSinkHandlerAttrsAndGroups(t *testing.T) {
	sink := &events.RecordingSink{}
	log := slog.New(NewSinkHandler(sink, slog.LevelDebug)).
		With("subsystem", "session").
		WithGroup("peer")
	log.Debug("dialing", "addr", "127.0.0.1:4000")

	lines := sink.Snapshot()
	if len(lines) != 1 {
		t.Fatalf("got %v", lines)
	}
	if !strings.Contains(lines[0], "subsystem=session") {
		t.Errorf("pre-group attr should stay unqualified: %q", lines[0])
	}
	if !strings.Contains(lines[0], "peer.addr=127.0.0.1:4000") {
		t.Errorf("record attr should carry the group prefix: %q", lines[0])
	}
}

func TestVerbosityToLevel(t *testing.T) {
	cases := []struct {
		v    int
		want slog.Level
	}{
		{0, slog.LevelError},
		{1, slog.LevelError},
		{2, slog.LevelWarn},
		{3, slog.LevelInfo},
		{4, slog.LevelDebug},
		{5, slog.LevelDebug},
	}
	for _, c := range cases {
		if got := VerbosityToLevel(c.v); got != c.want {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", c.v, got, c.want)
		}
	}
}
