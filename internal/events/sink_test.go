package events

import "testing"

func TestRecordingSinkCapturesAllClasses(t *testing.T) {
	s := &RecordingSink{}
	s.Info("dialing 127.0.0.1:4000")
	s.Peer("hello")
	s.Debug("frame decoded")
	s.Named("fingerprint", "BOWL-SOAP-LUNG")

	got := s.Snapshot()
	want := []string{
		"info: dialing 127.0.0.1:4000",
		"peer: hello",
		"debug: frame decoded",
		"fingerprint: BOWL-SOAP-LUNG",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestTerminalSinkDebugGating(t *testing.T) {
	var buf recordingWriter
	sink := NewTerminalSink(&buf)
	sink.Debug("should not appear")
	if buf.s != "" {
		t.Fatalf("expected debug output suppressed by default, got %q", buf.s)
	}
	sink.SetDebug(true)
	sink.Debug("should appear")
	if buf.s == "" {
		t.Fatal("expected debug output after SetDebug(true)")
	}
}

type recordingWriter struct {
	s string
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.s += string(p)
	return len(p), nil
}
