// Package events decouples the core from terminal output: the core
// never writes to stdout directly, it calls a Sink method, so the state
// machine and handshake logic stay testable without a terminal
// attached.
package events

import (
	"fmt"
	"io"
	"sync"
)

// Sink receives the four event classes the core produces.
// Implementations must be safe to call from the single consumer
// goroutine that owns session state (package app) -- Sink itself adds
// no concurrency of its own beyond that.
type Sink interface {
	// Info reports a local, non-peer status line (connected, dialing,
	// rendered command errors).
	Info(msg string)
	// Peer reports plaintext attributed to the current session peer.
	Peer(text string)
	// Debug reports a verbose diagnostic, only rendered when the
	// terminal's debug toggle (the `--debug` command) is on.
	Debug(msg string)
	// Named reports a line under an explicit, caller-chosen label --
	// used for decrypted secrets, the peer fingerprint line, and
	// similar lines that don't fit Info/Peer/Debug's fixed framing.
	Named(label, msg string)
}

// TerminalSink is the default Sink, writing to an io.Writer (normally
// os.Stdout) with a "tag: text" framing; Info lines are prefixed "* "
// instead. DebugEnabled gates Debug output.
type TerminalSink struct {
	mu           sync.Mutex
	w            io.Writer
	DebugEnabled bool
}

// NewTerminalSink builds a TerminalSink writing to w.
func NewTerminalSink(w io.Writer) *TerminalSink {
	return &TerminalSink{w: w}
}

func (s *TerminalSink) Info(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "* %s\n", msg)
}

func (s *TerminalSink) Peer(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "peer: %s\n", text)
}

func (s *TerminalSink) Debug(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.DebugEnabled {
		return
	}
	fmt.Fprintf(s.w, "debug: %s\n", msg)
}

func (s *TerminalSink) Named(label, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s: %s\n", label, msg)
}

// SetDebug toggles Debug output at runtime (the `--debug` command).
func (s *TerminalSink) SetDebug(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DebugEnabled = enabled
}

// NullSink discards everything. Useful for tests that drive the state
// machine or app loop without caring about rendered output.
type NullSink struct{}

func (NullSink) Info(string)          {}
func (NullSink) Peer(string)          {}
func (NullSink) Debug(string)         {}
func (NullSink) Named(string, string) {}

// RecordingSink captures every call for assertions in tests.
type RecordingSink struct {
	mu    sync.Mutex
	Lines []string
}

func (s *RecordingSink) record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lines = append(s.Lines, line)
}

func (s *RecordingSink) Info(msg string)  { s.record("info: " + msg) }
func (s *RecordingSink) Peer(text string) { s.record("peer: " + text) }
func (s *RecordingSink) Debug(msg string) { s.record("debug: " + msg) }
func (s *RecordingSink) Named(label, msg string) {
	s.record(label + ": " + msg)
}

// Snapshot returns a copy of the recorded lines so far.
func (s *RecordingSink) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Lines))
	copy(out, s.Lines)
	return out
}
