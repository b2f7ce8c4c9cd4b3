package app

import (
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/teldufalsari/simi/internal/config"
	"github.com/teldufalsari/simi/internal/events"
	"github.com/teldufalsari/simi/internal/session"
	"github.com/teldufalsari/simi/internal/telemetry"
	"github.com/teldufalsari/simi/internal/wire"
)

// newTestApp wires an App against a real loopback listener so the app
// integration test exercises the full TCP/handshake path, not just the
// state machine.
func newTestApp(t *testing.T, port uint16) (*App, *events.RecordingSink, *io.PipeWriter) {
	t.Helper()
	key, err := session.GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Port = port

	sink := &events.RecordingSink{}
	a := New(cfg, "", key, sink, telemetry.New(events.NullSink{}, 0, "test"))

	r, w := io.Pipe()
	a.SetStdin(r)
	return a, sink, w
}

func sendLine(t *testing.T, w *io.PipeWriter, line string) {
	t.Helper()
	if _, err := fmt.Fprintln(w, line); err != nil {
		t.Fatalf("write line %q: %v", line, err)
	}
}

func waitForState(t *testing.T, a *App, want session.State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s, _ := a.Snapshot(); s == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, _ := a.Snapshot()
	t.Fatalf("timed out waiting for state %s, still %s", want, got)
}

// TestTwoInstanceDialAndChat drives two full instances end to end over
// real loopback TCP: contact bookkeeping, a Deny-then-accept dial
// sequence, a plaintext chat message, and a Close that returns the
// session to Waiting.
func TestTwoInstanceDialAndChat(t *testing.T) {
	const portA, portB uint16 = 43217, 43218

	a, sinkA, stdinA := newTestApp(t, portA)
	b, sinkB, stdinB := newTestApp(t, portB)

	lnA, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", portA))
	if err != nil {
		t.Fatal(err)
	}
	a.listener = lnA

	lnB, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", portB))
	if err != nil {
		t.Fatal(err)
	}
	b.listener = lnB

	go a.acceptLoop()
	go a.stdinLoop()
	go b.acceptLoop()
	go b.stdinLoop()
	go a.consume()
	go b.consume()

	// Scenario 1: add then list.
	sendLine(t, stdinA, fmt.Sprintf("add bob 127.0.0.1:%d", portB))
	time.Sleep(20 * time.Millisecond)
	sendLine(t, stdinA, "list")
	time.Sleep(20 * time.Millisecond)
	found := false
	for _, line := range sinkA.Snapshot() {
		if line == fmt.Sprintf("info: bob : 127.0.0.1:%d", portB) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected contact listing in sink, got %v", sinkA.Snapshot())
	}

	// Scenario 2: A dials B while B is still Idle -> Deny -> A Waiting.
	// B then dials A -> handshake succeeds -> both Connected.
	sendLine(t, stdinA, fmt.Sprintf("dial 127.0.0.1:%d", portB))
	waitForState(t, a, session.StateWaiting, time.Second)

	sendLine(t, stdinB, fmt.Sprintf("dial 127.0.0.1:%d", portA))
	waitForState(t, b, session.StateConnected, time.Second)
	waitForState(t, a, session.StateConnected, time.Second)

	// Scenario 3: A speaks plaintext, B receives it as a peer event.
	sendLine(t, stdinA, "hello")
	time.Sleep(50 * time.Millisecond)
	gotPeerLine := false
	for _, line := range sinkB.Snapshot() {
		if line == "peer: hello" {
			gotPeerLine = true
		}
	}
	if !gotPeerLine {
		t.Fatalf("expected B to receive peer:hello, got %v", sinkB.Snapshot())
	}

	// Scenario 4: A sends --exit (Close); B returns to Waiting.
	sendLine(t, stdinA, "--exit")
	waitForState(t, a, session.StateIdle, time.Second)
	waitForState(t, b, session.StateWaiting, time.Second)
}

// TestThirdPartyDialDuringConnectedIsDenied checks that a third party
// dialing one half of an established Connected session is declined and
// does not disturb the session.
func TestThirdPartyDialDuringConnectedIsDenied(t *testing.T) {
	const portA, portB, portC uint16 = 43227, 43228, 43229

	a, _, stdinA := newTestApp(t, portA)
	b, _, stdinB := newTestApp(t, portB)

	lnA, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", portA))
	if err != nil {
		t.Fatal(err)
	}
	a.listener = lnA

	lnB, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", portB))
	if err != nil {
		t.Fatal(err)
	}
	b.listener = lnB

	go a.acceptLoop()
	go a.stdinLoop()
	go b.acceptLoop()
	go b.stdinLoop()
	go a.consume()
	go b.consume()

	sendLine(t, stdinA, fmt.Sprintf("dial 127.0.0.1:%d", portB))
	waitForState(t, a, session.StateWaiting, time.Second)
	sendLine(t, stdinB, fmt.Sprintf("dial 127.0.0.1:%d", portA))
	waitForState(t, b, session.StateConnected, time.Second)
	waitForState(t, a, session.StateConnected, time.Second)

	c, _, _ := newTestApp(t, portC)
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", portA))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	tconn := session.NewConn(conn)
	localPub := session.EncodePublicKey(&c.key.PublicKey)
	if err := tconn.Send(wire.NewRequest(portC, localPub)); err != nil {
		t.Fatal(err)
	}
	reply, err := tconn.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if reply.Type.String() != "Deny" {
		t.Fatalf("expected Deny from A while Connected, got %s", reply.Type)
	}

	sA, _ := a.Snapshot()
	if sA != session.StateConnected {
		t.Fatalf("expected A to remain Connected, got %s", sA)
	}
}
