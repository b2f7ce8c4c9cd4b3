// Package app wires together the session subsystem, the CLI parsers,
// the config layer, and the event sink into the running process: a
// single consumer loop fed by exactly two event sources, command lines
// from stdin and accepted TCP connections.
package app

import (
	"bufio"
	"crypto/rsa"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/teldufalsari/simi/internal/cli"
	"github.com/teldufalsari/simi/internal/config"
	"github.com/teldufalsari/simi/internal/errcode"
	"github.com/teldufalsari/simi/internal/events"
	"github.com/teldufalsari/simi/internal/fingerprint"
	"github.com/teldufalsari/simi/internal/session"
	"github.com/teldufalsari/simi/internal/wire"
)

type muxKind int

const (
	muxLine muxKind = iota
	muxConn
	muxEOF
	muxExit
)

type muxEvent struct {
	kind muxKind
	line string
	conn net.Conn
}

// App owns all mutable session state and is the single consumer of the
// event multiplexer: exactly one event is handled at a time, in arrival
// order, by the goroutine that calls Run. No other goroutine modifies
// cfg, state, peer, or ctx; Snapshot reads state and peer under stateMu.
type App struct {
	cfg     config.Config
	cfgPath string
	key     *rsa.PrivateKey
	sink    events.Sink
	log     *slog.Logger

	listener  net.Listener
	localPort uint16
	stdin     io.Reader

	// stateMu guards state/peer/ctx against the Snapshot reader; the
	// single consumer goroutine (consume) is still the only writer.
	stateMu sync.Mutex
	state   session.State
	peer    *net.TCPAddr
	ctx     session.CryptoContext

	pendingSecret *pendingSecretRequest

	mux chan muxEvent
}

// Snapshot returns the current session state and peer address. Safe to
// call from any goroutine; intended for tests and status reporting.
func (a *App) Snapshot() (session.State, *net.TCPAddr) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.state, a.peer
}

func (a *App) setState(s session.State) {
	a.stateMu.Lock()
	a.state = s
	a.stateMu.Unlock()
}

func (a *App) setPeer(p *net.TCPAddr) {
	a.stateMu.Lock()
	a.peer = p
	a.stateMu.Unlock()
}

func (a *App) setCtx(ctx session.CryptoContext) {
	a.stateMu.Lock()
	a.ctx = ctx
	a.stateMu.Unlock()
}

// pendingSecretRequest records a --secret [--path=...] command that is
// waiting for the next input line to arrive as the plaintext to embed.
type pendingSecretRequest struct {
	hasPath bool
	path    string
}

// New builds an App ready to Run. key is the process's long-lived RSA
// identity, generated once at startup and reused for every session this
// process opens.
func New(cfg config.Config, cfgPath string, key *rsa.PrivateKey, sink events.Sink, logger *slog.Logger) *App {
	return &App{
		cfg:       cfg,
		cfgPath:   cfgPath,
		key:       key,
		sink:      sink,
		log:       logger,
		localPort: cfg.Port,
		state:     session.StateIdle,
		stdin:     os.Stdin,
		mux:       make(chan muxEvent),
	}
}

// RequestExit injects a graceful shutdown event from outside the event
// loop -- used by the process entry point's SIGINT/SIGTERM handler. Safe
// to call from any goroutine, any time after New returns, including
// before Run starts consuming.
func (a *App) RequestExit() {
	a.mux <- muxEvent{kind: muxExit}
}

// SetStdin overrides the input stream Run reads command lines from.
// Used by tests to drive an App without a real terminal attached.
func (a *App) SetStdin(r io.Reader) {
	a.stdin = r
}

// Run binds the listener, starts the two feeder goroutines, and drains
// the multiplexer until an Idle-state Exit command is processed or a
// fatal error occurs. Returns a process exit code.
func (a *App) Run() int {
	ln, err := session.Listen(a.cfg.Port)
	if err != nil {
		a.sink.Info(errcode.Describe(err))
		return 1
	}
	a.listener = ln
	defer ln.Close()

	a.sink.Info(fmt.Sprintf("listening on port %d, fingerprint %s", a.cfg.Port, fingerprint.Of(&a.key.PublicKey)))

	go a.acceptLoop()
	go a.stdinLoop()

	return a.consume()
}

// acceptLoop and stdinLoop are dumb fd-to-channel adapters: each pushes
// a tagged event onto one unbuffered channel and touches no App field
// directly.
func (a *App) acceptLoop() {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			return
		}
		a.mux <- muxEvent{kind: muxConn, conn: conn}
	}
}

func (a *App) stdinLoop() {
	sc := bufio.NewScanner(a.stdin)
	for sc.Scan() {
		a.mux <- muxEvent{kind: muxLine, line: sc.Text()}
	}
	a.mux <- muxEvent{kind: muxEOF}
}

func (a *App) consume() int {
	for ev := range a.mux {
		switch ev.kind {
		case muxEOF:
			return 0
		case muxLine:
			if a.handleLine(ev.line) {
				return 0
			}
		case muxConn:
			a.handleConn(ev.conn)
		case muxExit:
			// A signal-triggered shutdown runs the same teardown path as
			// a typed exit/--exit command: Close is sent to the peer
			// first if Connected, then the process ends regardless of
			// state (unlike a user-issued Exit, which only terminates
			// from Idle).
			a.handleExit()
			return 0
		}
	}
	return 0
}

// handleLine parses line with the dialect matching the current state
// and dispatches the resulting Command. It returns true if the process
// should terminate.
func (a *App) handleLine(line string) bool {
	// A prior --secret [--path=...] command leaves the instance waiting
	// for exactly one more line: the plaintext to embed. That line is
	// never run through either parser -- the single-threaded event loop
	// has no blocking "read one more line" primitive, so the pending
	// request is state carried across one extra muxLine event instead.
	if a.pendingSecret != nil {
		req := a.pendingSecret
		a.pendingSecret = nil
		a.completeSecret(*req, line)
		return false
	}

	var cmd cli.Command
	var err error
	if a.state == session.StateIdle {
		cmd, err = cli.ParseMenu(line)
	} else {
		cmd, err = cli.ParseDialogue(line)
	}
	if err != nil {
		// Presentation errors: render and re-prompt.
		a.sink.Info(errcode.Describe(err))
		return false
	}
	return a.dispatch(cmd)
}

func (a *App) dispatch(cmd cli.Command) bool {
	switch cmd.Kind {
	case cli.Exit:
		return a.handleExit()
	case cli.List:
		a.handleList()
	case cli.Save:
		a.handleSave()
	case cli.Add:
		a.handleAdd(cmd.Alias, cmd.Addr)
	case cli.Remove:
		a.handleRemove(cmd.Alias)
	case cli.DialIP:
		a.handleDial(cmd.Addr)
	case cli.DialAlias:
		addr, ok := a.cfg.Resolve(cmd.Alias)
		if !ok {
			a.sink.Info("unknown alias: " + cmd.Alias)
			return false
		}
		a.handleDial(addr)
	case cli.Secret:
		a.handleSecret(cmd)
	case cli.SpeakPlain:
		a.handleSpeakPlain(cmd.Text)
	case cli.Debug:
		a.handleDebugToggle()
	}
	return false
}

// handleExit implements the three Exit rules: Idle terminates the
// process, Waiting returns to Idle, Connected sends Close to the peer
// first and then returns to Idle.
func (a *App) handleExit() bool {
	switch a.state {
	case session.StateIdle:
		return true
	case session.StateWaiting:
		if next, ok := session.Step(a.state, session.EventExit); ok {
			a.setState(next)
		}
		a.setPeer(nil)
	case session.StateConnected:
		a.sendClose()
		if next, ok := session.Step(a.state, session.EventExit); ok {
			a.setState(next)
		}
		a.setPeer(nil)
		a.setCtx(session.CryptoContext{})
	}
	return false
}

func (a *App) handleList() {
	for _, alias := range a.cfg.SortedAliases() {
		addr, _ := a.cfg.Resolve(alias)
		a.sink.Info(fmt.Sprintf("%s : %s", alias, addr))
	}
}

func (a *App) handleSave() {
	if err := a.cfg.Save(a.cfgPath); err != nil {
		a.sink.Info(errcode.Describe(err))
	}
}

func (a *App) handleAdd(alias, addr string) {
	if a.cfg.Contacts == nil {
		a.cfg.Contacts = make(map[string]string)
	}
	a.cfg.Contacts[alias] = addr
}

func (a *App) handleRemove(alias string) {
	delete(a.cfg.Contacts, alias)
}

// handleDial implements the Idle -> Waiting -> (Connected|Waiting)
// sequence: the TCP connect and handshake happen synchronously, and
// the outcome decides whether the instance lands in Connected
// (success) or stays in Waiting (rejected handshake, or the peer was
// unreachable at the TCP layer).
func (a *App) handleDial(addr string) {
	target, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		a.sink.Info("bad address: " + addr)
		return
	}
	next, ok := session.Step(a.state, session.EventDial)
	if !ok {
		return
	}
	a.setState(next)
	a.setPeer(target)
	a.sink.Info("dialing " + addr)

	conn, err := session.Dial(addr)
	if err != nil {
		a.sink.Info(errcode.Describe(err))
		return // stays in Waiting
	}
	defer conn.Close()

	ctx, accepted, err := session.RunInitiator(conn, a.key, a.localPort)
	if err != nil {
		a.sink.Info(errcode.Describe(err))
		return
	}
	if !accepted {
		a.sink.Info("peer declined the session")
		return
	}

	next, _ = session.Step(session.StateWaiting, session.EventHandshakeSucceeded)
	a.setState(next)
	a.setCtx(ctx)
	a.sink.Named("fingerprint", fingerprint.Of(ctx.PeerPublicKey))
	a.sink.Info("connected to " + addr)
}

// handleSecret implements the Secret command. The command itself
// carries only an optional path; it arms pendingSecret and prompts for
// the plaintext, which arrives as the next input line regardless of
// which dialect would otherwise parse it.
func (a *App) handleSecret(cmd cli.Command) {
	if a.state == session.StateWaiting {
		a.sink.Info("peer is disconnected")
		return
	}
	if a.state != session.StateConnected {
		return
	}
	a.pendingSecret = &pendingSecretRequest{hasPath: cmd.HasPath, path: cmd.SecretPath}
	a.sink.Info("enter secret text:")
}

// completeSecret picks (or loads) a cover image, encrypts and
// LSB-embeds plaintext, and delivers the resulting PNG via a fresh
// Speak frame.
func (a *App) completeSecret(req pendingSecretRequest, plaintext string) {
	if a.state != session.StateConnected {
		a.sink.Info("peer is disconnected")
		return
	}

	var (
		coverPath string
		deletable bool
		cover     image.Image
		err       error
	)
	if req.hasPath {
		cover, err = loadExplicitPNG(req.path)
	} else {
		var assetsDir string
		assetsDir, err = config.ExpandHome(a.cfg.Assets)
		if err == nil {
			coverPath, cover, err = pickAsset(assetsDir, a.cfg.PickRandomly)
			deletable = a.cfg.DeleteImages
		}
	}
	if err != nil {
		a.sink.Info(errcode.Describe(err))
		return
	}

	pngBytes, err := session.BuildSpeakFrame(cover, plaintext, a.ctx.SessionKey)
	if err != nil {
		a.sink.Info(errcode.Describe(err))
		return
	}
	if err := a.sendFrame(wire.NewSpeak(a.localPort, pngBytes)); err != nil {
		a.teardownSession(errcode.Describe(err))
		return
	}

	// Only a directory-picked image is ever deleted -- a --path image
	// supplied by the user is never a deletion candidate.
	if deletable && coverPath != "" {
		if rmErr := os.Remove(coverPath); rmErr != nil {
			a.sink.Debug("could not remove picked asset: " + rmErr.Error())
		}
	}
}

func (a *App) handleSpeakPlain(text string) {
	if a.state == session.StateWaiting {
		a.sink.Info("peer is disconnected")
		return
	}
	if a.state != session.StateConnected {
		return
	}
	if err := a.sendFrame(wire.NewSpeakPlain(a.localPort, []byte(text))); err != nil {
		a.teardownSession(errcode.Describe(err))
	}
}

// teardownSession implements the Network policy for the session's own
// outbound traffic: a send to the current peer that fails at the TCP
// layer tears the session down back to Idle. Inbound connections that
// error are merely dropped -- a third party feeding the listener
// garbage must not end an established session.
func (a *App) teardownSession(diag string) {
	a.sink.Info(diag)
	a.setState(session.StateIdle)
	a.setPeer(nil)
	a.setCtx(session.CryptoContext{})
}

// sendFrame opens a fresh dial to the current peer and writes m. Every
// outbound message opens its own TCP connection.
func (a *App) sendFrame(m wire.Message) error {
	if a.peer == nil {
		return errcode.New(errcode.Network, "no active peer")
	}
	conn, err := session.Dial(a.peer.String())
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Send(m)
}

func (a *App) sendClose() {
	if err := a.sendFrame(wire.NewClose(a.localPort, a.ctx.Nonce)); err != nil {
		a.sink.Info(errcode.Describe(err))
	}
}

func (a *App) handleDebugToggle() {
	if ts, ok := a.sink.(*events.TerminalSink); ok {
		enabled := !ts.DebugEnabled
		ts.SetDebug(enabled)
		if enabled {
			a.sink.Info("debug info enabled")
		} else {
			a.sink.Info("debug info disabled")
		}
	}
}

// handleConn dispatches an inbound connection to the arbiter for the
// current state. Every accepted socket is fully processed (or declined)
// before being closed.
func (a *App) handleConn(netConn net.Conn) {
	conn := session.NewConn(netConn)
	defer conn.Close()

	switch a.state {
	case session.StateIdle:
		if err := session.HandleIdleConnection(conn, a.localPort); err != nil {
			a.log.Debug("idle decline failed", "err", err)
		}

	case session.StateWaiting:
		ctx, ok, err := session.HandleWaitingConnection(conn, a.key, a.localPort, a.peer)
		if err != nil {
			a.sink.Info(errcode.Describe(err))
			return
		}
		if ok {
			next, _ := session.Step(session.StateWaiting, session.EventHandshakeSucceeded)
			a.setState(next)
			a.setCtx(ctx)
			a.sink.Named("fingerprint", fingerprint.Of(ctx.PeerPublicKey))
			a.sink.Info("connected to " + a.peer.String())
		}

	case session.StateConnected:
		remoteIP := tcpIP(netConn.RemoteAddr())
		result, err := session.HandleConnectedConnection(conn, a.localPort, a.peer, remoteIP, &a.ctx)
		if err != nil {
			a.sink.Info(errcode.Describe(err))
			return
		}
		switch result.Kind {
		case session.PeerEventClosed:
			next, _ := session.Step(session.StateConnected, session.EventPeerClose)
			a.setState(next)
			a.setCtx(session.CryptoContext{})
			a.sink.Info("peer closed the session")
		case session.PeerEventPlainText:
			a.sink.Peer(result.Text)
		case session.PeerEventSecret:
			a.sink.Named("secret", result.Text)
		}
	}
}

func tcpIP(addr net.Addr) net.IP {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP
	}
	return nil
}
