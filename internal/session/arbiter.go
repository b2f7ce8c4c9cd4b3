package session

import (
	"bytes"
	"crypto/rsa"
	"image/png"
	"net"
	"unicode/utf8"

	"github.com/teldufalsari/simi/internal/errcode"
	"github.com/teldufalsari/simi/internal/stego"
	"github.com/teldufalsari/simi/internal/wire"
)

// PeerEvent describes what an inbound connection produced for the
// Connected state's arbiter, so the app layer can render it (emit an
// event) without the arbiter itself depending on the terminal sink.
type PeerEvent int

const (
	// PeerEventNone: the frame was ignored (unmatched address/port, or a
	// frame type the Connected arbiter doesn't act on).
	PeerEventNone PeerEvent = iota
	// PeerEventClosed: a matching Close frame ended the session.
	PeerEventClosed
	// PeerEventPlainText: a SpeakPlain frame with decoded text.
	PeerEventPlainText
	// PeerEventSecret: a Speak frame with a decrypted secret.
	PeerEventSecret
)

// ConnectedResult is returned by HandleConnectedConnection.
type ConnectedResult struct {
	Kind PeerEvent
	Text string // valid for PeerEventPlainText and PeerEventSecret
}

// HandleIdleConnection arbitrates an inbound connection while Idle: read
// one frame; if it's a Request, reply Deny; otherwise drop the connection.
func HandleIdleConnection(conn Conn, localPort uint16) error {
	return Decline(conn, localPort)
}

// HandleWaitingConnection arbitrates an inbound connection while Waiting.
// It reads one frame; if it's a Request whose Port matches target's port, it
// runs the responder handshake and returns the resulting CryptoContext.
// Otherwise it declines (or drops) and returns ok=false with no error --
// remaining in Waiting is the caller's responsibility via package
// session's Step.
func HandleWaitingConnection(conn Conn, localKey *rsa.PrivateKey, localPort uint16, target *net.TCPAddr) (ctx CryptoContext, ok bool, err error) {
	msg, err := conn.Receive()
	if err != nil {
		return CryptoContext{}, false, errcode.Wrap(errcode.Network, "cannot read inbound frame", err)
	}
	if msg.Type == wire.Request && int(msg.Port) == target.Port {
		ctx, err := RunResponder(conn, localKey, localPort, msg)
		if err != nil {
			return CryptoContext{}, false, err
		}
		return ctx, true, nil
	}
	if msg.Type == wire.Request {
		_ = conn.Send(wire.NewDeny(localPort))
	}
	return CryptoContext{}, false, nil
}

// HandleConnectedConnection arbitrates an inbound connection while
// Connected. remoteIP is the inbound TCP connection's source IP address (used to
// validate sender identity alongside the frame's declared Port). It
// returns PeerEventNone without error for any frame that doesn't match
// the current peer or isn't acted on.
func HandleConnectedConnection(conn Conn, localPort uint16, peer *net.TCPAddr, remoteIP net.IP, ctx *CryptoContext) (ConnectedResult, error) {
	msg, err := conn.Receive()
	if err != nil {
		return ConnectedResult{}, errcode.Wrap(errcode.Network, "cannot read inbound frame", err)
	}

	if !remoteIP.Equal(peer.IP) || int(msg.Port) != peer.Port {
		if msg.Type == wire.Request {
			_ = conn.Send(wire.NewDeny(localPort))
		}
		return ConnectedResult{Kind: PeerEventNone}, nil
	}

	switch msg.Type {
	case wire.Close:
		if msg.Data == nil {
			return ConnectedResult{Kind: PeerEventNone}, nil
		}
		nonce, err := wire.DecodeUint64(msg.Data)
		if err != nil || nonce != ctx.Nonce {
			return ConnectedResult{Kind: PeerEventNone}, nil
		}
		return ConnectedResult{Kind: PeerEventClosed}, nil

	case wire.SpeakPlain:
		text := decodeUTF8OrPlaceholder(msg.Data)
		return ConnectedResult{Kind: PeerEventPlainText, Text: text}, nil

	case wire.Speak:
		plaintext, err := decryptSpeakFrame(msg.Data, ctx.SessionKey)
		if err != nil {
			// A malformed or undecryptable secret is discarded, not fatal.
			return ConnectedResult{Kind: PeerEventNone}, nil
		}
		return ConnectedResult{Kind: PeerEventSecret, Text: plaintext}, nil

	default:
		return ConnectedResult{Kind: PeerEventNone}, nil
	}
}

func decodeUTF8OrPlaceholder(data []byte) string {
	if data == nil {
		return "<empty message>"
	}
	if !utf8.Valid(data) {
		return "<invalid encoding>"
	}
	return string(data)
}

// decryptSpeakFrame decodes a Speak frame's PNG payload, LSB-extracts the
// embedded nonce‖ciphertext, and AES-GCM-decrypts it under the session
// key.
func decryptSpeakFrame(pngBytes []byte, key [aesKeySize]byte) (string, error) {
	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return "", errcode.Wrap(errcode.Serial, "invalid PNG payload", err)
	}
	blob, err := stego.Extract(img)
	if err != nil {
		return "", err
	}
	plaintext, err := DecryptSecret(key, blob)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
