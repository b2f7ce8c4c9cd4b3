// Package wire implements simi's frame codec: a little-endian,
// length-prefixed, option-tagged binary encoding for the Message type
// exchanged between peers, plus the small primitive encoder/decoder
// toolkit the handshake payloads (package session) build on.
//
// Wire format for a Message:
//
//	[1 byte Type][2 bytes Port, LE][1 byte data-tag]
//	tag == 0: nothing follows (Data is absent)
//	tag == 1: [8 bytes length, LE][length bytes of Data]
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/teldufalsari/simi/internal/errcode"
)

// MaxMessageSize is the hard cap on a single frame's Data payload. Frames
// whose declared length exceeds this are rejected before any allocation.
const MaxMessageSize = 16 << 20 // 16 MiB

// Type identifies the kind of a Message.
type Type uint8

const (
	Request Type = iota
	Accept
	Deny
	Confirm
	Speak
	SpeakPlain
	Close
)

func (t Type) String() string {
	switch t {
	case Request:
		return "Request"
	case Accept:
		return "Accept"
	case Deny:
		return "Deny"
	case Confirm:
		return "Confirm"
	case Speak:
		return "Speak"
	case SpeakPlain:
		return "SpeakPlain"
	case Close:
		return "Close"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Message is a single protocol frame. Port carries the sender's listening
// port (not the ephemeral TCP source port), so the receiver can correlate
// an inbound connection with a known peer identity. Data is nil for pure
// control frames (Deny has no payload; Close carries one).
type Message struct {
	Type Type
	Port uint16
	Data []byte
}

// NewRequest builds a Request frame carrying the initiator's RSA public
// key (already encoded, see package session).
func NewRequest(port uint16, pkey []byte) Message {
	return Message{Type: Request, Port: port, Data: pkey}
}

// NewAccept builds an Accept frame.
func NewAccept(port uint16, payload []byte) Message {
	return Message{Type: Accept, Port: port, Data: payload}
}

// NewDeny builds a Deny frame; it carries no payload.
func NewDeny(port uint16) Message {
	return Message{Type: Deny, Port: port}
}

// NewConfirm builds a Confirm frame.
func NewConfirm(port uint16, payload []byte) Message {
	return Message{Type: Confirm, Port: port, Data: payload}
}

// NewSpeak builds a Speak (steganographic secret) frame carrying a PNG
// byte string.
func NewSpeak(port uint16, png []byte) Message {
	return Message{Type: Speak, Port: port, Data: png}
}

// NewSpeakPlain builds a SpeakPlain frame carrying UTF-8 text bytes.
func NewSpeakPlain(port uint16, text []byte) Message {
	return Message{Type: SpeakPlain, Port: port, Data: text}
}

// NewClose builds a Close frame carrying the little-endian session nonce.
func NewClose(port uint16, nonce uint64) Message {
	return Message{Type: Close, Port: port, Data: EncodeUint64(nonce)}
}

// Encode serializes m into its wire representation.
func Encode(m Message) []byte {
	hasData := m.Data != nil
	size := 1 + 2 + 1
	if hasData {
		size += 8 + len(m.Data)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, byte(m.Type))
	buf = binary.LittleEndian.AppendUint16(buf, m.Port)
	if hasData {
		buf = append(buf, 1)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(m.Data)))
		buf = append(buf, m.Data...)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// Decode reads a single Message from r. It rejects frames whose declared
// data length exceeds MaxMessageSize before allocating the buffer for it,
// and fails with errcode.Serial on any malformed or truncated input.
func Decode(r io.Reader) (Message, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return Message{}, errcode.Wrap(errcode.Serial, "truncated message header", err)
	}
	t := Type(head[0])
	if t > Close {
		return Message{}, errcode.New(errcode.Serial, fmt.Sprintf("invalid message type %d", head[0]))
	}
	port := binary.LittleEndian.Uint16(head[1:3])
	tag := head[3]

	switch tag {
	case 0:
		return Message{Type: t, Port: port}, nil
	case 1:
		var lenBuf [8]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Message{}, errcode.Wrap(errcode.Serial, "truncated message length", err)
		}
		n := binary.LittleEndian.Uint64(lenBuf[:])
		if n > MaxMessageSize {
			return Message{}, errcode.New(errcode.Serial, fmt.Sprintf("message of %d bytes exceeds %d byte limit", n, MaxMessageSize))
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(r, data); err != nil {
			return Message{}, errcode.Wrap(errcode.Serial, "truncated message data", err)
		}
		return Message{Type: t, Port: port, Data: data}, nil
	default:
		return Message{}, errcode.New(errcode.Serial, fmt.Sprintf("invalid data tag %d", tag))
	}
}

// --- primitive encoders shared with package session's handshake payloads ---

// EncodeUint64 returns the little-endian encoding of v.
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// DecodeUint64 decodes a little-endian uint64 from the front of b.
func DecodeUint64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, errcode.New(errcode.Serial, "truncated uint64")
	}
	return binary.LittleEndian.Uint64(b), nil
}

// EncodeBytes appends a u64-LE-length-prefixed byte string to dst.
func EncodeBytes(dst []byte, b []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(len(b)))
	return append(dst, b...)
}

// ReadBytes reads a u64-LE-length-prefixed byte string starting at offset
// off in b, returning the bytes and the offset just past them.
func ReadBytes(b []byte, off int) ([]byte, int, error) {
	if off+8 > len(b) {
		return nil, 0, errcode.New(errcode.Serial, "truncated length prefix")
	}
	n := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8
	if n > MaxMessageSize || off+int(n) > len(b) {
		return nil, 0, errcode.New(errcode.Serial, "truncated or oversized byte string")
	}
	return b[off : off+int(n)], off + int(n), nil
}
