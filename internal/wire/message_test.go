package wire

import (
	"bytes"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	encoded := Encode(m)
	got, err := Decode(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestRoundTrip(t *testing.T) {
	cases := []Message{
		{Type: Request, Port: 1337, Data: []byte("public-key-bytes")},
		{Type: Deny, Port: 4000},
		{Type: Accept, Port: 4001, Data: []byte{}},
		NewClose(1337, 0xdeadbeefcafebabe),
		NewSpeakPlain(1337, []byte("hello")),
	}
	for _, m := range cases {
		got := roundTrip(t, m)
		if got.Type != m.Type || got.Port != m.Port {
			t.Errorf("mismatch: got %+v, want %+v", got, m)
		}
		if !bytes.Equal(got.Data, m.Data) && !(len(got.Data) == 0 && len(m.Data) == 0) {
			t.Errorf("data mismatch: got %v, want %v", got.Data, m.Data)
		}
	}
}

func TestDecodeRejectsOversizedFrame(t *testing.T) {
	head := []byte{byte(SpeakPlain), 0x39, 0x05, 1}
	lenBuf := EncodeUint64(MaxMessageSize + 1)
	r := bytes.NewReader(append(head, lenBuf...))
	_, err := Decode(r)
	if err == nil {
		t.Fatal("expected error decoding oversized frame")
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	full := Encode(NewSpeakPlain(1337, []byte("hello world")))
	for cut := 0; cut < len(full); cut++ {
		_, err := Decode(bytes.NewReader(full[:cut]))
		if err == nil {
			t.Fatalf("expected error decoding truncated frame at %d/%d bytes", cut, len(full))
		}
	}
}

func TestDecodeRejectsInvalidType(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0xFF, 0, 0, 0}))
	if err == nil {
		t.Fatal("expected error for invalid type")
	}
}

func TestReadBytesRoundTrip(t *testing.T) {
	var buf []byte
	buf = EncodeBytes(buf, []byte("hello"))
	buf = EncodeBytes(buf, []byte("world"))
	got1, off, err := ReadBytes(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(got1) != "hello" {
		t.Fatalf("got %q", got1)
	}
	got2, _, err := ReadBytes(buf, off)
	if err != nil {
		t.Fatal(err)
	}
	if string(got2) != "world" {
		t.Fatalf("got %q", got2)
	}
}

func TestTypeString(t *testing.T) {
	if !strings.Contains(Request.String(), "Request") {
		t.Fatal("unexpected String()")
	}
}
