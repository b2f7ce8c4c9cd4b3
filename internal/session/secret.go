package session

import (
	"bytes"
	"image"
	"image/png"

	"github.com/teldufalsari/simi/internal/errcode"
	"github.com/teldufalsari/simi/internal/stego"
)

// BuildSpeakFrame encrypts plaintext under key, LSB-embeds the resulting
// nonce‖ciphertext blob into cover, and re-encodes the image as PNG bytes
// ready to go inside a Speak frame's Data.
func BuildSpeakFrame(cover image.Image, plaintext string, key [aesKeySize]byte) ([]byte, error) {
	blob, err := EncryptSecret(key, []byte(plaintext))
	if err != nil {
		return nil, err
	}
	embedded := stego.Embed(cover, blob)
	var buf bytes.Buffer
	if err := png.Encode(&buf, embedded); err != nil {
		return nil, errcode.Wrap(errcode.Serial, "cannot encode PNG", err)
	}
	return buf.Bytes(), nil
}
