// Package session implements simi's peer session subsystem: the RSA/AES
// handshake, the connection arbiter, and the Idle/Waiting/Connected state
// machine.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"

	"github.com/teldufalsari/simi/internal/errcode"
	"github.com/teldufalsari/simi/internal/wire"
)

// rsaKeyBits is the RSA modulus size used for every session's identity
// key pair.
const rsaKeyBits = 2048

// aesKeySize is the AES-128 key length in bytes.
const aesKeySize = 16

// secretNonceSize is the GCM nonce length used for secret messages.
const secretNonceSize = 12

// CryptoContext holds the per-session secrets: the peer's RSA public key,
// the shared AES-128 session key, and the 64-bit session nonce. It is
// owned exclusively by the Connected state and destroyed on any
// transition out of it.
type CryptoContext struct {
	PeerPublicKey *rsa.PublicKey
	SessionKey    [aesKeySize]byte
	Nonce         uint64
}

// GenerateIdentity creates a fresh RSA-2048 key pair. Called once at
// process startup and reused for every session that process opens;
// failure here is fatal.
func GenerateIdentity() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, errcode.Wrap(errcode.Fatal, "cannot generate RSA identity key", err)
	}
	return priv, nil
}

// EncodePublicKey marshals pub into PKCS#1 DER bytes for transmission
// inside a Request/Accept payload.
func EncodePublicKey(pub *rsa.PublicKey) []byte {
	return x509.MarshalPKCS1PublicKey(pub)
}

// DecodePublicKey parses a PKCS#1 DER-encoded RSA public key.
func DecodePublicKey(b []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKCS1PublicKey(b)
	if err != nil {
		return nil, errcode.Wrap(errcode.Serial, "invalid RSA public key", err)
	}
	return pub, nil
}

// encryptRSA encrypts plaintext to pub using PKCS#1 v1.5 padding.
func encryptRSA(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
	if err != nil {
		return nil, errcode.Wrap(errcode.Serial, "RSA encryption failed", err)
	}
	return ct, nil
}

// decryptRSA decrypts ciphertext with priv using PKCS#1 v1.5 padding.
func decryptRSA(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
	if err != nil {
		return nil, errcode.Wrap(errcode.Serial, "RSA decryption failed", err)
	}
	return pt, nil
}

// RandAndKey carries the shared session secrets: a 64-bit nonce and a
// 128-bit AES key, both drawn fresh by the responder and transmitted once,
// RSA-encrypted to the initiator's public key.
type RandAndKey struct {
	Nonce      uint64
	SessionKey [aesKeySize]byte
}

// GenerateRandAndKey draws a fresh nonce and AES-128 key.
func GenerateRandAndKey() (RandAndKey, error) {
	var rk RandAndKey
	var nonceBuf [8]byte
	if _, err := rand.Read(nonceBuf[:]); err != nil {
		return RandAndKey{}, errcode.Wrap(errcode.Fatal, "cannot draw session nonce", err)
	}
	if _, err := rand.Read(rk.SessionKey[:]); err != nil {
		return RandAndKey{}, errcode.Wrap(errcode.Fatal, "cannot draw session key", err)
	}
	rk.Nonce = uint64(nonceBuf[0]) | uint64(nonceBuf[1])<<8 | uint64(nonceBuf[2])<<16 |
		uint64(nonceBuf[3])<<24 | uint64(nonceBuf[4])<<32 | uint64(nonceBuf[5])<<40 |
		uint64(nonceBuf[6])<<48 | uint64(nonceBuf[7])<<56
	return rk, nil
}

// Encode serializes a RandAndKey as [8 bytes nonce LE][16 bytes key].
func (rk RandAndKey) Encode() []byte {
	buf := wire.EncodeUint64(rk.Nonce)
	return append(buf, rk.SessionKey[:]...)
}

// DecodeRandAndKey parses the encoding produced by Encode.
func DecodeRandAndKey(b []byte) (RandAndKey, error) {
	if len(b) != 8+aesKeySize {
		return RandAndKey{}, errcode.New(errcode.Serial, "malformed session secrets")
	}
	nonce, err := wire.DecodeUint64(b)
	if err != nil {
		return RandAndKey{}, err
	}
	var rk RandAndKey
	rk.Nonce = nonce
	copy(rk.SessionKey[:], b[8:])
	return rk, nil
}

// EncryptSecret encrypts plaintext under key with a freshly generated
// 96-bit nonce, returning nonce‖ciphertext.
func EncryptSecret(key [aesKeySize]byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errcode.Wrap(errcode.Fatal, "cannot construct AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errcode.Wrap(errcode.Fatal, "cannot construct AES-GCM", err)
	}
	nonce := make([]byte, secretNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errcode.Wrap(errcode.Fatal, "cannot draw message nonce", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, ciphertext...), nil
}

// DecryptSecret reverses EncryptSecret: it splits blob into nonce‖ciphertext
// and decrypts/authenticates under key. Any failure (including an
// authentication-tag mismatch) surfaces as errcode.Serial.
func DecryptSecret(key [aesKeySize]byte, blob []byte) ([]byte, error) {
	if len(blob) < secretNonceSize {
		return nil, errcode.New(errcode.Serial, "secret payload too short")
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errcode.Wrap(errcode.Fatal, "cannot construct AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errcode.Wrap(errcode.Fatal, "cannot construct AES-GCM", err)
	}
	nonce, ciphertext := blob[:secretNonceSize], blob[secretNonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errcode.Wrap(errcode.Serial, "secret decryption failed", err)
	}
	return plaintext, nil
}
