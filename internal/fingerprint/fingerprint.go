// Package fingerprint renders a peer's RSA public key as a short,
// human-pronounceable string, the classic SSH/PGP key-verification
// pattern: something two people can read aloud to each other over a
// phone call.
package fingerprint

import (
	"crypto/rsa"
	"crypto/x509"

	"golang.org/x/crypto/sha3"
)

const (
	vowels     = "aeiouy"
	consonants = "bcdfghklmnprstvzx"
)

// Of hashes the DER encoding of pub with Keccak-256 and babble-encodes
// the first 5 bytes of the digest, giving a short "xigak-pemuv-..."
// style string rather than the full 32-byte digest spelled out.
func Of(pub *rsa.PublicKey) string {
	der := x509.MarshalPKCS1PublicKey(pub)
	h := sha3.NewLegacyKeccak256()
	h.Write(der)
	digest := h.Sum(nil)
	return babble(digest[:5])
}

// babble implements the Bubble Babble binary-to-pronounceable-string
// encoding: a checksum-carrying run of consonant-vowel-consonant
// triples delimited by '-', bracketed in 'x' markers.
func babble(p []byte) string {
	buf := make([]byte, (len(p)/2+1)*6-1)

	var a, b, c, d, e byte
	i := 0
	k := 1
	check := byte(1)
	buf[0] = consonants[16]
	for i < len(p)-1 {
		a = (((p[i] >> 6) & 3) + check) % 6
		b = (p[i] >> 2) & 15
		c = ((p[i] & 3) + (check / 6)) % 6
		d = (p[i+1] >> 4) & 15
		e = p[i+1] & 15

		check = byte((int(check)*5 + int(p[i])*7 + int(p[i+1])) % 36)

		buf[k+0] = vowels[a]
		buf[k+1] = consonants[b]
		buf[k+2] = vowels[c]
		buf[k+3] = consonants[d]
		buf[k+4] = '-'
		buf[k+5] = consonants[e]

		i += 2
		k += 6
	}

	if len(p)%2 != 0 {
		a = (((p[i] >> 6) & 3) + check) % 6
		b = (p[i] >> 2) & 15
		c = ((p[i] & 3) + (check / 6)) % 6
	} else {
		a = check % 6
		b = 16
		c = check / 6
	}

	buf[k+0] = vowels[a]
	buf[k+1] = consonants[b]
	buf[k+2] = vowels[c]
	buf[k+3] = consonants[16]
	return string(buf)
}
