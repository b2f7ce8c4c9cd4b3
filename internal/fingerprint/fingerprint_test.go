package fingerprint

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
)

func TestOfIsDeterministic(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	a := Of(&key.PublicKey)
	b := Of(&key.PublicKey)
	if a != b {
		t.Fatalf("fingerprint not deterministic: %q != %q", a, b)
	}
	if !strings.HasPrefix(a, "x") || !strings.HasSuffix(a, "x") {
		t.Fatalf("expected babble bracketing, got %q", a)
	}
}

func TestOfDiffersAcrossKeys(t *testing.T) {
	k1, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	if Of(&k1.PublicKey) == Of(&k2.PublicKey) {
		t.Fatal("expected distinct fingerprints for distinct keys")
	}
}
