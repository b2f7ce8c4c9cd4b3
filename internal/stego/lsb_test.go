package stego

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: byte(x * 7), G: byte(y * 13), B: byte((x + y) * 3), A: 255})
		}
	}
	return img
}

func TestEmbedExtractRoundTrip(t *testing.T) {
	img := solidImage(20, 20) // 400 pixels, capacity = (400*3-33)/8 = 145 bytes
	payload := []byte("s3cr3t message carried inside the pixels")
	embedded := Embed(img, payload)
	got, err := Extract(embedded)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestEmbedExtractEmptyPayload(t *testing.T) {
	img := solidImage(10, 10)
	embedded := Embed(img, nil)
	got, err := Extract(embedded)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestExtractTooSmallImage(t *testing.T) {
	img := solidImage(3, 3) // 9 pixels < 11 required for header
	_, err := Extract(img)
	if err == nil {
		t.Fatal("expected error for too-small image")
	}
}

func TestEmbedTruncatesSilently(t *testing.T) {
	img := solidImage(4, 3) // 12 pixels: capacity = (36-33)/8 = 0 bytes
	payload := []byte("way too much data for this tiny image")
	embedded := Embed(img, payload)
	// Embedding does not panic or error; the declared length still claims
	// the full payload size, so Extract will fail cleanly rather than
	// recover truncated bytes.
	_, err := Extract(embedded)
	if err == nil {
		t.Fatal("expected Extract to fail on an image too small for the declared length")
	}
}

func TestCapacity(t *testing.T) {
	if got := Capacity(11); got != 0 {
		t.Fatalf("Capacity(11) = %d, want 0", got)
	}
	if got := Capacity(0); got != 0 {
		t.Fatalf("Capacity(0) = %d, want 0", got)
	}
}
