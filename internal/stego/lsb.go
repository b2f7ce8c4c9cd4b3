// Package stego implements the least-significant-bit steganography codec
// used to carry encrypted secret payloads inside PNG pixels. It embeds a
// byte payload in the low bit of every RGB channel of an image and
// extracts it back out. The codec performs no compression; callers are
// responsible for encoding the resulting image back to PNG.
//
// Bit layout: a 33-bit header (4-byte little-endian payload length
// plus one padding bit, spanning exactly 11 RGB pixels) followed by the
// payload bits, one bit per R/G/B channel's low bit, in row-major pixel
// order. Bits within a byte are consumed least-significant-bit first.
package stego

import (
	"image"
	"image/color"

	"github.com/teldufalsari/simi/internal/errcode"
)

const headerBits = 33
const headerPixels = 11 // ceil(33/3)

// Embed returns a copy of img with payload embedded in the low bits of its
// RGB channels. If payload is larger than the image can carry
// ((pixels*3-33)/8 bytes), the embedding silently truncates: pixels past
// the end of the bit stream are left unchanged and the excess payload
// bits are simply never written. This is documented behavior, not an
// error.
func Embed(img image.Image, payload []byte) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)

	totalBits := headerBits + 8*len(payload)
	bitAt := func(i int) byte {
		switch {
		case i < 32:
			return byte((uint32(len(payload)) >> uint(i)) & 1)
		case i == 32:
			return 0 // padding bit
		default:
			j := i - headerBits
			return (payload[j/8] >> uint(j%8)) & 1
		}
	}

	bitIdx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := colorToNRGBA(img.At(x, y))
			if bitIdx < totalBits {
				r = (r &^ 1) | bitAt(bitIdx)
				bitIdx++
			}
			if bitIdx < totalBits {
				g = (g &^ 1) | bitAt(bitIdx)
				bitIdx++
			}
			if bitIdx < totalBits {
				b = (b &^ 1) | bitAt(bitIdx)
				bitIdx++
			}
			out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: a})
		}
	}
	return out
}

// Extract reads a payload previously embedded by Embed out of img. It
// fails with an errcode.Serial AppError if the image has fewer than
// headerPixels pixels, or if the declared length requires more pixels
// than the image has.
func Extract(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	pixels := pixelIterator(img, bounds)

	headerLowBits := make([]byte, 0, headerBits)
	for i := 0; i < headerPixels; i++ {
		r, g, b, ok := pixels.next()
		if !ok {
			return nil, errcode.New(errcode.Serial, "image too small to contain a header")
		}
		headerLowBits = append(headerLowBits, r&1, g&1, b&1)
	}

	var length uint32
	for i := 0; i < 32; i++ {
		length |= uint32(headerLowBits[i]) << uint(i)
	}

	bodyBits := 8 * int(length)
	bodyPixels := ceilDiv(bodyBits, 3)

	extraBits := make([]byte, 0, bodyPixels*3)
	for i := 0; i < bodyPixels; i++ {
		r, g, b, ok := pixels.next()
		if !ok {
			return nil, errcode.New(errcode.Serial, "image too small for declared payload length")
		}
		extraBits = append(extraBits, r&1, g&1, b&1)
	}
	if len(extraBits) < bodyBits {
		return nil, errcode.New(errcode.Serial, "image too small for declared payload length")
	}

	payload := make([]byte, length)
	for i := 0; i < bodyBits; i++ {
		if extraBits[i] == 1 {
			payload[i/8] |= 1 << uint(i%8)
		}
	}
	return payload, nil
}

// Capacity returns the maximum payload size (in bytes) that an image of
// the given pixel count can carry.
func Capacity(pixelCount int) int {
	bits := pixelCount*3 - headerBits
	if bits < 0 {
		return 0
	}
	return bits / 8
}

func ceilDiv(a, b int) int {
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}

func colorToNRGBA(c color.Color) (r, g, b, a byte) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return n.R, n.G, n.B, n.A
}

type pixIter struct {
	img    image.Image
	bounds image.Rectangle
	x, y   int
}

func pixelIterator(img image.Image, bounds image.Rectangle) *pixIter {
	return &pixIter{img: img, bounds: bounds, x: bounds.Min.X, y: bounds.Min.Y}
}

func (p *pixIter) next() (r, g, b byte, ok bool) {
	if p.y >= p.bounds.Max.Y {
		return 0, 0, 0, false
	}
	r, g, b, _ = colorToNRGBA(p.img.At(p.x, p.y))
	p.x++
	if p.x >= p.bounds.Max.X {
		p.x = p.bounds.Min.X
		p.y++
	}
	return r, g, b, true
}
