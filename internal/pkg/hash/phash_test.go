package hash

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// createGradientImage creates a gradient test image.
func createGradientImage(width, height int, invert bool) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := uint8((x + y) * 255 / (width + height))
			if invert {
				gray = 255 - gray
			}
			img.Set(x, y, color.RGBA{gray, gray, gray, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func encodeGIF(t *testing.T, frames int) []byte {
	t.Helper()
	anim := &gif.GIF{}
	palette := color.Palette{color.Black, color.White}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 8, 8), palette)
		frame.SetColorIndex(i%8, i%8, 1)
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 10)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		t.Fatalf("gif.EncodeAll failed: %v", err)
	}
	return buf.Bytes()
}

func TestPerceptualHasher_Compute(t *testing.T) {
	ph := NewPerceptualHasher()
	img := createGradientImage(100, 100, false)

	algos := []Algorithm{
		{Type: PHash, Width: 8, Height: 8},
		{Type: AHash, Width: 8, Height: 8},
		{Type: DHash, Width: 8, Height: 8},
		{Type: DHash, Width: 16, Height: 16},
	}
	for _, algo := range algos {
		t.Run(algo.Key(), func(t *testing.T) {
			h, err := ph.Compute(img, algo)
			if err != nil {
				t.Fatalf("Compute failed: %v", err)
			}
			if h.Algorithm != algo {
				t.Errorf("Expected algorithm %s, got %s", algo, h.Algorithm)
			}
			if len(h.Words) != algo.Bits()/64 {
				t.Errorf("Expected %d words, got %d", algo.Bits()/64, len(h.Words))
			}
		})
	}
}

func TestPerceptualHasher_ComputeFromBytes_InvalidImage(t *testing.T) {
	ph := NewPerceptualHasher()
	_, err := ph.ComputeFromBytes([]byte("not an image"), DefaultAlgorithm())
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("Expected ErrInvalidImage, got %v", err)
	}
}

func TestSameImageIdenticalHash(t *testing.T) {
	ph := NewPerceptualHasher()
	data := encodePNG(t, createGradientImage(100, 100, false))

	h1, err := ph.ComputeFromBytes(data, DefaultAlgorithm())
	if err != nil {
		t.Fatalf("ComputeFromBytes failed: %v", err)
	}
	h2, err := ph.ComputeFromBytes(data, DefaultAlgorithm())
	if err != nil {
		t.Fatalf("ComputeFromBytes failed: %v", err)
	}

	d, err := Distance(h1[0], h2[0])
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	if d != 0 {
		t.Errorf("Same image should produce identical hash, distance %d", d)
	}
}

func TestDifferentImagesProduceDifferentHashes(t *testing.T) {
	ph := NewPerceptualHasher()
	algo := DefaultAlgorithm()

	h1, _ := ph.Compute(createGradientImage(100, 100, false), algo)
	h2, _ := ph.Compute(createGradientImage(100, 100, true), algo)

	d, err := Distance(h1, h2)
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	if d <= algo.Bits()/2 {
		t.Errorf("Expected opposite gradients to be far apart, distance %d", d)
	}
}

func TestDistance(t *testing.T) {
	algo := DefaultAlgorithm()
	tests := []struct {
		name     string
		hash1    uint64
		hash2    uint64
		expected int
	}{
		{
			name:     "identical",
			hash1:    0xFFFFFFFFFFFFFFFF,
			hash2:    0xFFFFFFFFFFFFFFFF,
			expected: 0,
		},
		{
			name:     "one bit different",
			hash1:    0xFFFFFFFFFFFFFFFE,
			hash2:    0xFFFFFFFFFFFFFFFF,
			expected: 1,
		},
		{
			name:     "completely different",
			hash1:    0x0000000000000000,
			hash2:    0xFFFFFFFFFFFFFFFF,
			expected: 64,
		},
		{
			name:     "twelve bits",
			hash1:    0x0000000000000FFF,
			hash2:    0x0000000000000000,
			expected: 12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &ImageHash{Algorithm: algo, Words: []uint64{tt.hash1}}
			b := &ImageHash{Algorithm: algo, Words: []uint64{tt.hash2}}
			result, err := Distance(a, b)
			if err != nil {
				t.Fatalf("Distance failed: %v", err)
			}
			if result != tt.expected {
				t.Errorf("Distance(%x, %x) = %d; want %d", tt.hash1, tt.hash2, result, tt.expected)
			}
			if back, _ := Distance(b, a); back != result {
				t.Errorf("Distance is not symmetric: %d vs %d", result, back)
			}
		})
	}
}

func TestDistance_AlgorithmMismatch(t *testing.T) {
	a := &ImageHash{Algorithm: Algorithm{Type: DHash, Width: 8, Height: 8}, Words: []uint64{1}}
	b := &ImageHash{Algorithm: Algorithm{Type: AHash, Width: 8, Height: 8}, Words: []uint64{1}}
	c := &ImageHash{Algorithm: Algorithm{Type: DHash, Width: 16, Height: 4}, Words: []uint64{1}}

	if _, err := Distance(a, b); !errors.Is(err, ErrAlgorithmMismatch) {
		t.Errorf("Expected ErrAlgorithmMismatch across types, got %v", err)
	}
	if _, err := Distance(a, c); !errors.Is(err, ErrAlgorithmMismatch) {
		t.Errorf("Expected ErrAlgorithmMismatch across sizes, got %v", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, key := range []string{"dhash-8x8", "ahash-16x4", "phash-16x16"} {
		algo, err := ParseAlgorithm(key)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q) failed: %v", key, err)
		}
		if algo.Key() != key {
			t.Errorf("Key() = %q; want %q", algo.Key(), key)
		}
	}

	for _, key := range []string{"", "dhash", "xhash-8x8", "dhash-8", "dhash-3x3", "phash-8x24"} {
		if _, err := ParseAlgorithm(key); !errors.Is(err, ErrInvalidAlgorithm) {
			t.Errorf("ParseAlgorithm(%q) = %v; want ErrInvalidAlgorithm", key, err)
		}
	}
}

func TestImageHash_Bytes(t *testing.T) {
	algo := Algorithm{Type: DHash, Width: 16, Height: 8}
	h := &ImageHash{Algorithm: algo, Words: []uint64{0xDEADBEEF12345678, 0x0102030405060708}}

	back, err := FromBytes(algo, h.Bytes())
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	if d, _ := Distance(h, back); d != 0 {
		t.Errorf("Expected identical hash after decoding, distance %d", d)
	}
	if h.String() != "deadbeef123456780102030405060708" {
		t.Errorf("String() = %s", h.String())
	}
	if _, err := FromBytes(DefaultAlgorithm(), h.Bytes()); !errors.Is(err, ErrAlgorithmMismatch) {
		t.Errorf("Expected ErrAlgorithmMismatch for wrong width, got %v", err)
	}
}

func TestIsAnimated(t *testing.T) {
	still := encodePNG(t, createGradientImage(10, 10, false))

	if !IsDecodable(still) {
		t.Error("Expected PNG to be decodable")
	}
	if IsAnimated(still) {
		t.Error("PNG should not be animated")
	}
	if IsAnimated(encodeGIF(t, 1)) {
		t.Error("Single frame GIF should not be animated")
	}
	if !IsAnimated(encodeGIF(t, 3)) {
		t.Error("Three frame GIF should be animated")
	}
	if IsDecodable([]byte{0x00, 0x01, 0x02}) {
		t.Error("Garbage should not be decodable")
	}
}

func TestFetcher_Fetch(t *testing.T) {
	payload := encodePNG(t, createGradientImage(10, 10, false))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(payload)
	}))
	defer server.Close()

	f := NewFetcher(time.Second, 1<<20)
	data, err := f.Fetch(context.Background(), server.URL+"/img.png")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("Fetched bytes differ from served bytes")
	}

	if _, err := f.Fetch(context.Background(), server.URL+"/missing"); err == nil {
		t.Error("Expected error for 404")
	}

	small := NewFetcher(time.Second, 4)
	if _, err := small.Fetch(context.Background(), server.URL+"/img.png"); err == nil {
		t.Error("Expected error for oversized image")
	}
}

func BenchmarkComputeDHash(b *testing.B) {
	ph := NewPerceptualHasher()
	img := createGradientImage(500, 500, false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ph.Compute(img, DefaultAlgorithm())
	}
}

func BenchmarkDistance(b *testing.B) {
	algo := DefaultAlgorithm()
	h1 := &ImageHash{Algorithm: algo, Words: []uint64{0xDEADBEEF12345678}}
	h2 := &ImageHash{Algorithm: algo, Words: []uint64{0xCAFEBABE87654321}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Distance(h1, h2)
	}
}
