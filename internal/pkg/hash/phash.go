package hash

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	"github.com/corona10/goimagehash"
)

var (
	// ErrAlgorithmMismatch is returned when two hashes of different algorithms or resolutions are compared.
	ErrAlgorithmMismatch = errors.New("hash: algorithm mismatch")
	// ErrInvalidImage is returned when image bytes cannot be decoded.
	ErrInvalidImage = errors.New("hash: invalid image")
	// ErrInvalidAlgorithm is returned for unsupported algorithm configurations.
	ErrInvalidAlgorithm = errors.New("hash: invalid algorithm")
)

// HashType represents the type of perceptual hash.
type HashType int

const (
	// PHash uses DCT-based perceptual hash (most accurate).
	PHash HashType = iota
	// AHash uses average hash (fastest).
	AHash
	// DHash uses difference hash (good balance).
	DHash
)

// String returns the name of the hash type.
func (t HashType) String() string {
	switch t {
	case PHash:
		return "phash"
	case AHash:
		return "ahash"
	case DHash:
		return "dhash"
	default:
		return "unknown"
	}
}

func (t HashType) kind() goimagehash.Kind {
	switch t {
	case PHash:
		return goimagehash.PHash
	case AHash:
		return goimagehash.AHash
	case DHash:
		return goimagehash.DHash
	default:
		return goimagehash.Unknown
	}
}

// ParseHashType parses "phash", "ahash" or "dhash".
func ParseHashType(s string) (HashType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "phash":
		return PHash, nil
	case "ahash":
		return AHash, nil
	case "dhash":
		return DHash, nil
	default:
		return 0, fmt.Errorf("%w: unknown hash type %q", ErrInvalidAlgorithm, s)
	}
}

// Algorithm is one hashing configuration. Distances are only defined
// between hashes produced by the same Algorithm.
type Algorithm struct {
	Type   HashType
	Width  int
	Height int
}

// DefaultAlgorithm is a 64-bit difference hash.
func DefaultAlgorithm() Algorithm {
	return Algorithm{Type: DHash, Width: 8, Height: 8}
}

// Bits returns the bit resolution of hashes produced by a.
func (a Algorithm) Bits() int {
	return a.Width * a.Height
}

// Key identifies the algorithm in storage, e.g. "dhash-8x8".
func (a Algorithm) Key() string {
	return a.Type.String() + "-" + strconv.Itoa(a.Width) + "x" + strconv.Itoa(a.Height)
}

func (a Algorithm) String() string {
	return a.Key()
}

// Validate checks the resolution is supported by the underlying hash functions.
func (a Algorithm) Validate() error {
	bits := a.Bits()
	if a.Width <= 0 || a.Height <= 0 || bits%64 != 0 {
		return fmt.Errorf("%w: %s must have a positive multiple of 64 bits", ErrInvalidAlgorithm, a.Key())
	}
	if a.Type == PHash && bits&(bits-1) != 0 {
		return fmt.Errorf("%w: %s needs a power of two bit count", ErrInvalidAlgorithm, a.Key())
	}
	if a.Type.kind() == goimagehash.Unknown {
		return fmt.Errorf("%w: unknown hash type %d", ErrInvalidAlgorithm, a.Type)
	}
	return nil
}

// ParseAlgorithm parses a key produced by Algorithm.Key.
func ParseAlgorithm(key string) (Algorithm, error) {
	name, size, ok := strings.Cut(key, "-")
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: malformed key %q", ErrInvalidAlgorithm, key)
	}
	t, err := ParseHashType(name)
	if err != nil {
		return Algorithm{}, err
	}
	ws, hs, ok := strings.Cut(size, "x")
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: malformed size in %q", ErrInvalidAlgorithm, key)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return Algorithm{}, fmt.Errorf("%w: %v", ErrInvalidAlgorithm, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return Algorithm{}, fmt.Errorf("%w: %v", ErrInvalidAlgorithm, err)
	}
	a := Algorithm{Type: t, Width: w, Height: h}
	return a, a.Validate()
}

// ImageHash represents a computed image hash.
type ImageHash struct {
	Algorithm Algorithm
	Words     []uint64
}

// Bits returns the bit resolution of the hash.
func (h *ImageHash) Bits() int {
	return h.Algorithm.Bits()
}

// Bytes encodes the hash words big-endian.
func (h *ImageHash) Bytes() []byte {
	buf := make([]byte, 8*len(h.Words))
	for i, w := range h.Words {
		binary.BigEndian.PutUint64(buf[i*8:], w)
	}
	return buf
}

// String returns a hex string representation of the hash.
func (h *ImageHash) String() string {
	var sb strings.Builder
	for _, w := range h.Words {
		fmt.Fprintf(&sb, "%016x", w)
	}
	return sb.String()
}

// FromBytes decodes a hash stored with Bytes.
func FromBytes(algo Algorithm, b []byte) (*ImageHash, error) {
	if len(b) != algo.Bits()/8 {
		return nil, fmt.Errorf("%w: %d bytes for %s", ErrAlgorithmMismatch, len(b), algo.Key())
	}
	words := make([]uint64, len(b)/8)
	for i := range words {
		words[i] = binary.BigEndian.Uint64(b[i*8:])
	}
	return &ImageHash{Algorithm: algo, Words: words}, nil
}

// Distance returns the Hamming distance between two hashes.
// Hashes of different algorithms or resolutions are never compared.
func Distance(h1, h2 *ImageHash) (int, error) {
	if h1.Algorithm != h2.Algorithm || len(h1.Words) != len(h2.Words) {
		return 0, fmt.Errorf("%w: %s vs %s", ErrAlgorithmMismatch, h1.Algorithm.Key(), h2.Algorithm.Key())
	}
	kind := h1.Algorithm.Type.kind()
	a := goimagehash.NewExtImageHash(h1.Words, kind, h1.Bits())
	b := goimagehash.NewExtImageHash(h2.Words, kind, h2.Bits())
	d, err := a.Distance(b)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAlgorithmMismatch, err)
	}
	return d, nil
}

// PerceptualHasher provides image hashing functionality.
type PerceptualHasher struct{}

// NewPerceptualHasher creates a new PerceptualHasher.
func NewPerceptualHasher() *PerceptualHasher {
	return &PerceptualHasher{}
}

// Compute hashes a decoded image with the given algorithm.
func (ph *PerceptualHasher) Compute(img image.Image, algo Algorithm) (*ImageHash, error) {
	if err := algo.Validate(); err != nil {
		return nil, err
	}
	var (
		h   *goimagehash.ExtImageHash
		err error
	)
	switch algo.Type {
	case PHash:
		h, err = goimagehash.ExtPerceptionHash(img, algo.Width, algo.Height)
	case AHash:
		h, err = goimagehash.ExtAverageHash(img, algo.Width, algo.Height)
	case DHash:
		h, err = goimagehash.ExtDifferenceHash(img, algo.Width, algo.Height)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to compute %s: %w", algo.Key(), err)
	}
	return &ImageHash{Algorithm: algo, Words: h.GetHash()}, nil
}

// Decode decodes image bytes in any registered format.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// ComputeFromBytes decodes the image once and hashes it with every algorithm, in order.
func (ph *PerceptualHasher) ComputeFromBytes(data []byte, algos ...Algorithm) ([]*ImageHash, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	hashes := make([]*ImageHash, len(algos))
	for i, algo := range algos {
		if hashes[i], err = ph.Compute(img, algo); err != nil {
			return nil, err
		}
	}
	return hashes, nil
}
