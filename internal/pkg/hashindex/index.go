// Package hashindex keeps perceptual hashes in memory and answers
// Hamming-distance range queries by scanning every record.
package hashindex

import (
	"context"
	"fmt"
	"sync"

	"replybot/internal/pkg/hash"
)

// Match is one stored record within range of a query.
type Match struct {
	Identifier         string
	Distance           int
	NormalizedDistance float64
}

type record struct {
	identifier string
	hash       *hash.ImageHash
}

// Index is an append-only set of hashes produced by a single algorithm.
type Index struct {
	algo hash.Algorithm

	mu      sync.RWMutex
	records []record
	exact   map[string]int
}

// New creates an empty index for algo.
func New(algo hash.Algorithm) *Index {
	return &Index{
		algo:  algo,
		exact: make(map[string]int),
	}
}

// Algorithm returns the algorithm every stored hash was produced by.
func (idx *Index) Algorithm() hash.Algorithm {
	return idx.algo
}

func (idx *Index) check(h *hash.ImageHash) error {
	if h.Algorithm != idx.algo {
		return fmt.Errorf("%w: index %s, hash %s", hash.ErrAlgorithmMismatch, idx.algo.Key(), h.Algorithm.Key())
	}
	return nil
}

// Insert appends a record. Identifiers are not required to be unique.
func (idx *Index) Insert(_ context.Context, identifier string, h *hash.ImageHash) error {
	if err := idx.check(h); err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.records = append(idx.records, record{identifier: identifier, hash: h})
	idx.exact[string(h.Bytes())]++
	return nil
}

// Query returns every record whose distance to target is at most maxDistance.
func (idx *Index) Query(ctx context.Context, target *hash.ImageHash, maxDistance int) ([]Match, error) {
	if err := idx.check(target); err != nil {
		return nil, err
	}
	if maxDistance < 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	bits := float64(target.Bits())
	var matches []Match
	for i, r := range idx.records {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		d, err := hash.Distance(target, r.hash)
		if err != nil {
			return nil, err
		}
		if d <= maxDistance {
			matches = append(matches, Match{
				Identifier:         r.identifier,
				Distance:           d,
				NormalizedDistance: float64(d) / bits,
			})
		}
	}
	return matches, nil
}

// Contains reports whether a record with exactly target's bits exists.
func (idx *Index) Contains(_ context.Context, target *hash.ImageHash) (bool, error) {
	if err := idx.check(target); err != nil {
		return false, err
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.exact[string(target.Bytes())] > 0, nil
}

// Len returns the number of stored records.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Registry holds one Index per (category, algorithm), created on first use.
type Registry struct {
	mu      sync.Mutex
	indexes map[string]*Index
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{indexes: make(map[string]*Index)}
}

// Index returns the index for category and algo.
func (r *Registry) Index(category string, algo hash.Algorithm) (*Index, error) {
	if category == "" {
		return nil, fmt.Errorf("hashindex: empty category")
	}
	if err := algo.Validate(); err != nil {
		return nil, err
	}
	key := category + "/" + algo.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.indexes[key]
	if !ok {
		idx = New(algo)
		r.indexes[key] = idx
	}
	return idx, nil
}
