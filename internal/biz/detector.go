package biz

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"replybot/internal/pkg/hash"
	"replybot/internal/pkg/hashindex"
	"replybot/internal/pkg/metrics"
)

// HashRecord is one stored image hash.
type HashRecord struct {
	Identifier string
	Hash       *hash.ImageHash
}

// HashMatch is a stored record within range of a query.
type HashMatch = hashindex.Match

// HashIndex stores the hashes of one category produced by one algorithm.
type HashIndex interface {
	// Insert appends a record; identifiers need not be unique.
	Insert(ctx context.Context, identifier string, h *hash.ImageHash) error
	// Query returns every record at Hamming distance <= maxDistance from target, in no particular order.
	Query(ctx context.Context, target *hash.ImageHash, maxDistance int) ([]HashMatch, error)
	// Contains reports whether a record with exactly target's bits exists.
	Contains(ctx context.Context, target *hash.ImageHash) (bool, error)
}

// HashIndexProvider hands out the index of a (category, algorithm) pair.
type HashIndexProvider interface {
	Index(category string, algo hash.Algorithm) (HashIndex, error)
}

// Step is one hashing algorithm with its match threshold.
type Step struct {
	Algorithm  hash.Algorithm
	Threshold  float64
	Normalized bool
}

// EffectiveThreshold returns the maximum Hamming distance for the step.
// A normalized threshold is a fraction of the hash width.
func (s Step) EffectiveThreshold() int {
	if s.Normalized {
		return int(math.Round(s.Threshold * float64(s.Algorithm.Bits())))
	}
	return int(math.Floor(s.Threshold))
}

// DetectorPolicy configures a DuplicateDetector.
type DetectorPolicy struct {
	// Steps are tried in order by Exists. Insert hashes every step's algorithm.
	Steps []Step
	// InsertSteps decide InsertIfAbsent. Empty means Steps.
	InsertSteps []Step
}

// Validate checks the policy can be served.
func (p *DetectorPolicy) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("duplicate detector needs at least one step")
	}
	for _, s := range p.Steps {
		if err := s.Algorithm.Validate(); err != nil {
			return err
		}
	}
	for _, s := range p.InsertSteps {
		if !slices.ContainsFunc(p.Steps, func(o Step) bool { return o.Algorithm == s.Algorithm }) {
			return fmt.Errorf("insert step %s has no matching detection step", s.Algorithm)
		}
	}
	return nil
}

// DuplicateDetector decides whether an image was seen before in a category.
type DuplicateDetector struct {
	provider    HashIndexProvider
	hasher      *hash.PerceptualHasher
	steps       []Step
	insertSteps []Step
	algorithms  []hash.Algorithm
	metrics     *metrics.Metrics
	log         *log.Helper

	insertMu sync.Mutex
}

// NewDuplicateDetector creates a DuplicateDetector.
func NewDuplicateDetector(provider HashIndexProvider, policy *DetectorPolicy, m *metrics.Metrics, logger log.Logger) (*DuplicateDetector, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	d := &DuplicateDetector{
		provider:    provider,
		hasher:      hash.NewPerceptualHasher(),
		steps:       slices.Clone(policy.Steps),
		insertSteps: slices.Clone(policy.InsertSteps),
		metrics:     m,
		log:         log.NewHelper(logger),
	}
	if len(d.insertSteps) == 0 {
		d.insertSteps = d.steps
	}
	for _, s := range d.steps {
		if !slices.Contains(d.algorithms, s.Algorithm) {
			d.algorithms = append(d.algorithms, s.Algorithm)
		}
	}
	return d, nil
}

// Steps returns the detection steps in evaluation order.
func (d *DuplicateDetector) Steps() []Step {
	return slices.Clone(d.steps)
}

// InsertSteps returns the steps used by InsertIfAbsent.
func (d *DuplicateDetector) InsertSteps() []Step {
	return slices.Clone(d.insertSteps)
}

// hashable reports whether img passes the gate applied before any hashing.
func hashable(img []byte) bool {
	return hash.IsDecodable(img) && !hash.IsAnimated(img)
}

// Exists reports whether an equivalent image is stored in category.
// Images that cannot be hashed are reported as absent without touching the index.
func (d *DuplicateDetector) Exists(ctx context.Context, category string, img []byte) (bool, error) {
	if category == "" {
		return false, ErrInvalidCategory
	}
	if !hashable(img) {
		d.metrics.RecordDuplicateCheck(category, "skipped")
		return false, nil
	}
	hashes, err := d.hashAll(img)
	if err != nil {
		d.log.Warnf("image passed the decode check but failed to hash: %v", err)
		d.metrics.RecordDuplicateCheck(category, "skipped")
		return false, nil
	}

	found, err := d.exists(ctx, category, hashes, d.steps)
	if err != nil {
		return false, err
	}
	if found {
		d.metrics.RecordDuplicateCheck(category, "hit")
	} else {
		d.metrics.RecordDuplicateCheck(category, "miss")
	}
	return found, nil
}

// hashAll decodes img once and hashes it with every configured algorithm.
func (d *DuplicateDetector) hashAll(img []byte) (map[hash.Algorithm]*hash.ImageHash, error) {
	list, err := d.hasher.ComputeFromBytes(img, d.algorithms...)
	if err != nil {
		return nil, err
	}
	hashes := make(map[hash.Algorithm]*hash.ImageHash, len(list))
	for i, h := range list {
		hashes[d.algorithms[i]] = h
	}
	return hashes, nil
}

func (d *DuplicateDetector) exists(ctx context.Context, category string, hashes map[hash.Algorithm]*hash.ImageHash, steps []Step) (bool, error) {
	for _, step := range steps {
		h := hashes[step.Algorithm]
		idx, err := d.provider.Index(category, step.Algorithm)
		if err != nil {
			return false, indexError(err)
		}

		threshold := step.EffectiveThreshold()
		if threshold >= 0 {
			ok, err := idx.Contains(ctx, h)
			if err != nil {
				return false, indexError(err)
			}
			if ok {
				d.log.Debugf("exact %s hit in %s", step.Algorithm, category)
				return true, nil
			}
		}

		matches, err := idx.Query(ctx, h, threshold)
		if err != nil {
			return false, indexError(err)
		}
		if len(matches) > 0 {
			d.log.Debugf("%d %s matches within %d bits in %s", len(matches), step.Algorithm, threshold, category)
			return true, nil
		}
	}
	return false, nil
}

func (d *DuplicateDetector) hashForInsert(category string, img []byte) (map[hash.Algorithm]*hash.ImageHash, error) {
	if category == "" {
		return nil, ErrInvalidCategory
	}
	if !hash.IsDecodable(img) {
		return nil, ErrInvalidImage
	}
	if hash.IsAnimated(img) {
		return nil, ErrInvalidImage.WithCause(errAnimated)
	}
	hashes, err := d.hashAll(img)
	if err != nil {
		return nil, ErrInvalidImage.WithCause(err)
	}
	return hashes, nil
}

// Insert hashes img with every configured algorithm and appends the records.
// An empty identifier is replaced by the content hash of img.
func (d *DuplicateDetector) Insert(ctx context.Context, category, identifier string, img []byte) error {
	hashes, err := d.hashForInsert(category, img)
	if err != nil {
		return err
	}
	return d.insert(ctx, category, identifierFor(identifier, img), hashes)
}

// InsertIfAbsent inserts img unless the insert steps find an equivalent image.
// It reports whether the image was inserted.
func (d *DuplicateDetector) InsertIfAbsent(ctx context.Context, category, identifier string, img []byte) (bool, error) {
	hashes, err := d.hashForInsert(category, img)
	if err != nil {
		return false, err
	}

	d.insertMu.Lock()
	defer d.insertMu.Unlock()

	found, err := d.exists(ctx, category, hashes, d.insertSteps)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	if err := d.insert(ctx, category, identifierFor(identifier, img), hashes); err != nil {
		return false, err
	}
	return true, nil
}

func (d *DuplicateDetector) insert(ctx context.Context, category, identifier string, hashes map[hash.Algorithm]*hash.ImageHash) error {
	for _, algo := range d.algorithms {
		idx, err := d.provider.Index(category, algo)
		if err != nil {
			return indexError(err)
		}
		if err := idx.Insert(ctx, identifier, hashes[algo]); err != nil {
			return indexError(err)
		}
	}
	d.metrics.RecordInsert(category)
	d.log.Debugf("inserted %s into %s", identifier, category)
	return nil
}

func identifierFor(identifier string, img []byte) string {
	if identifier != "" {
		return identifier
	}
	return hash.ContentHash(img)
}
