package data

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"replybot/internal/biz"
	"replybot/internal/conf"
	"replybot/internal/data/postgres/sqlc"
	"replybot/internal/pkg/bloom"
	"replybot/internal/pkg/hash"
	"replybot/internal/pkg/hashindex"
	"replybot/internal/pkg/metrics"
	pkgredis "replybot/internal/pkg/redis"
)

const (
	defaultBloomBits   = 1 << 23
	defaultBloomHashes = 7
	defaultBloomPrefix = "replybot:bloom:"
)

// NewHashIndexProvider selects the hash index backend named by image.index_driver.
func NewHashIndexProvider(c *conf.Image, data *Data, cache pkgredis.Cache, m *metrics.Metrics, logger log.Logger) (biz.HashIndexProvider, error) {
	switch c.IndexDriver {
	case "memory":
		return newMemoryIndexProvider(), nil
	case "", "postgres":
		return newHashIndexRepoProvider(data.Queries, cache, c.Bloom, m, logger), nil
	default:
		return nil, fmt.Errorf("unknown image index driver %q", c.IndexDriver)
	}
}

// memoryIndexProvider keeps every index in process memory.
type memoryIndexProvider struct {
	registry *hashindex.Registry
}

func newMemoryIndexProvider() *memoryIndexProvider {
	return &memoryIndexProvider{registry: hashindex.NewRegistry()}
}

// Index implements biz.HashIndexProvider.
func (p *memoryIndexProvider) Index(category string, algo hash.Algorithm) (biz.HashIndex, error) {
	idx, err := p.registry.Index(category, algo)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

type hashIndexRepoProvider struct {
	queries *sqlc.Queries
	cache   pkgredis.Cache
	bloom   conf.Bloom
	metrics *metrics.Metrics
	logger  log.Logger

	mu      sync.Mutex
	indexes map[string]*hashIndexRepo
}

func newHashIndexRepoProvider(queries *sqlc.Queries, cache pkgredis.Cache, c conf.Bloom, m *metrics.Metrics, logger log.Logger) *hashIndexRepoProvider {
	if c.Bits == 0 {
		c.Bits = defaultBloomBits
	}
	if c.Hashes == 0 {
		c.Hashes = defaultBloomHashes
	}
	if c.Prefix == "" {
		c.Prefix = defaultBloomPrefix
	}
	return &hashIndexRepoProvider{
		queries: queries,
		cache:   cache,
		bloom:   c,
		metrics: m,
		logger:  logger,
		indexes: make(map[string]*hashIndexRepo),
	}
}

// Index implements biz.HashIndexProvider.
func (p *hashIndexRepoProvider) Index(category string, algo hash.Algorithm) (biz.HashIndex, error) {
	if category == "" {
		return nil, biz.ErrInvalidCategory
	}
	if err := algo.Validate(); err != nil {
		return nil, err
	}
	key := category + ":" + algo.Key()

	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.indexes[key]; ok {
		return idx, nil
	}
	idx := &hashIndexRepo{
		queries:  p.queries,
		category: category,
		algo:     algo,
		metrics:  p.metrics,
		log:      log.NewHelper(log.With(p.logger, "category", category, "algorithm", algo.Key())),
	}
	if p.bloom.Enabled && p.cache != nil {
		idx.filter = bloom.NewBloomFilter(p.cache, p.bloom.Prefix+key, p.bloom.Bits, p.bloom.Hashes)
	}
	p.indexes[key] = idx
	return idx, nil
}

// hashIndexRepo is the image_hash rows of one category and algorithm.
// The optional bloom filter only short-cuts exact probes; Query always scans.
type hashIndexRepo struct {
	queries  *sqlc.Queries
	category string
	algo     hash.Algorithm
	filter   *bloom.Filter
	metrics  *metrics.Metrics
	log      *log.Helper

	// rebuildMu orders filter rebuilds against adds from Insert.
	rebuildMu sync.Mutex
}

func (r *hashIndexRepo) check(h *hash.ImageHash) error {
	if h.Algorithm != r.algo {
		return fmt.Errorf("%w: index %s, hash %s", hash.ErrAlgorithmMismatch, r.algo, h.Algorithm)
	}
	return nil
}

// Insert implements biz.HashIndex.
func (r *hashIndexRepo) Insert(ctx context.Context, identifier string, h *hash.ImageHash) error {
	if err := r.check(h); err != nil {
		return err
	}
	err := r.queries.InsertImageHash(ctx, sqlc.InsertImageHashParams{
		Category:   r.category,
		Algorithm:  r.algo.Key(),
		Identifier: identifier,
		Hash:       h.Bytes(),
	})
	if err != nil {
		return err
	}

	if r.filter != nil {
		r.addToFilter(ctx, h)
	}
	return nil
}

// addToFilter adds a stored hash to an already built filter. An unbuilt
// filter is left alone: the next rebuild reads the row from postgres.
func (r *hashIndexRepo) addToFilter(ctx context.Context, h *hash.ImageHash) {
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	built, err := r.filter.Initialized(ctx)
	if err == nil && !built {
		return
	}
	if err == nil {
		err = r.filter.AddWithCtx(ctx, h.Bytes())
	}
	if err != nil {
		r.metrics.RecordBloomFallback()
		r.log.Warnf("failed to add hash to bloom filter, dropping it: %v", err)
		if err := r.filter.Reset(ctx); err != nil {
			r.log.Warnf("failed to reset bloom filter: %v", err)
		}
	}
}

// Query implements biz.HashIndex.
func (r *hashIndexRepo) Query(ctx context.Context, target *hash.ImageHash, maxDistance int) ([]biz.HashMatch, error) {
	if err := r.check(target); err != nil {
		return nil, err
	}
	if maxDistance < 0 {
		return nil, nil
	}
	rows, err := r.queries.ListImageHashes(ctx, sqlc.ListImageHashesParams{
		Category:  r.category,
		Algorithm: r.algo.Key(),
	})
	if err != nil {
		return nil, err
	}

	bits := float64(r.algo.Bits())
	var matches []biz.HashMatch
	for _, row := range rows {
		stored, err := hash.FromBytes(r.algo, row.Hash)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", row.Identifier, err)
		}
		d, err := hash.Distance(target, stored)
		if err != nil {
			return nil, err
		}
		if d <= maxDistance {
			matches = append(matches, biz.HashMatch{
				Identifier:         row.Identifier,
				Distance:           d,
				NormalizedDistance: float64(d) / bits,
			})
		}
	}
	return matches, nil
}

// Contains implements biz.HashIndex.
func (r *hashIndexRepo) Contains(ctx context.Context, target *hash.ImageHash) (bool, error) {
	if err := r.check(target); err != nil {
		return false, err
	}
	if r.filter != nil {
		maybe, err := r.mayContain(ctx, target)
		if err != nil {
			r.metrics.RecordBloomFallback()
			r.log.Warnf("bloom filter unavailable, probing postgres: %v", err)
		} else if !maybe {
			return false, nil
		}
	}
	return r.queries.ImageHashExists(ctx, sqlc.ImageHashExistsParams{
		Category:  r.category,
		Algorithm: r.algo.Key(),
		Hash:      target.Bytes(),
	})
}

func (r *hashIndexRepo) mayContain(ctx context.Context, target *hash.ImageHash) (bool, error) {
	ok, err := r.filter.Initialized(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		if err := r.rebuild(ctx); err != nil {
			return false, err
		}
	}
	return r.filter.ExistsWithCtx(ctx, target.Bytes())
}

// rebuild loads every stored hash into an empty bloom filter.
func (r *hashIndexRepo) rebuild(ctx context.Context) error {
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	if ok, err := r.filter.Initialized(ctx); err != nil || ok {
		return err
	}
	rows, err := r.queries.ListImageHashes(ctx, sqlc.ListImageHashesParams{
		Category:  r.category,
		Algorithm: r.algo.Key(),
	})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := r.filter.AddWithCtx(ctx, row.Hash); err != nil {
			return err
		}
	}
	r.log.Infof("bloom filter rebuilt from %d records", len(rows))
	return nil
}
