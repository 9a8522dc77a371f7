package biz

import (
	"cmp"
	"context"
	"encoding/binary"
	"regexp"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-kratos/kratos/v2/log"

	"replybot/internal/pkg/filter"
	"replybot/internal/pkg/hash"
	"replybot/internal/pkg/metrics"
)

// ruleSnapshot is an immutable view of every rule, indexed for matching.
type ruleSnapshot struct {
	byID        map[int64]*Rule
	byScope     map[Scope][]*Rule
	byType      map[RuleType]map[Scope][]*Rule
	regexps     map[int64]*regexp.Regexp
	keywords    *filter.AhoCorasick
	imageScopes map[Scope]struct{}
	fingerprint uint64
	size        int
}

func newestFirst(rules []*Rule) {
	sort.Slice(rules, func(i, j int) bool { return rules[i].Newer(rules[j]) })
}

func buildSnapshot(rules []*Rule, logger *log.Helper) *ruleSnapshot {
	s := &ruleSnapshot{
		byID:        make(map[int64]*Rule, len(rules)),
		byScope:     make(map[Scope][]*Rule),
		byType:      make(map[RuleType]map[Scope][]*Rule),
		regexps:     make(map[int64]*regexp.Regexp),
		keywords:    filter.NewAhoCorasick(),
		imageScopes: make(map[Scope]struct{}),
		size:        len(rules),
	}

	var keywords []string
	parts := make([][]byte, 0, len(rules))
	for _, r := range rules {
		s.byID[r.ID] = r
		s.byScope[r.Scope] = append(s.byScope[r.Scope], r)

		scopes, ok := s.byType[r.Type]
		if !ok {
			scopes = make(map[Scope][]*Rule)
			s.byType[r.Type] = scopes
		}
		scopes[r.Scope] = append(scopes[r.Scope], r)

		if r.Type.IsImage() {
			s.imageScopes[r.Scope] = struct{}{}
		}

		switch r.Type {
		case RuleTypeRegex:
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				logger.Warnf("rule %d has an invalid regexp and will never match: %v", r.ID, err)
				break
			}
			s.regexps[r.ID] = re
		case RuleTypeAny, RuleTypeAll, RuleTypePicAny, RuleTypePicAll:
			keywords = append(keywords, filter.SplitKeywords(r.Pattern)...)
		}

		var buf [16]byte
		binary.LittleEndian.PutUint64(buf[:8], uint64(r.ID))
		binary.LittleEndian.PutUint64(buf[8:], uint64(r.CreatedAt.UnixNano()))
		parts = append(parts, buf[:])
	}

	for _, list := range s.byScope {
		newestFirst(list)
	}
	for _, scopes := range s.byType {
		for _, list := range scopes {
			newestFirst(list)
		}
	}
	s.keywords.Build(keywords)

	slices.SortFunc(parts, func(a, b []byte) int {
		return cmp.Compare(int64(binary.LittleEndian.Uint64(a)), int64(binary.LittleEndian.Uint64(b)))
	})
	s.fingerprint = hash.Fingerprint(parts...)
	return s
}

// candidates returns the rules of type t eligible for group, newest first.
func (s *ruleSnapshot) candidates(t RuleType, group Scope) []*Rule {
	scopes := s.byType[t]
	own := scopes[group]
	if t.GroupOnly() || group == GlobalScope {
		return own
	}
	global := scopes[GlobalScope]
	if len(global) == 0 {
		return own
	}
	if len(own) == 0 {
		return global
	}

	merged := make([]*Rule, 0, len(own)+len(global))
	i, j := 0, 0
	for i < len(own) && j < len(global) {
		if own[i].Newer(global[j]) {
			merged = append(merged, own[i])
			i++
		} else {
			merged = append(merged, global[j])
			j++
		}
	}
	merged = append(merged, own[i:]...)
	return append(merged, global[j:]...)
}

// hasImageRule reports whether group has an image rule of its own.
func (s *ruleSnapshot) hasImageRule(group Scope) bool {
	_, ok := s.imageScopes[group]
	return ok
}

// RuleStore is the durable rule table fronted by an in-memory snapshot.
// Reads only ever see a complete snapshot; writers are serialized.
type RuleStore struct {
	repo     RuleRepo
	notifier RuleChangeNotifier
	metrics  *metrics.Metrics
	log      *log.Helper

	mu       sync.Mutex
	snapshot atomic.Pointer[ruleSnapshot]
	now      func() time.Time
}

// NewRuleStore creates a RuleStore. The cache is empty until the first Refresh.
func NewRuleStore(repo RuleRepo, notifier RuleChangeNotifier, m *metrics.Metrics, logger log.Logger) *RuleStore {
	return &RuleStore{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		log:      log.NewHelper(logger),
		now:      time.Now,
	}
}

func (s *RuleStore) current() (*ruleSnapshot, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrStorageUnavailable.WithCause(errNotLoaded)
	}
	return snap, nil
}

// Refresh reloads every rule from durable storage and swaps the snapshot.
func (s *RuleStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *RuleStore) refreshLocked(ctx context.Context) error {
	rules, err := s.repo.ListAll(ctx)
	if err != nil {
		s.metrics.RecordRefresh(0, err)
		return storageError(err)
	}
	s.swap(buildSnapshot(rules, s.log))
	return nil
}

func (s *RuleStore) swap(next *ruleSnapshot) {
	prev := s.snapshot.Swap(next)
	s.metrics.RecordRefresh(next.size, nil)
	if prev != nil && prev.fingerprint == next.fingerprint {
		s.log.Debugf("rule cache refreshed, unchanged (%d rules)", next.size)
		return
	}
	s.log.Infof("rule cache refreshed: %d rules, fingerprint %016x", next.size, next.fingerprint)
}

// Insert persists a new rule created now, then refreshes the cache.
func (s *RuleStore) Insert(ctx context.Context, pattern, reply string, scope Scope, t RuleType, creator int64) (*Rule, error) {
	if !t.Valid() {
		return nil, ErrInvalidRule.WithCause(errUnknownType)
	}
	if utf8.RuneCountInString(pattern) > MaxRuleTextLength || utf8.RuneCountInString(reply) > MaxRuleTextLength {
		return nil, ErrInvalidRule.WithCause(errTooLong)
	}
	if t == RuleTypeRegex {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, ErrInvalidRule.WithCause(err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rule, err := s.repo.Create(ctx, &Rule{
		Pattern:   pattern,
		Reply:     reply,
		Scope:     scope,
		Creator:   creator,
		Type:      t,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, storageError(err)
	}
	if err := s.refreshLocked(ctx); err != nil {
		return nil, err
	}
	s.notify(ctx)
	return rule, nil
}

// Remove deletes a rule durably and drops it from the cache.
// It reports whether the rule existed.
func (s *RuleStore) Remove(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, storageError(err)
	}

	snap := s.snapshot.Load()
	if snap == nil {
		if err := s.refreshLocked(ctx); err != nil {
			return existed, err
		}
	} else if _, ok := snap.byID[id]; ok {
		rest := make([]*Rule, 0, len(snap.byID)-1)
		for rid, r := range snap.byID {
			if rid != id {
				rest = append(rest, r)
			}
		}
		s.swap(buildSnapshot(rest, s.log))
	}

	if existed {
		s.notify(ctx)
	}
	return existed, nil
}

func (s *RuleStore) notify(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyRulesChanged(ctx); err != nil {
		s.log.Warnf("failed to notify replicas of rule change: %v", err)
	}
}

// FindByScope returns the rules scoped to exactly scope, newest first.
func (s *RuleStore) FindByScope(scope Scope) ([]*Rule, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.byScope[scope]), nil
}

// FindByID returns the rule with id.
func (s *RuleStore) FindByID(id int64) (*Rule, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	r, ok := snap.byID[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return r, nil
}

// Len returns the number of cached rules.
func (s *RuleStore) Len() int {
	if snap := s.snapshot.Load(); snap != nil {
		return snap.size
	}
	return 0
}
