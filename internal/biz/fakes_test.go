package biz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

var errRepoDown = errors.New("connection refused")

type fakeRuleRepo struct {
	mu     sync.Mutex
	rules  map[int64]*Rule
	nextID int64
	lists  int
	fail   bool
}

func newFakeRuleRepo(rules ...*Rule) *fakeRuleRepo {
	r := &fakeRuleRepo{rules: make(map[int64]*Rule)}
	for _, rule := range rules {
		r.rules[rule.ID] = rule
		r.nextID = max(r.nextID, rule.ID)
	}
	return r
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *Rule) (*Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errRepoDown
	}
	r.nextID++
	created := *rule
	created.ID = r.nextID
	r.rules[created.ID] = &created
	return &created, nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return false, errRepoDown
	}
	_, ok := r.rules[id]
	delete(r.rules, id)
	return ok, nil
}

func (r *fakeRuleRepo) ListAll(_ context.Context) ([]*Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if r.fail {
		return nil, errRepoDown
	}
	out := make([]*Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out, nil
}

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) NotifyRulesChanged(context.Context) error {
	n.calls++
	return n.err
}

// testRule builds a rule created at base + minutes.
func testRule(id int64, t RuleType, scope Scope, pattern, reply string, minutes int) *Rule {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Rule{
		ID:        id,
		Type:      t,
		Scope:     scope,
		Pattern:   pattern,
		Reply:     reply,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

func loadedStore(rules ...*Rule) *RuleStore {
	s := NewRuleStore(newFakeRuleRepo(rules...), nil, nil, log.DefaultLogger)
	if err := s.Refresh(context.Background()); err != nil {
		panic(err)
	}
	return s
}
