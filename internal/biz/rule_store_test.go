package biz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

func TestRuleStore_NotLoaded(t *testing.T) {
	s := NewRuleStore(newFakeRuleRepo(), nil, nil, log.DefaultLogger)

	if _, err := s.FindByScope(1); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("FindByScope before refresh = %v; want ErrStorageUnavailable", err)
	}
	if _, err := s.FindByID(1); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("FindByID before refresh = %v; want ErrStorageUnavailable", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d; want 0", s.Len())
	}
}

func TestRuleStore_RefreshFailure(t *testing.T) {
	repo := newFakeRuleRepo()
	repo.fail = true
	s := NewRuleStore(repo, nil, nil, log.DefaultLogger)

	if err := s.Refresh(context.Background()); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Refresh = %v; want ErrStorageUnavailable", err)
	}
}

func TestRuleStore_Insert(t *testing.T) {
	repo := newFakeRuleRepo()
	notifier := &countingNotifier{}
	s := NewRuleStore(repo, notifier, nil, log.DefaultLogger)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	rule, err := s.Insert(context.Background(), "hello", "hi there", 42, RuleTypeEqual, 7)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if rule.ID == 0 {
		t.Error("Expected an assigned id")
	}
	if !rule.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v; want %v", rule.CreatedAt, now)
	}
	if notifier.calls != 1 {
		t.Errorf("Expected 1 notification, got %d", notifier.calls)
	}

	got, err := s.FindByID(rule.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.Reply != "hi there" || got.Creator != 7 || got.Scope != 42 {
		t.Errorf("Unexpected rule %+v", got)
	}

	scoped, err := s.FindByScope(42)
	if err != nil {
		t.Fatalf("FindByScope failed: %v", err)
	}
	if len(scoped) != 1 {
		t.Errorf("Expected 1 rule in scope, got %d", len(scoped))
	}
}

func TestRuleStore_InsertInvalid(t *testing.T) {
	s := loadedStore()

	tests := []struct {
		name    string
		pattern string
		reply   string
		typ     RuleType
	}{
		{name: "unspecified type", pattern: "x", typ: RuleTypeUnspecified},
		{name: "out of range type", pattern: "x", typ: RuleType(99)},
		{name: "bad regexp", pattern: "(unclosed", typ: RuleTypeRegex},
		{name: "pattern too long", pattern: strings.Repeat("p", MaxRuleTextLength+1), typ: RuleTypeInclude},
		{name: "reply too long", pattern: "x", reply: strings.Repeat("回", MaxRuleTextLength+1), typ: RuleTypeEqual},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Insert(context.Background(), tt.pattern, tt.reply, 1, tt.typ, 0)
			if !errors.Is(err, ErrInvalidRule) {
				t.Errorf("Insert = %v; want ErrInvalidRule", err)
			}
		})
	}
	if s.Len() != 0 {
		t.Errorf("Invalid rules must not be stored, Len() = %d", s.Len())
	}
}

func TestRuleStore_InsertLengthCountsCharacters(t *testing.T) {
	repo := newFakeRuleRepo()
	s := NewRuleStore(repo, nil, nil, log.DefaultLogger)

	// 1024 three-byte runes fit a VARCHAR(1024) column.
	reply := strings.Repeat("回", MaxRuleTextLength)
	if _, err := s.Insert(context.Background(), strings.Repeat("p", MaxRuleTextLength), reply, 1, RuleTypeInclude, 0); err != nil {
		t.Fatalf("Insert at the limit failed: %v", err)
	}
	if _, err := s.Insert(context.Background(), "p", reply+"!", 1, RuleTypeInclude, 0); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("Insert over the limit = %v; want ErrInvalidRule", err)
	}
	if len(repo.rules) != 1 {
		t.Errorf("Expected only the rule at the limit to be written, got %d", len(repo.rules))
	}
}

func TestRuleStore_InsertStorageFailure(t *testing.T) {
	repo := newFakeRuleRepo()
	s := NewRuleStore(repo, nil, nil, log.DefaultLogger)
	repo.fail = true

	if _, err := s.Insert(context.Background(), "a", "b", 1, RuleTypeInclude, 0); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Insert = %v; want ErrStorageUnavailable", err)
	}
}

func TestRuleStore_Remove(t *testing.T) {
	repo := newFakeRuleRepo(
		testRule(1, RuleTypeInclude, 5, "a", "A", 0),
		testRule(2, RuleTypeInclude, 5, "b", "B", 1),
	)
	notifier := &countingNotifier{}
	s := NewRuleStore(repo, notifier, nil, log.DefaultLogger)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	removed, err := s.Remove(context.Background(), 1)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Error("Expected existing rule to be removed")
	}
	if _, err := s.FindByID(1); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("FindByID after remove = %v; want ErrRuleNotFound", err)
	}
	if _, ok := repo.rules[1]; ok {
		t.Error("Remove must delete durably")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d; want 1", s.Len())
	}

	removed, err = s.Remove(context.Background(), 1)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Error("Removing a missing rule must report false")
	}
	if notifier.calls != 1 {
		t.Errorf("Expected 1 notification, got %d", notifier.calls)
	}

	// A durable refresh must not resurrect the rule.
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := s.FindByID(1); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("FindByID after refresh = %v; want ErrRuleNotFound", err)
	}
}

func TestRuleStore_NotifierFailureIsNotFatal(t *testing.T) {
	notifier := &countingNotifier{err: errors.New("redis down")}
	s := NewRuleStore(newFakeRuleRepo(), notifier, nil, log.DefaultLogger)

	if _, err := s.Insert(context.Background(), "a", "b", 1, RuleTypeInclude, 0); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
}

func TestRuleStore_FindByScopeNewestFirst(t *testing.T) {
	s := loadedStore(
		testRule(1, RuleTypeInclude, 5, "a", "A", 0),
		testRule(2, RuleTypeEqual, 5, "b", "B", 2),
		testRule(3, RuleTypeAny, 5, "c", "C", 1),
		testRule(4, RuleTypeAny, 6, "d", "D", 3),
	)

	rules, err := s.FindByScope(5)
	if err != nil {
		t.Fatalf("FindByScope failed: %v", err)
	}
	var ids []int64
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	want := []int64{2, 3, 1}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v; want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v; want %v", ids, want)
		}
	}

	empty, err := s.FindByScope(99)
	if err != nil || len(empty) != 0 {
		t.Errorf("FindByScope(99) = %v, %v; want empty", empty, err)
	}
}

func TestRuleStore_ConcurrentReadsSeeWholeSnapshots(t *testing.T) {
	s := loadedStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := s.Insert(ctx, "p", "r", 1, RuleTypeInclude, 0); err != nil {
				t.Errorf("Insert failed: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				rules, err := s.FindByScope(1)
				if err != nil {
					t.Errorf("FindByScope failed: %v", err)
					return
				}
				for k := 1; k < len(rules); k++ {
					if rules[k].Newer(rules[k-1]) {
						t.Errorf("snapshot out of order")
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Errorf("Len() = %d; want 50", s.Len())
	}
}

func TestRuleType_Codes(t *testing.T) {
	for _, typ := range append(append([]RuleType{}, TextCascade...), ImageCascade...) {
		back, err := RuleTypeFromCode(typ.Code())
		if err != nil {
			t.Fatalf("RuleTypeFromCode(%d) failed: %v", typ.Code(), err)
		}
		if back != typ {
			t.Errorf("RuleTypeFromCode(%d) = %s; want %s", typ.Code(), back, typ)
		}
		if typ.IsImage() != (typ.Code() < 0) {
			t.Errorf("%s: IsImage() disagrees with code sign", typ)
		}
		parsed, err := ParseRuleType(typ.String())
		if err != nil || parsed != typ {
			t.Errorf("ParseRuleType(%q) = %s, %v", typ.String(), parsed, err)
		}
	}
	if _, err := RuleTypeFromCode(9); err == nil {
		t.Error("Expected error for unknown code")
	}
	if _, err := ParseRuleType("bogus"); err == nil {
		t.Error("Expected error for unknown name")
	}
}

func TestRule_NewerTieBreak(t *testing.T) {
	a := testRule(1, RuleTypeInclude, 1, "x", "a", 0)
	b := testRule(2, RuleTypeInclude, 1, "x", "b", 0)
	if !b.Newer(a) || a.Newer(b) {
		t.Error("Equal timestamps must fall back to the higher id")
	}
	c := testRule(0, RuleTypeInclude, 1, "x", "c", 1)
	if !c.Newer(b) {
		t.Error("Later creation must win")
	}
}
