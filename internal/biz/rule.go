package biz

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Scope is the group a rule applies to.
type Scope int64

// GlobalScope makes a rule apply to every group.
const GlobalScope Scope = -1

// MaxRuleTextLength bounds a rule's pattern and reply, in characters.
const MaxRuleTextLength = 1024

// RuleType selects how a rule's pattern is matched.
type RuleType int

const (
	RuleTypeUnspecified RuleType = iota
	RuleTypeInclude
	RuleTypeEqual
	RuleTypeRegex
	RuleTypeAny
	RuleTypeAll
	RuleTypePicInclude
	RuleTypePicAll
	RuleTypePicAny
)

// Text cascade and image cascade, in evaluation order.
var (
	TextCascade  = []RuleType{RuleTypeInclude, RuleTypeEqual, RuleTypeRegex, RuleTypeAny, RuleTypeAll}
	ImageCascade = []RuleType{RuleTypePicInclude, RuleTypePicAll, RuleTypePicAny}
)

var ruleTypeNames = map[RuleType]string{
	RuleTypeInclude:    "include",
	RuleTypeEqual:      "equal",
	RuleTypeRegex:      "regex",
	RuleTypeAny:        "any",
	RuleTypeAll:        "all",
	RuleTypePicInclude: "pic_include",
	RuleTypePicAll:     "pic_all",
	RuleTypePicAny:     "pic_any",
}

// ruleTypeCodes are the values persisted in the type column.
// Image variants are negative.
var ruleTypeCodes = map[RuleType]int16{
	RuleTypeInclude:    0,
	RuleTypeEqual:      1,
	RuleTypeRegex:      2,
	RuleTypeAny:        3,
	RuleTypeAll:        4,
	RuleTypePicInclude: -1,
	RuleTypePicAll:     -2,
	RuleTypePicAny:     -3,
}

func (t RuleType) String() string {
	if name, ok := ruleTypeNames[t]; ok {
		return name
	}
	return "unspecified"
}

// Valid reports whether t is one of the eight rule types.
func (t RuleType) Valid() bool {
	_, ok := ruleTypeNames[t]
	return ok
}

// Code returns the persisted code of t.
func (t RuleType) Code() int16 {
	return ruleTypeCodes[t]
}

// IsImage reports whether t matches text extracted from images.
func (t RuleType) IsImage() bool {
	return t == RuleTypePicInclude || t == RuleTypePicAll || t == RuleTypePicAny
}

// GroupOnly reports whether globally scoped rules are ignored for t.
func (t RuleType) GroupOnly() bool {
	return t == RuleTypeAny || t == RuleTypePicAny
}

// ParseRuleType parses a rule type name such as "pic_all".
func ParseRuleType(name string) (RuleType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range ruleTypeNames {
		if n == name {
			return t, nil
		}
	}
	return RuleTypeUnspecified, fmt.Errorf("unknown rule type %q", name)
}

// RuleTypeFromCode maps a persisted code back to its type.
func RuleTypeFromCode(code int16) (RuleType, error) {
	for t, c := range ruleTypeCodes {
		if c == code {
			return t, nil
		}
	}
	return RuleTypeUnspecified, fmt.Errorf("unknown rule type code %d", code)
}

// Rule maps matching message content to a canned reply.
// Rules are immutable once created.
type Rule struct {
	ID        int64
	Pattern   string
	Reply     string
	Scope     Scope
	Creator   int64
	Type      RuleType
	CreatedAt time.Time
}

// Newer reports whether r wins over o when both match.
// Later creation wins; equal timestamps fall back to the higher id.
func (r *Rule) Newer(o *Rule) bool {
	if !r.CreatedAt.Equal(o.CreatedAt) {
		return r.CreatedAt.After(o.CreatedAt)
	}
	return r.ID > o.ID
}

// RuleRepo is the durable rule storage.
type RuleRepo interface {
	// Create persists a rule and returns it with its assigned id.
	Create(ctx context.Context, rule *Rule) (*Rule, error)
	// Delete removes a rule and reports whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)
	// ListAll returns every rule.
	ListAll(ctx context.Context) ([]*Rule, error)
}

// RuleChangeNotifier tells other replicas that the rule table changed.
type RuleChangeNotifier interface {
	NotifyRulesChanged(ctx context.Context) error
}
