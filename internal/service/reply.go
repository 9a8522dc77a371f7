package service

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"replybot/internal/biz"
	"replybot/internal/pkg/hash"
	"replybot/internal/pkg/pagination"
)

// ImagePayload is an image attached to a message, given inline or by URL.
type ImagePayload struct {
	URL  string `json:"url,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// MatchRequest is a chat message to answer.
type MatchRequest struct {
	GroupID int64          `json:"group_id"`
	Text    string         `json:"text"`
	Images  []ImagePayload `json:"images,omitempty"`
}

// MatchReply carries the reply of the winning rule. Matched is false when no rule applies.
type MatchReply struct {
	Matched  bool   `json:"matched"`
	Reply    string `json:"reply,omitempty"`
	RuleID   int64  `json:"rule_id,omitempty"`
	RuleType string `json:"rule_type,omitempty"`
}

// CreateRuleRequest describes a new rule. Type is one of the rule type names such as "include" or "pic_any".
type CreateRuleRequest struct {
	Pattern string `json:"pattern"`
	Reply   string `json:"reply"`
	Scope   int64  `json:"scope"`
	Type    string `json:"type"`
	Creator int64  `json:"creator"`
}

// RuleReply is a stored rule.
type RuleReply struct {
	ID        int64     `json:"id"`
	Pattern   string    `json:"pattern"`
	Reply     string    `json:"reply"`
	Scope     int64     `json:"scope"`
	Type      string    `json:"type"`
	Creator   int64     `json:"creator"`
	CreatedAt time.Time `json:"created_at"`
}

// RuleIDRequest addresses one rule by id.
type RuleIDRequest struct {
	ID int64 `json:"id"`
}

// DeleteRuleReply reports whether a rule was removed.
type DeleteRuleReply struct {
	Removed bool `json:"removed"`
}

// ListRulesRequest selects a page of the rules scoped to one group.
type ListRulesRequest struct {
	Scope    int64 `json:"scope"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// ListRulesReply is one page of rules.
type ListRulesReply = pagination.OffsetResponse[*RuleReply]

// ReplyService answers chat messages and administers rules.
type ReplyService struct {
	store   *biz.RuleStore
	matcher *biz.RuleMatcher
	fetcher *hash.Fetcher
	log     *log.Helper
}

// NewReplyService creates a new ReplyService.
func NewReplyService(store *biz.RuleStore, matcher *biz.RuleMatcher, fetcher *hash.Fetcher, logger log.Logger) *ReplyService {
	return &ReplyService{
		store:   store,
		matcher: matcher,
		fetcher: fetcher,
		log:     log.NewHelper(logger),
	}
}

// Match returns the reply for a message, if any.
// Images given by URL that cannot be downloaded contribute no text.
func (s *ReplyService) Match(ctx context.Context, in *MatchRequest) (*MatchReply, error) {
	msg := &biz.Message{
		GroupID: biz.Scope(in.GroupID),
		Text:    in.Text,
		Images:  make([]biz.Image, 0, len(in.Images)),
	}
	for _, img := range in.Images {
		data := img.Data
		if len(data) == 0 && img.URL != "" {
			fetched, err := s.fetcher.Fetch(ctx, img.URL)
			if err != nil {
				s.log.Warnf("failed to fetch %s: %v", img.URL, err)
			}
			data = fetched
		}
		msg.Images = append(msg.Images, biz.Image{URL: img.URL, Data: data})
	}

	rule, err := s.matcher.MatchRule(ctx, msg)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return &MatchReply{}, nil
	}
	return &MatchReply{
		Matched:  true,
		Reply:    rule.Reply,
		RuleID:   rule.ID,
		RuleType: rule.Type.String(),
	}, nil
}

// CreateRule stores a new rule.
func (s *ReplyService) CreateRule(ctx context.Context, in *CreateRuleRequest) (*RuleReply, error) {
	t, err := biz.ParseRuleType(in.Type)
	if err != nil {
		return nil, biz.ErrInvalidRule.WithCause(err)
	}
	rule, err := s.store.Insert(ctx, in.Pattern, in.Reply, biz.Scope(in.Scope), t, in.Creator)
	if err != nil {
		return nil, err
	}
	return toRuleReply(rule), nil
}

// DeleteRule removes a rule.
func (s *ReplyService) DeleteRule(ctx context.Context, in *RuleIDRequest) (*DeleteRuleReply, error) {
	removed, err := s.store.Remove(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	return &DeleteRuleReply{Removed: removed}, nil
}

// GetRule returns one rule.
func (s *ReplyService) GetRule(_ context.Context, in *RuleIDRequest) (*RuleReply, error) {
	rule, err := s.store.FindByID(in.ID)
	if err != nil {
		return nil, err
	}
	return toRuleReply(rule), nil
}

// ListRules pages through the rules scoped to exactly one group, newest first.
func (s *ReplyService) ListRules(_ context.Context, in *ListRulesRequest) (*ListRulesReply, error) {
	rules, err := s.store.FindByScope(biz.Scope(in.Scope))
	if err != nil {
		return nil, err
	}
	replies := make([]*RuleReply, len(rules))
	for i, r := range rules {
		replies[i] = toRuleReply(r)
	}
	return pagination.Paginate(replies, pagination.NewOffsetRequest(in.Page, in.PageSize)), nil
}

func toRuleReply(r *biz.Rule) *RuleReply {
	return &RuleReply{
		ID:        r.ID,
		Pattern:   r.Pattern,
		Reply:     r.Reply,
		Scope:     int64(r.Scope),
		Type:      r.Type.String(),
		Creator:   r.Creator,
		CreatedAt: r.CreatedAt,
	}
}
