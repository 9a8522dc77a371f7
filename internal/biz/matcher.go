package biz

import (
	"context"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"

	"replybot/internal/pkg/filter"
	"replybot/internal/pkg/metrics"
)

// maxConcurrentOCR bounds the OCR calls issued for one message.
const maxConcurrentOCR = 4

// Image is one image attached to a message.
type Image struct {
	URL  string
	Data []byte
}

// Message is an inbound chat message.
type Message struct {
	GroupID Scope
	Text    string
	Images  []Image
}

// OCR extracts text from an image.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// RuleMatcher picks the reply for a message from the cached rules.
type RuleMatcher struct {
	store   *RuleStore
	ocr     OCR
	metrics *metrics.Metrics
	log     *log.Helper
}

// NewRuleMatcher creates a RuleMatcher. ocr may be nil, in which case
// images never yield text.
func NewRuleMatcher(store *RuleStore, ocr OCR, m *metrics.Metrics, logger log.Logger) *RuleMatcher {
	return &RuleMatcher{
		store:   store,
		ocr:     ocr,
		metrics: m,
		log:     log.NewHelper(logger),
	}
}

// Match returns the reply for msg, if any rule matches.
func (m *RuleMatcher) Match(ctx context.Context, msg *Message) (string, bool, error) {
	rule, err := m.MatchRule(ctx, msg)
	if err != nil || rule == nil {
		return "", false, err
	}
	return rule.Reply, true, nil
}

// MatchRule returns the winning rule for msg, or nil when nothing matches.
func (m *RuleMatcher) MatchRule(ctx context.Context, msg *Message) (*Rule, error) {
	start := time.Now()
	snap, err := m.store.current()
	if err != nil {
		return nil, err
	}

	rule := m.matchText(snap, msg)
	if rule == nil && len(msg.Images) > 0 && snap.hasImageRule(msg.GroupID) {
		content := m.extractText(ctx, msg.Images)
		if !filter.IsBlank(content) {
			rule = matchCascade(snap, ImageCascade, msg.GroupID, content)
		}
	}

	if rule != nil {
		m.log.Debugf("group %d matched rule %d (%s)", msg.GroupID, rule.ID, rule.Type)
		m.metrics.RecordMatch(rule.Type.String(), time.Since(start))
		return rule, nil
	}
	m.metrics.RecordMatch("", time.Since(start))
	return nil, nil
}

func (m *RuleMatcher) matchText(snap *ruleSnapshot, msg *Message) *Rule {
	if msg.Text == "" {
		return nil
	}
	return matchCascade(snap, TextCascade, msg.GroupID, msg.Text)
}

// extractText runs OCR over every image and joins the non-empty results
// with a single space, keeping image order. Failures count as no text.
func (m *RuleMatcher) extractText(ctx context.Context, images []Image) string {
	if m.ocr == nil {
		return ""
	}

	texts := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOCR)
	for i, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			text, err := m.ocr.Recognize(gctx, img.Data)
			m.metrics.RecordOCR(time.Since(start), err)
			if err != nil {
				m.log.Warnf("ocr failed for image %d (%s), treating as no text: %v", i, img.URL, ErrOCRFailure.WithCause(err))
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	nonEmpty := texts[:0]
	for _, t := range texts {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// matchCascade tries each strategy in order and returns the first winner.
func matchCascade(snap *ruleSnapshot, cascade []RuleType, group Scope, content string) *Rule {
	kw := &keywordSet{automaton: snap.keywords, text: content}
	for _, t := range cascade {
		if r := matchType(snap, t, group, content, kw); r != nil {
			return r
		}
	}
	return nil
}

func matchType(snap *ruleSnapshot, t RuleType, group Scope, content string, kw *keywordSet) *Rule {
	for _, r := range snap.candidates(t, group) {
		var ok bool
		switch t {
		case RuleTypeInclude, RuleTypePicInclude:
			ok = strings.Contains(content, r.Pattern)
		case RuleTypeEqual:
			ok = r.Pattern == content
		case RuleTypeRegex:
			re := snap.regexps[r.ID]
			ok = re != nil && re.MatchString(content)
		case RuleTypeAny, RuleTypePicAny:
			ok = kw.any(r.Pattern)
		case RuleTypeAll, RuleTypePicAll:
			ok = strings.TrimSpace(r.Pattern) != "" && kw.all(r.Pattern)
		}
		if ok {
			return r
		}
	}
	return nil
}

// keywordSet resolves keyword containment for one text, scanning it once.
type keywordSet struct {
	automaton *filter.AhoCorasick
	text      string
	found     map[string]struct{}
}

func (k *keywordSet) contains(keyword string) bool {
	if keyword == "" {
		return true
	}
	if k.found == nil {
		k.found = k.automaton.Contained(k.text)
	}
	_, ok := k.found[keyword]
	return ok
}

func (k *keywordSet) any(pattern string) bool {
	for _, keyword := range filter.SplitKeywords(pattern) {
		if k.contains(keyword) {
			return true
		}
	}
	return false
}

func (k *keywordSet) all(pattern string) bool {
	for _, keyword := range filter.SplitKeywords(pattern) {
		if !k.contains(keyword) {
			return false
		}
	}
	return true
}
