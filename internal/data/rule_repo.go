package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5/pgtype"

	"replybot/internal/biz"
	"replybot/internal/data/postgres/sqlc"
)

type ruleRepo struct {
	data *Data
	log  *log.Helper
}

// NewRuleRepo creates a postgres backed biz.RuleRepo.
func NewRuleRepo(data *Data, logger log.Logger) biz.RuleRepo {
	return &ruleRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Create implements biz.RuleRepo.
func (r *ruleRepo) Create(ctx context.Context, rule *biz.Rule) (*biz.Rule, error) {
	result, err := r.data.Queries.CreateReplyRule(ctx, sqlc.CreateReplyRuleParams{
		Pattern:   rule.Pattern,
		Reply:     rule.Reply,
		Scope:     int64(rule.Scope),
		Creator:   rule.Creator,
		Type:      rule.Type.Code(),
		CreatedAt: pgtype.Timestamptz{Time: rule.CreatedAt, Valid: true},
	})
	if err != nil {
		return nil, err
	}
	return toBizRule(result)
}

// Delete implements biz.RuleRepo.
func (r *ruleRepo) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.data.Queries.DeleteReplyRule(ctx, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAll implements biz.RuleRepo. Rows with an unknown type code are skipped.
func (r *ruleRepo) ListAll(ctx context.Context) ([]*biz.Rule, error) {
	results, err := r.data.Queries.ListReplyRules(ctx)
	if err != nil {
		return nil, err
	}
	rules := make([]*biz.Rule, 0, len(results))
	for _, result := range results {
		rule, err := toBizRule(result)
		if err != nil {
			r.log.Warnf("skipping rule %d: %v", result.ID, err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func toBizRule(r sqlc.ReplyRule) (*biz.Rule, error) {
	t, err := biz.RuleTypeFromCode(r.Type)
	if err != nil {
		return nil, err
	}
	return &biz.Rule{
		ID:        r.ID,
		Pattern:   r.Pattern,
		Reply:     r.Reply,
		Scope:     biz.Scope(r.Scope),
		Creator:   r.Creator,
		Type:      t,
		CreatedAt: r.CreatedAt.Time,
	}, nil
}
