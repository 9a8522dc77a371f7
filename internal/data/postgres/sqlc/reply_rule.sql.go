// source: reply_rule.sql

package sqlc

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createReplyRule = `-- name: CreateReplyRule :one
INSERT INTO reply_rule (pattern, reply, scope, creator, type, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, pattern, reply, scope, creator, type, created_at
`

type CreateReplyRuleParams struct {
	Pattern   string
	Reply     string
	Scope     int64
	Creator   int64
	Type      int16
	CreatedAt pgtype.Timestamptz
}

func (q *Queries) CreateReplyRule(ctx context.Context, arg CreateReplyRuleParams) (ReplyRule, error) {
	row := q.db.QueryRow(ctx, createReplyRule,
		arg.Pattern,
		arg.Reply,
		arg.Scope,
		arg.Creator,
		arg.Type,
		arg.CreatedAt,
	)
	var i ReplyRule
	err := row.Scan(
		&i.ID,
		&i.Pattern,
		&i.Reply,
		&i.Scope,
		&i.Creator,
		&i.Type,
		&i.CreatedAt,
	)
	return i, err
}

const deleteReplyRule = `-- name: DeleteReplyRule :execrows
DELETE FROM reply_rule WHERE id = $1
`

func (q *Queries) DeleteReplyRule(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteReplyRule, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listReplyRules = `-- name: ListReplyRules :many
SELECT id, pattern, reply, scope, creator, type, created_at
FROM reply_rule
ORDER BY id
`

func (q *Queries) ListReplyRules(ctx context.Context) ([]ReplyRule, error) {
	rows, err := q.db.Query(ctx, listReplyRules)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReplyRule
	for rows.Next() {
		var i ReplyRule
		if err := rows.Scan(
			&i.ID,
			&i.Pattern,
			&i.Reply,
			&i.Scope,
			&i.Creator,
			&i.Type,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
