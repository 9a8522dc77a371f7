package sqlc

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type ImageHash struct {
	ID         int64
	Category   string
	Algorithm  string
	Identifier string
	Hash       []byte
	CreatedAt  pgtype.Timestamptz
}

type ReplyRule struct {
	ID        int64
	Pattern   string
	Reply     string
	Scope     int64
	Creator   int64
	Type      int16
	CreatedAt pgtype.Timestamptz
}
