// source: image_hash.sql

package sqlc

import (
	"context"
)

const imageHashExists = `-- name: ImageHashExists :one
SELECT EXISTS (
    SELECT 1 FROM image_hash
    WHERE category = $1 AND algorithm = $2 AND hash = $3
)
`

type ImageHashExistsParams struct {
	Category  string
	Algorithm string
	Hash      []byte
}

func (q *Queries) ImageHashExists(ctx context.Context, arg ImageHashExistsParams) (bool, error) {
	row := q.db.QueryRow(ctx, imageHashExists, arg.Category, arg.Algorithm, arg.Hash)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const insertImageHash = `-- name: InsertImageHash :exec
INSERT INTO image_hash (category, algorithm, identifier, hash)
VALUES ($1, $2, $3, $4)
`

type InsertImageHashParams struct {
	Category   string
	Algorithm  string
	Identifier string
	Hash       []byte
}

func (q *Queries) InsertImageHash(ctx context.Context, arg InsertImageHashParams) error {
	_, err := q.db.Exec(ctx, insertImageHash,
		arg.Category,
		arg.Algorithm,
		arg.Identifier,
		arg.Hash,
	)
	return err
}

const listImageHashes = `-- name: ListImageHashes :many
SELECT identifier, hash
FROM image_hash
WHERE category = $1 AND algorithm = $2
`

type ListImageHashesParams struct {
	Category  string
	Algorithm string
}

type ListImageHashesRow struct {
	Identifier string
	Hash       []byte
}

func (q *Queries) ListImageHashes(ctx context.Context, arg ListImageHashesParams) ([]ListImageHashesRow, error) {
	rows, err := q.db.Query(ctx, listImageHashes, arg.Category, arg.Algorithm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListImageHashesRow
	for rows.Next() {
		var i ListImageHashesRow
		if err := rows.Scan(&i.Identifier, &i.Hash); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
