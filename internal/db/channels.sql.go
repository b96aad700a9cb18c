package db

import "context"

const createChannel = `-- name: CreateChannel :one
INSERT INTO channels (id, title, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET title = CASE WHEN excluded.title = '' THEN channels.title ELSE excluded.title END
RETURNING id, title, created_at, updated_at
`

type CreateChannelParams struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
}

func (q *Queries) CreateChannel(ctx context.Context, arg CreateChannelParams) (Channel, error) {
	row := q.db.QueryRowContext(ctx, createChannel, arg.ID, arg.Title, arg.CreatedAt, arg.CreatedAt)
	var i Channel
	err := row.Scan(&i.ID, &i.Title, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getChannel = `-- name: GetChannel :one
SELECT id, title, created_at, updated_at
FROM channels
WHERE id = ? LIMIT 1
`

func (q *Queries) GetChannel(ctx context.Context, id string) (Channel, error) {
	row := q.db.QueryRowContext(ctx, getChannel, id)
	var i Channel
	err := row.Scan(&i.ID, &i.Title, &i.CreatedAt, &i.UpdatedAt)
	return i, notFound(err)
}

const listChannels = `-- name: ListChannels :many
SELECT id, title, created_at, updated_at
FROM channels
ORDER BY updated_at DESC
`

func (q *Queries) ListChannels(ctx context.Context) ([]Channel, error) {
	rows, err := q.db.QueryContext(ctx, listChannels)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Channel{}
	for rows.Next() {
		var i Channel
		if err := rows.Scan(&i.ID, &i.Title, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
