package db

import (
	"context"
	"database/sql"
)

const postColumns = `channel_id, sort_key, id, author, content, sent_at, edited_at, reply_to, deleted, updated_at`

func scanPost(row interface{ Scan(...any) error }) (Post, error) {
	var i Post
	err := row.Scan(
		&i.ChannelID,
		&i.SortKey,
		&i.ID,
		&i.Author,
		&i.Content,
		&i.SentAt,
		&i.EditedAt,
		&i.ReplyTo,
		&i.Deleted,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) listPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Post{}
	for rows.Next() {
		i, err := scanPost(rows)
		if err != nil {
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

const upsertPost = `-- name: UpsertPost :one
INSERT INTO posts (channel_id, sort_key, id, author, content, sent_at, edited_at, reply_to, deleted, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
ON CONFLICT (channel_id, sort_key) DO UPDATE SET
    author = excluded.author,
    content = excluded.content,
    edited_at = excluded.edited_at,
    reply_to = excluded.reply_to,
    deleted = 0,
    updated_at = excluded.updated_at
RETURNING ` + postColumns + `
`

type UpsertPostParams struct {
	ChannelID string         `json:"channel_id"`
	SortKey   string         `json:"sort_key"`
	ID        string         `json:"id"`
	Author    string         `json:"author"`
	Content   string         `json:"content"`
	SentAt    int64          `json:"sent_at"`
	EditedAt  sql.NullInt64  `json:"edited_at"`
	ReplyTo   sql.NullString `json:"reply_to"`
	UpdatedAt int64          `json:"updated_at"`
}

func (q *Queries) UpsertPost(ctx context.Context, arg UpsertPostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, upsertPost,
		arg.ChannelID,
		arg.SortKey,
		arg.ID,
		arg.Author,
		arg.Content,
		arg.SentAt,
		arg.EditedAt,
		arg.ReplyTo,
		arg.UpdatedAt,
	)
	return scanPost(row)
}

const getPost = `-- name: GetPost :one
SELECT ` + postColumns + `
FROM posts
WHERE channel_id = ? AND sort_key = ? LIMIT 1
`

type GetPostParams struct {
	ChannelID string `json:"channel_id"`
	SortKey   string `json:"sort_key"`
}

func (q *Queries) GetPost(ctx context.Context, arg GetPostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, getPost, arg.ChannelID, arg.SortKey)
	i, err := scanPost(row)
	return i, notFound(err)
}

const deletePost = `-- name: DeletePost :exec
UPDATE posts
SET deleted = 1, content = '', updated_at = ?
WHERE channel_id = ? AND sort_key = ?
`

type DeletePostParams struct {
	ChannelID string `json:"channel_id"`
	SortKey   string `json:"sort_key"`
	UpdatedAt int64  `json:"updated_at"`
}

func (q *Queries) DeletePost(ctx context.Context, arg DeletePostParams) error {
	res, err := q.db.ExecContext(ctx, deletePost, arg.UpdatedAt, arg.ChannelID, arg.SortKey)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const countPosts = `-- name: CountPosts :one
SELECT COUNT(*) FROM posts WHERE channel_id = ?
`

func (q *Queries) CountPosts(ctx context.Context, channelID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPosts, channelID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listLatestPosts = `-- name: ListLatestPosts :many
SELECT ` + postColumns + `
FROM posts
WHERE channel_id = ?
ORDER BY sort_key DESC
LIMIT ?
`

type ListLatestPostsParams struct {
	ChannelID string `json:"channel_id"`
	Limit     int64  `json:"limit"`
}

// ListLatestPosts returns newest first.
func (q *Queries) ListLatestPosts(ctx context.Context, arg ListLatestPostsParams) ([]Post, error) {
	return q.listPosts(ctx, listLatestPosts, arg.ChannelID, arg.Limit)
}

const listPostsBefore = `-- name: ListPostsBefore :many
SELECT ` + postColumns + `
FROM posts
WHERE channel_id = ? AND sort_key < ?
ORDER BY sort_key DESC
LIMIT ?
`

type ListPostsBeforeParams struct {
	ChannelID string `json:"channel_id"`
	SortKey   string `json:"sort_key"`
	Limit     int64  `json:"limit"`
}

// ListPostsBefore returns newest first.
func (q *Queries) ListPostsBefore(ctx context.Context, arg ListPostsBeforeParams) ([]Post, error) {
	return q.listPosts(ctx, listPostsBefore, arg.ChannelID, arg.SortKey, arg.Limit)
}

const listPostsAfter = `-- name: ListPostsAfter :many
SELECT ` + postColumns + `
FROM posts
WHERE channel_id = ? AND sort_key > ?
ORDER BY sort_key ASC
LIMIT ?
`

type ListPostsAfterParams struct {
	ChannelID string `json:"channel_id"`
	SortKey   string `json:"sort_key"`
	Limit     int64  `json:"limit"`
}

func (q *Queries) ListPostsAfter(ctx context.Context, arg ListPostsAfterParams) ([]Post, error) {
	return q.listPosts(ctx, listPostsAfter, arg.ChannelID, arg.SortKey, arg.Limit)
}

const listPostsFrom = `-- name: ListPostsFrom :many
SELECT ` + postColumns + `
FROM posts
WHERE channel_id = ? AND sort_key >= ?
ORDER BY sort_key ASC
LIMIT ?
`

type ListPostsFromParams struct {
	ChannelID string `json:"channel_id"`
	SortKey   string `json:"sort_key"`
	Limit     int64  `json:"limit"`
}

func (q *Queries) ListPostsFrom(ctx context.Context, arg ListPostsFromParams) ([]Post, error) {
	return q.listPosts(ctx, listPostsFrom, arg.ChannelID, arg.SortKey, arg.Limit)
}

const listPostsUpdatedSince = `-- name: ListPostsUpdatedSince :many
SELECT ` + postColumns + `
FROM posts
WHERE channel_id = ? AND updated_at > ?
ORDER BY sort_key ASC
`

type ListPostsUpdatedSinceParams struct {
	ChannelID string `json:"channel_id"`
	UpdatedAt int64  `json:"updated_at"`
}

func (q *Queries) ListPostsUpdatedSince(ctx context.Context, arg ListPostsUpdatedSinceParams) ([]Post, error) {
	return q.listPosts(ctx, listPostsUpdatedSince, arg.ChannelID, arg.UpdatedAt)
}

const searchPosts = `-- name: SearchPosts :many
SELECT ` + postColumns + `
FROM posts
WHERE channel_id = ? AND deleted = 0 AND content LIKE ?
ORDER BY sort_key DESC
LIMIT ?
`

type SearchPostsParams struct {
	ChannelID string `json:"channel_id"`
	Pattern   string `json:"pattern"`
	Limit     int64  `json:"limit"`
}

func (q *Queries) SearchPosts(ctx context.Context, arg SearchPostsParams) ([]Post, error) {
	return q.listPosts(ctx, searchPosts, arg.ChannelID, "%"+arg.Pattern+"%", arg.Limit)
}
