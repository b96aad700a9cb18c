package db

import "database/sql"

type Channel struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type Post struct {
	ChannelID string         `json:"channel_id"`
	SortKey   string         `json:"sort_key"`
	ID        string         `json:"id"`
	Author    string         `json:"author"`
	Content   string         `json:"content"`
	SentAt    int64          `json:"sent_at"`
	EditedAt  sql.NullInt64  `json:"edited_at"`
	ReplyTo   sql.NullString `json:"reply_to"`
	Deleted   int64          `json:"deleted"`
	UpdatedAt int64          `json:"updated_at"`
}
