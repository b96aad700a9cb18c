package history

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/tloncorp/chatscroller/internal/db"
	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

// Page is one response from a Fetcher. Slots are sorted oldest first.
type Page struct {
	Slots []message.Slot
	// AtOldest and AtNewest report that the page reached that end of the
	// channel.
	AtOldest bool
	AtNewest bool
	// Cursor is the latest change stamp among the returned slots.
	Cursor int64
}

// Fetcher pages through a channel's history.
type Fetcher interface {
	Latest(ctx context.Context, limit int) (Page, error)
	Older(ctx context.Context, before sortkey.Key, limit int) (Page, error)
	Newer(ctx context.Context, after sortkey.Key, limit int) (Page, error)
	Around(ctx context.Context, key sortkey.Key, limit int) (Page, error)
	// Changes returns slots changed after the since stamp, and the new stamp.
	Changes(ctx context.Context, since int64) ([]message.Slot, int64, error)
}

// DBFetcher reads a channel from the local store.
type DBFetcher struct {
	q         db.Querier
	channelID string
}

func NewDBFetcher(q db.Querier, channelID string) *DBFetcher {
	return &DBFetcher{q: q, channelID: channelID}
}

func (f *DBFetcher) Latest(ctx context.Context, limit int) (Page, error) {
	rows, err := f.q.ListLatestPosts(ctx, db.ListLatestPostsParams{
		ChannelID: f.channelID,
		Limit:     int64(limit) + 1,
	})
	if err != nil {
		return Page{}, fmt.Errorf("failed to list latest posts: %w", err)
	}
	more := len(rows) > limit
	rows = rows[:min(len(rows), limit)]
	slices.Reverse(rows)
	page, err := f.page(rows)
	page.AtOldest = !more
	page.AtNewest = true
	return page, err
}

func (f *DBFetcher) Older(ctx context.Context, before sortkey.Key, limit int) (Page, error) {
	rows, err := f.q.ListPostsBefore(ctx, db.ListPostsBeforeParams{
		ChannelID: f.channelID,
		SortKey:   before.Padded(),
		Limit:     int64(limit) + 1,
	})
	if err != nil {
		return Page{}, fmt.Errorf("failed to list posts before %s: %w", before, err)
	}
	more := len(rows) > limit
	rows = rows[:min(len(rows), limit)]
	slices.Reverse(rows)
	page, err := f.page(rows)
	page.AtOldest = !more
	return page, err
}

func (f *DBFetcher) Newer(ctx context.Context, after sortkey.Key, limit int) (Page, error) {
	rows, err := f.q.ListPostsAfter(ctx, db.ListPostsAfterParams{
		ChannelID: f.channelID,
		SortKey:   after.Padded(),
		Limit:     int64(limit) + 1,
	})
	if err != nil {
		return Page{}, fmt.Errorf("failed to list posts after %s: %w", after, err)
	}
	more := len(rows) > limit
	rows = rows[:min(len(rows), limit)]
	page, err := f.page(rows)
	page.AtNewest = !more
	return page, err
}

// Around returns up to limit posts split evenly on both sides of key, with
// key itself in the newer half.
func (f *DBFetcher) Around(ctx context.Context, key sortkey.Key, limit int) (Page, error) {
	half := max(limit/2, 1)
	older, err := f.q.ListPostsBefore(ctx, db.ListPostsBeforeParams{
		ChannelID: f.channelID,
		SortKey:   key.Padded(),
		Limit:     int64(half) + 1,
	})
	if err != nil {
		return Page{}, fmt.Errorf("failed to list posts before %s: %w", key, err)
	}
	newer, err := f.q.ListPostsFrom(ctx, db.ListPostsFromParams{
		ChannelID: f.channelID,
		SortKey:   key.Padded(),
		Limit:     int64(half) + 1,
	})
	if err != nil {
		return Page{}, fmt.Errorf("failed to list posts from %s: %w", key, err)
	}
	moreOlder := len(older) > half
	moreNewer := len(newer) > half
	older = older[:min(len(older), half)]
	newer = newer[:min(len(newer), half)]
	slices.Reverse(older)
	page, err := f.page(append(older, newer...))
	page.AtOldest = !moreOlder
	page.AtNewest = !moreNewer
	return page, err
}

func (f *DBFetcher) Changes(ctx context.Context, since int64) ([]message.Slot, int64, error) {
	rows, err := f.q.ListPostsUpdatedSince(ctx, db.ListPostsUpdatedSinceParams{
		ChannelID: f.channelID,
		UpdatedAt: since,
	})
	if err != nil {
		return nil, since, fmt.Errorf("failed to list changed posts: %w", err)
	}
	page, err := f.page(rows)
	if err != nil {
		return nil, since, err
	}
	return page.Slots, max(since, page.Cursor), nil
}

func (f *DBFetcher) page(rows []db.Post) (Page, error) {
	page := Page{Slots: make([]message.Slot, 0, len(rows))}
	for _, row := range rows {
		slot, err := FromDBPost(row)
		if err != nil {
			return Page{}, err
		}
		page.Slots = append(page.Slots, slot)
		page.Cursor = max(page.Cursor, row.UpdatedAt)
	}
	return page, nil
}

// FromDBPost converts a stored row. Deleted rows become tombstones.
func FromDBPost(row db.Post) (message.Slot, error) {
	key, err := sortkey.ParsePadded(row.SortKey)
	if err != nil {
		return message.Slot{}, fmt.Errorf("post %s: %w", row.ID, err)
	}
	if row.Deleted != 0 {
		return message.Slot{Key: key}, nil
	}
	post := &message.Post{
		ID:        row.ID,
		ChannelID: row.ChannelID,
		Key:       key,
		Author:    row.Author,
		Content:   row.Content,
		SentAt:    time.UnixMilli(row.SentAt),
	}
	if row.EditedAt.Valid {
		edited := time.UnixMilli(row.EditedAt.Int64)
		post.EditedAt = &edited
	}
	if row.ReplyTo.Valid {
		if reply, err := sortkey.ParsePadded(row.ReplyTo.String); err == nil {
			post.ReplyTo = &reply
		}
	}
	return message.Slot{Key: key, Post: post}, nil
}

// ToDBParams is the inverse of FromDBPost for live posts.
func ToDBParams(p message.Post, updatedAt time.Time) db.UpsertPostParams {
	params := db.UpsertPostParams{
		ChannelID: p.ChannelID,
		SortKey:   p.Key.Padded(),
		ID:        p.ID,
		Author:    p.Author,
		Content:   p.Content,
		SentAt:    p.SentAt.UnixMilli(),
		UpdatedAt: updatedAt.UnixNano(),
	}
	if p.EditedAt != nil {
		params.EditedAt = sql.NullInt64{Int64: p.EditedAt.UnixMilli(), Valid: true}
	}
	if p.ReplyTo != nil {
		params.ReplyTo = sql.NullString{String: p.ReplyTo.Padded(), Valid: true}
	}
	return params
}
