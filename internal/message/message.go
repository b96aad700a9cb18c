package message

import (
	"strconv"
	"time"

	"github.com/tloncorp/chatscroller/internal/sortkey"
	"github.com/zeebo/xxh3"
)

type Post struct {
	ID        string       `json:"id"`
	ChannelID string       `json:"channel_id"`
	Key       sortkey.Key  `json:"key"`
	Author    string       `json:"author"`
	Content   string       `json:"content"`
	SentAt    time.Time    `json:"sent_at"`
	EditedAt  *time.Time   `json:"edited_at,omitempty"`
	ReplyTo   *sortkey.Key `json:"reply_to,omitempty"`
}

// Hash identifies the rendered form of a post. It changes when the content,
// author or edit time changes.
func (p Post) Hash() uint64 {
	h := xxh3.New()
	_, _ = h.WriteString(p.Author)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(p.Content)
	if p.EditedAt != nil {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(strconv.FormatInt(p.EditedAt.UnixNano(), 10))
	}
	return h.Sum64()
}

func (p Post) Edited() bool {
	return p.EditedAt != nil
}

// Slot is one keyed position of a channel. A nil Post marks a deleted post;
// the slot keeps its place in the ordering.
type Slot struct {
	Key  sortkey.Key
	Post *Post
}

func (s Slot) Tombstone() bool {
	return s.Post == nil
}
