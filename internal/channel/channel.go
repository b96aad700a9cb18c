package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tloncorp/chatscroller/internal/db"
	"github.com/tloncorp/chatscroller/internal/history"
	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/pubsub"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

var ErrEmptyPost = errors.New("post has no author or content")

type Channel struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type Service interface {
	pubsub.Subscriber[message.Post]
	Create(ctx context.Context, id, title string) (Channel, error)
	Get(ctx context.Context, id string) (Channel, error)
	List(ctx context.Context) ([]Channel, error)
	Count(ctx context.Context, id string) (int64, error)
	// Post stores a new post sent now, keyed by its send time.
	Post(ctx context.Context, channelID, author, content string) (message.Post, error)
	// Save stores p as given. A post with an existing key replaces it.
	Save(ctx context.Context, p message.Post) (message.Post, error)
	Delete(ctx context.Context, channelID string, key sortkey.Key) error
	Search(ctx context.Context, channelID, pattern string, limit int) ([]message.Post, error)
	ListAll(ctx context.Context, channelID string) ([]message.Post, error)
}

type service struct {
	*pubsub.Broker[message.Post]
	q   db.Querier
	now func() time.Time
}

func (s *service) Create(ctx context.Context, id, title string) (Channel, error) {
	dbChannel, err := s.q.CreateChannel(ctx, db.CreateChannelParams{
		ID:        id,
		Title:     title,
		CreatedAt: s.now().UnixNano(),
	})
	if err != nil {
		return Channel{}, err
	}
	return fromDBItem(dbChannel), nil
}

func (s *service) Get(ctx context.Context, id string) (Channel, error) {
	dbChannel, err := s.q.GetChannel(ctx, id)
	if err != nil {
		return Channel{}, err
	}
	return fromDBItem(dbChannel), nil
}

func (s *service) List(ctx context.Context) ([]Channel, error) {
	dbChannels, err := s.q.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	channels := make([]Channel, len(dbChannels))
	for i, dbChannel := range dbChannels {
		channels[i] = fromDBItem(dbChannel)
	}
	return channels, nil
}

func (s *service) Count(ctx context.Context, id string) (int64, error) {
	return s.q.CountPosts(ctx, id)
}

func (s *service) Post(ctx context.Context, channelID, author, content string) (message.Post, error) {
	sent := s.now()
	return s.Save(ctx, message.Post{
		ChannelID: channelID,
		Key:       sortkey.FromTime(sent),
		Author:    author,
		Content:   content,
		SentAt:    sent,
	})
}

func (s *service) Save(ctx context.Context, p message.Post) (message.Post, error) {
	if p.Author == "" || p.Content == "" {
		return message.Post{}, ErrEmptyPost
	}
	if p.SentAt.IsZero() {
		p.SentAt = s.now()
	}
	if p.Key.IsZero() {
		p.Key = sortkey.FromTime(p.SentAt)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	event := pubsub.CreatedEvent
	if _, err := s.q.GetPost(ctx, db.GetPostParams{ChannelID: p.ChannelID, SortKey: p.Key.Padded()}); err == nil {
		event = pubsub.UpdatedEvent
	} else if !errors.Is(err, db.ErrNotFound) {
		return message.Post{}, err
	}

	if _, err := s.Create(ctx, p.ChannelID, ""); err != nil {
		return message.Post{}, fmt.Errorf("failed to create channel %s: %w", p.ChannelID, err)
	}
	row, err := s.q.UpsertPost(ctx, history.ToDBParams(p, s.now()))
	if err != nil {
		return message.Post{}, err
	}
	slot, err := history.FromDBPost(row)
	if err != nil {
		return message.Post{}, err
	}
	s.Publish(event, *slot.Post)
	return *slot.Post, nil
}

func (s *service) Delete(ctx context.Context, channelID string, key sortkey.Key) error {
	row, err := s.q.GetPost(ctx, db.GetPostParams{ChannelID: channelID, SortKey: key.Padded()})
	if err != nil {
		return err
	}
	slot, err := history.FromDBPost(row)
	if err != nil {
		return err
	}
	if slot.Tombstone() {
		return nil
	}
	err = s.q.DeletePost(ctx, db.DeletePostParams{
		ChannelID: channelID,
		SortKey:   key.Padded(),
		UpdatedAt: s.now().UnixNano(),
	})
	if err != nil {
		return err
	}
	s.Publish(pubsub.DeletedEvent, *slot.Post)
	return nil
}

func (s *service) Search(ctx context.Context, channelID, pattern string, limit int) ([]message.Post, error) {
	rows, err := s.q.SearchPosts(ctx, db.SearchPostsParams{
		ChannelID: channelID,
		Pattern:   pattern,
		Limit:     int64(limit),
	})
	if err != nil {
		return nil, err
	}
	return fromDBPosts(rows)
}

// ListAll returns every live post of a channel, oldest first.
func (s *service) ListAll(ctx context.Context, channelID string) ([]message.Post, error) {
	rows, err := s.q.ListPostsFrom(ctx, db.ListPostsFromParams{
		ChannelID: channelID,
		SortKey:   sortkey.New(0).Padded(),
		Limit:     -1,
	})
	if err != nil {
		return nil, err
	}
	return fromDBPosts(rows)
}

func fromDBPosts(rows []db.Post) ([]message.Post, error) {
	posts := make([]message.Post, 0, len(rows))
	for _, row := range rows {
		slot, err := history.FromDBPost(row)
		if err != nil {
			return nil, err
		}
		if slot.Tombstone() {
			continue
		}
		posts = append(posts, *slot.Post)
	}
	return posts, nil
}

func fromDBItem(item db.Channel) Channel {
	return Channel{
		ID:        item.ID,
		Title:     item.Title,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func NewService(q db.Querier) Service {
	return newService(q, time.Now)
}

func newService(q db.Querier, now func() time.Time) *service {
	broker := pubsub.NewBroker[message.Post]()
	return &service{
		broker,
		q,
		now,
	}
}
