// Package history keeps the loaded part of a channel and pages through the
// rest of it on demand.
package history

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/btree"
	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/pubsub"
	"github.com/tloncorp/chatscroller/internal/scroller"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

const DefaultPageSize = 50

var ErrClosed = errors.New("history source is closed")

// Update is published every time the source state changes.
type Update struct {
	Generation uint64
	Err        error
}

func lessSlot(a, b message.Slot) bool {
	return a.Key.Less(b.Key)
}

// Source is a contiguous, bidirectionally growing range of a channel. Page
// loads run in the background; their results show up in State and are
// announced through the embedded broker.
type Source struct {
	*pubsub.Broker[Update]

	fetcher  Fetcher
	pageSize int
	logger   *slog.Logger

	mu              sync.Mutex
	ctx             context.Context
	cancel          context.CancelFunc
	slots           *btree.BTreeG[message.Slot]
	hasLoadedOldest bool
	hasLoadedNewest bool
	loadingOlder    bool
	loadingNewer    bool
	generation      uint64
	cursor          int64
	// epoch changes on Jump and Close so that stale page results are dropped.
	epoch  uint64
	closed bool

	wg sync.WaitGroup
}

var _ scroller.Source = (*Source)(nil)

func NewSource(fetcher Fetcher, pageSize int) *Source {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		Broker:   pubsub.NewBroker[Update](),
		fetcher:  fetcher,
		pageSize: pageSize,
		logger:   slog.Default().With("component", "history"),
		ctx:      ctx,
		cancel:   cancel,
		slots:    btree.NewG(16, lessSlot),
	}
}

// Start loads the newest page.
func (s *Source) Start(ctx context.Context) error {
	page, err := s.fetcher.Latest(ctx, s.pageSize)
	if err != nil {
		return err
	}
	return s.reset(page)
}

// Jump replaces the loaded range with the neighborhood of key.
func (s *Source) Jump(ctx context.Context, key sortkey.Key) error {
	page, err := s.fetcher.Around(ctx, key, s.pageSize)
	if err != nil {
		return err
	}
	return s.reset(page)
}

func (s *Source) reset(page Page) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.epoch++
	s.slots.Clear(false)
	for _, slot := range page.Slots {
		s.slots.ReplaceOrInsert(slot)
	}
	s.hasLoadedOldest = page.AtOldest
	s.hasLoadedNewest = page.AtNewest
	s.loadingOlder = false
	s.loadingNewer = false
	s.cursor = max(s.cursor, page.Cursor)
	gen := s.bump()
	s.mu.Unlock()

	s.logger.Debug("Loaded history", "posts", len(page.Slots), "oldest", page.AtOldest, "newest", page.AtNewest)
	s.Publish(pubsub.UpdatedEvent, Update{Generation: gen})
	return nil
}

// bump must be called with mu held.
func (s *Source) bump() uint64 {
	s.generation++
	return s.generation
}

func (s *Source) State() scroller.SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := make([]message.Slot, 0, s.slots.Len())
	s.slots.Ascend(func(slot message.Slot) bool {
		slots = append(slots, slot)
		return true
	})
	return scroller.SourceState{
		Slots:           slots,
		HasLoadedOldest: s.hasLoadedOldest,
		HasLoadedNewest: s.hasLoadedNewest,
		IsLoadingOlder:  s.loadingOlder,
		IsLoadingNewer:  s.loadingNewer,
		Generation:      s.generation,
	}
}

// LoadOlder requests the page before the oldest loaded post. It does nothing
// while that page is already in flight.
func (s *Source) LoadOlder() {
	s.load(true)
}

// LoadNewer requests the page after the newest loaded post.
func (s *Source) LoadNewer() {
	s.load(false)
}

func (s *Source) load(older bool) {
	s.mu.Lock()
	if s.closed || s.slots.Len() == 0 {
		s.mu.Unlock()
		return
	}
	var edge message.Slot
	if older {
		if s.loadingOlder || s.hasLoadedOldest {
			s.mu.Unlock()
			return
		}
		s.loadingOlder = true
		edge, _ = s.slots.Min()
	} else {
		if s.loadingNewer || s.hasLoadedNewest {
			s.mu.Unlock()
			return
		}
		s.loadingNewer = true
		edge, _ = s.slots.Max()
	}
	epoch := s.epoch
	ctx := s.ctx
	gen := s.bump()
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("Loading page", "older", older, "from", edge.Key)
	s.Publish(pubsub.UpdatedEvent, Update{Generation: gen})

	go func() {
		defer s.wg.Done()
		var page Page
		var err error
		if older {
			page, err = s.fetcher.Older(ctx, edge.Key, s.pageSize)
		} else {
			page, err = s.fetcher.Newer(ctx, edge.Key, s.pageSize)
		}
		s.finish(epoch, older, page, err)
	}()
}

func (s *Source) finish(epoch uint64, older bool, page Page, err error) {
	s.mu.Lock()
	if s.closed || epoch != s.epoch {
		s.mu.Unlock()
		s.logger.Debug("Dropping stale page", "older", older)
		return
	}
	if older {
		s.loadingOlder = false
	} else {
		s.loadingNewer = false
	}
	if err != nil {
		gen := s.bump()
		s.mu.Unlock()
		s.logger.Error("Failed to load page", "older", older, "error", err)
		s.Publish(pubsub.UpdatedEvent, Update{Generation: gen, Err: err})
		return
	}
	for _, slot := range page.Slots {
		s.slots.ReplaceOrInsert(slot)
	}
	if older && page.AtOldest {
		s.hasLoadedOldest = true
	}
	if !older && page.AtNewest {
		s.hasLoadedNewest = true
	}
	s.cursor = max(s.cursor, page.Cursor)
	gen := s.bump()
	s.mu.Unlock()

	s.logger.Debug("Loaded page", "older", older, "posts", len(page.Slots))
	s.Publish(pubsub.UpdatedEvent, Update{Generation: gen})
}

// Wait blocks until in-flight page loads have finished.
func (s *Source) Wait() {
	s.wg.Wait()
}

// Receive adds a live post. Posts are only accepted inside the loaded range
// or past a loaded end; otherwise they arrive with the next page load.
func (s *Source) Receive(post message.Post) bool {
	s.mu.Lock()
	if s.closed || !s.accepts(post.Key) {
		s.mu.Unlock()
		return false
	}
	s.slots.ReplaceOrInsert(message.Slot{Key: post.Key, Post: &post})
	gen := s.bump()
	s.mu.Unlock()
	s.Publish(pubsub.CreatedEvent, Update{Generation: gen})
	return true
}

// Edit replaces a loaded post in place.
func (s *Source) Edit(post message.Post) bool {
	return s.replace(message.Slot{Key: post.Key, Post: &post}, pubsub.UpdatedEvent)
}

// Delete turns a loaded post into a tombstone that keeps its position.
func (s *Source) Delete(key sortkey.Key) bool {
	return s.replace(message.Slot{Key: key}, pubsub.DeletedEvent)
}

func (s *Source) replace(slot message.Slot, event pubsub.EventType) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.slots.Get(slot); !ok {
		s.mu.Unlock()
		return false
	}
	s.slots.ReplaceOrInsert(slot)
	gen := s.bump()
	s.mu.Unlock()
	s.Publish(event, Update{Generation: gen})
	return true
}

// Follow applies the post events of a writer in this process to the loaded
// range of channelID until events is closed.
func (s *Source) Follow(channelID string, events <-chan pubsub.Event[message.Post]) {
	for ev := range events {
		p := ev.Payload
		if p.ChannelID != channelID {
			continue
		}
		var applied bool
		switch ev.Type {
		case pubsub.CreatedEvent:
			applied = s.Receive(p)
		case pubsub.UpdatedEvent:
			applied = s.Edit(p)
		case pubsub.DeletedEvent:
			applied = s.Delete(p.Key)
		}
		s.logger.Debug("Followed post event", "event", ev.Type, "key", p.Key, "applied", applied)
	}
}

// Refresh applies changes made to the store by other writers: edits and
// deletes inside the loaded range, and new posts past a loaded end.
func (s *Source) Refresh(ctx context.Context) error {
	s.mu.Lock()
	since := s.cursor
	s.mu.Unlock()

	changes, cursor, err := s.fetcher.Changes(ctx, since)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.cursor = max(s.cursor, cursor)
	applied := 0
	for _, slot := range changes {
		if s.accepts(slot.Key) {
			s.slots.ReplaceOrInsert(slot)
			applied++
		}
	}
	if applied == 0 {
		s.mu.Unlock()
		return nil
	}
	gen := s.bump()
	s.mu.Unlock()

	s.logger.Debug("Refreshed history", "changes", len(changes), "applied", applied)
	s.Publish(pubsub.UpdatedEvent, Update{Generation: gen})
	return nil
}

// accepts reports whether key belongs to the loaded range. It must be called
// with mu held.
func (s *Source) accepts(key sortkey.Key) bool {
	oldest, ok := s.slots.Min()
	if !ok {
		return s.hasLoadedOldest && s.hasLoadedNewest
	}
	newest, _ := s.slots.Max()
	switch {
	case key.Less(oldest.Key):
		return s.hasLoadedOldest
	case newest.Key.Less(key):
		return s.hasLoadedNewest
	}
	return true
}

// Close stops background loads. Results that arrive later are discarded.
func (s *Source) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.Shutdown()
}
