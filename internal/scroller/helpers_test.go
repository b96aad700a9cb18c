package scroller

import (
	"io"
	"log/slog"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

var day = time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: day}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs the timers that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type fakeSurface struct {
	offset   float64
	viewport float64
	scrolls  []float64
}

func (s *fakeSurface) ScrollOffset() float64   { return s.offset }
func (s *fakeSurface) ViewportHeight() float64 { return s.viewport }

func (s *fakeSurface) ScrollTo(offset float64, _ Behavior) {
	s.offset = offset
	s.scrolls = append(s.scrolls, offset)
}

// wholeSurface only holds whole offsets, like a terminal.
type wholeSurface struct {
	fakeSurface
}

func (s *wholeSurface) Quantize(offset float64) float64 {
	return math.Round(offset)
}

func (s *wholeSurface) ScrollTo(offset float64, b Behavior) {
	s.fakeSurface.ScrollTo(math.Round(offset), b)
}

type fakeSource struct {
	state SourceState
	older int
	newer int
}

func (s *fakeSource) State() SourceState {
	st := s.state
	st.Slots = slices.Clone(st.Slots)
	return st
}

func (s *fakeSource) LoadOlder() {
	s.older++
	s.state.IsLoadingOlder = true
}

func (s *fakeSource) LoadNewer() {
	s.newer++
	s.state.IsLoadingNewer = true
}

// land finishes a load the way a real source would.
func (s *fakeSource) land(slots ...message.Slot) {
	s.state.Slots = append(s.state.Slots, slots...)
	slices.SortFunc(s.state.Slots, func(a, b message.Slot) int { return a.Key.Compare(b.Key) })
	s.state.IsLoadingOlder = false
	s.state.IsLoadingNewer = false
	s.state.Generation++
}

func post(key int64, author string) message.Slot {
	k := sortkey.New(key)
	return message.Slot{Key: k, Post: &message.Post{
		ID:      k.String(),
		Key:     k,
		Author:  author,
		Content: "post " + k.String(),
		SentAt:  day,
	}}
}

// posts builds slots for the given keys with alternating authors.
func posts(keys ...int64) []message.Slot {
	authors := []string{"~zod", "~bus"}
	slots := make([]message.Slot, len(keys))
	for i, k := range keys {
		slots[i] = post(k, authors[i%2])
	}
	return slots
}

func tombstone(key int64) message.Slot {
	return message.Slot{Key: sortkey.New(key)}
}

func keyPtr(n int64) *sortkey.Key {
	k := sortkey.New(n)
	return &k
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScroller(t *testing.T, src *fakeSource, viewport float64, opts ...Option) (*Scroller, *fakeSurface, *fakeClock) {
	t.Helper()
	surface := &fakeSurface{viewport: viewport}
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock), WithLogger(discardLogger())}, opts...)
	s, err := New(src, surface, opts...)
	require.NoError(t, err)
	return s, surface, clock
}

// userScroll moves the surface the way a wheel gesture would.
func userScroll(s *Scroller, surface *fakeSurface, offset float64) {
	surface.offset = offset
	s.OnScroll(ScrollEvent{Offset: offset, Scrolling: true, User: true})
}
