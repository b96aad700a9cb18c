package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tloncorp/chatscroller/internal/history"
	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/scroller"
	"github.com/tloncorp/chatscroller/internal/search"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

var day = time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) AfterFunc(time.Duration, func()) scroller.Timer {
	return noopTimer{}
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memFetcher serves pages from a sorted slice.
type memFetcher struct {
	slots []message.Slot
	older atomic.Int32
}

func newMemFetcher(slots ...message.Slot) *memFetcher {
	return &memFetcher{slots: slots}
}

func (f *memFetcher) page(from, to int) history.Page {
	return history.Page{
		Slots:    slices.Clone(f.slots[from:to]),
		AtOldest: from == 0,
		AtNewest: to == len(f.slots),
	}
}

func (f *memFetcher) search(key sortkey.Key) int {
	i, _ := slices.BinarySearchFunc(f.slots, key, func(s message.Slot, k sortkey.Key) int {
		return s.Key.Compare(k)
	})
	return i
}

func (f *memFetcher) Latest(_ context.Context, limit int) (history.Page, error) {
	return f.page(max(len(f.slots)-limit, 0), len(f.slots)), nil
}

func (f *memFetcher) Older(_ context.Context, before sortkey.Key, limit int) (history.Page, error) {
	f.older.Add(1)
	i := f.search(before)
	return f.page(max(i-limit, 0), i), nil
}

func (f *memFetcher) Newer(_ context.Context, after sortkey.Key, limit int) (history.Page, error) {
	i := f.search(after.Add(1))
	return f.page(i, min(i+limit, len(f.slots))), nil
}

func (f *memFetcher) Around(_ context.Context, key sortkey.Key, limit int) (history.Page, error) {
	i := f.search(key)
	half := max(limit/2, 1)
	return f.page(max(i-half, 0), min(i+half, len(f.slots))), nil
}

func (f *memFetcher) Changes(context.Context, int64) ([]message.Slot, int64, error) {
	return nil, 0, nil
}

func post(key int64, author, content string, sentAt time.Time) message.Slot {
	k := sortkey.New(key)
	return message.Slot{Key: k, Post: &message.Post{
		ID:      k.String(),
		Key:     k,
		Author:  author,
		Content: content,
		SentAt:  sentAt,
	}}
}

// numbered builds posts 1..n by one author.
func numbered(n int) []message.Slot {
	slots := make([]message.Slot, n)
	for i := range n {
		k := int64(i + 1)
		slots[i] = post(k, "alice", fmt.Sprintf("message number %d", k), day.Add(time.Duration(i)*time.Minute))
	}
	return slots
}

type testModel struct {
	*Model
	src     *history.Source
	fetcher *memFetcher
	clock   *testClock
}

func newTestModel(t *testing.T, pageSize int, slots ...message.Slot) testModel {
	t.Helper()
	fetcher := newMemFetcher(slots...)
	src := history.NewSource(fetcher, pageSize)
	t.Cleanup(src.Close)
	require.NoError(t, src.Start(t.Context()))

	clock := &testClock{now: day}
	m, err := New(t.Context(), src, Options{
		Channel:  "general",
		Scroller: TerminalOptions(),
		Clock:    clock,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	return testModel{Model: m, src: src, fetcher: fetcher, clock: clock}
}

func press(m *Model, s string) tea.Cmd {
	_, cmd := m.Update(tea.KeyPressMsg{Code: rune(s[0]), Text: s})
	return cmd
}

// plain strips styles and trailing blanks from rendered rows.
func plain(rows []string) string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = strings.TrimRight(ansi.Strip(r), " ")
	}
	return strings.Join(out, "\n")
}

func visibleIDs(f scroller.Frame) []string {
	var ids []string
	for _, it := range f.Items {
		if it.End() > f.Offset && it.Start < f.Offset+f.Viewport {
			ids = append(ids, it.Entry.ID)
		}
	}
	return ids
}

func TestChatView(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 50,
		post(10, "alice", "hello", day),
		post(20, "alice", "how are you", day.Add(time.Minute)),
		post(30, "bob", "fine", day.Add(2*time.Minute)),
	)

	assert.Equal(t, scroller.Inverted, m.frame.Orientation)
	assert.Equal(t, float64(6), m.frame.Total)
	assert.Equal(t, float64(8), m.frame.Viewport)
	golden.RequireEqual(t, []byte(plain(m.rows.viewport(m.frame, m.chatHeight(), -1))))

	view := ansi.Strip(m.view())
	assert.True(t, strings.HasPrefix(view, "# general 3 loaded"))
	assert.Contains(t, view, "q quit")
}

func TestChatEmpty(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 50)

	assert.True(t, m.frame.Empty)
	assert.Equal(t, scroller.Natural, m.frame.Orientation)
	assert.Contains(t, ansi.Strip(m.view()), emptyText)
}

func TestChatScrolling(t *testing.T) {
	t.Parallel()

	t.Run("should page older posts when scrolling up to the top", func(t *testing.T) {
		t.Parallel()
		m := newTestModel(t, 10, numbered(30)...)

		// 21 carries the author header, the rest are one row each.
		require.Equal(t, float64(11), m.frame.Total)
		require.Equal(t, scroller.Inverted, m.frame.Orientation)
		require.Equal(t, float64(0), m.frame.Offset)

		press(m.Model, "k")
		assert.Equal(t, float64(1), m.frame.Offset)
		assert.True(t, m.frame.UserHasScrolled)
		m.src.Wait()
		assert.Equal(t, int32(0), m.fetcher.older.Load())

		press(m.Model, "k")
		assert.Equal(t, float64(2), m.frame.Offset)
		assert.True(t, m.frame.Edges.AtTop)
		m.src.Wait()
		assert.Equal(t, int32(1), m.fetcher.older.Load())

		m.Update(sourceUpdateMsg{})
		assert.Equal(t, 20, m.frame.Count)
		assert.Equal(t, float64(2), m.frame.Offset)
		assert.False(t, m.frame.LoadingOlder)
		assert.Equal(t, scroller.Inverted, m.frame.Orientation)
	})

	t.Run("should clamp scrolling at the newest post", func(t *testing.T) {
		t.Parallel()
		m := newTestModel(t, 10, numbered(30)...)

		press(m.Model, "j")
		assert.Equal(t, float64(0), m.frame.Offset)
		assert.Equal(t, float64(0), m.surface.ScrollOffset())
	})

	t.Run("should ignore a stale scroll end", func(t *testing.T) {
		t.Parallel()
		m := newTestModel(t, 10, numbered(30)...)

		press(m.Model, "k")
		press(m.Model, "k")
		_, cmd := m.Update(scrollEndMsg{seq: 1})
		assert.Nil(t, cmd)
	})
}

func TestChatNavigation(t *testing.T) {
	t.Parallel()

	t.Run("should reload around a key outside the loaded range", func(t *testing.T) {
		t.Parallel()
		m := newTestModel(t, 10, numbered(30)...)

		cmd := m.submitJump("15")
		require.NotNil(t, cmd)
		msg := cmd()
		require.IsType(t, jumpedMsg{}, msg)
		m.Update(msg)

		st := m.src.State()
		require.NotEmpty(t, st.Slots)
		assert.Equal(t, "10", st.Slots[0].Key.String())
		assert.Equal(t, "15", m.sc.Target().String())
		assert.Equal(t, scroller.TargetFound, m.frame.Target)
		assert.Equal(t, scroller.Natural, m.frame.Orientation)
		assert.Equal(t, 5, m.frame.Anchor)
	})

	t.Run("should reject an invalid key", func(t *testing.T) {
		t.Parallel()
		m := newTestModel(t, 10, numbered(30)...)

		m.submitJump("not a key")
		assert.True(t, m.statusErr)
		assert.Nil(t, m.sc.Target())
	})

	t.Run("should center a search result after the cooldown", func(t *testing.T) {
		t.Parallel()
		m := newTestModel(t, 10, numbered(30)...)

		m.submitSearch("29")
		require.Len(t, m.results, 1)
		assert.Equal(t, "Result 1 of 1", m.status)
		assert.Equal(t, []string{"29"}, m.searches.Queries("general"))
		assert.Equal(t, "29", m.sc.Target().String())
		assert.Equal(t, scroller.Natural, m.frame.Orientation)
		assert.True(t, m.frame.Forcing)

		m.clock.Advance(time.Second)
		m.Update(forcingDoneMsg{})
		assert.Equal(t, float64(3), m.frame.Offset)
		assert.Contains(t, visibleIDs(m.frame), "29")
	})

	t.Run("should reload the newest page when following latest", func(t *testing.T) {
		t.Parallel()
		m := newTestModel(t, 10, numbered(30)...)

		m.Update(m.submitJump("5")())
		require.False(t, m.frame.HasLoadedNewest)

		cmd := m.latest()
		require.NotNil(t, cmd)
		m.Update(cmd())
		assert.Nil(t, m.sc.Target())
		assert.True(t, m.frame.HasLoadedNewest)
		assert.Equal(t, 9, m.frame.Anchor)
	})
}

func TestChatSearchHistory(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 10, numbered(30)...)
	m.dataDir = t.TempDir()

	m.submitSearch("number 2")
	m.submitSearch("30")
	m.saveSearches()

	h, err := search.Load(m.dataDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"30", "number 2"}, h.Queries("general"))
}

func TestChatDevTools(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 10, numbered(30)...)

	assert.NotContains(t, ansi.Strip(m.view()), "orient")
	press(m.Model, "D")
	assert.Contains(t, ansi.Strip(m.view()), "orient     inverted")
}

func TestChatSnapshot(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 10, numbered(30)...)

	snap := m.Snapshot(40, 6)
	require.Len(t, snap.Rows, 6)
	assert.Equal(t, float64(6), snap.Frame.Viewport)
	assert.True(t, snap.Frame.Inverted())
	assert.Equal(t, snap.Frame.Count, snap.Debug.Count)
	assert.Equal(t, "  message number 30", plain(snap.Rows[5:]))
}

func TestChatSettlesOnOddHeight(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 50, numbered(40)...)
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 21 + 1 + m.footerHeight()})
	require.Equal(t, 21, m.chatHeight())

	m.jumpTo(sortkey.New(20))
	require.Equal(t, scroller.TargetFound, m.frame.Target)
	require.True(t, m.frame.Forcing)

	cooldown := TerminalOptions().ForceScrollCooldown + time.Millisecond
	for range 3 {
		if !m.frame.Forcing {
			break
		}
		m.clock.Advance(cooldown)
		m.Update(forcingDoneMsg{})
	}
	require.False(t, m.frame.Forcing, "the anchor settles on a whole row")

	offset := m.frame.Offset
	assert.Equal(t, offset, m.surface.ScrollOffset())
	for range 5 {
		m.clock.Advance(cooldown)
		_, cmd := m.Update(forcingDoneMsg{})
		assert.Nil(t, cmd)
		assert.False(t, m.frame.Forcing)
		assert.Equal(t, offset, m.frame.Offset)
	}
	assert.Contains(t, visibleIDs(m.frame), "20")
}
