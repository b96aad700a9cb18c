package scroller

import (
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("should reject invalid options", func(t *testing.T) {
		t.Parallel()
		opts := DefaultOptions()
		opts.EstimateSize = 0
		opts.Overscan = -1
		_, err := New(&fakeSource{}, &fakeSurface{}, WithOptions(opts))
		require.ErrorIs(t, err, ErrInvalidOptions)
		assert.Contains(t, err.Error(), "estimate size")
		assert.Contains(t, err.Error(), "overscan")
	})

	t.Run("should require a source and a surface", func(t *testing.T) {
		t.Parallel()
		_, err := New(nil, &fakeSurface{})
		require.ErrorIs(t, err, ErrInvalidOptions)
	})
}

func TestScrollerFollowsNewest(t *testing.T) {
	t.Parallel()

	src := loadedSource(tenKeys...)
	s, surface, _ := newTestScroller(t, src, 300)

	f := s.Sync()
	require.True(t, f.Inverted())
	assert.Equal(t, 9, f.Anchor)
	assert.Equal(t, 0.0, f.Offset)
	require.NotEmpty(t, f.Items)
	assert.Equal(t, 9, f.Items[0].Index)

	src.land(post(110, "~zod"))
	f = s.Sync()
	assert.Equal(t, 10, f.Anchor)
	assert.Equal(t, 0.0, f.Offset)
	assert.Equal(t, "110", f.Items[0].Entry.ID)
	assert.Empty(t, surface.scrolls, "already flush with the newest post")

	// Growth of a post below the viewport does not move the reader.
	s.Measure("50", 180)
	assert.Empty(t, surface.scrolls)
}

func TestScrollerFollowsNewestAfterAppends(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 5} {
		t.Run("should stay pinned after "+strconv.Itoa(n)+" new posts", func(t *testing.T) {
			t.Parallel()
			src := loadedSource(tenKeys...)
			s, surface, _ := newTestScroller(t, src, 300)
			s.Sync()

			keys := make([]int64, n)
			for i := range n {
				keys[i] = int64(110 + 10*i)
			}
			src.land(posts(keys...)...)

			f := s.Sync()
			assert.Equal(t, 10+n, f.Count)
			assert.Equal(t, f.Count-1, f.Anchor)
			assert.Equal(t, 0.0, f.Offset)
			assert.Empty(t, surface.scrolls)
		})
	}
}

func TestScrollerAnchorSettles(t *testing.T) {
	t.Parallel()
	cooldown := DefaultOptions().ForceScrollCooldown + time.Millisecond

	t.Run("should not anchor again after the cooldown", func(t *testing.T) {
		t.Parallel()
		s, surface, clock := newTestScroller(t, loadedSource(tenKeys...), 300)
		s.SetScrollTo(keyPtr(45))
		s.Sync()
		require.Equal(t, []float64{350}, surface.scrolls)

		for range 3 {
			clock.Advance(cooldown)
			f := s.Sync()
			assert.False(t, f.Forcing)
		}
		assert.Equal(t, []float64{350}, surface.scrolls)
	})

	t.Run("should settle on a surface with whole offsets", func(t *testing.T) {
		t.Parallel()
		surface := &wholeSurface{fakeSurface{viewport: 301}}
		clock := newFakeClock()
		s, err := New(loadedSource(tenKeys...), surface, WithClock(clock), WithLogger(discardLogger()))
		require.NoError(t, err)

		s.SetScrollTo(keyPtr(45))
		s.Sync()
		require.Equal(t, []float64{350}, surface.scrolls, "349.5 snapped to a whole offset")

		for range 3 {
			clock.Advance(cooldown)
			f := s.Sync()
			assert.False(t, f.Forcing)
			assert.Equal(t, 350.0, f.Offset)
		}
		assert.Equal(t, []float64{350}, surface.scrolls)
	})
}

func TestScrollerUnavailableTarget(t *testing.T) {
	t.Parallel()

	src := &fakeSource{state: SourceState{
		Slots:           posts(10, 20, 30),
		HasLoadedNewest: true,
		Generation:      1,
	}}
	s, surface, _ := newTestScroller(t, src, 300)
	s.SetScrollTo(keyPtr(5))

	f := s.Sync()
	assert.Equal(t, TargetUnavailable, f.Target)
	assert.Equal(t, -1, f.Anchor)
	assert.Empty(t, surface.scrolls)
	assert.Zero(t, src.older, "no pages before the user scrolls")

	userScroll(s, surface, 0)
	s.Sync()
	assert.Equal(t, 1, src.older)

	// The load is in flight, further cycles must not ask again.
	for range 3 {
		userScroll(s, surface, 0)
		f = s.Sync()
	}
	assert.Equal(t, 1, src.older)
	assert.True(t, f.LoadingOlder)
	assert.Zero(t, src.newer)
}

func TestScrollerTargetFound(t *testing.T) {
	t.Parallel()

	src := loadedSource(tenKeys...)
	s, surface, _ := newTestScroller(t, src, 300)
	s.SetScrollTo(keyPtr(45))

	f := s.Sync()
	assert.Equal(t, TargetFound, f.Target)
	assert.Equal(t, Natural, f.Orientation)
	assert.Equal(t, 4, f.Anchor, "first post at or after the target")
	assert.Equal(t, []float64{350}, surface.scrolls)

	t.Run("should not scroll again once settled", func(t *testing.T) {
		s.Sync()
		assert.Equal(t, []float64{350}, surface.scrolls)
	})

	t.Run("should ignore setting the same target", func(t *testing.T) {
		userScroll(s, surface, 380)
		s.SetScrollTo(keyPtr(45))
		assert.True(t, s.Sync().UserHasScrolled)
	})

	t.Run("should follow the newest post after jumping to latest", func(t *testing.T) {
		s.JumpToLatest()
		f := s.Sync()
		assert.Nil(t, s.Target())
		assert.False(t, f.UserHasScrolled)
		assert.Equal(t, 9, f.Anchor)
	})
}

func TestScrollerFlipsWithReadingDirection(t *testing.T) {
	t.Parallel()

	src := loadedSource(tenKeys...)
	s, surface, _ := newTestScroller(t, src, 300)
	s.SetScrollTo(keyPtr(10))

	f := s.Sync()
	require.Equal(t, Natural, f.Orientation)
	assert.Equal(t, 0, f.Anchor)
	assert.Empty(t, surface.scrolls)

	userScroll(s, surface, 100)
	userScroll(s, surface, 200)
	userScroll(s, surface, 150)

	f = s.Sync()
	assert.Equal(t, ReadingUp, f.Reading)
	assert.Equal(t, Inverted, f.Orientation)
	assert.Equal(t, []float64{550}, surface.scrolls)
	assert.Equal(t, 550.0, f.Offset)
	assert.True(t, f.Forcing)
	assert.False(t, f.Edges.AtTop)
	assert.False(t, f.Edges.AtBottom)
}

func TestScrollerLoaderPadding(t *testing.T) {
	t.Parallel()

	t.Run("should reserve the top while older posts load", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{state: SourceState{
			Slots:           posts(tenKeys...),
			HasLoadedNewest: true,
			IsLoadingOlder:  true,
		}}
		s, _, _ := newTestScroller(t, src, 300)
		f := s.Sync()
		require.True(t, f.Inverted())
		assert.True(t, f.LoadingAtEnd(), "the display end is on top when inverted")
		assert.Equal(t, 0.0, f.PaddingStart)
		assert.Equal(t, 40.0, f.PaddingEnd)
		assert.Equal(t, 1040.0, f.Total)
		assert.Equal(t, 0.0, f.Offset, "padding on top does not move the newest post")

		src.state.IsLoadingOlder = false
		src.state.IsLoadingNewer = true
		f = s.Sync()
		assert.True(t, f.LoadingAtStart())
		assert.Equal(t, 0.0, f.PaddingStart, "no bottom padding by default")
		assert.Equal(t, 0.0, f.PaddingEnd)
		assert.Equal(t, 1000.0, f.Total)
	})

	t.Run("should reserve the start when reading down", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{state: SourceState{
			Slots:          posts(tenKeys...),
			IsLoadingOlder: true,
			IsLoadingNewer: true,
		}}
		opts := DefaultOptions()
		opts.LoaderPadding = Padding{Top: 40, Bottom: 20}
		s, _, _ := newTestScroller(t, src, 300, WithOptions(opts))
		s.SetScrollTo(keyPtr(50))
		f := s.Sync()
		require.Equal(t, Natural, f.Orientation)
		assert.True(t, f.LoadingAtStart())
		assert.True(t, f.LoadingAtEnd())
		assert.Equal(t, 40.0, f.PaddingStart)
		assert.Equal(t, 20.0, f.PaddingEnd)
	})
}

func TestFrameString(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestScroller(t, loadedSource(10, 20, 30, 40, 50), 300)
	golden.RequireEqual(t, []byte(s.Sync().String()))
}
