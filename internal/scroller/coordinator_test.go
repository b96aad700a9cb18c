package scroller

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(inverted bool) (*Coordinator, *Virtualizer, *fakeSurface, *fakeClock) {
	engine := newTestVirtualizer(inverted)
	surface := &fakeSurface{viewport: 300}
	clock := newFakeClock()
	return NewCoordinator(surface, engine, clock, DefaultOptions(), discardLogger()), engine, surface, clock
}

func TestRebase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Rebase(5000, 4200, 800))
	assert.Equal(t, 3200.0, Rebase(5000, 1000, 800))
	assert.Equal(t, 0.0, Rebase(500, 0, 800), "never negative")
}

func TestForceScroll(t *testing.T) {
	t.Parallel()

	t.Run("should suppress forced scrolls during the cooldown", func(t *testing.T) {
		t.Parallel()
		c, engine, surface, clock := newTestCoordinator(false)

		require.True(t, c.ForceScroll(200, false))
		assert.True(t, c.Forcing())
		assert.Equal(t, 200.0, engine.Offset())

		assert.False(t, c.ForceScroll(300, false))
		assert.Equal(t, []float64{200}, surface.scrolls)

		clock.Advance(299 * time.Millisecond)
		assert.True(t, c.Forcing())
		clock.Advance(time.Millisecond)
		assert.False(t, c.Forcing())

		assert.True(t, c.ForceScroll(300, false))
		assert.Equal(t, []float64{200, 300}, surface.scrolls)
	})

	t.Run("should bypass the cooldown when asked", func(t *testing.T) {
		t.Parallel()
		c, _, surface, clock := newTestCoordinator(false)
		c.ForceScroll(200, false)
		assert.True(t, c.ForceScroll(400, true))
		assert.Equal(t, []float64{200, 400}, surface.scrolls)
		assert.Equal(t, clock.Now().Add(300*time.Millisecond), c.ForcingUntil())
	})

	t.Run("should clamp into the scrollable range", func(t *testing.T) {
		t.Parallel()
		c, _, surface, _ := newTestCoordinator(false)
		c.ForceScroll(5000, true)
		c.ForceScroll(-20, true)
		c.ForceScroll(math.NaN(), true)
		assert.Equal(t, []float64{700, 0, 0}, surface.scrolls)
	})
}

func TestScrollToAnchor(t *testing.T) {
	t.Parallel()

	t.Run("should center the anchor", func(t *testing.T) {
		t.Parallel()
		c, _, surface, _ := newTestCoordinator(false)
		assert.Equal(t, 350.0, c.AnchorOffset(4))
		require.True(t, c.ScrollToAnchor(4))
		assert.Equal(t, 350.0, surface.offset)

		// A second request inside the cooldown is dropped, the offset holds.
		assert.False(t, c.ScrollToAnchor(4))
		assert.Equal(t, 350.0, surface.offset)
	})

	t.Run("should pin the newest entry to the trailing edge", func(t *testing.T) {
		t.Parallel()
		natural, _, _, _ := newTestCoordinator(false)
		assert.Equal(t, 700.0, natural.AnchorOffset(9))

		inverted, _, _, _ := newTestCoordinator(true)
		assert.Equal(t, 0.0, inverted.AnchorOffset(9))
	})

	t.Run("should transform the anchor when inverted", func(t *testing.T) {
		t.Parallel()
		c, _, _, _ := newTestCoordinator(true)
		// Logical 4 sits at display 5.
		assert.Equal(t, 450.0, c.AnchorOffset(4))
	})

	t.Run("should do nothing without items", func(t *testing.T) {
		t.Parallel()
		engine := NewVirtualizer(100, 0, 0)
		surface := &fakeSurface{viewport: 300}
		c := NewCoordinator(surface, engine, newFakeClock(), DefaultOptions(), discardLogger())
		assert.False(t, c.ScrollToAnchor(0))
		assert.Empty(t, surface.scrolls)
	})
}

func TestEngineScroll(t *testing.T) {
	t.Parallel()

	t.Run("should apply adjustments larger than one unit", func(t *testing.T) {
		t.Parallel()
		c, _, surface, _ := newTestCoordinator(false)
		c.EngineScroll(ScrollRequest{Offset: 100, Adjustment: 50}, FollowState{})
		c.EngineScroll(ScrollRequest{Offset: 100, Adjustment: 1}, FollowState{})
		c.EngineScroll(ScrollRequest{Offset: 100, Adjustment: -1}, FollowState{})
		c.EngineScroll(ScrollRequest{Offset: 100, Adjustment: -40}, FollowState{})
		assert.Equal(t, []float64{150, 100, 100, 100}, surface.scrolls)
	})

	t.Run("should drop small corrections while coasting", func(t *testing.T) {
		t.Parallel()
		c, _, surface, _ := newTestCoordinator(false)
		coasting := FollowState{UserHasScrolled: true, Scrolling: true, Momentum: true}
		c.EngineScroll(ScrollRequest{Offset: 100, Adjustment: 20}, coasting)
		assert.Empty(t, surface.scrolls)
		c.EngineScroll(ScrollRequest{Offset: 100, Adjustment: 120}, coasting)
		assert.Equal(t, []float64{220}, surface.scrolls)
	})

	t.Run("should follow the anchor until the user scrolls", func(t *testing.T) {
		t.Parallel()
		c, _, surface, _ := newTestCoordinator(false)
		c.EngineScroll(ScrollRequest{Offset: 100, Adjustment: 50}, FollowState{Anchor: 4, HasAnchor: true})
		assert.Equal(t, []float64{350}, surface.scrolls)
		assert.True(t, c.Forcing())

		c.EngineScroll(ScrollRequest{Offset: 100, Adjustment: 50}, FollowState{Anchor: 4, HasAnchor: true, UserHasScrolled: true})
		assert.Equal(t, []float64{350, 150}, surface.scrolls)
	})
}
