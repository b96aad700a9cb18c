package scroller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedSource(keys ...int64) *fakeSource {
	return &fakeSource{state: SourceState{
		Slots:           posts(keys...),
		HasLoadedOldest: true,
		HasLoadedNewest: true,
	}}
}

var tenKeys = []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

func TestHandle(t *testing.T) {
	t.Parallel()

	t.Run("should scroll to a logical index through the transform", func(t *testing.T) {
		t.Parallel()
		s, surface, _ := newTestScroller(t, loadedSource(tenKeys...), 300)
		f := s.Sync()
		require.True(t, f.Inverted())

		s.Handle().ScrollToIndex(Location{Index: 2, Align: AlignStart})
		assert.Equal(t, []float64{700}, surface.scrolls)
		assert.True(t, s.Sync().UserHasScrolled)
		assert.Equal(t, 700.0, s.Frame().Offset, "no anchor follow after a jump")
	})

	t.Run("should scroll to the newest entry", func(t *testing.T) {
		t.Parallel()
		s, surface, _ := newTestScroller(t, loadedSource(tenKeys...), 300)
		s.Sync()
		surface.offset = 400
		s.Handle().ScrollToIndex(Location{Last: true, Index: 3, Align: AlignStart})
		assert.Equal(t, []float64{0}, surface.scrolls)
	})

	t.Run("should clamp out of range indices", func(t *testing.T) {
		t.Parallel()
		s, surface, _ := newTestScroller(t, loadedSource(tenKeys...), 300)
		s.Sync()
		s.Handle().ScrollToIndex(Location{Index: 99, Align: AlignStart})
		s.Handle().ScrollToIndex(Location{Index: -4, Align: AlignStart})
		assert.Equal(t, []float64{0, 700}, surface.scrolls)
	})

	t.Run("should report done after the settle delay", func(t *testing.T) {
		t.Parallel()
		s, surface, clock := newTestScroller(t, loadedSource(tenKeys...), 300)
		s.Sync()
		done := false
		s.Handle().ScrollIntoView(Location{Index: 5, Align: AlignCenter}, func() { done = true })
		assert.Len(t, surface.scrolls, 1)

		clock.Advance(499 * time.Millisecond)
		assert.False(t, done)
		clock.Advance(time.Millisecond)
		assert.True(t, done)
	})

	t.Run("should ignore requests without entries", func(t *testing.T) {
		t.Parallel()
		s, surface, _ := newTestScroller(t, loadedSource(), 300)
		f := s.Sync()
		assert.True(t, f.Empty)
		s.Handle().ScrollToIndex(Location{Last: true})
		assert.Empty(t, surface.scrolls)
		assert.False(t, s.Frame().UserHasScrolled)
	})
}
