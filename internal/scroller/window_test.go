package scroller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

func ids(w Window) []string {
	return w.IDs()
}

func TestSelectWindow(t *testing.T) {
	t.Parallel()

	t.Run("should sort and deduplicate keys", func(t *testing.T) {
		t.Parallel()
		slots := append(posts(30, 10), posts(20, 10)...)
		slots = append(slots, message.Slot{})
		w := SelectWindow(WindowRequest{Slots: slots})
		assert.Equal(t, []string{"10", "20", "30"}, ids(w))
		assert.Equal(t, TargetNone, w.Target)
	})

	t.Run("should keep the last copy of a duplicated key", func(t *testing.T) {
		t.Parallel()
		edited := post(10, "~zod")
		edited.Post.Content = "edited"
		w := SelectWindow(WindowRequest{Slots: []message.Slot{post(10, "~zod"), edited}})
		require.Len(t, w.Entries, 1)
		assert.Equal(t, "edited", w.Entries[0].Post.Content)
	})

	t.Run("should not mutate the request", func(t *testing.T) {
		t.Parallel()
		slots := posts(30, 10, 20)
		SelectWindow(WindowRequest{Slots: slots})
		assert.Equal(t, "30", slots[0].Key.String())
	})

	t.Run("should prepend the top marker only once the oldest page is loaded", func(t *testing.T) {
		t.Parallel()
		w := SelectWindow(WindowRequest{Slots: posts(10, 20), TopMarker: true})
		assert.Equal(t, []string{"10", "20"}, ids(w))

		w = SelectWindow(WindowRequest{Slots: posts(10, 20), TopMarker: true, HasLoadedOldest: true})
		assert.Equal(t, []string{TopMarkerID, "10", "20"}, ids(w))
		assert.Equal(t, EntryTopMarker, w.Entries[0].Kind)

		w = SelectWindow(WindowRequest{TopMarker: true, HasLoadedOldest: true})
		assert.Zero(t, w.Len())

		w = SelectWindow(WindowRequest{Slots: posts(10, 20), HasLoadedOldest: true})
		assert.Equal(t, []string{"10", "20"}, ids(w))
	})

	t.Run("should keep tombstones in place", func(t *testing.T) {
		t.Parallel()
		slots := posts(10, 20, 40, 50)
		slots = append(slots, tombstone(30))
		w := SelectWindow(WindowRequest{Slots: slots})
		assert.Equal(t, []string{"10", "20", "30", "40", "50"}, ids(w))
		assert.Equal(t, EntryTombstone, w.Entries[2].Kind)
		assert.Nil(t, w.Entries[2].Post)
		assert.Equal(t, "20", w.Entries[1].ID)
		assert.Equal(t, "40", w.Entries[3].ID)
	})

	t.Run("should group by author and day", func(t *testing.T) {
		t.Parallel()
		a := post(10, "~zod")
		b := post(20, "~zod")
		c := post(30, "~bus")
		d := post(40, "~bus")
		d.Post.SentAt = day.Add(48 * time.Hour)
		e := post(60, "~bus")
		e.Post.SentAt = d.Post.SentAt
		w := SelectWindow(WindowRequest{Slots: []message.Slot{a, b, c, d, tombstone(50), e}, Replying: true})

		var newAuthor, newDay []bool
		for _, e := range w.Entries {
			newAuthor = append(newAuthor, e.NewAuthor)
			newDay = append(newDay, e.NewDay)
		}
		assert.Equal(t, []bool{true, false, true, false, false, true}, newAuthor)
		assert.Equal(t, []bool{false, false, false, true, false, false}, newDay)
		assert.True(t, w.Entries[0].Reply)
	})
}

func TestTargetStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		target int64
		oldest bool
		newest bool
		want   TargetStatus
	}{
		{"inside loaded range", 25, false, false, TargetFound},
		{"older than loaded range", 5, false, true, TargetUnavailable},
		{"older with oldest loaded", 5, true, false, TargetFound},
		{"newer than loaded range", 35, true, false, TargetUnavailable},
		{"newer with newest loaded", 35, false, true, TargetFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := SelectWindow(WindowRequest{
				Slots:           posts(10, 20, 30),
				HasLoadedOldest: tc.oldest,
				HasLoadedNewest: tc.newest,
				Target:          keyPtr(tc.target),
			})
			assert.Equal(t, tc.want, w.Target)
		})
	}

	t.Run("should be unavailable in an empty window", func(t *testing.T) {
		t.Parallel()
		w := SelectWindow(WindowRequest{Target: keyPtr(1)})
		assert.Equal(t, TargetUnavailable, w.Target)
	})
}

func TestResolveAnchor(t *testing.T) {
	t.Parallel()

	t.Run("should be unset for an empty window", func(t *testing.T) {
		t.Parallel()
		_, ok := ResolveAnchor(Window{}, nil)
		assert.False(t, ok)
	})

	t.Run("should pick the newest entry without a target", func(t *testing.T) {
		t.Parallel()
		w := SelectWindow(WindowRequest{Slots: posts(10, 20, 30)})
		i, ok := ResolveAnchor(w, nil)
		require.True(t, ok)
		assert.Equal(t, 2, i)
	})

	t.Run("should pick the first key at or after the target", func(t *testing.T) {
		t.Parallel()
		req := WindowRequest{Slots: posts(10, 20, 30), Target: keyPtr(15), HasLoadedOldest: true, TopMarker: true}
		w := SelectWindow(req)
		i, ok := ResolveAnchor(w, req.Target)
		require.True(t, ok)
		assert.Equal(t, "20", w.Entries[i].ID)

		req.Target = keyPtr(20)
		w = SelectWindow(req)
		i, _ = ResolveAnchor(w, req.Target)
		assert.Equal(t, "20", w.Entries[i].ID)

		req.Target = keyPtr(1)
		w = SelectWindow(req)
		i, _ = ResolveAnchor(w, req.Target)
		assert.Equal(t, "10", w.Entries[i].ID)
	})

	t.Run("should stay unresolved while the target is not loaded", func(t *testing.T) {
		t.Parallel()
		target := keyPtr(5)
		w := SelectWindow(WindowRequest{Slots: posts(10, 20, 30), Target: target, HasLoadedNewest: true})
		require.Equal(t, TargetUnavailable, w.Target)
		_, ok := ResolveAnchor(w, target)
		assert.False(t, ok)
	})

	t.Run("should fall back to the newest entry past the end", func(t *testing.T) {
		t.Parallel()
		target := keyPtr(99)
		w := SelectWindow(WindowRequest{Slots: posts(10, 20, 30), Target: target, HasLoadedNewest: true})
		i, ok := ResolveAnchor(w, target)
		require.True(t, ok)
		assert.Equal(t, 2, i)
	})

	t.Run("should compare keys beyond 64 bits exactly", func(t *testing.T) {
		t.Parallel()
		big := sortkey.MustParse("170141184505000000000000000000000000001")
		target := sortkey.MustParse("170141184505000000000000000000000000000")
		w := SelectWindow(WindowRequest{
			Slots:  []message.Slot{{Key: target.Add(-1), Post: &message.Post{}}, {Key: big, Post: &message.Post{}}},
			Target: &target,
		})
		i, ok := ResolveAnchor(w, &target)
		require.True(t, ok)
		assert.Equal(t, big.String(), w.Entries[i].ID)
	})
}
