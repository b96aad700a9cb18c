package scroller

import (
	"slices"
	"time"

	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

// TopMarkerID is the render key of the marker shown above the oldest post.
const TopMarkerID = "top-marker"

type EntryKind int

const (
	EntryPost EntryKind = iota
	EntryTombstone
	EntryTopMarker
)

func (k EntryKind) String() string {
	switch k {
	case EntryPost:
		return "post"
	case EntryTombstone:
		return "tombstone"
	case EntryTopMarker:
		return "marker"
	}
	return "unknown"
}

// Entry is one renderable row of the active window.
type Entry struct {
	ID   string
	Key  sortkey.Key
	Kind EntryKind
	Post *message.Post
	// NewAuthor is set when the previous entry was not a post by the same
	// author.
	NewAuthor bool
	// NewDay is set when the post was sent on a different day than the
	// previous post. Never set on the first post.
	NewDay bool
	Reply  bool
}

type TargetStatus int

const (
	// TargetNone means no scroll target was requested.
	TargetNone TargetStatus = iota
	// TargetFound means the target or its nearest following post is loaded.
	TargetFound
	// TargetUnavailable means the target lies in a part of history that is
	// not loaded yet.
	TargetUnavailable
)

func (s TargetStatus) String() string {
	switch s {
	case TargetFound:
		return "found"
	case TargetUnavailable:
		return "unavailable"
	}
	return "none"
}

type WindowRequest struct {
	Slots           []message.Slot
	HasLoadedOldest bool
	HasLoadedNewest bool
	Target          *sortkey.Key
	TopMarker       bool
	Replying        bool
}

// Window is the ordered, deduplicated set of entries handed to the engine.
type Window struct {
	Entries []Entry
	Target  TargetStatus
}

func (w Window) Len() int {
	return len(w.Entries)
}

// IDs returns the render keys in natural order.
func (w Window) IDs() []string {
	ids := make([]string, len(w.Entries))
	for i, e := range w.Entries {
		ids[i] = e.ID
	}
	return ids
}

// SelectWindow builds the active window from a history snapshot. It does not
// mutate the request and is safe to call on every cycle.
func SelectWindow(req WindowRequest) Window {
	slots := make([]message.Slot, 0, len(req.Slots))
	for _, s := range req.Slots {
		if s.Key.IsZero() {
			continue
		}
		slots = append(slots, s)
	}
	slices.SortStableFunc(slots, func(a, b message.Slot) int {
		return a.Key.Compare(b.Key)
	})
	// Later duplicates win so an in-place edit replaces the stale copy.
	deduped := slots[:0]
	for _, s := range slots {
		if n := len(deduped); n > 0 && deduped[n-1].Key.Equal(s.Key) {
			deduped[n-1] = s
			continue
		}
		deduped = append(deduped, s)
	}
	slots = deduped

	var w Window
	if req.TopMarker && req.HasLoadedOldest && len(slots) > 0 {
		w.Entries = append(w.Entries, Entry{ID: TopMarkerID, Kind: EntryTopMarker})
	}

	var last *message.Post
	afterTombstone := false
	for _, s := range slots {
		e := Entry{
			ID:    s.Key.String(),
			Key:   s.Key,
			Kind:  EntryPost,
			Post:  s.Post,
			Reply: req.Replying,
		}
		if s.Tombstone() {
			e.Kind = EntryTombstone
			afterTombstone = true
			w.Entries = append(w.Entries, e)
			continue
		}
		e.NewAuthor = last == nil || afterTombstone || last.Author != s.Post.Author
		e.NewDay = last != nil && !sameDay(last.SentAt, s.Post.SentAt)
		last = s.Post
		afterTombstone = false
		w.Entries = append(w.Entries, e)
	}

	w.Target = targetStatus(slots, req)
	return w
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}

func targetStatus(slots []message.Slot, req WindowRequest) TargetStatus {
	if req.Target == nil || req.Target.IsZero() {
		return TargetNone
	}
	if len(slots) == 0 {
		return TargetUnavailable
	}
	t := *req.Target
	first, last := slots[0].Key, slots[len(slots)-1].Key
	switch {
	case t.Compare(first) >= 0 && t.Compare(last) <= 0:
		return TargetFound
	case t.Less(first) && req.HasLoadedOldest:
		return TargetFound
	case last.Less(t) && req.HasLoadedNewest:
		return TargetFound
	}
	return TargetUnavailable
}

// ResolveAnchor returns the logical index to keep stationary: the first post
// at or after target, or the newest entry when there is no target. It
// reports false for an empty window or an unavailable target.
func ResolveAnchor(w Window, target *sortkey.Key) (int, bool) {
	n := len(w.Entries)
	if n == 0 {
		return 0, false
	}
	if target == nil || target.IsZero() {
		return n - 1, true
	}
	if w.Target == TargetUnavailable {
		return 0, false
	}
	for i, e := range w.Entries {
		if e.Kind == EntryTopMarker {
			continue
		}
		if e.Key.Compare(*target) >= 0 {
			return i, true
		}
	}
	// Past the newest post with the newest page loaded.
	return n - 1, true
}
