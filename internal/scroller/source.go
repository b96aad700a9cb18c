package scroller

import "github.com/tloncorp/chatscroller/internal/message"

// SourceState is a snapshot of an item source. Slots are sorted by key,
// oldest first.
type SourceState struct {
	Slots           []message.Slot
	HasLoadedOldest bool
	HasLoadedNewest bool
	IsLoadingOlder  bool
	IsLoadingNewer  bool
	// Generation changes whenever a page lands, a load fails or the slots
	// change otherwise.
	Generation uint64
}

func (s SourceState) Loading() bool {
	return s.IsLoadingOlder || s.IsLoadingNewer
}

// Source is the paginated history the scroller renders. LoadOlder and
// LoadNewer must return immediately; results are observed through State.
type Source interface {
	State() SourceState
	LoadOlder()
	LoadNewer()
}
