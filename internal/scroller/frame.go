package scroller

import (
	"fmt"
	"strings"
	"time"
)

// FrameItem is an entry positioned in display space.
type FrameItem struct {
	Entry Entry
	// Index is the logical index, Display the display index.
	Index    int
	Display  int
	Start    float64
	Size     float64
	Measured bool
}

func (i FrameItem) End() float64 {
	return i.Start + i.Size
}

// Frame is everything a host needs to render one cycle.
type Frame struct {
	Items        []FrameItem
	Offset       float64
	Viewport     float64
	Total        float64
	PaddingStart float64
	PaddingEnd   float64

	Orientation Orientation
	Reading     ReadingDirection
	Direction   ScrollDirection
	Count       int
	Target      TargetStatus
	// Anchor is the logical anchor index, or -1.
	Anchor int
	Edges  Edges
	// Empty is set once both ends are loaded and there is nothing to show.
	Empty bool

	UserHasScrolled bool
	Forcing         bool
	ForcingUntil    time.Time

	HasLoadedOldest bool
	HasLoadedNewest bool
	LoadingOlder    bool
	LoadingNewer    bool
}

func (f Frame) Inverted() bool {
	return f.Orientation == Inverted
}

// LoadingAtStart reports whether a loader occupies the start padding.
func (f Frame) LoadingAtStart() bool {
	if f.Inverted() {
		return f.LoadingNewer
	}
	return f.LoadingOlder
}

func (f Frame) LoadingAtEnd() bool {
	if f.Inverted() {
		return f.LoadingOlder
	}
	return f.LoadingNewer
}

// String dumps the frame in a stable text form.
func (f Frame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "offset=%g viewport=%g total=%g orientation=%s anchor=%d target=%s\n",
		f.Offset, f.Viewport, f.Total, f.Orientation, f.Anchor, f.Target)
	fmt.Fprintf(&b, "top=%t bottom=%t oldest=%t newest=%t loading_older=%t loading_newer=%t\n",
		f.Edges.AtTop, f.Edges.AtBottom, f.HasLoadedOldest, f.HasLoadedNewest, f.LoadingOlder, f.LoadingNewer)
	for _, it := range f.Items {
		visible := it.End() > f.Offset && it.Start < f.Offset+f.Viewport
		mark := " "
		if visible {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s d=%-3d i=%-3d %-10s %-9s start=%g size=%g\n",
			mark, it.Display, it.Index, it.Entry.ID, it.Entry.Kind, it.Start, it.Size)
	}
	return b.String()
}

// DebugState is the scroller state worth watching while debugging.
type DebugState struct {
	Count           int
	Offset          float64
	ScrollHeight    float64
	Viewport        float64
	Direction       ScrollDirection
	Orientation     Orientation
	Reading         ReadingDirection
	Anchor          int
	AtTop           bool
	AtBottom        bool
	UserHasScrolled bool
	Forcing         bool
	LoadingOlder    bool
	LoadingNewer    bool
	HasLoadedOldest bool
	HasLoadedNewest bool
	LoadDirection   LoadDirection
}

type debugField struct {
	name  string
	value any
}

// fields lists the values whose changes are logged.
func (d DebugState) fields() []debugField {
	return []debugField{
		{"atTop", d.AtTop},
		{"atBottom", d.AtBottom},
		{"hasLoadedNewest", d.HasLoadedNewest},
		{"hasLoadedOldest", d.HasLoadedOldest},
		{"loadDirection", d.LoadDirection},
		{"anchor", d.Anchor},
		{"loadingOlder", d.LoadingOlder},
		{"loadingNewer", d.LoadingNewer},
		{"orientation", d.Orientation},
		{"userHasScrolled", d.UserHasScrolled},
		{"forcing", d.Forcing},
	}
}

// Lines renders the state as label/value rows.
func (d DebugState) Lines() []string {
	return []string{
		fmt.Sprintf("count      %d", d.Count),
		fmt.Sprintf("offset     %.0f / %.0f", d.Offset, d.ScrollHeight),
		fmt.Sprintf("viewport   %.0f", d.Viewport),
		fmt.Sprintf("direction  %s", d.Direction),
		fmt.Sprintf("orient     %s", d.Orientation),
		fmt.Sprintf("reading    %s", d.Reading),
		fmt.Sprintf("anchor     %d", d.Anchor),
		fmt.Sprintf("top/bottom %t/%t", d.AtTop, d.AtBottom),
		fmt.Sprintf("scrolled   %t", d.UserHasScrolled),
		fmt.Sprintf("forcing    %t", d.Forcing),
		fmt.Sprintf("loading    %t/%t", d.LoadingOlder, d.LoadingNewer),
		fmt.Sprintf("loaded     %t/%t", d.HasLoadedOldest, d.HasLoadedNewest),
		fmt.Sprintf("load dir   %s", d.LoadDirection),
	}
}
