package scroller

import "log/slog"

const epsilon = 1e-6

type EdgeInput struct {
	Offset    float64
	Viewport  float64
	Total     float64
	Threshold float64
	Inverted  bool
	Forcing   bool
}

// Edges describes where the viewport sits. Beginning and End are in display
// space; Top and Bottom are visual and account for inversion.
type Edges struct {
	AtBeginning bool
	AtEnd       bool
	AtExactEnd  bool
	AtTop       bool
	AtBottom    bool
}

func ComputeEdges(in EdgeInput) Edges {
	scrollHeight := max(in.Total, in.Viewport)
	// At most half the scrollable range.
	threshold := min((scrollHeight-in.Viewport)/2, in.Threshold)
	e := Edges{
		AtBeginning: in.Offset <= epsilon,
		AtEnd:       in.Offset+in.Viewport >= scrollHeight-threshold-epsilon,
		AtExactEnd:  scrollHeight-in.Offset-in.Viewport <= epsilon,
	}
	if in.Forcing {
		return e
	}
	if in.Inverted {
		e.AtTop = e.AtEnd
		e.AtBottom = e.AtBeginning
	} else {
		e.AtTop = e.AtBeginning
		e.AtBottom = e.AtEnd
	}
	return e
}

type LoadDirection int

const (
	LoadNone LoadDirection = iota
	LoadOlder
	LoadNewer
)

func (d LoadDirection) String() string {
	switch d {
	case LoadOlder:
		return "older"
	case LoadNewer:
		return "newer"
	}
	return "none"
}

// PaginationTrigger decides when to ask the source for another page.
type PaginationTrigger struct {
	logger *slog.Logger

	fired      LoadDirection
	generation uint64
}

func NewPaginationTrigger(logger *slog.Logger) *PaginationTrigger {
	return &PaginationTrigger{logger: logger}
}

// Evaluate returns the page to request, if any. It never asks while a load
// is in flight or before the user interacted, and asks at most once per
// direction until the source reports a new generation.
func (p *PaginationTrigger) Evaluate(edges Edges, userHasScrolled bool, st SourceState) LoadDirection {
	if st.Generation != p.generation {
		p.generation = st.Generation
		p.fired = LoadNone
	}
	if st.Loading() || !userHasScrolled {
		return LoadNone
	}
	var dir LoadDirection
	switch {
	case edges.AtTop && !st.HasLoadedOldest:
		dir = LoadOlder
	case edges.AtBottom && !st.HasLoadedNewest:
		dir = LoadNewer
	default:
		return LoadNone
	}
	if dir == p.fired {
		return LoadNone
	}
	p.fired = dir
	p.logger.Debug("Triggering page load", "direction", dir)
	return dir
}
