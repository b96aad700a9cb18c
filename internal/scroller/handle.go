package scroller

// Location addresses an entry by logical index.
type Location struct {
	Index int
	// Last targets the newest entry regardless of Index.
	Last     bool
	Align    Align
	Behavior Behavior
}

// Handle is the imperative scrolling API exposed to the host.
type Handle interface {
	ScrollToIndex(loc Location)
	// ScrollIntoView scrolls like ScrollToIndex and calls done once the
	// settle delay has passed. done runs on the clock's goroutine.
	ScrollIntoView(loc Location, done func())
}

type handle struct {
	s *Scroller
}

func (h handle) ScrollToIndex(loc Location) {
	s := h.s
	n := s.engine.Count()
	if n == 0 {
		return
	}
	i := loc.Index
	if loc.Last {
		i = n - 1
	}
	i = min(max(i, 0), n-1)
	d := s.engine.Transform(i)
	offset := s.engine.OffsetForIndex(d, loc.Align)
	s.logger.Debug("Scrolling to index", "index", i, "display", d, "align", loc.Align, "offset", offset)

	// Jumps stop anchor following.
	s.userHasScrolled = true
	follow := s.followState()
	follow.Momentum = false
	s.coord.EngineScroll(ScrollRequest{Offset: offset, Behavior: loc.Behavior}, follow)
}

func (h handle) ScrollIntoView(loc Location, done func()) {
	h.ScrollToIndex(loc)
	if done != nil {
		h.s.clock.AfterFunc(h.s.opts.SettleDelay, done)
	}
}
