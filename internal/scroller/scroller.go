// Package scroller keeps a reader's place in an ordered, bidirectionally
// growing list of posts rendered through a fixed height viewport.
//
// A Scroller is driven from a single goroutine: the host reports scroll
// events and measurements, then calls Sync to get the frame to render.
package scroller

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tloncorp/chatscroller/internal/sortkey"
)

// ScrollEvent is an offset change reported by the surface.
type ScrollEvent struct {
	Offset float64
	// Scrolling is true while a gesture is in progress.
	Scrolling bool
	// Momentum is true while the surface coasts after the gesture ended.
	Momentum bool
	// User marks offsets caused by wheel, touch or key input.
	User bool
}

type Scroller struct {
	src     Source
	surface Surface
	opts    Options
	logger  *slog.Logger
	clock   Clock

	inThread  bool
	replying  bool
	topMarker bool

	engine *Virtualizer
	coord  *Coordinator
	infer  *DirectionInferencer
	pager  *PaginationTrigger

	target          *sortkey.Key
	userHasScrolled bool
	scrolling       bool
	momentum        bool

	orientation     Orientation
	lastOrientation Orientation
	loadDirection   LoadDirection

	window    Window
	anchor    int
	hasAnchor bool
	edges     Edges
	state     SourceState
	frame     Frame

	logged DebugState
}

func New(src Source, surface Surface, opts ...Option) (*Scroller, error) {
	cfg := config{
		opts:   DefaultOptions(),
		logger: slog.Default(),
		clock:  SystemClock,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.opts.Validate(); err != nil {
		return nil, err
	}
	if src == nil || surface == nil {
		return nil, fmt.Errorf("%w: source and surface are required", ErrInvalidOptions)
	}

	logger := cfg.logger.With("component", "scroller")
	engine := NewVirtualizer(cfg.opts.EstimateSize, cfg.opts.Gap, cfg.opts.Overscan)
	return &Scroller{
		src:           src,
		surface:       surface,
		opts:          cfg.opts,
		logger:        logger,
		clock:         cfg.clock,
		inThread:      cfg.inThread,
		replying:      cfg.replying,
		topMarker:     cfg.topMarker,
		engine:        engine,
		coord:         NewCoordinator(surface, engine, cfg.clock, cfg.opts, logger),
		infer:         NewDirectionInferencer(cfg.opts.DirectionNoise),
		pager:         NewPaginationTrigger(logger),
		loadDirection: LoadOlder,
	}, nil
}

// Handle returns the imperative scrolling API.
func (s *Scroller) Handle() Handle {
	return handle{s: s}
}

func (s *Scroller) Options() Options {
	return s.opts
}

// Frame returns the result of the last Sync.
func (s *Scroller) Frame() Frame {
	return s.frame
}

func (s *Scroller) Target() *sortkey.Key {
	return s.target
}

// SetScrollTo sets or clears the post to jump to. Setting a new target
// forgets that the user scrolled and how they were reading.
func (s *Scroller) SetScrollTo(key *sortkey.Key) {
	if sameTarget(s.target, key) {
		return
	}
	if key != nil && key.IsZero() {
		key = nil
	}
	s.target = key
	s.logger.Debug("Scroll target changed", "target", targetString(key))
	s.resetUserHasScrolled()
}

// JumpToLatest clears the target and follows the newest post again.
func (s *Scroller) JumpToLatest() {
	if s.target != nil {
		s.logger.Debug("Scroll target cleared")
	}
	s.target = nil
	s.resetUserHasScrolled()
}

func (s *Scroller) resetUserHasScrolled() {
	s.userHasScrolled = false
	s.infer.Reset()
}

func sameTarget(a, b *sortkey.Key) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	}
	return a.Equal(*b)
}

func targetString(k *sortkey.Key) string {
	if k == nil {
		return "none"
	}
	return k.String()
}

// OnUserScroll records a scroll gesture before the offset moves.
func (s *Scroller) OnUserScroll() {
	s.userHasScrolled = true
}

// OnScroll records an offset reported by the surface.
func (s *Scroller) OnScroll(ev ScrollEvent) {
	if ev.User {
		s.userHasScrolled = true
	}
	s.scrolling = ev.Scrolling
	s.momentum = ev.Momentum
	s.engine.SetViewport(s.surface.ViewportHeight())
	s.engine.ObserveOffset(ev.Offset, ev.Scrolling)

	edges := ComputeEdges(EdgeInput{
		Offset:    ev.Offset,
		Viewport:  s.engine.Viewport(),
		Total:     s.engine.TotalSize(),
		Threshold: s.opts.AtEndThreshold,
		Inverted:  s.orientation == Inverted,
	})
	changed := s.infer.Observe(ScrollSample{
		Offset:          ev.Offset,
		Scrolling:       ev.Scrolling,
		UserHasScrolled: s.userHasScrolled,
		Forcing:         s.coord.Forcing(),
		Orientation:     s.orientation,
		Direction:       s.engine.ScrollDirection(),
		AtExactEnd:      edges.AtExactEnd,
	})
	if changed {
		s.logger.Debug("Reading direction changed",
			"reading", s.infer.Reading(),
			"orientation", s.orientation,
			"direction", s.engine.ScrollDirection(),
		)
	}
}

// Measure records the rendered size of the entry with the given ID.
func (s *Scroller) Measure(id string, size float64) {
	adj := s.engine.MeasureKey(id, size)
	if adj == 0 {
		return
	}
	s.coord.EngineScroll(ScrollRequest{Offset: s.surface.ScrollOffset(), Adjustment: adj}, s.followState())
}

func (s *Scroller) followState() FollowState {
	return FollowState{
		Anchor:          s.anchor,
		HasAnchor:       s.hasAnchor,
		UserHasScrolled: s.userHasScrolled,
		Scrolling:       s.scrolling,
		Momentum:        s.momentum,
	}
}

// Sync runs one update cycle: select the window, resolve the anchor, decide
// the orientation, lay out, rebase after a flip, follow the anchor, compute
// edges and trigger pagination. It returns the frame to render.
func (s *Scroller) Sync() Frame {
	st := s.src.State()
	s.state = st
	s.trackLoadDirection(st)

	s.window = SelectWindow(WindowRequest{
		Slots:           st.Slots,
		HasLoadedOldest: st.HasLoadedOldest,
		HasLoadedNewest: st.HasLoadedNewest,
		Target:          s.target,
		TopMarker:       s.topMarker,
		Replying:        s.replying,
	})
	ids := s.window.IDs()
	if s.window.Len() == 0 {
		s.infer.Reset()
	}
	s.anchor, s.hasAnchor = ResolveAnchor(s.window, s.target)

	viewport := s.surface.ViewportHeight()
	offset := s.surface.ScrollOffset()
	s.engine.SetViewport(viewport)
	s.engine.SetOffset(offset)

	empty := s.window.Len() == 0 && st.HasLoadedNewest && st.HasLoadedOldest
	s.orientation = ComputeOrientation(OrientationInput{
		Empty:           empty,
		UserHasScrolled: s.userHasScrolled,
		Reading:         s.infer.Reading(),
		ViewportKnown:   viewport > 0,
		Scrollable:      s.engine.ContentSize(ids) > viewport,
		HasTarget:       s.target != nil,
		InThread:        s.inThread,
	})
	inverted := s.orientation == Inverted
	// Nothing was on screen, so there is no position to keep.
	if s.engine.Count() == 0 {
		s.lastOrientation = s.orientation
	}

	s.engine.SetPadding(s.loaderPadding(st, inverted))
	s.engine.SetItems(ids, inverted)

	if s.orientation != s.lastOrientation && !st.Loading() {
		s.coord.Flip(s.engine.TotalSize(), offset, viewport)
		s.lastOrientation = s.orientation
	}

	if s.hasAnchor && !s.userHasScrolled && !s.coord.Forcing() {
		if want := s.coord.AnchorOffset(s.anchor); abs(want-s.surface.ScrollOffset()) > epsilon {
			s.coord.ScrollToAnchor(s.anchor)
		}
	}

	s.edges = ComputeEdges(EdgeInput{
		Offset:    s.surface.ScrollOffset(),
		Viewport:  viewport,
		Total:     s.engine.TotalSize(),
		Threshold: s.opts.AtEndThreshold,
		Inverted:  inverted,
		Forcing:   s.coord.Forcing(),
	})

	switch s.pager.Evaluate(s.edges, s.userHasScrolled, st) {
	case LoadOlder:
		s.logger.Debug("Triggering load of older posts")
		s.src.LoadOlder()
	case LoadNewer:
		s.logger.Debug("Triggering load of newer posts")
		s.src.LoadNewer()
	}

	s.frame = s.buildFrame(empty)
	s.logChanges()
	return s.frame
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (s *Scroller) trackLoadDirection(st SourceState) {
	switch {
	case st.IsLoadingOlder && s.loadDirection != LoadOlder:
		s.loadDirection = LoadOlder
	case st.IsLoadingNewer && s.loadDirection != LoadNewer:
		s.loadDirection = LoadNewer
	}
}

// loaderPadding reserves room for the loaders. Older posts load at the top
// of the screen and newer ones at the bottom; the top is the display start
// unless inverted.
func (s *Scroller) loaderPadding(st SourceState, inverted bool) (start, end float64) {
	pad := s.opts.LoaderPadding
	var top, bottom float64
	if st.IsLoadingOlder {
		top = pad.Top
	}
	if st.IsLoadingNewer {
		bottom = pad.Bottom
	}
	if inverted {
		return bottom, top
	}
	return top, bottom
}

func (s *Scroller) buildFrame(empty bool) Frame {
	f := Frame{
		Offset:          s.surface.ScrollOffset(),
		Viewport:        s.engine.Viewport(),
		Total:           s.engine.TotalSize(),
		Orientation:     s.orientation,
		Reading:         s.infer.Reading(),
		Direction:       s.engine.ScrollDirection(),
		Count:           s.window.Len(),
		Target:          s.window.Target,
		Anchor:          -1,
		Edges:           s.edges,
		Empty:           empty,
		UserHasScrolled: s.userHasScrolled,
		Forcing:         s.coord.Forcing(),
		ForcingUntil:    s.coord.ForcingUntil(),
		HasLoadedOldest: s.state.HasLoadedOldest,
		HasLoadedNewest: s.state.HasLoadedNewest,
		LoadingOlder:    s.state.IsLoadingOlder,
		LoadingNewer:    s.state.IsLoadingNewer,
	}
	if s.hasAnchor {
		f.Anchor = s.anchor
	}
	f.PaddingStart, f.PaddingEnd = s.engine.Padding()
	for _, vi := range s.engine.VirtualItems() {
		i := s.engine.Transform(vi.Index)
		f.Items = append(f.Items, FrameItem{
			Entry:    s.window.Entries[i],
			Index:    i,
			Display:  vi.Index,
			Start:    vi.Start,
			Size:     vi.Size,
			Measured: vi.Measured,
		})
	}
	return f
}

// Debug returns the state shown by the dev tools overlay.
func (s *Scroller) Debug() DebugState {
	f := s.frame
	return DebugState{
		Count:           f.Count,
		Offset:          f.Offset,
		ScrollHeight:    f.Total,
		Viewport:        f.Viewport,
		Direction:       f.Direction,
		Orientation:     f.Orientation,
		Reading:         f.Reading,
		Anchor:          f.Anchor,
		AtTop:           f.Edges.AtTop,
		AtBottom:        f.Edges.AtBottom,
		UserHasScrolled: f.UserHasScrolled,
		Forcing:         f.Forcing,
		LoadingOlder:    f.LoadingOlder,
		LoadingNewer:    f.LoadingNewer,
		HasLoadedOldest: f.HasLoadedOldest,
		HasLoadedNewest: f.HasLoadedNewest,
		LoadDirection:   s.loadDirection,
	}
}

// logChanges logs the state fields that changed since the last cycle.
func (s *Scroller) logChanges() {
	next := s.Debug()
	prev := s.logged
	s.logged = next
	var attrs []any
	before := prev.fields()
	for i, f := range next.fields() {
		if before[i].value != f.value {
			attrs = append(attrs, f.name, fmt.Sprint(f.value))
		}
	}
	if len(attrs) == 0 {
		return
	}
	s.logger.Debug("Scroller state changed", attrs...)
}

// Now exposes the scroller's clock to hosts that schedule follow-up syncs.
func (s *Scroller) Now() time.Time {
	return s.clock.Now()
}
