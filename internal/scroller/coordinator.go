package scroller

import (
	"log/slog"
	"math"
	"time"
)

type Behavior int

const (
	BehaviorAuto Behavior = iota
	BehaviorInstant
	BehaviorSmooth
)

// Surface is the scrollable element the scroller drives.
type Surface interface {
	ScrollOffset() float64
	ViewportHeight() float64
	ScrollTo(offset float64, behavior Behavior)
}

// Quantizer is implemented by surfaces that can only hold some offsets, such
// as whole terminal rows. Offsets are snapped before they are written, so
// the offset the scroller wants is the offset the surface ends up holding.
type Quantizer interface {
	Quantize(offset float64) float64
}

// ScrollRequest is a scroll the engine wants to perform, either to reach an
// index or to compensate for an item above the viewport changing size.
type ScrollRequest struct {
	Offset     float64
	Adjustment float64
	Behavior   Behavior
}

// FollowState is what the coordinator needs to know about the user when
// deciding whether to honour a request.
type FollowState struct {
	Anchor          int
	HasAnchor       bool
	UserHasScrolled bool
	Scrolling       bool
	Momentum        bool
}

// Coordinator owns every write to the surface's scroll offset. After a
// forced scroll it stays in the forcing state until the cooldown expires.
type Coordinator struct {
	surface        Surface
	engine         *Virtualizer
	clock          Clock
	cooldown       time.Duration
	momentumSettle float64
	logger         *slog.Logger

	until time.Time
}

func NewCoordinator(surface Surface, engine *Virtualizer, clock Clock, opts Options, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		surface:        surface,
		engine:         engine,
		clock:          clock,
		cooldown:       opts.ForceScrollCooldown,
		momentumSettle: opts.MomentumSettle,
		logger:         logger,
	}
}

// Forcing reports whether a forced scroll is still cooling down.
func (c *Coordinator) Forcing() bool {
	return c.clock.Now().Before(c.until)
}

// ForcingUntil is the end of the current cooldown.
func (c *Coordinator) ForcingUntil() time.Time {
	return c.until
}

func (c *Coordinator) clamp(offset float64) float64 {
	if !finite(offset) {
		return c.engine.Offset()
	}
	offset = min(max(offset, 0), c.engine.MaxOffset())
	if q, ok := c.surface.(Quantizer); ok {
		offset = q.Quantize(offset)
	}
	return offset
}

// ForceScroll writes offset straight to the surface. While cooling down it
// is a no-op unless bypass is set. It reports whether the write happened.
func (c *Coordinator) ForceScroll(offset float64, bypass bool) bool {
	if c.Forcing() && !bypass {
		return false
	}
	offset = c.clamp(offset)
	c.logger.Debug("Force scrolling", "offset", offset, "bypass", bypass)
	c.until = c.clock.Now().Add(c.cooldown)
	c.engine.SetOffset(offset)
	c.surface.ScrollTo(offset, BehaviorInstant)
	return true
}

// AnchorOffset is where ScrollToAnchor would scroll for logical index anchor.
func (c *Coordinator) AnchorOffset(anchor int) float64 {
	// The newest entry stays pinned flush to the trailing edge.
	if anchor == c.engine.Count()-1 {
		if c.engine.Inverted() {
			return 0
		}
		return c.engine.MaxOffset()
	}
	d := c.engine.Transform(anchor)
	offset := c.engine.OffsetForIndex(d, AlignCenter)
	if item, ok := c.engine.Item(d); ok {
		offset += item.Size / 2
	}
	return c.clamp(offset)
}

// ScrollToAnchor force scrolls so the anchor is centred.
func (c *Coordinator) ScrollToAnchor(anchor int) bool {
	if c.engine.Count() == 0 {
		return false
	}
	offset := c.AnchorOffset(anchor)
	c.logger.Debug("Scrolling to anchor", "anchor", anchor, "offset", offset)
	return c.ForceScroll(offset, false)
}

// Rebase converts an offset measured in one orientation into the offset
// that shows the same content in the other.
func Rebase(total, offset, viewport float64) float64 {
	return max((total-offset)-viewport, 0)
}

// Flip force scrolls to the rebased offset, ignoring the cooldown.
func (c *Coordinator) Flip(total, offset, viewport float64) float64 {
	next := Rebase(total, offset, viewport)
	c.logger.Debug("Inverting chat scroller", "from", offset, "to", next)
	c.ForceScroll(next, true)
	return next
}

// EngineScroll honours or overrides a scroll the engine asked for.
func (c *Coordinator) EngineScroll(req ScrollRequest, st FollowState) {
	// Small corrections are dropped while the surface coasts after a manual
	// scroll.
	if st.Momentum && st.Scrolling && st.UserHasScrolled && math.Abs(req.Adjustment) <= c.momentumSettle {
		return
	}
	if st.HasAnchor && !st.UserHasScrolled && !c.Forcing() {
		c.ScrollToAnchor(st.Anchor)
		return
	}
	offset := req.Offset
	// Only positive adjustments larger than one unit are applied.
	if req.Adjustment > 1 {
		offset += req.Adjustment
	}
	offset = c.clamp(offset)
	c.engine.SetOffset(offset)
	c.surface.ScrollTo(offset, req.Behavior)
}
