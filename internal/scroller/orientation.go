package scroller

import "math"

// Orientation is the mapping between logical and display order. Natural
// lists oldest first from the top; inverted lists newest first from the
// bottom.
type Orientation int

const (
	Natural Orientation = iota
	Inverted
)

func (o Orientation) String() string {
	if o == Inverted {
		return "inverted"
	}
	return "natural"
}

type ReadingDirection int

const (
	ReadingUnknown ReadingDirection = iota
	// ReadingUp means the user is reading towards older posts.
	ReadingUp
	// ReadingDown means the user is reading towards newer posts.
	ReadingDown
)

func (r ReadingDirection) String() string {
	switch r {
	case ReadingUp:
		return "up"
	case ReadingDown:
		return "down"
	}
	return "unknown"
}

// ScrollDirection is the direction of the last offset change in display
// space. Forward means the offset grew.
type ScrollDirection int

const (
	ScrollNone ScrollDirection = iota
	ScrollForward
	ScrollBackward
)

func (d ScrollDirection) String() string {
	switch d {
	case ScrollForward:
		return "forward"
	case ScrollBackward:
		return "backward"
	}
	return "none"
}

type OrientationInput struct {
	Empty           bool
	UserHasScrolled bool
	Reading         ReadingDirection
	// ViewportKnown is false until the surface reported a height.
	ViewportKnown bool
	Scrollable    bool
	HasTarget     bool
	InThread      bool
}

// ComputeOrientation decides the display order. The first matching rule wins.
func ComputeOrientation(in OrientationInput) Orientation {
	switch {
	case in.Empty:
		return Natural
	case in.UserHasScrolled && in.Reading == ReadingDown:
		return Natural
	case in.UserHasScrolled && in.Reading == ReadingUp:
		return Inverted
	case in.ViewportKnown && !in.Scrollable:
		return Inverted
	case in.HasTarget && !in.InThread:
		return Natural
	}
	return Inverted
}

type ScrollSample struct {
	Offset          float64
	Scrolling       bool
	UserHasScrolled bool
	Forcing         bool
	Orientation     Orientation
	Direction       ScrollDirection
	AtExactEnd      bool
}

// DirectionInferencer tracks which way the user is reading from raw offset
// samples.
type DirectionInferencer struct {
	noise   float64
	last    float64
	hasLast bool
	reading ReadingDirection
}

func NewDirectionInferencer(noise float64) *DirectionInferencer {
	return &DirectionInferencer{noise: noise}
}

func (d *DirectionInferencer) Reading() ReadingDirection {
	return d.reading
}

func (d *DirectionInferencer) Reset() {
	d.reading = ReadingUnknown
	d.hasLast = false
}

// Observe feeds one offset sample and reports whether the reading direction
// changed. The baseline only moves while the user is scrolling.
func (d *DirectionInferencer) Observe(s ScrollSample) bool {
	if !d.hasLast {
		d.last = s.Offset
		d.hasLast = true
	}
	change := math.Abs(s.Offset - d.last)
	if s.Scrolling {
		d.last = s.Offset
	}
	if !s.UserHasScrolled || s.Forcing || change <= d.noise {
		return false
	}

	next := d.reading
	if s.Orientation == Inverted {
		switch s.Direction {
		case ScrollBackward:
			next = ReadingDown
		case ScrollForward:
			next = ReadingUp
		}
	} else {
		switch s.Direction {
		case ScrollBackward:
			next = ReadingUp
		case ScrollForward:
			next = ReadingDown
		case ScrollNone:
			if s.AtExactEnd {
				next = ReadingUp
			}
		}
	}
	if next == d.reading {
		return false
	}
	d.reading = next
	return true
}
