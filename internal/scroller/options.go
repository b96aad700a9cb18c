package scroller

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

var ErrInvalidOptions = errors.New("invalid scroller options")

// Padding is space reserved before and after the items, in visual terms.
// Top is held while older posts load and Bottom while newer posts load.
type Padding struct {
	Top    float64
	Bottom float64
}

// Options tunes the scroller. All sizes are in surface units (pixels in a
// browser, rows in a terminal).
type Options struct {
	// Overscan is the number of items rendered beyond each viewport edge.
	Overscan int
	// AtEndThreshold is how close to an edge the viewport must be to count
	// as being at that edge. It is capped at half the scrollable range.
	AtEndThreshold float64
	// ForceScrollCooldown suppresses further forced scrolls after one fires.
	ForceScrollCooldown time.Duration
	// SettleDelay is how long ScrollIntoView waits before reporting done.
	SettleDelay time.Duration
	// DirectionNoise is the minimum travel between samples before the
	// reading direction may change.
	DirectionNoise float64
	// EstimateSize is the assumed size of items that were never measured.
	EstimateSize float64
	Gap          float64
	// LoaderPadding is reserved while a page load is in flight.
	LoaderPadding Padding
	// MomentumSettle is the largest layout correction dropped while the
	// surface is coasting after a manual scroll.
	MomentumSettle float64
}

func DefaultOptions() Options {
	return Options{
		Overscan:            6,
		AtEndThreshold:      2000,
		ForceScrollCooldown: 300 * time.Millisecond,
		SettleDelay:         500 * time.Millisecond,
		DirectionNoise:      30,
		EstimateSize:        100,
		LoaderPadding:       Padding{Top: 40, Bottom: 0},
		MomentumSettle:      50,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (o Options) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(o.Overscan >= 0, "overscan must not be negative, got %d", o.Overscan)
	check(finite(o.AtEndThreshold) && o.AtEndThreshold >= 0, "at end threshold must be a non-negative number, got %v", o.AtEndThreshold)
	check(o.ForceScrollCooldown >= 0, "force scroll cooldown must not be negative, got %s", o.ForceScrollCooldown)
	check(o.SettleDelay >= 0, "settle delay must not be negative, got %s", o.SettleDelay)
	check(finite(o.DirectionNoise) && o.DirectionNoise >= 0, "direction noise must be a non-negative number, got %v", o.DirectionNoise)
	check(finite(o.EstimateSize) && o.EstimateSize > 0, "estimate size must be positive, got %v", o.EstimateSize)
	check(finite(o.Gap) && o.Gap >= 0, "gap must be a non-negative number, got %v", o.Gap)
	check(finite(o.LoaderPadding.Top) && o.LoaderPadding.Top >= 0, "top loader padding must be a non-negative number, got %v", o.LoaderPadding.Top)
	check(finite(o.LoaderPadding.Bottom) && o.LoaderPadding.Bottom >= 0, "bottom loader padding must be a non-negative number, got %v", o.LoaderPadding.Bottom)
	check(finite(o.MomentumSettle) && o.MomentumSettle >= 0, "momentum settle must be a non-negative number, got %v", o.MomentumSettle)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(errs...))
}

type config struct {
	opts      Options
	logger    *slog.Logger
	clock     Clock
	inThread  bool
	replying  bool
	topMarker bool
}

type Option func(*config)

// WithOptions replaces the default tuning.
func WithOptions(o Options) Option {
	return func(c *config) {
		c.opts = o
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func WithClock(clock Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithInThread marks the list as a reply thread. Threads stay bottom-up even
// when jumping to a specific post.
func WithInThread(inThread bool) Option {
	return func(c *config) {
		c.inThread = inThread
	}
}

// WithReplying marks every entry as a reply.
func WithReplying(replying bool) Option {
	return func(c *config) {
		c.replying = replying
	}
}

// WithTopMarker prepends a marker entry once the oldest page is loaded.
func WithTopMarker() Option {
	return func(c *config) {
		c.topMarker = true
	}
}
