package scroller

import (
	"sort"
)

type Align int

const (
	AlignAuto Align = iota
	AlignStart
	AlignCenter
	AlignEnd
)

func (a Align) String() string {
	switch a {
	case AlignStart:
		return "start"
	case AlignCenter:
		return "center"
	case AlignEnd:
		return "end"
	}
	return "auto"
}

// VirtualItem is a positioned item in display space.
type VirtualItem struct {
	// Index is the display index.
	Index    int
	Key      string
	Start    float64
	Size     float64
	Measured bool
}

func (v VirtualItem) End() float64 {
	return v.Start + v.Size
}

type itemPosition struct {
	size     float64
	start    float64
	measured bool
}

// Virtualizer lays items out in display order and tracks which of them
// intersect the viewport. Sizes are cached by item key so they survive
// reordering and orientation flips.
type Virtualizer struct {
	estimate     float64
	gap          float64
	overscan     int
	paddingStart float64
	paddingEnd   float64

	viewport    float64
	offset      float64
	direction   ScrollDirection
	isScrolling bool

	inverted bool
	keys     []string // display order
	index    map[string]int
	sizes    map[string]float64

	// Layout, recalculated from dirtyFrom onward on demand.
	positions []itemPosition
	dirtyFrom int
	total     float64
}

func NewVirtualizer(estimate, gap float64, overscan int) *Virtualizer {
	return &Virtualizer{
		estimate: estimate,
		gap:      gap,
		overscan: overscan,
		index:    make(map[string]int),
		sizes:    make(map[string]float64),
	}
}

func (v *Virtualizer) Count() int {
	return len(v.keys)
}

func (v *Virtualizer) Inverted() bool {
	return v.inverted
}

// Transform maps a logical index to a display index and back. It is its own
// inverse for a fixed count and orientation.
func (v *Virtualizer) Transform(i int) int {
	if v.inverted {
		return len(v.keys) - 1 - i
	}
	return i
}

// SetItems replaces the item set. keys are in logical (oldest first) order.
// Measurements of keys that are no longer present are dropped.
func (v *Virtualizer) SetItems(keys []string, inverted bool) {
	display := make([]string, len(keys))
	for i, k := range keys {
		if inverted {
			display[len(keys)-1-i] = k
		} else {
			display[i] = k
		}
	}

	if inverted == v.inverted && equalKeys(display, v.keys) {
		return
	}

	v.inverted = inverted
	v.keys = display
	clear(v.index)
	for d, k := range display {
		v.index[k] = d
	}
	for k := range v.sizes {
		if _, ok := v.index[k]; !ok {
			delete(v.sizes, k)
		}
	}
	v.positions = make([]itemPosition, len(display))
	v.dirtyFrom = 0
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SetPadding reserves space before the first and after the last display item.
func (v *Virtualizer) SetPadding(start, end float64) {
	if start == v.paddingStart && end == v.paddingEnd {
		return
	}
	v.paddingStart = start
	v.paddingEnd = end
	v.dirtyFrom = 0
}

func (v *Virtualizer) Padding() (float64, float64) {
	return v.paddingStart, v.paddingEnd
}

func (v *Virtualizer) SetViewport(height float64) {
	if !finite(height) || height < 0 {
		return
	}
	v.viewport = height
}

func (v *Virtualizer) Viewport() float64 {
	return v.viewport
}

// SetOffset moves the engine's idea of the scroll position without touching
// the scroll direction.
func (v *Virtualizer) SetOffset(offset float64) {
	if !finite(offset) {
		return
	}
	v.offset = offset
}

func (v *Virtualizer) Offset() float64 {
	return v.offset
}

// ObserveOffset records an offset reported by the surface.
func (v *Virtualizer) ObserveOffset(offset float64, scrolling bool) {
	if !finite(offset) {
		return
	}
	v.isScrolling = scrolling
	switch {
	case !scrolling:
		v.direction = ScrollNone
	case offset > v.offset:
		v.direction = ScrollForward
	case offset < v.offset:
		v.direction = ScrollBackward
	}
	v.offset = offset
}

func (v *Virtualizer) ScrollDirection() ScrollDirection {
	return v.direction
}

func (v *Virtualizer) size(d int) (float64, bool) {
	if s, ok := v.sizes[v.keys[d]]; ok {
		return s, true
	}
	return v.estimate, false
}

// layout recalculates positions from the first dirty index onward.
func (v *Virtualizer) layout() {
	n := len(v.keys)
	if v.dirtyFrom >= n && n > 0 {
		return
	}
	start := v.paddingStart
	from := max(v.dirtyFrom, 0)
	if from > 0 {
		prev := v.positions[from-1]
		start = prev.start + prev.size + v.gap
	}
	for d := from; d < n; d++ {
		size, measured := v.size(d)
		v.positions[d] = itemPosition{size: size, start: start, measured: measured}
		start += size
		if d < n-1 {
			start += v.gap
		}
	}
	v.total = start + v.paddingEnd
	if n == 0 {
		v.total = 0
	}
	v.dirtyFrom = n
}

// ContentSize is the summed size of keys without padding, using cached
// measurements where available.
func (v *Virtualizer) ContentSize(keys []string) float64 {
	var total float64
	for i, k := range keys {
		if s, ok := v.sizes[k]; ok {
			total += s
		} else {
			total += v.estimate
		}
		if i < len(keys)-1 {
			total += v.gap
		}
	}
	return total
}

func (v *Virtualizer) TotalSize() float64 {
	v.layout()
	return v.total
}

// MaxOffset is the largest valid scroll offset.
func (v *Virtualizer) MaxOffset() float64 {
	return max(v.TotalSize()-v.viewport, 0)
}

// Item returns the positioned item at display index d, clamped into range.
func (v *Virtualizer) Item(d int) (VirtualItem, bool) {
	n := len(v.keys)
	if n == 0 {
		return VirtualItem{}, false
	}
	d = min(max(d, 0), n-1)
	v.layout()
	p := v.positions[d]
	return VirtualItem{Index: d, Key: v.keys[d], Start: p.start, Size: p.size, Measured: p.measured}, true
}

// IndexOf returns the display index of key.
func (v *Virtualizer) IndexOf(key string) (int, bool) {
	d, ok := v.index[key]
	return d, ok
}

// Measure records the rendered size of display index d. It returns the scroll
// adjustment needed to keep content still, which is non-zero only when the
// item starts above the current offset. Sizes that are negative or not
// finite are ignored.
func (v *Virtualizer) Measure(d int, size float64) float64 {
	if d < 0 || d >= len(v.keys) || !finite(size) || size < 0 {
		return 0
	}
	v.layout()
	key := v.keys[d]
	old := v.positions[d]
	v.sizes[key] = size
	if old.measured && old.size == size {
		return 0
	}

	delta := size - old.size
	v.positions[d].size = size
	v.positions[d].measured = true
	for i := d + 1; i < len(v.positions); i++ {
		v.positions[i].start += delta
	}
	v.total += delta

	if old.start < v.offset {
		return delta
	}
	return 0
}

// MeasureKey is Measure addressed by item key.
func (v *Virtualizer) MeasureKey(key string, size float64) float64 {
	d, ok := v.index[key]
	if !ok {
		return 0
	}
	return v.Measure(d, size)
}

// OffsetForIndex returns the scroll offset that brings display index d into
// view with the given alignment. Out of range indices are clamped and the
// result always lies within the scrollable range.
func (v *Virtualizer) OffsetForIndex(d int, align Align) float64 {
	item, ok := v.Item(d)
	if !ok {
		return 0
	}
	var to float64
	switch align {
	case AlignAuto:
		switch {
		case item.End() >= v.offset+v.viewport:
			to = item.End() - v.viewport
		case item.Start <= v.offset:
			to = item.Start
		default:
			to = v.offset
		}
	case AlignStart:
		to = item.Start
	case AlignCenter:
		to = item.Start + (item.Size-v.viewport)/2
	case AlignEnd:
		to = item.End() - v.viewport
	}
	return min(max(to, 0), v.MaxOffset())
}

// Range returns the first and last display indices intersecting the viewport,
// without overscan. ok is false when there are no items.
func (v *Virtualizer) Range() (first, last int, ok bool) {
	n := len(v.keys)
	if n == 0 {
		return 0, 0, false
	}
	v.layout()
	first = sort.Search(n, func(d int) bool {
		p := v.positions[d]
		return p.start+p.size > v.offset
	})
	first = min(first, n-1)
	end := v.offset + v.viewport
	last = first
	for last+1 < n && v.positions[last+1].start < end {
		last++
	}
	return first, last, true
}

// VirtualItems returns the items to render, including overscan.
func (v *Virtualizer) VirtualItems() []VirtualItem {
	first, last, ok := v.Range()
	if !ok {
		return nil
	}
	from := max(first-v.overscan, 0)
	to := min(last+v.overscan, len(v.keys)-1)
	items := make([]VirtualItem, 0, to-from+1)
	for d := from; d <= to; d++ {
		p := v.positions[d]
		items = append(items, VirtualItem{Index: d, Key: v.keys[d], Start: p.start, Size: p.size, Measured: p.measured})
	}
	return items
}
