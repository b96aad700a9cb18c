package chat

import (
	"math"

	"github.com/tloncorp/chatscroller/internal/scroller"
)

// RowSurface is a scroll surface measured in terminal rows. Offsets are
// whole rows; a terminal cannot animate, so every behavior is instant.
type RowSurface struct {
	offset float64
	height float64
}

var (
	_ scroller.Surface   = (*RowSurface)(nil)
	_ scroller.Quantizer = (*RowSurface)(nil)
)

func (s *RowSurface) ScrollOffset() float64 {
	return s.offset
}

func (s *RowSurface) ViewportHeight() float64 {
	return s.height
}

func (s *RowSurface) ScrollTo(offset float64, _ scroller.Behavior) {
	s.offset = s.Quantize(offset)
}

// Quantize snaps offset to the nearest whole row.
func (s *RowSurface) Quantize(offset float64) float64 {
	return max(math.Round(offset), 0)
}

func (s *RowSurface) SetHeight(rows int) {
	s.height = float64(max(rows, 0))
}

// Scroll moves the offset by delta rows within [0, limit]. It returns the
// new offset and whether it changed.
func (s *RowSurface) Scroll(delta, limit float64) (float64, bool) {
	next := min(max(s.offset+delta, 0), max(limit, 0))
	if next == s.offset {
		return next, false
	}
	s.offset = next
	return next, true
}
