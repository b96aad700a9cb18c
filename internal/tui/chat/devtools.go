package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/tloncorp/chatscroller/internal/scroller"
	"github.com/tloncorp/chatscroller/internal/tui/styles"
)

// devToolsOverlay draws the scroller state in a box over the top right
// corner of view.
func devToolsOverlay(view string, width, height int, state scroller.DebugState) string {
	t := styles.CurrentTheme()
	box := t.S().DevTools.Render(strings.Join(state.Lines(), "\n"))

	area := uv.Rect(0, 0, width, height)
	scr := uv.NewScreenBuffer(area.Dx(), area.Dy())
	uv.NewStyledString(view).Draw(scr, area)

	bw, bh := lipgloss.Width(box), lipgloss.Height(box)
	boxArea := uv.Rect(max(width-bw, 0), 0, min(bw, width), min(bh, height))
	uv.NewStyledString(box).Draw(scr, boxArea)
	return scr.Render()
}
