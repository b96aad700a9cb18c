package chat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/rivo/uniseg"
	"github.com/tloncorp/chatscroller/internal/csync"
	"github.com/tloncorp/chatscroller/internal/scroller"
	"github.com/tloncorp/chatscroller/internal/tui/styles"
)

const (
	// compactGutter is the width of the author column in compact mode.
	compactGutter = 12
	indent        = 2

	loadingOlderText = "Loading Older"
	loadingNewerText = "Loading Newer"
	emptyText        = "There are no messages in this channel"
	topMarkerText    = "beginning of channel"
	tombstoneText    = "message deleted"
)

// renderer turns window entries into terminal lines and caches the result
// per entry, content hash and width.
type renderer struct {
	width   int
	compact bool
	cache   *csync.Map[string, string]
}

func newRenderer(compact bool) *renderer {
	return &renderer{
		compact: compact,
		cache:   csync.NewMap[string, string](),
	}
}

func (r *renderer) setWidth(width int) {
	if width == r.width {
		return
	}
	r.width = width
	r.cache.Reset()
}

func (r *renderer) cacheKey(e scroller.Entry, highlighted bool) string {
	var hash uint64
	if e.Post != nil {
		hash = e.Post.Hash()
	}
	return fmt.Sprintf("%s:%x:%d:%t:%t:%t:%t:%t", e.ID, hash, r.width, e.Kind == scroller.EntryTombstone, e.NewAuthor, e.NewDay, e.Reply, highlighted)
}

// lines renders e top to bottom. The result always has at least one line.
func (r *renderer) lines(e scroller.Entry, highlighted bool) []string {
	key := r.cacheKey(e, highlighted)
	view, ok := r.cache.Get(key)
	if !ok {
		view = r.render(e, highlighted)
		r.cache.Set(key, view)
	}
	return strings.Split(view, "\n")
}

func (r *renderer) render(e scroller.Entry, highlighted bool) string {
	t := styles.CurrentTheme()
	width := max(r.width, indent+1)

	switch e.Kind {
	case scroller.EntryTopMarker:
		return divider(topMarkerText, width, t.S().Divider)
	case scroller.EntryTombstone:
		return strings.Repeat(" ", indent) + t.S().Tombstone.Render(tombstoneText)
	}

	p := e.Post
	var parts []string
	if e.NewDay {
		parts = append(parts, divider(p.SentAt.Format("Mon, Jan 2 2006"), width, t.S().Divider))
	}

	var body string
	if r.compact {
		name := ansi.Truncate(p.Author, compactGutter-1, "…")
		name += strings.Repeat(" ", max(compactGutter-uniseg.StringWidth(name), 1))
		text := ansi.Wrap(p.Content, max(width-compactGutter, 1), "")
		body = lipgloss.JoinHorizontal(lipgloss.Top, t.S().Author.Render(name), t.S().Content.Render(text))
	} else {
		if e.NewAuthor {
			header := t.S().Author.Render(p.Author) + " " + t.S().Timestamp.Render(p.SentAt.Format("15:04"))
			if p.Edited() {
				header += t.S().Timestamp.Render(" (edited)")
			}
			parts = append(parts, header)
		}
		text := ansi.Wrap(p.Content, max(width-indent, 1), "")
		body = lipgloss.NewStyle().PaddingLeft(indent).Render(t.S().Content.Render(text))
	}
	if e.Reply {
		body = t.S().Reply.Render(body)
	}
	if highlighted {
		body = t.S().Highlighted.Width(width).Render(body)
	}
	parts = append(parts, body)
	return strings.Join(parts, "\n")
}

func divider(label string, width int, style lipgloss.Style) string {
	label = " " + label + " "
	side := max((width-uniseg.StringWidth(label))/2, 2)
	line := strings.Repeat("─", side) + label + strings.Repeat("─", side)
	return style.Render(ansi.Truncate(line, width, ""))
}

// viewport lays the frame out into exactly height lines. Items are placed at
// their display positions; inverted frames are flipped so that display
// offset zero sits at the bottom of the screen, each item keeping its own
// top to bottom line order. The entry at logical index highlight is drawn
// highlighted.
func (r *renderer) viewport(f scroller.Frame, height, highlight int) []string {
	rows := make([]string, height)
	if height == 0 {
		return rows
	}
	t := styles.CurrentTheme()
	offset := int(f.Offset)

	place := func(start int, lines []string) {
		for i, line := range lines {
			row := start + i - offset
			if row >= 0 && row < height {
				rows[row] = line
			}
		}
	}

	if f.Empty {
		rows[height/2] = centered(t.S().Empty.Render(emptyText), r.width)
		return rows
	}

	for _, it := range f.Items {
		lines := r.lines(it.Entry, it.Index == highlight)
		if f.Inverted() {
			lines = slices.Clone(lines)
			slices.Reverse(lines)
		}
		place(int(it.Start), lines)
	}

	// Loaders are drawn in the rows reserved for them, next to the posts.
	startText, endText := loadingOlderText, loadingNewerText
	if f.Inverted() {
		startText, endText = endText, startText
	}
	if f.LoadingAtStart() && f.PaddingStart >= 1 {
		place(int(f.PaddingStart)-1, []string{centered(t.S().Loader.Render(startText), r.width)})
	}
	if f.LoadingAtEnd() && f.PaddingEnd >= 1 {
		place(int(f.Total-f.PaddingEnd), []string{centered(t.S().Loader.Render(endText), r.width)})
	}

	if f.Inverted() {
		slices.Reverse(rows)
	}
	return rows
}

func centered(s string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
}
