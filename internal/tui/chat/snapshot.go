package chat

import (
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/tloncorp/chatscroller/internal/scroller"
)

// maxSnapshotLoads bounds the page loads a snapshot waits for.
const maxSnapshotLoads = 8

// Snapshot is the laid out chat view at one moment.
type Snapshot struct {
	Frame scroller.Frame
	Debug scroller.DebugState
	// Rows are the styled viewport rows, top to bottom.
	Rows []string
}

// Snapshot lays the view out with height rows of posts, without a terminal.
// Pages requested while laying out are loaded before it returns.
func (m *Model) Snapshot(width, height int) Snapshot {
	m.Update(tea.WindowSizeMsg{Width: width, Height: height + 1 + m.footerHeight()})
	for range maxSnapshotLoads {
		count := m.frame.Count
		m.src.Wait()
		m.sync()
		if m.frame.Count == count && !m.frame.LoadingOlder && !m.frame.LoadingNewer {
			break
		}
	}
	return Snapshot{
		Frame: m.frame,
		Debug: m.sc.Debug(),
		Rows:  m.rows.viewport(m.frame, m.chatHeight(), m.highlight(m.frame)),
	}
}
