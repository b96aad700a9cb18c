package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"github.com/tloncorp/chatscroller/internal/scroller"
	"github.com/tloncorp/chatscroller/internal/tui/chat"
)

type inspectItem struct {
	ID       string  `json:"id"`
	Index    int     `json:"index"`
	Display  int     `json:"display"`
	Kind     string  `json:"kind"`
	Start    float64 `json:"start"`
	Size     float64 `json:"size"`
	Visible  bool    `json:"visible"`
	Author   string  `json:"author,omitempty"`
	Content  string  `json:"content,omitempty"`
	NewDay   bool    `json:"new_day,omitempty"`
	Measured bool    `json:"measured"`
}

type inspectOutput struct {
	Channel         string        `json:"channel"`
	Orientation     string        `json:"orientation"`
	Reading         string        `json:"reading"`
	Target          string        `json:"target"`
	Anchor          int           `json:"anchor"`
	Offset          float64       `json:"offset"`
	Viewport        float64       `json:"viewport"`
	Total           float64       `json:"total"`
	Count           int           `json:"count"`
	Empty           bool          `json:"empty"`
	AtTop           bool          `json:"at_top"`
	AtBottom        bool          `json:"at_bottom"`
	HasLoadedOldest bool          `json:"has_loaded_oldest"`
	HasLoadedNewest bool          `json:"has_loaded_newest"`
	Items           []inspectItem `json:"items"`
	Rows            []string      `json:"rows"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <channel>",
	Short: "Print the laid out chat view without a terminal",
	Long: heredoc.Doc(`
		Lay a channel out the way the chat view would, at a fixed size, and
		print the resulting frame: the items in the window with their
		positions, the scroll offset, the orientation and the rendered rows.
	`),
	Example: heredoc.Doc(`
		chatscroller inspect general --height 20

		# Where does a jump land?
		chatscroller inspect general --scroll-to 1.700.000.000 --format json
	`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		width, _ := cmd.Flags().GetInt("width")
		height, _ := cmd.Flags().GetInt("height")
		thread, _ := cmd.Flags().GetBool("thread")
		if width < 1 || height < 1 {
			return fmt.Errorf("--width and --height must be positive")
		}
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		scrollTo, err := scrollToFlag(cmd)
		if err != nil {
			return err
		}

		cfg, conn, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()

		src, err := openHistory(cmd.Context(), conn, cfg, args[0], scrollTo)
		if err != nil {
			return err
		}
		defer src.Close()

		m, err := chat.New(cmd.Context(), src, chat.Options{
			Channel:  args[0],
			Scroller: cfg.Scroller.Apply(chat.TerminalOptions()),
			Compact:  cfg.TUI.CompactMode,
			InThread: thread,
			ScrollTo: scrollTo,
		})
		if err != nil {
			return err
		}
		snap := m.Snapshot(width, height)

		w := cmd.OutOrStdout()
		if format == formatJSON {
			return writeJSON(w, newInspectOutput(args[0], snap))
		}
		return writeInspectText(w, snap, isTerminal(w))
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Int("width", 80, "Width in columns")
	inspectCmd.Flags().Int("height", 20, "Rows of posts")
	inspectCmd.Flags().String("scroll-to", "", "Lay out the channel at this post key")
	inspectCmd.Flags().Bool("thread", false, "Lay the channel out as a thread, oldest post first")
	inspectCmd.Flags().StringP("format", "f", "", "Output format (text, json)")
}

func newInspectOutput(channelID string, snap chat.Snapshot) inspectOutput {
	f := snap.Frame
	out := inspectOutput{
		Channel:         channelID,
		Orientation:     f.Orientation.String(),
		Reading:         f.Reading.String(),
		Target:          f.Target.String(),
		Anchor:          f.Anchor,
		Offset:          f.Offset,
		Viewport:        f.Viewport,
		Total:           f.Total,
		Count:           f.Count,
		Empty:           f.Empty,
		AtTop:           f.Edges.AtTop,
		AtBottom:        f.Edges.AtBottom,
		HasLoadedOldest: f.HasLoadedOldest,
		HasLoadedNewest: f.HasLoadedNewest,
		Items:           make([]inspectItem, 0, len(f.Items)),
		Rows:            make([]string, len(snap.Rows)),
	}
	for _, it := range f.Items {
		item := inspectItem{
			ID:       it.Entry.ID,
			Index:    it.Index,
			Display:  it.Display,
			Kind:     it.Entry.Kind.String(),
			Start:    it.Start,
			Size:     it.Size,
			Visible:  visible(f, it),
			NewDay:   it.Entry.NewDay,
			Measured: it.Measured,
		}
		if it.Entry.Post != nil {
			item.Author = it.Entry.Post.Author
			item.Content = it.Entry.Post.Content
		}
		out.Items = append(out.Items, item)
	}
	for i, row := range snap.Rows {
		out.Rows[i] = strings.TrimRight(ansi.Strip(row), " ")
	}
	return out
}

func visible(f scroller.Frame, it scroller.FrameItem) bool {
	return it.End() > f.Offset && it.Start < f.Offset+f.Viewport
}

func writeInspectText(w io.Writer, snap chat.Snapshot, styled bool) error {
	var b strings.Builder
	b.WriteString(snap.Frame.String())
	b.WriteString("\n")
	b.WriteString(strings.Join(snap.Debug.Lines(), "\n"))
	b.WriteString("\n\n")
	for _, row := range snap.Rows {
		if !styled {
			row = strings.TrimRight(ansi.Strip(row), " ")
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
