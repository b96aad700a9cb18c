package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"github.com/tloncorp/chatscroller/internal/search"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

const searchPreviewWidth = 60

type searchHit struct {
	Key     string `json:"key"`
	Author  string `json:"author"`
	SentAt  string `json:"sent_at"`
	Content string `json:"content"`
	Score   int    `json:"score"`
	Matched []int  `json:"matched,omitempty"`
}

var searchCmd = &cobra.Command{
	Use:   "search <channel> [query]",
	Short: "Search the posts of a channel",
	Long: heredoc.Doc(`
		Fuzzy search the posts of a channel, best matches first. Queries are
		remembered per channel and shared with the search prompt of the chat
		view. Without a query the remembered queries are listed.
	`),
	Example: heredoc.Doc(`
		chatscroller search general "moon landing"

		# Open the view at the best match
		chatscroller general --scroll-to "$(chatscroller search general moon --format json | jq -r '.[0].key')"
	`),
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		cfg, svc, done, err := createChannelService(cmd)
		if err != nil {
			return err
		}
		defer done()

		history, err := search.Load(cfg.Options.DataDirectory)
		if err != nil {
			return fmt.Errorf("failed to load search history: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(args) == 1 {
			queries := history.Queries(args[0])
			if format == formatJSON {
				return writeJSON(w, queries)
			}
			for _, q := range queries {
				fmt.Fprintln(w, q)
			}
			return nil
		}

		posts, err := svc.ListAll(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		results := search.Find(posts, args[1], limit)

		keys := make([]sortkey.Key, len(results))
		hits := make([]searchHit, len(results))
		for i, r := range results {
			keys[i] = r.Post.Key
			hits[i] = searchHit{
				Key:     r.Post.Key.UD(),
				Author:  r.Post.Author,
				SentAt:  formatTimestamp(r.Post.SentAt),
				Content: r.Post.Content,
				Score:   r.Score,
				Matched: r.Matched,
			}
		}
		history.Record(args[0], args[1], keys)
		if err := history.Save(cfg.Options.DataDirectory); err != nil {
			return fmt.Errorf("failed to save search history: %w", err)
		}

		if format == formatJSON {
			return writeJSON(w, hits)
		}
		return writeHits(w, hits)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntP("limit", "n", 20, "Maximum number of results")
	searchCmd.Flags().StringP("format", "f", "", "Output format (text, json)")
}

func writeHits(w io.Writer, hits []searchHit) error {
	if len(hits) == 0 {
		_, err := fmt.Fprintln(w, "No posts found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, h := range hits {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.Key, h.SentAt, h.Author, ansi.Truncate(h.Content, searchPreviewWidth, "…"))
	}
	return tw.Flush()
}
