package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tloncorp/chatscroller/internal/channel"
	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

var errSkipLine = errors.New("blank line")

var ingestCmd = &cobra.Command{
	Use:   "ingest <channel> <file.jsonl>",
	Short: "Import posts from a JSON lines feed",
	Long: heredoc.Doc(`
		Import posts from a file with one JSON object per line:

		  {"author": "~zod", "content": "hi", "sent_at": "2025-03-14T09:00:00Z", "key": "1.700.000.000"}

		"sent_at" is an RFC 3339 time or unix milliseconds and defaults to
		now. "key" defaults to the send time. "id", "edited_at" and
		"reply_to" are optional. A line with "deleted": true deletes the post
		with its key.

		With --follow the file is watched and lines appended to it are
		imported as they arrive, until interrupted.
	`),
	Example: heredoc.Doc(`
		chatscroller ingest general export.jsonl

		# Keep a running chat view fed from a growing log
		chatscroller ingest general feed.jsonl --follow
	`),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")

		_, svc, done, err := createChannelService(cmd)
		if err != nil {
			return err
		}
		defer done()

		stored, err := ingestFile(cmd.Context(), svc, args[0], args[1], follow)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d posts into %s\n", stored, args[0])
		return err
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolP("follow", "f", false, "Keep importing lines appended to the file")
}

func ingestFile(ctx context.Context, svc channel.Service, channelID, path string, follow bool) (int, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer t.Cleanup()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go logPostEvents(svc.Subscribe(ctx))
	go func() {
		<-ctx.Done()
		_ = t.Stop()
	}()

	stored := 0
	lineNo := 0
	for line := range t.Lines {
		lineNo++
		if line.Err != nil {
			return stored, fmt.Errorf("failed to read %s: %w", path, line.Err)
		}
		rec, err := parseLine(channelID, line.Text, time.Now())
		if errors.Is(err, errSkipLine) {
			continue
		}
		if err != nil {
			slog.Warn("Skipping line", "line", lineNo, "error", err)
			continue
		}
		if rec.deleted {
			if err := svc.Delete(ctx, channelID, rec.post.Key); err != nil {
				slog.Warn("Failed to delete post", "line", lineNo, "key", rec.post.Key, "error", err)
			}
			continue
		}
		if _, err := svc.Save(ctx, rec.post); err != nil {
			if ctx.Err() != nil {
				break
			}
			return stored, fmt.Errorf("line %d: %w", lineNo, err)
		}
		stored++
	}
	if ctx.Err() != nil && follow {
		return stored, nil
	}
	return stored, ctx.Err()
}

type record struct {
	post    message.Post
	deleted bool
}

// parseLine reads one feed line. now stands in for a missing send time.
func parseLine(channelID, line string, now time.Time) (record, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return record{}, errSkipLine
	}
	if !gjson.Valid(line) {
		return record{}, fmt.Errorf("invalid JSON")
	}
	r := gjson.Parse(line)

	sent, err := parseTime(r.Get("sent_at"))
	if err != nil {
		return record{}, fmt.Errorf("sent_at: %w", err)
	}
	if sent.IsZero() {
		sent = now
	}
	if sent.Before(time.Unix(0, 0)) {
		return record{}, fmt.Errorf("sent_at: %s is before 1970", sent.Format(time.RFC3339))
	}

	p := message.Post{
		ID:        r.Get("id").String(),
		ChannelID: channelID,
		Author:    r.Get("author").String(),
		Content:   r.Get("content").String(),
		SentAt:    sent,
	}
	if k := r.Get("key"); k.Exists() {
		if p.Key, err = sortkey.Parse(k.String()); err != nil {
			return record{}, err
		}
	} else {
		p.Key = sortkey.FromTime(sent)
	}
	if edited, err := parseTime(r.Get("edited_at")); err != nil {
		return record{}, fmt.Errorf("edited_at: %w", err)
	} else if !edited.IsZero() {
		p.EditedAt = &edited
	}
	if reply := r.Get("reply_to"); reply.Exists() {
		k, err := sortkey.Parse(reply.String())
		if err != nil {
			return record{}, fmt.Errorf("reply_to: %w", err)
		}
		p.ReplyTo = &k
	}

	if r.Get("deleted").Bool() {
		if !r.Get("key").Exists() {
			return record{}, fmt.Errorf("deleted post has no key")
		}
		return record{post: p, deleted: true}, nil
	}
	if p.Author == "" || p.Content == "" {
		return record{}, channel.ErrEmptyPost
	}
	return record{post: p}, nil
}

// parseTime reads an RFC 3339 string or unix milliseconds. A missing value
// is the zero time.
func parseTime(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Null:
		return time.Time{}, nil
	case gjson.Number:
		return time.UnixMilli(v.Int()), nil
	case gjson.String:
		return time.Parse(time.RFC3339, v.Str)
	default:
		return time.Time{}, fmt.Errorf("unsupported value %s", v.Raw)
	}
}
