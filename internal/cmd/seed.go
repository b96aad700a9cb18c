package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/tloncorp/chatscroller/internal/channel"
	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/pubsub"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

var seedAuthors = []string{
	"~zod", "~bus", "~nec", "~marzod", "~wanzod", "~sampel-palnet", "~dopzod", "~litzod",
}

var seedWords = strings.Fields(`
	ship moon star comet planet urbit channel post scroll page load older newer
	thread reply galaxy network message history keep steady view anchor latest
	the a of to and is was in on for with at by from this that it
`)

var seedCmd = &cobra.Command{
	Use:   "seed <channel>",
	Short: "Fill a channel with demo posts",
	Long: heredoc.Doc(`
		Write generated posts to a channel of the local store. Authors post
		in short runs and the posts are spread over the last few days, so the
		chat view shows author headers and day dividers.
	`),
	Example: heredoc.Doc(`
		# 500 posts by 4 authors over the last week
		chatscroller seed general --count 500 --authors 4 --days 7
	`),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		authors, _ := cmd.Flags().GetInt("authors")
		days, _ := cmd.Flags().GetInt("days")
		seed, _ := cmd.Flags().GetUint64("seed")
		if count < 1 || authors < 1 || days < 1 {
			return fmt.Errorf("--count, --authors and --days must be positive")
		}

		_, svc, done, err := createChannelService(cmd)
		if err != nil {
			return err
		}
		defer done()

		posts := seedPosts(args[0], count, min(authors, len(seedAuthors)), days, time.Now(), seed)
		stored, err := storePosts(cmd.Context(), svc, posts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d posts in %s\n", stored, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().Int("count", 200, "Number of posts")
	seedCmd.Flags().Int("authors", 3, "Number of authors")
	seedCmd.Flags().Int("days", 3, "Days the posts are spread over, ending now")
	seedCmd.Flags().Uint64("seed", 1, "Random seed")
}

// seedPosts generates count posts ending at end, oldest first.
func seedPosts(channelID string, count, authors, days int, end time.Time, seed uint64) []message.Post {
	r := rand.New(rand.NewPCG(seed, seed))
	step := time.Duration(days) * 24 * time.Hour / time.Duration(count)
	sent := end.Add(-time.Duration(count) * step)

	posts := make([]message.Post, 0, count)
	author := seedAuthors[0]
	for range count {
		sent = sent.Add(step/2 + time.Duration(r.Int64N(int64(step)+1)))
		if sent.After(end) {
			sent = end
		}
		if r.IntN(3) == 0 {
			author = seedAuthors[r.IntN(authors)]
		}
		key := sortkey.FromTime(sent)
		if n := len(posts); n > 0 && !posts[n-1].Key.Less(key) {
			key = posts[n-1].Key.Add(1)
		}
		posts = append(posts, message.Post{
			ChannelID: channelID,
			Key:       key,
			Author:    author,
			Content:   seedContent(r),
			SentAt:    sent,
		})
	}
	return posts
}

func seedContent(r *rand.Rand) string {
	words := make([]string, 1+r.IntN(24))
	for i := range words {
		words[i] = seedWords[r.IntN(len(seedWords))]
	}
	return strings.Join(words, " ")
}

// storePosts saves posts and logs each stored post at debug level.
func storePosts(ctx context.Context, svc channel.Service, posts []message.Post) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go logPostEvents(svc.Subscribe(ctx))

	for i, p := range posts {
		if _, err := svc.Save(ctx, p); err != nil {
			return i, fmt.Errorf("failed to store post %s: %w", p.Key, err)
		}
	}
	return len(posts), nil
}

func logPostEvents(events <-chan pubsub.Event[message.Post]) {
	for ev := range events {
		switch ev.Type {
		case pubsub.DeletedEvent:
			slog.Debug("Deleted post", "channel", ev.Payload.ChannelID, "key", ev.Payload.Key)
		default:
			slog.Debug("Stored post", "channel", ev.Payload.ChannelID, "key", ev.Payload.Key, "event", ev.Type)
		}
	}
}
