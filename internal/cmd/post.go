package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/sortkey"
)

var postCmd = &cobra.Command{
	Use:   "post <channel> <text>...",
	Short: "Write a post",
	Long:  `Write one post to a channel. A running chat view of the channel picks it up.`,
	Example: heredoc.Doc(`
		chatscroller post general "hello from the terminal"

		# Reply to another post
		chatscroller post general --author ~bus --reply-to 1.700.000.000 "same here"
	`),
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		author, _ := cmd.Flags().GetString("author")
		replyTo, _ := cmd.Flags().GetString("reply-to")
		if author == "" {
			author = defaultAuthor()
		}

		_, svc, done, err := createChannelService(cmd)
		if err != nil {
			return err
		}
		defer done()

		content := strings.Join(args[1:], " ")
		var p message.Post
		if replyTo == "" {
			p, err = svc.Post(cmd.Context(), args[0], author, content)
		} else {
			parent, perr := sortkey.Parse(replyTo)
			if perr != nil {
				return fmt.Errorf("invalid --reply-to: %w", perr)
			}
			p, err = svc.Save(cmd.Context(), message.Post{
				ChannelID: args[0],
				Author:    author,
				Content:   content,
				ReplyTo:   &parent,
			})
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p.Key.UD())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <channel> <key>",
	Short: "Delete a post",
	Long:  `Delete a post. It stays in the channel as a "message deleted" placeholder.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := sortkey.Parse(args[1])
		if err != nil {
			return err
		}
		_, svc, done, err := createChannelService(cmd)
		if err != nil {
			return err
		}
		defer done()

		if err := svc.Delete(cmd.Context(), args[0], key); err != nil {
			return fmt.Errorf("failed to delete post %s: %w", key.UD(), err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(deleteCmd)
	postCmd.Flags().StringP("author", "a", "", "Author of the post (default $USER)")
	postCmd.Flags().String("reply-to", "", "Key of the post this one replies to")
}

func defaultAuthor() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anonymous"
}
