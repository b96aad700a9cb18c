package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/tloncorp/chatscroller/internal/channel"
	"github.com/tloncorp/chatscroller/internal/config"
	"github.com/tloncorp/chatscroller/internal/db"
	"github.com/tloncorp/chatscroller/internal/history"
	"github.com/tloncorp/chatscroller/internal/log"
	"github.com/tloncorp/chatscroller/internal/search"
	"github.com/tloncorp/chatscroller/internal/sortkey"
	"github.com/tloncorp/chatscroller/internal/tui/chat"
	"github.com/tloncorp/chatscroller/internal/version"
)

const defaultChannel = "general"

var rootCmd = &cobra.Command{
	Use:   "chatscroller [channel]",
	Short: "Scroll through chat history in the terminal",
	Long: heredoc.Doc(`
		Chatscroller shows a channel of posts from the local store and keeps
		the view steady while older and newer pages load around it.

		Without a subcommand it opens the given channel, or "general".
	`),
	Example: heredoc.Doc(`
		# Open the general channel
		chatscroller

		# Open a channel at a given post
		chatscroller random --scroll-to 1.700.000.000

		# Fill a channel with demo posts first
		chatscroller seed random --count 500

		# Watch a feed arrive
		chatscroller general --ingest feed.jsonl
	`),
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

var viewCmd = &cobra.Command{
	Use:   "view [channel]",
	Short: "Open a channel",
	Long:  `Open a channel in the chat view. This is what chatscroller runs without a subcommand.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runView,
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle through rootCmd.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// The chat view logs to a file once its data directory is known.
		if cmd == rootCmd || cmd == viewCmd {
			return nil
		}
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetupConsole(cmd.ErrOrStderr(), debug)
		return nil
	}

	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")

	for _, c := range []*cobra.Command{rootCmd, viewCmd} {
		c.Flags().String("scroll-to", "", "Open the channel at this post key")
		c.Flags().Bool("thread", false, "Lay the channel out as a thread, oldest post first")
		c.Flags().String("ingest", "", "Import a JSON lines feed into the channel while viewing it")
	}
	rootCmd.AddCommand(viewCmd)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Version),
	); err != nil {
		stop()
		os.Exit(1)
	}
}

func channelArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return defaultChannel
}

func resolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		if err := os.Chdir(cwd); err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cwd, err := resolveCwd(cmd)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	return config.Load(cwd, debug)
}

// openStore loads the config and connects to the post store it names.
func openStore(cmd *cobra.Command) (*config.Config, *sql.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Connect(cmd.Context(), cfg.Options.DataDirectory)
	if err != nil {
		return nil, nil, err
	}
	return cfg, conn, nil
}

func createChannelService(cmd *cobra.Command) (*config.Config, channel.Service, func(), error) {
	cfg, conn, err := openStore(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	svc := channel.NewService(db.New(conn))
	return cfg, svc, func() { conn.Close() }, nil
}

func scrollToFlag(cmd *cobra.Command) (*sortkey.Key, error) {
	raw, _ := cmd.Flags().GetString("scroll-to")
	if raw == "" {
		return nil, nil
	}
	k, err := sortkey.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --scroll-to: %w", err)
	}
	return &k, nil
}

// openHistory starts a history source for channelID, around scrollTo when
// it is set.
func openHistory(ctx context.Context, conn *sql.DB, cfg *config.Config, channelID string, scrollTo *sortkey.Key) (*history.Source, error) {
	src := history.NewSource(history.NewDBFetcher(db.New(conn), channelID), cfg.Options.PageSize)
	var err error
	if scrollTo != nil {
		err = src.Jump(ctx, *scrollTo)
	} else {
		err = src.Start(ctx)
	}
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to load channel %s: %w", channelID, err)
	}
	return src, nil
}

func runView(cmd *cobra.Command, args []string) error {
	channelID := channelArg(args)
	scrollTo, err := scrollToFlag(cmd)
	if err != nil {
		return err
	}
	thread, _ := cmd.Flags().GetBool("thread")
	feed, _ := cmd.Flags().GetString("ingest")

	cfg, conn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Setup(filepath.Join(cfg.Options.DataDirectory, "logs", "chatscroller.log"), cfg.Options.Debug)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	src, err := openHistory(ctx, conn, cfg, channelID, scrollTo)
	if err != nil {
		return err
	}
	defer src.Close()

	go func() {
		defer log.RecoverPanic("watch", nil)
		if err := history.Watch(ctx, db.Path(cfg.Options.DataDirectory), src); err != nil {
			slog.Error("Failed to watch the post store", "error", err)
		}
	}()

	if feed != "" {
		followFeed(ctx, conn, src, channelID, feed)
	}

	searches, err := search.Load(cfg.Options.DataDirectory)
	if err != nil {
		slog.Warn("Failed to load search history", "error", err)
		searches = search.NewHistory()
	}

	m, err := chat.New(ctx, src, chat.Options{
		Channel:  channelID,
		Scroller: cfg.Scroller.Apply(chat.TerminalOptions()),
		Compact:  cfg.TUI.CompactMode,
		DevTools: cfg.Options.ShowDevTools,
		InThread: thread,
		ScrollTo: scrollTo,
		Searches: searches,
		DataDir:  cfg.Options.DataDirectory,
	})
	if err != nil {
		return err
	}

	program := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithMouseCellMotion(),
	)
	if _, err := program.Run(); err != nil {
		slog.Error("TUI run error", "error", err)
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// followFeed imports feed into channelID in the background. Posts stored
// from it reach src directly instead of waiting for the store watcher.
func followFeed(ctx context.Context, conn *sql.DB, src *history.Source, channelID, feed string) {
	svc := channel.NewService(db.New(conn))
	go src.Follow(channelID, svc.Subscribe(ctx))
	go func() {
		defer log.RecoverPanic("ingest", nil)
		stored, err := ingestFile(ctx, svc, channelID, feed, true)
		if err != nil {
			slog.Error("Failed to ingest feed", "file", feed, "error", err)
		}
		slog.Info("Stopped ingesting feed", "file", feed, "posts", stored)
	}()
}
