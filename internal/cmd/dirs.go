package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/tloncorp/chatscroller/internal/config"
	"github.com/tloncorp/chatscroller/internal/db"
)

var dirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "Print directories used by chatscroller",
	Long: heredoc.Doc(`
		Print the directories where chatscroller keeps its configuration and
		data, and the post store of the current project.
	`),
	Example: heredoc.Doc(`
		# Print all directories
		chatscroller dirs

		# Print only the config directory
		chatscroller dirs --config

		# Print only the post store
		chatscroller dirs --store
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		configOnly, _ := cmd.Flags().GetBool("config")
		dataOnly, _ := cmd.Flags().GetBool("data")
		storeOnly, _ := cmd.Flags().GetBool("store")

		selected := 0
		for _, b := range []bool{configOnly, dataOnly, storeOnly} {
			if b {
				selected++
			}
		}
		if selected > 1 {
			return fmt.Errorf("specify at most one of --config, --data and --store")
		}

		configDir := filepath.Dir(config.GlobalConfig())
		dataDir := filepath.Dir(config.GlobalConfigData())
		w := cmd.OutOrStdout()

		switch {
		case configOnly:
			fmt.Fprintln(w, configDir)
			return nil
		case dataOnly:
			fmt.Fprintln(w, dataDir)
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store := db.Path(cfg.Options.DataDirectory)
		if storeOnly {
			fmt.Fprintln(w, store)
			return nil
		}

		fmt.Fprintf(w, "Config directory: %s\n", configDir)
		fmt.Fprintf(w, "Data directory:   %s\n", dataDir)
		fmt.Fprintf(w, "Post store:       %s\n", store)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dirsCmd)
	dirsCmd.Flags().Bool("config", false, "Print only the config directory")
	dirsCmd.Flags().Bool("data", false, "Print only the data directory")
	dirsCmd.Flags().Bool("store", false, "Print only the post store of the current project")
}
