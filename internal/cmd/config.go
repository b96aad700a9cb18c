package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tloncorp/chatscroller/internal/config"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change configuration",
}

var configFieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the settable config fields",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, f := range config.Fields() {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a config field",
	Long: heredoc.Doc(`
		Set one field of a config file. The value is read as JSON when it
		parses as JSON, and as a string otherwise. By default the user data
		config is changed; --global and --project pick the other files.
	`),
	Example: heredoc.Doc(`
		chatscroller config set tui.compact_mode true
		chatscroller config set scroller.overscan 10 --project
		chatscroller config set options.data_directory /tmp/chat --global
	`),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		global, _ := cmd.Flags().GetBool("global")
		project, _ := cmd.Flags().GetBool("project")
		if global && project {
			return fmt.Errorf("cannot specify both --global and --project flags")
		}

		path := config.GlobalConfigData()
		switch {
		case global:
			path = config.GlobalConfig()
		case project:
			cwd, err := resolveCwd(cmd)
			if err != nil {
				return err
			}
			path = filepath.Join(cwd, ".chatscroller.json")
		}

		if err := config.SetFileField(path, args[0], configValue(args[1])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configFieldsCmd)

	configSetCmd.Flags().Bool("global", false, "Change the global config file")
	configSetCmd.Flags().Bool("project", false, "Change the config file of the current directory")
}

// configValue reads a command line value as JSON when it is valid JSON.
func configValue(raw string) any {
	if gjson.Valid(raw) {
		return gjson.Parse(raw).Value()
	}
	return raw
}
