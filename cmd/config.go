package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/taskdeck/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or change the configuration file",
}

var configSetURLCmd = &cobra.Command{
	Use:   "set-url <url>",
	Short: "Set the API base URL",
	Long: `Set api.base_url in the config file in use, keeping its comments and
other settings.

Example:
  taskdeck config set-url https://tasks.example.com/api`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configTarget()
		if err := config.SaveAPIURL(path, args[0]); err != nil {
			return fmt.Errorf("saving api url: %w", err)
		}
		printSuccess(cmd.OutOrStdout(), "API URL set to %s in %s", args[0], path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), configTarget())
		return nil
	},
}

// configTarget is the file that was loaded, the --config path, or the
// local default.
func configTarget() string {
	switch {
	case cfgPath != "":
		return cfgPath
	case cfgFile != "":
		return cfgFile
	default:
		return config.LocalConfigPath
	}
}

func init() {
	configCmd.AddCommand(configSetURLCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
