package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/aprilgo/internal/config"
)

// configCmd groups configuration helpers. Its subcommands skip the root
// pre-run so a broken config file can still be inspected.
var configCmd = &cobra.Command{
	Use:               "config",
	Short:             "Inspect or create configuration files",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		loader := newLoader()
		var (
			cfg *config.Config
			err error
		)
		if cfgFile != "" {
			cfg, err = loader.LoadWithFile(cfgFile)
		} else {
			cfg, err = loader.LoadWithoutValidation()
		}
		if err != nil {
			return err
		}

		data, err := config.Marshal(*cfg)
		if err != nil {
			return err
		}
		if used := loader.GetConfigFileUsed(); used != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
		}
		_, err = cmd.OutOrStdout().Write(data)
		if err != nil {
			return err
		}
		if verr := cfg.Validate(); verr != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", verr)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a default aprilgo.yaml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			file = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(file); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", file)
		}
		if err := config.WriteDefaultConfig(file); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", file)
		return nil
	},
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List the directories searched for aprilgo.yaml",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, p := range config.GetConfigSearchPaths() {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd, configPathsCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}
