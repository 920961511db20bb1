package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goDCA/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configExampleCmd = &cobra.Command{
	Use:   "example [path]",
	Short: "Write an example configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPaths().Main
		if len(args) > 0 {
			path = args[0]
		}
		if err := config.SaveExampleConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := cfg.ToGenesis(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d tokens, %d pairs)\n",
			cfg.GetConfigPath(), len(cfg.Tokens), len(cfg.Pairs))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configExampleCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
