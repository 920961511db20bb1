package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goDCA/internal/config"
	"github.com/LeJamon/goDCA/internal/logging"
)

var (
	// Global flags
	configFile string
	debug      bool
	verbose    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dcad",
	Short: "goDCA - dollar-cost averaging ledger daemon",
	Long: `dcad keeps a ledger of dollar-cost averaging positions. Owners deposit
a token to be sold at a fixed rate every interval; swaps for a pair execute
once per interval against an oracle price, and owners withdraw what they
bought at any time.

The daemon serves JSON-RPC, a websocket event stream and gRPC queries, and
can run a swapper that executes due swaps of watched pairs.`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path (default dcad.toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log the source of every line")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
}

// loadConfig reads the file named by --conf, or dcad.toml.
func loadConfig() (*config.Config, error) {
	paths := config.DefaultConfigPaths()
	if configFile != "" {
		paths = config.ConfigPaths{Main: configFile}
	}
	return config.LoadConfig(paths)
}

// newLogger applies the global flags on top of the [log] section.
func newLogger(cfg logging.Config) (*slog.Logger, error) {
	switch {
	case debug:
		cfg.Level = "debug"
	case quiet:
		cfg.Level = "warn"
	}
	if verbose {
		cfg.Source = true
	}
	return logging.New(cfg, os.Stderr)
}
