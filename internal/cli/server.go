package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// serverCmd represents the server command (default action)
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the dcad daemon",
	Long: `Start the dcad daemon which provides:
- HTTP JSON-RPC on / and /rpc
- WebSocket event streams on /ws
- Health check on /health, and metrics when enabled
- gRPC queries when enabled
- The swapper loop when enabled

This is the default command when no subcommand is specified.`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Set server as the default command
	rootCmd.RunE = runServer
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	node, err := NewNode(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := node.Close(); err != nil {
			logger.Error("close node", "error", err)
		}
	}()

	logger.Info("dcad started",
		"version", rootCmd.Version,
		"config", cfg.GetConfigPath(),
		"rpc", cfg.Server.Address,
		"grpc", cfg.GRPC.Enabled,
		"swapper", cfg.Swapper.Enabled,
		"market", cfg.Market.Enabled,
	)
	err = node.Run(ctx)
	logger.Info("dcad stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
