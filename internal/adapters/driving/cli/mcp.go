package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall/internal/adapters/driving/mcp"
	"github.com/custodia-labs/recall/internal/app"
	"github.com/custodia-labs/recall/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so assistants can retrieve and
index memories.

By default, the server communicates over stdio using JSON-RPC. Use --port to
serve over HTTP instead. Edits to config.toml are picked up while running:
fusion tuning, buckets and selection apply to the next call.

Examples:
  # Stdio mode
  recall mcp serve

  # HTTP mode with Prometheus metrics
  recall mcp serve --port 8080 --metrics-addr :9090`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	a, err := requireEngine()
	if err != nil {
		return err
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return fmt.Errorf("getting metrics-addr flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Retrieval: a.Retrieval,
		Selection: a,
		Indexing:  a.Indexing,
		Settings:  a.Settings,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if configStore != nil {
		if err := watchConfig(ctx, configStore, a); err != nil {
			logger.Warn("config watcher disabled: %v", err)
		}
	}

	if metricsAddr != "" {
		go func() {
			if err := a.Metrics.Serve(ctx, metricsAddr); err != nil {
				logger.Warn("metrics server stopped: %v", err)
			}
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "Metrics on http://%s/metrics\n", metricsAddr)
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}

// watchConfig reloads engine settings whenever the config file changes.
func watchConfig(ctx context.Context, store *file.ConfigStore, a *app.App) error {
	reloaded, err := file.NewWatcher(store).Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		for range reloaded {
			if err := a.Reload(); err != nil {
				logger.Warn("keeping previous settings: %v", err)
			}
		}
	}()
	return nil
}
