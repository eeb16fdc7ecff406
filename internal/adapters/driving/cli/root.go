// Package cli provides the recall command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall/internal/app"
	"github.com/custodia-labs/recall/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

var (
	configDir string
	verbose   bool
)

// engine is the wired application. Commands that do not need it carry the
// skipEngine annotation.
var (
	engine      *app.App
	configStore *file.ConfigStore
)

const skipEngine = "skip-engine"

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Hybrid long-term memory retrieval",
	Long: `recall indexes summarised conversation sessions into a keyword index and
a vector index, and answers memory queries by fusing both rankings.`,
	SilenceUsage:      true,
	PersistentPreRunE: openEngine,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.recall)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log indexing and retrieval details to stderr")
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx. Long running commands stop
// when ctx is done.
func ExecuteContext(ctx context.Context) error {
	defer closeEngine()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func openEngine(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if cmd.Annotations[skipEngine] == "true" || engine != nil {
		return nil
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a, err := app.New(store)
	if err != nil {
		return err
	}
	configStore = store
	engine = a
	return nil
}

func closeEngine() {
	if engine == nil {
		return
	}
	if err := engine.Close(); err != nil {
		logger.Warn("closing indexes: %v", err)
	}
	engine = nil
	configStore = nil
}

func requireEngine() (*app.App, error) {
	if engine == nil {
		return nil, errors.New("engine not configured")
	}
	return engine, nil
}
