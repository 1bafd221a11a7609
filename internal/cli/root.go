// Package cli provides the csvcard command-line tool for inspecting CSV
// artifacts and managing the run store.
package cli

import (
	"context"

	"github.com/JonMunkholm/csvcard/internal/config"
	"github.com/JonMunkholm/csvcard/internal/store"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "csvcard",
		Short: "Inspect CSV run artifacts and manage the run store",
		Long: `csvcard works with the same parser, fetcher and run store as the
CSV tables card server.

Use "inspect" to preview how an artifact will render, "seed" to load runs
from YAML and "runs" to list what the store holds.`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(
		NewInspectCommand(),
		NewSeedCommand(),
		NewRunsCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// storeFlags selects a run store. Empty flags fall back to the server's
// environment configuration.
type storeFlags struct {
	driver string
	dsn    string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.driver, "driver", "", "store driver: memory, sqlite or postgres (default from STORE_DRIVER)")
	cmd.Flags().StringVar(&f.dsn, "dsn", "", "store DSN (default from STORE_DSN)")
}

func (f *storeFlags) open(ctx context.Context) (store.RunStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	sc := cfg.Store
	if f.driver != "" {
		sc.Driver = f.driver
	}
	if f.dsn != "" {
		sc.DSN = f.dsn
	}
	return store.Open(ctx, sc)
}
