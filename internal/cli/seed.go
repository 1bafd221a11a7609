package cli

import (
	"fmt"

	"github.com/JonMunkholm/csvcard/internal/store"
	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	flags := &storeFlags{}

	cmd := &cobra.Command{
		Use:   "seed <runs.yaml>",
		Short: "Load runs and their artifacts from a YAML file",
		Long: `Seed upserts every run in the file. A run that already exists has its
artifact list replaced.`,
		Example: `  csvcard seed testdata/runs.yaml
  csvcard seed runs.yaml --driver postgres --dsn postgres://localhost/csvcard`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := store.SeedFromFile(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d runs from %s\n", n, args[0])
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
