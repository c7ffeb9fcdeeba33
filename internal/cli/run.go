package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/starstore/internal/engine"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run SCRIPT...",
		Short: "Run Starlark scripts against the store",
		Example: `  # Run one script
  starstore run seed.star

  # Run several scripts concurrently, each in its own session
  starstore run jobs/*.star --concurrency 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
				return fmt.Errorf("failed to create store directory: %w", err)
			}

			eng, err := engine.New(engine.Config{
				StorePath:  cfg.StorePath,
				SchemaPath: cfg.SchemaPath,
				Logger:     logger,
				Print: func(msg string) {
					fmt.Fprintln(cmd.OutOrStdout(), msg)
				},
			})
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			return eng.RunScripts(args, cfg.Concurrency)
		},
	}
}
