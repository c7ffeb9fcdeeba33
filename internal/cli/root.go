// Package cli provides the starstore command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/starstore/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "starstore",
		Short: "starstore - Starlark-scriptable object store",
		Long: `starstore is an embedded transactional object store whose objects and
link lists are exposed to Starlark scripts as native values.

Schemas are declared in a YAML file; scripts manipulate objects through
the "store" global and list-valued properties through array semantics.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default starstore.yaml)")
	flags.String("store-path", "", "path to the object database")
	flags.String("schema-path", "", "path to the schema definition file")
	flags.Int("concurrency", 0, "max scripts run in parallel (0 = unbounded)")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newREPLCommand())
	rootCmd.AddCommand(newSchemaCommand())
	rootCmd.AddCommand(newQueryCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
