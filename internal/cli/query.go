package cli

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	// sqlite driver for read-only store inspection.
	_ "modernc.org/sqlite"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
}

func newQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query SQL",
		Short: "Query the store database directly",
		Long: `Execute a read-only SQL query against the store database to inspect
objects and link collections.`,
		Example: `  # Count objects per schema
  starstore query "SELECT schema, COUNT(*) FROM objects GROUP BY schema"

  # Inspect a link collection
  starstore query "SELECT * FROM links ORDER BY owner_id, property, position"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStoreReadOnly(cfg.StorePath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer func() { _ = db.Close() }()

			query := strings.TrimSuffix(strings.TrimSpace(args[0]), ";")
			rows, err := db.QueryContext(cmd.Context(), query)
			if err != nil {
				return err
			}
			defer rows.Close()

			return renderResults(cmd.OutOrStdout(), rows, opts.Format)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json")
	return cmd
}

// openStoreReadOnly opens the store database in read-only mode.
func openStoreReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path+"?mode=ro")
}
