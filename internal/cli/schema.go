package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/starstore/internal/schema"
	"github.com/leapstack-labs/starstore/pkg/core"
)

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the loaded object schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := schema.Load(cfg.SchemaPath)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Schema", "Property", "Type", "Target"})
			for _, name := range reg.Names() {
				s, err := reg.Get(name)
				if err != nil {
					return err
				}
				for _, p := range s.Properties {
					target := ""
					if p.Type == core.TypeLink || p.Type == core.TypeList {
						target = p.ObjectType
					}
					t.AppendRow(table.Row{s.Name, p.Name, string(p.Type), target})
				}
			}
			t.Render()
			return nil
		},
	}
}
