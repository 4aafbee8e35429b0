package cli

import (
	"fmt"
	"sort"

	"github.com/opsgate/opsgate/internal/command"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List commands available in the target environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := app.Runner.Catalog(rootOpts.Environment)
			if len(catalog) == 0 {
				cmd.Println("no commands available")
				return nil
			}

			categories := make([]string, 0, len(catalog))
			for c := range catalog {
				categories = append(categories, c)
			}
			sort.Strings(categories)

			for _, category := range categories {
				name := category
				if name == "" {
					name = "general"
				}
				cmd.Println(name + ":")
				for _, def := range catalog[category] {
					line := fmt.Sprintf("  %-24s %s", def.Name, def.Description)
					if def.Risk != command.RiskLow {
						line += fmt.Sprintf(" [risk: %s]", def.Risk)
					}
					cmd.Println(line)
				}
			}
			return nil
		},
	}
}
