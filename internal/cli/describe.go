package cli

import (
	"fmt"

	"github.com/opsgate/opsgate/internal/command"
	"github.com/opsgate/opsgate/internal/policy"
	"github.com/spf13/cobra"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <command>",
		Short: "Show a command's options, risk level, and confirmation policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := app.Runner.Describe(rootOpts.Environment, args[0])
			if err != nil {
				return err
			}

			cmd.Printf("%s — %s\n", def.Name, def.DisplayName)
			if def.Description != "" {
				cmd.Println(def.Description)
			}
			cmd.Printf("risk: %s", def.Risk)
			if policy.RequiresConfirmation(def.Risk, def.RequiresConfirm) {
				cmd.Print(" (confirmation required)")
			}
			cmd.Println()

			if len(def.Options) == 0 {
				return nil
			}
			cmd.Println("options:")
			for _, opt := range def.Options {
				cmd.Println("  " + optionLine(opt))
			}
			return nil
		},
	}
}

func optionLine(opt command.Option) string {
	line := fmt.Sprintf("%-20s %s", opt.Key, opt.Kind)
	if opt.Required {
		line += " (required)"
	}
	if opt.Default != "" {
		line += fmt.Sprintf(" [default: %s]", opt.Default)
	}
	if opt.Kind == command.KindChoice && len(opt.Choices) > 0 {
		line += " choices:"
		for _, c := range opt.Choices {
			line += " " + c.Value
		}
	}
	return line
}
