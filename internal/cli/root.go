// Package cli provides the operator command line: catalog listing,
// command description, and gated execution.
package cli

import (
	"github.com/opsgate/opsgate/internal/auth"
	"github.com/opsgate/opsgate/internal/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// App carries the wired dependencies the subcommands run against.
type App struct {
	Runner   *runner.Runner
	Operator *auth.Operator
	Logger   *zap.Logger

	// DefaultEnvironment is used when --env is not given.
	DefaultEnvironment string
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Environment string
}

// NewRootCommand creates the root command for the opsgate CLI.
func NewRootCommand(app *App) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "opsgate",
		Short:         "Risk-gated operator commands",
		Long:          "Run registered operator commands behind risk, confirmation, and environment gates.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Environment, "env", app.DefaultEnvironment, "target environment")

	cmd.AddCommand(NewListCommand(app, opts))
	cmd.AddCommand(NewDescribeCommand(app, opts))
	cmd.AddCommand(NewRunCommand(app, opts))

	return cmd
}
