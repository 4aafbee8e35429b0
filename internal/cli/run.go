package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opsgate/opsgate/internal/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Options []string
	Confirm bool
	Timeout time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <command>",
		Short: "Execute a command",
		Long: `Execute a registered command with option values.

Example:
  opsgate run db:count -o entity=users
  opsgate run db:query -o entity=users -o "expression=where('age', 18)->get()" --confirm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseOptionFlags(opts.Options)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			resp, err := app.Runner.Execute(ctx, app.Operator, runner.Request{
				Command:     args[0],
				Options:     values,
				Environment: rootOpts.Environment,
				Confirmed:   opts.Confirm,
			})
			if err != nil {
				return err
			}

			if resp.Output != "" {
				cmd.Println(resp.Output)
			}
			if resp.ExitCode != 0 {
				app.Logger.Warn("command failed",
					zap.String("request_id", resp.RequestID),
					zap.Int32("exit_code", resp.ExitCode),
				)
				return fmt.Errorf("command exited with code %d", resp.ExitCode)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Options, "option", "o", nil, "option value as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Confirm, "confirm", false, "confirm execution of gated commands")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "execution timeout")

	return cmd
}

func parseOptionFlags(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q: expected key=value", pair)
		}
		values[key] = value
	}
	return values, nil
}
