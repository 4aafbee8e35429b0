package builtin

import (
	"context"

	"github.com/opsgate/opsgate/internal/command"
	"github.com/opsgate/opsgate/internal/query"
	"github.com/opsgate/opsgate/internal/queryguard"
	"github.com/opsgate/opsgate/internal/schema"
)

// CountCommand reports the row count of one entity type, optionally
// narrowed by a filter chain.
type CountCommand struct {
	command.Base
	exec *query.Executor
}

// NewCount creates the db:count command.
func NewCount(exec *query.Executor, entities []schema.Entity) *CountCommand {
	return &CountCommand{
		Base: command.Base{Def: command.Definition{
			Name:        "db:count",
			DisplayName: "Count rows",
			Description: "Count rows of one entity type, optionally filtered",
			Category:    "database",
			Risk:        command.RiskLow,
			Options: []command.Option{
				entityOption(entities),
				{
					Key:   "filter",
					Label: "Filter",
					Kind:  command.KindLongText,
				},
			},
		}},
		exec: exec,
	}
}

func (c *CountCommand) Validate(values map[string]string) error {
	if err := c.Base.Validate(values); err != nil {
		return err
	}
	if res := queryguard.Validate(c.expression(values)); !res.Accepted {
		return res.Err()
	}
	return nil
}

func (c *CountCommand) Execute(ctx context.Context, values map[string]string) (string, error) {
	out, err := c.exec.Run(ctx, values["entity"], c.expression(values))
	if err != nil {
		return "", err
	}
	return query.FormatOutcome(out), nil
}

// expression appends the count terminal to the optional filter chain.
// A filter carrying its own terminal fails the plan stage.
func (c *CountCommand) expression(values map[string]string) string {
	if filter := values["filter"]; filter != "" {
		return filter + "->count()"
	}
	return "count()"
}
