// Package builtin provides the commands that ship with the service:
// ad-hoc read-only queries, row counts, and schema inspection, plus the
// constructor for saved-query commands loaded from config.
package builtin

import (
	"context"

	"github.com/opsgate/opsgate/internal/command"
	"github.com/opsgate/opsgate/internal/query"
	"github.com/opsgate/opsgate/internal/queryguard"
	"github.com/opsgate/opsgate/internal/schema"
)

// QueryCommand runs an operator-supplied read-only expression against a
// chosen entity type.
type QueryCommand struct {
	command.Base
	exec *query.Executor
}

// NewQuery creates the db:query command. The entity choice list is built
// from the entities known at startup.
func NewQuery(exec *query.Executor, entities []schema.Entity) *QueryCommand {
	return &QueryCommand{
		Base: command.Base{Def: command.Definition{
			Name:        "db:query",
			DisplayName: "Run query",
			Description: "Run a read-only query expression against one entity type",
			Category:    "database",
			Risk:        command.RiskMedium,
			Options: []command.Option{
				entityOption(entities),
				{
					Key:      "expression",
					Label:    "Expression",
					Kind:     command.KindLongText,
					Required: true,
				},
				{
					Key:     "limit",
					Label:   "Row limit",
					Kind:    command.KindText,
					Numeric: true,
					Default: "100",
					Rules: []command.Rule{
						{Name: command.RuleInteger},
						{Name: command.RuleMin, Arg: 1},
						{Name: command.RuleMax, Arg: 10000},
					},
				},
			},
		}},
		exec: exec,
	}
}

// Validate layers the expression guard check on top of the base pass.
func (c *QueryCommand) Validate(values map[string]string) error {
	if err := c.Base.Validate(values); err != nil {
		return err
	}
	if res := queryguard.Validate(values["expression"]); !res.Accepted {
		return res.Err()
	}
	return nil
}

func (c *QueryCommand) Execute(ctx context.Context, values map[string]string) (string, error) {
	// The integer rule accepts "7.0" spellings too; parse the same way.
	limit, _ := integerOptionValue(values["limit"])
	out, err := c.exec.RunWith(ctx, values["entity"], values["expression"], query.RunOptions{
		MaxRows: limit,
	})
	if err != nil {
		return "", err
	}
	return query.FormatOutcome(out), nil
}

func entityOption(entities []schema.Entity) command.Option {
	choices := make([]command.Choice, len(entities))
	for i, e := range entities {
		choices[i] = command.Choice{Value: e.Name, Label: e.Name}
	}
	return command.Option{
		Key:      "entity",
		Label:    "Entity type",
		Kind:     command.KindChoice,
		Required: true,
		Choices:  choices,
	}
}
