package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/opsgate/opsgate/internal/command"
	"github.com/opsgate/opsgate/internal/query"
	"github.com/opsgate/opsgate/internal/schema"
)

// DescribeCommand lists the fields of one entity type.
type DescribeCommand struct {
	command.Base
	resolver schema.Resolver
}

// NewDescribe creates the schema:describe command.
func NewDescribe(resolver schema.Resolver, entities []schema.Entity) *DescribeCommand {
	return &DescribeCommand{
		Base: command.Base{Def: command.Definition{
			Name:        "schema:describe",
			DisplayName: "Describe entity",
			Description: "List the fields of one entity type",
			Category:    "schema",
			Risk:        command.RiskLow,
			Options: []command.Option{
				entityOption(entities),
			},
		}},
		resolver: resolver,
	}
}

func (c *DescribeCommand) Execute(ctx context.Context, values map[string]string) (string, error) {
	name := values["entity"]
	ent, err := c.resolver.Lookup(ctx, name)
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", name, err)
	}
	if ent == nil {
		return "", &query.UnknownEntityTypeError{Entity: name}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (table %s)\n", ent.Name, ent.Table)
	for _, f := range ent.Fields {
		fmt.Fprintf(&b, "  %-24s %s\n", f.Name, f.Type)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
