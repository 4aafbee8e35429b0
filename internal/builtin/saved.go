package builtin

import (
	"context"
	"strconv"

	"github.com/opsgate/opsgate/internal/command"
	"github.com/opsgate/opsgate/internal/query"
	"github.com/opsgate/opsgate/internal/queryguard"
	"github.com/opsgate/opsgate/internal/registry"
)

// SavedQueryCommand is a configured command: a fixed, pre-vetted query
// expression bound to one entity type. Operator input reaches the
// expression exclusively through :key placeholders.
type SavedQueryCommand struct {
	command.Base
	exec       *query.Executor
	entity     string
	expression string
}

// NewSavedQuery builds a command from a saved-query config. The stored
// expression is vetted here so a bad config fails at startup, not on
// first use.
func NewSavedQuery(cfg registry.SavedQueryConfig, exec *query.Executor) (*SavedQueryCommand, error) {
	def := cfg.Definition()
	if err := def.CheckValid(); err != nil {
		return nil, err
	}
	if res := queryguard.Validate(cfg.Expression); !res.Accepted {
		return nil, res.Err()
	}
	if _, err := query.Parse(cfg.Expression); err != nil {
		return nil, err
	}
	return &SavedQueryCommand{
		Base:       command.Base{Def: def},
		exec:       exec,
		entity:     cfg.Entity,
		expression: cfg.Expression,
	}, nil
}

func (c *SavedQueryCommand) Execute(ctx context.Context, values map[string]string) (string, error) {
	out, err := c.exec.RunBound(ctx, c.entity, c.expression, c.bindings(values))
	if err != nil {
		return "", err
	}
	return query.FormatOutcome(out), nil
}

// bindings converts validated option values into typed placeholder
// bindings. Types follow the option declaration: integer-ruled and
// numeric options bind as numbers, boolean options as bools, the rest
// as strings.
func (c *SavedQueryCommand) bindings(values map[string]string) map[string]any {
	out := make(map[string]any, len(c.Def.Options))
	for _, opt := range c.Def.Options {
		v, ok := values[opt.Key]
		if !ok || v == "" {
			continue
		}
		out[opt.Key] = bindValue(opt, v)
	}
	return out
}

func bindValue(opt command.Option, v string) any {
	if opt.Kind == command.KindBoolean {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
		return v
	}
	if hasRule(opt, command.RuleInteger) {
		if n, ok := integerOptionValue(v); ok {
			return n
		}
	}
	if opt.Numeric || hasRule(opt, command.RuleNumeric) {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}

// integerOptionValue parses an option value the integer rule accepts,
// including "7.0" spellings whose truncation equals itself.
func integerOptionValue(v string) (int64, bool) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

func hasRule(opt command.Option, name command.RuleName) bool {
	for _, r := range opt.Rules {
		if r.Name == name {
			return true
		}
	}
	return false
}
