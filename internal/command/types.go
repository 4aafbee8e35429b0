package command

import "context"

// RiskLevel classifies how dangerous a command is. It drives the
// confirmation policy and per-environment eligibility.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether r is one of the known risk levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// OptionKind determines how an option is rendered and edited.
type OptionKind string

const (
	KindText     OptionKind = "text"
	KindLongText OptionKind = "longtext"
	KindChoice   OptionKind = "choice"
	KindBoolean  OptionKind = "boolean"
)

// RuleName identifies a validation rule applied to an option value.
type RuleName string

const (
	RuleInteger RuleName = "integer"
	RuleNumeric RuleName = "numeric"
	RuleMin     RuleName = "min"
	RuleMax     RuleName = "max"
)

// Rule is a single validation constraint. Arg is only meaningful for
// RuleMin and RuleMax.
type Rule struct {
	Name RuleName `json:"name" yaml:"name"`
	Arg  int      `json:"arg" yaml:"arg"`
}

// Choice is one selectable value of a choice option. Order is significant.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Option declares a single command parameter. Options are kept in a slice
// because declaration order drives rendering order.
type Option struct {
	Key      string     `json:"key" yaml:"key"`
	Label    string     `json:"label" yaml:"label"`
	Kind     OptionKind `json:"kind" yaml:"kind"`
	Required bool       `json:"required" yaml:"required"`
	Default  string     `json:"default" yaml:"default"`
	Numeric  bool       `json:"numeric" yaml:"numeric"`
	Choices  []Choice   `json:"choices" yaml:"choices"`
	Rules    []Rule     `json:"rules" yaml:"rules"`
}

// Definition is the immutable identity and metadata of one executable
// operation. It never changes after registration.
type Definition struct {
	Name            string
	DisplayName     string
	Description     string
	Category        string
	Risk            RiskLevel
	RequiresConfirm bool
	Options         []Option

	// OptionsSchema is an optional JSON Schema applied to the supplied
	// option values after the rule pass. Nil if not set.
	OptionsSchema map[string]any
}

// Option returns the option with the given key.
func (d Definition) Option(key string) (Option, bool) {
	for _, o := range d.Options {
		if o.Key == key {
			return o, true
		}
	}
	return Option{}, false
}

// CheckValid verifies the Definition invariants. Returns an
// *InvalidCommandError describing the first violation found.
func (d Definition) CheckValid() error {
	if d.Name == "" {
		return &InvalidCommandError{Name: d.Name, Reason: "name is empty"}
	}
	if !d.Risk.Valid() {
		return &InvalidCommandError{Name: d.Name, Reason: "unknown risk level: " + string(d.Risk)}
	}
	seen := make(map[string]bool, len(d.Options))
	for _, o := range d.Options {
		if o.Key == "" {
			return &InvalidCommandError{Name: d.Name, Reason: "option with empty key"}
		}
		if seen[o.Key] {
			return &InvalidCommandError{Name: d.Name, Reason: "duplicate option key: " + o.Key}
		}
		seen[o.Key] = true
	}
	return nil
}

// Command is the capability set every executable operation implements.
// Concrete commands are values stored in the registry as this interface.
type Command interface {
	// Definition returns the command's immutable metadata.
	Definition() Definition

	// Validate checks the supplied option values against the command's
	// schema. Implementations layering extra domain checks must run the
	// base pass first (embed Base and call Base.Validate).
	Validate(values map[string]string) error

	// Execute runs the command with validated option values and returns
	// its textual output. Must respect ctx cancellation.
	Execute(ctx context.Context, values map[string]string) (string, error)
}

// Base provides Definition and the default validation pass. Concrete
// commands embed it and supply Execute.
type Base struct {
	Def Definition
}

func (b Base) Definition() Definition {
	return b.Def
}

func (b Base) Validate(values map[string]string) error {
	if err := ValidateOptions(values, b.Def.Options); err != nil {
		return err
	}
	if b.Def.OptionsSchema != nil {
		return validateOptionsSchema(values, b.Def.OptionsSchema)
	}
	return nil
}

// ApplyDefaults fills absent option values with declared defaults.
// The input map is not mutated.
func ApplyDefaults(values map[string]string, opts []Option) map[string]string {
	out := make(map[string]string, len(values)+len(opts))
	for k, v := range values {
		out[k] = v
	}
	for _, o := range opts {
		if o.Default == "" {
			continue
		}
		if v, ok := out[o.Key]; !ok || v == "" {
			out[o.Key] = o.Default
		}
	}
	return out
}
