package command

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateOptions enforces the declared option rules against supplied
// values. Pure function; no side effects.
//
// Required options with absent or empty values fail first. For every
// option with a non-empty value, rules run in declared order and the
// first failing rule short-circuits that option.
func ValidateOptions(values map[string]string, opts []Option) error {
	for _, o := range opts {
		v, ok := values[o.Key]
		if !ok || v == "" {
			if o.Required {
				return &MissingRequiredError{Key: o.Key}
			}
			continue
		}
		if err := applyRules(o, v); err != nil {
			return err
		}
	}
	return nil
}

func applyRules(o Option, v string) error {
	for _, r := range o.Rules {
		switch r.Name {
		case RuleInteger:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f != math.Trunc(f) {
				return &RuleViolationError{Key: o.Key, Rule: RuleInteger, Value: v}
			}
		case RuleNumeric:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return &RuleViolationError{Key: o.Key, Rule: RuleNumeric, Value: v}
			}
		case RuleMin:
			// Only evaluated for numeric values; others are skipped.
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			if f < float64(r.Arg) {
				return &RuleViolationError{Key: o.Key, Rule: RuleMin, Arg: r.Arg, Value: v}
			}
		case RuleMax:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			if f > float64(r.Arg) {
				return &RuleViolationError{Key: o.Key, Rule: RuleMax, Arg: r.Arg, Value: v}
			}
		default:
			return &RuleViolationError{Key: o.Key, Rule: r.Name, Value: v}
		}
	}
	return nil
}

// validateOptionsSchema applies an optional JSON Schema to the supplied
// values. The schema is compiled per call; definitions are small and
// validation is not on a hot path.
func validateOptionsSchema(values map[string]string, schema map[string]any) error {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return &SchemaViolationError{Detail: fmt.Sprintf("invalid options schema: %v", err)}
	}

	var schemaObj any
	if err := json.Unmarshal(schemaBytes, &schemaObj); err != nil {
		return &SchemaViolationError{Detail: fmt.Sprintf("schema unmarshal error: %v", err)}
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaObj); err != nil {
		return &SchemaViolationError{Detail: fmt.Sprintf("schema compile error: %v", err)}
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		return &SchemaViolationError{Detail: fmt.Sprintf("schema compile error: %v", err)}
	}

	instance := make(map[string]any, len(values))
	for k, v := range values {
		instance[k] = v
	}

	if err := sch.Validate(instance); err != nil {
		return &SchemaViolationError{Detail: err.Error()}
	}
	return nil
}
