package command

import (
	"errors"
	"fmt"
)

// MissingRequiredError reports a required option with no value.
type MissingRequiredError struct {
	Key string
}

func (e *MissingRequiredError) Error() string {
	return fmt.Sprintf("missing required option: %s", e.Key)
}

// RuleViolationError reports an option value that failed a validation rule.
type RuleViolationError struct {
	Key   string
	Rule  RuleName
	Arg   int
	Value string
}

func (e *RuleViolationError) Error() string {
	switch e.Rule {
	case RuleMin, RuleMax:
		return fmt.Sprintf("option %s: value %q violates rule %s(%d)", e.Key, e.Value, e.Rule, e.Arg)
	default:
		return fmt.Sprintf("option %s: value %q violates rule %s", e.Key, e.Value, e.Rule)
	}
}

// InvalidCommandError reports a definition that does not satisfy the
// Definition invariants. Returned at registration time.
type InvalidCommandError struct {
	Name   string
	Reason string
}

func (e *InvalidCommandError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid command: %s", e.Reason)
	}
	return fmt.Sprintf("invalid command %s: %s", e.Name, e.Reason)
}

// SchemaViolationError reports option values rejected by the command's
// optional JSON Schema.
type SchemaViolationError struct {
	Detail string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("option schema validation failed: %s", e.Detail)
}

// IsValidationError reports whether err is any of the option validation
// error types. Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var mr *MissingRequiredError
	var rv *RuleViolationError
	var sv *SchemaViolationError
	return errors.As(err, &mr) || errors.As(err, &rv) || errors.As(err, &sv)
}
