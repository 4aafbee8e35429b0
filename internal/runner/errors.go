package runner

import (
	"fmt"

	"github.com/opsgate/opsgate/internal/command"
)

// CommandNotFoundError reports a request for an unregistered command.
type CommandNotFoundError struct {
	Name string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Name)
}

// NotEligibleError reports a command hidden in the requested environment.
type NotEligibleError struct {
	Name        string
	Environment string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("command %s is not available in environment %s", e.Name, e.Environment)
}

// ConfirmationRequiredError reports an unconfirmed request for a command
// that needs explicit confirmation.
type ConfirmationRequiredError struct {
	Name string
	Risk command.RiskLevel
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("command %s (risk %s) requires confirmation", e.Name, e.Risk)
}
