// Package runner orchestrates one command execution: registry lookup,
// environment eligibility, the confirmation gate, option validation,
// execution, and audit capture.
package runner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/opsgate/opsgate/internal/audit"
	"github.com/opsgate/opsgate/internal/auth"
	"github.com/opsgate/opsgate/internal/command"
	"github.com/opsgate/opsgate/internal/policy"
	"github.com/opsgate/opsgate/internal/registry"
	"go.uber.org/zap"
)

// Request describes one execution attempt.
type Request struct {
	Command     string
	Options     map[string]string
	Environment string
	Confirmed   bool
}

// Response is the outcome of an execution that was allowed to run.
// Execution failures are reported here with a non-zero exit code, not
// as Go errors; errors are reserved for pre-flight rejections.
type Response struct {
	RequestID string
	Output    string
	ExitCode  int32
	Elapsed   time.Duration
}

// Runner wires the registry, policy, and audit sink together.
type Runner struct {
	registry     *registry.Registry
	environments policy.Environments
	events       audit.EventWriter
	logger       *zap.Logger
}

// Config configures a Runner.
type Config struct {
	Registry     *registry.Registry
	Environments policy.Environments
	Events       audit.EventWriter
	Logger       *zap.Logger
}

// New creates a Runner.
func New(cfg Config) *Runner {
	return &Runner{
		registry:     cfg.Registry,
		environments: cfg.Environments,
		events:       cfg.Events,
		logger:       cfg.Logger,
	}
}

// Catalog returns the commands an operator may see in the given
// environment, grouped by category. Ineligible commands are absent, not
// flagged. Evaluated fresh on every call.
func (r *Runner) Catalog(environment string) map[string][]command.Definition {
	env := r.environments.Lookup(environment)
	out := make(map[string][]command.Definition)
	for _, cmd := range r.registry.All() {
		def := cmd.Definition()
		if env.Decide(def) == policy.Hidden {
			continue
		}
		out[def.Category] = append(out[def.Category], def)
	}
	return out
}

// Describe returns the definition of one eligible command.
func (r *Runner) Describe(environment, name string) (command.Definition, error) {
	cmd, ok := r.registry.Get(name)
	if !ok {
		return command.Definition{}, &CommandNotFoundError{Name: name}
	}
	def := cmd.Definition()
	env := r.environments.Lookup(environment)
	if env.Decide(def) == policy.Hidden {
		return command.Definition{}, &NotEligibleError{Name: name, Environment: environment}
	}
	return def, nil
}

// Execute runs one command on behalf of an operator.
//
// Pre-flight rejections (unknown command, ineligible environment, missing
// confirmation, validation failure) return typed errors and emit no audit
// event; validation failure makes execution unreachable. Once execution
// starts, its outcome is always captured in an audit event, and execution
// errors surface as a Response with exit code 1.
func (r *Runner) Execute(ctx context.Context, operator *auth.Operator, req Request) (*Response, error) {
	cmd, ok := r.registry.Get(req.Command)
	if !ok {
		return nil, &CommandNotFoundError{Name: req.Command}
	}
	def := cmd.Definition()

	env := r.environments.Lookup(req.Environment)
	decision := env.Decide(def)
	if decision == policy.Hidden {
		return nil, &NotEligibleError{Name: req.Command, Environment: req.Environment}
	}

	needsConfirm := decision == policy.ConfirmRequired ||
		policy.RequiresConfirmation(def.Risk, def.RequiresConfirm)
	if needsConfirm && !req.Confirmed {
		return nil, &ConfirmationRequiredError{Name: req.Command, Risk: def.Risk}
	}

	values := command.ApplyDefaults(req.Options, def.Options)
	if err := cmd.Validate(values); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	start := time.Now()

	output, execErr := cmd.Execute(ctx, values)
	elapsed := time.Since(start)

	resp := &Response{
		RequestID: requestID,
		Output:    output,
		Elapsed:   elapsed,
	}
	var errMsg string
	if execErr != nil {
		resp.ExitCode = 1
		resp.Output = execErr.Error()
		errMsg = execErr.Error()
	}

	r.logger.Info("command executed",
		zap.String("request_id", requestID),
		zap.String("command", req.Command),
		zap.String("environment", req.Environment),
		zap.String("operator_id", operatorID(operator)),
		zap.Int32("exit_code", resp.ExitCode),
		zap.Duration("elapsed", elapsed),
	)

	r.events.Write(&audit.ExecutionEvent{
		RequestID:      requestID,
		Command:        req.Command,
		OptionsJSON:    marshalOptions(values),
		OperatorID:     operatorID(operator),
		OperatorName:   operatorName(operator),
		Environment:    req.Environment,
		Confirmed:      req.Confirmed,
		ExitCode:       resp.ExitCode,
		Output:         resp.Output,
		ErrorMessage:   errMsg,
		ElapsedSeconds: elapsed.Seconds(),
		StartedAt:      start,
		CompletedAt:    start.Add(elapsed),
		Source:         "cli",
	})

	return resp, nil
}

func marshalOptions(values map[string]string) string {
	b, err := json.Marshal(values)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func operatorID(op *auth.Operator) string {
	if op == nil {
		return "anonymous"
	}
	return op.ID
}

func operatorName(op *auth.Operator) string {
	if op == nil {
		return ""
	}
	return op.Name
}
