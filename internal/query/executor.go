package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opsgate/opsgate/internal/queryguard"
	"github.com/opsgate/opsgate/internal/schema"
	"go.uber.org/zap"
)

const defaultMaxRows = 1000

// Outcome is the result of one successful query execution.
type Outcome struct {
	// Columns and Rows are set for row-shaped results (get, first, find,
	// pluck).
	Columns []string
	Rows    [][]any

	// Scalar is set for scalar results (count, sum, avg, min, max,
	// value, exists).
	Scalar    any
	HasScalar bool

	Elapsed time.Duration
}

// Executor binds validated expressions to entity types and evaluates
// them. Strictly read-only: every compiled statement is a SELECT.
type Executor struct {
	db       *sql.DB
	resolver schema.Resolver
	logger   *zap.Logger
	maxRows  int64
}

// ExecutorConfig configures the Executor.
type ExecutorConfig struct {
	DB       *sql.DB
	Resolver schema.Resolver
	Logger   *zap.Logger
	MaxRows  int64 // row cap for collection results; 0 means 1000
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	maxRows := cfg.MaxRows
	if maxRows == 0 {
		maxRows = defaultMaxRows
	}
	return &Executor{
		db:       cfg.DB,
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
		maxRows:  maxRows,
	}
}

// Run validates, binds, and evaluates an expression against the named
// entity type.
//
// The expression is re-validated here regardless of any earlier check:
// validation and execution may be separated in time, and an
// already-validated flag from the caller is never trusted. Validation
// failures (guard rejection, parse or plan errors, unknown entity) are
// returned as their typed errors before any evaluation; evaluation-time
// failures are converted into *ExecutionError carrying the elapsed time
// up to the failure point.
func (e *Executor) Run(ctx context.Context, entityName, expr string) (*Outcome, error) {
	return e.RunWith(ctx, entityName, expr, RunOptions{})
}

// RunBound is Run with values for the expression's :key placeholders.
// Stored expressions take operator input exclusively through placeholders;
// values reach the database as bound parameters only.
func (e *Executor) RunBound(ctx context.Context, entityName, expr string, bindings map[string]any) (*Outcome, error) {
	return e.RunWith(ctx, entityName, expr, RunOptions{Bindings: bindings})
}

// RunOptions carries per-invocation settings.
type RunOptions struct {
	// Bindings supplies values for :key placeholders in the expression.
	Bindings map[string]any
	// MaxRows replaces the executor-wide collection cap when positive.
	MaxRows int64
}

// RunWith validates, binds, and evaluates an expression with explicit
// per-invocation options.
func (e *Executor) RunWith(ctx context.Context, entityName, expr string, opts RunOptions) (*Outcome, error) {
	start := time.Now()

	if res := queryguard.Validate(expr); !res.Accepted {
		return nil, res.Err()
	}

	ent, err := e.resolver.Lookup(ctx, entityName)
	if err != nil {
		return nil, &ExecutionError{
			Message: fmt.Sprintf("entity resolution failed: %v", err),
			Elapsed: time.Since(start),
		}
	}
	if ent == nil {
		return nil, &UnknownEntityTypeError{Entity: entityName}
	}

	calls, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	if len(opts.Bindings) > 0 {
		calls, err = Bind(calls, opts.Bindings)
		if err != nil {
			return nil, err
		}
	}
	plan, err := BuildPlan(ent.Table, calls)
	if err != nil {
		return nil, err
	}

	// Collection results are capped so a missing limit cannot pull an
	// unbounded row set.
	maxRows := e.maxRows
	if opts.MaxRows > 0 {
		maxRows = opts.MaxRows
	}
	if (plan.Terminal == "get" || plan.Terminal == "pluck") &&
		(plan.Limit < 0 || plan.Limit > maxRows) {
		plan.Limit = maxRows
	}

	sqlText, params, err := plan.SQL()
	if err != nil {
		return nil, err
	}

	e.logger.Debug("executing query",
		zap.String("entity", entityName),
		zap.String("sql", sqlText),
	)

	rows, err := e.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, &ExecutionError{Message: err.Error(), Elapsed: time.Since(start)}
	}
	defer rows.Close()

	outcome, err := scanOutcome(rows, plan)
	if err != nil {
		return nil, &ExecutionError{Message: err.Error(), Elapsed: time.Since(start)}
	}
	outcome.Elapsed = time.Since(start)
	return outcome, nil
}

func scanOutcome(rows *sql.Rows, plan *Plan) (*Outcome, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var scanned [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		scanned = append(scanned, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch plan.Terminal {
	case "count", "sum", "avg", "min", "max", "value", "exists":
		out := &Outcome{HasScalar: true}
		if len(scanned) > 0 && len(scanned[0]) > 0 {
			out.Scalar = scanned[0][0]
		}
		return out, nil
	default:
		return &Outcome{Columns: cols, Rows: scanned}, nil
	}
}
