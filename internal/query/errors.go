package query

import (
	"fmt"
	"time"
)

// UnknownEntityTypeError reports an entity name that does not resolve to
// a registered data-entity type.
type UnknownEntityTypeError struct {
	Entity string
}

func (e *UnknownEntityTypeError) Error() string {
	return fmt.Sprintf("unknown entity type: %s", e.Entity)
}

// ExecutionError reports an evaluation-time failure. It carries the
// elapsed wall-clock time up to the failure point.
type ExecutionError struct {
	Message string
	Elapsed time.Duration
}

func (e *ExecutionError) Error() string {
	return e.Message
}
