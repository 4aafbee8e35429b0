package audit

import "time"

// EventWriter is the interface for persisting command execution events.
// Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *ExecutionEvent)
	Close()
}

// ExecutionEvent captures one command execution for the audit trail.
type ExecutionEvent struct {
	RequestID      string
	Command        string
	OptionsJSON    string
	OperatorID     string
	OperatorName   string
	Environment    string
	Confirmed      bool
	ExitCode       int32
	Output         string
	ErrorMessage   string
	ElapsedSeconds float64
	StartedAt      time.Time
	CompletedAt    time.Time
	Source         string
}
