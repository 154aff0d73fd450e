// Package audit records every read and apply run as a JSON-lines event.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/newtcli/pkg/engine"
)

// Operations recorded in the audit log.
const (
	OperationRead  = "read"
	OperationApply = "apply"
)

// Event is one run against one device.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Device    string    `json:"device"`
	Family    string    `json:"family,omitempty"`
	Operation string    `json:"operation"`

	Applied   []string `json:"applied,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
	Untouched []string `json:"untouched,omitempty"`
	// FailedPath is the node that stopped an apply run
	FailedPath string `json:"failed_path,omitempty"`
	// Response is the device output for the failed node
	Response string `json:"response,omitempty"`

	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	ExecuteMode bool          `json:"execute_mode"` // true if -x was used
	Duration    time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	User        string
	Operation   string
	RunID       string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// Matches reports whether e passes every criterion set in f.
func (f Filter) Matches(e *Event) bool {
	switch {
	case f.Device != "" && e.Device != f.Device,
		f.User != "" && e.User != f.User,
		f.Operation != "" && e.Operation != f.Operation,
		f.RunID != "" && e.RunID != f.RunID,
		!f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime),
		!f.EndTime.IsZero() && e.Timestamp.After(f.EndTime),
		f.SuccessOnly && !e.Success,
		f.FailureOnly && e.Success:
		return false
	}
	return true
}

// NewEvent creates a new audit event
func NewEvent(user, device, operation string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		User:      user,
		Device:    device,
		Operation: operation,
	}
}

// WithFamily sets the device family
func (e *Event) WithFamily(family string) *Event {
	e.Family = family
	return e
}

// WithWriteResult copies the outcome of an apply run. A nil result, as
// returned when validation fails, leaves the node lists empty.
func (e *Event) WithWriteResult(res *engine.WriteResult) *Event {
	if res == nil {
		return e
	}
	e.RunID = res.RunID
	e.Applied = res.Applied()
	e.Skipped = res.Skipped()
	e.Untouched = res.Untouched()
	e.Duration = res.Duration
	if f := res.Failed(); f != nil {
		e.FailedPath = f.Path
		e.Response = f.Response
	}
	return e
}

// WithReadResult copies the outcome of a read run.
func (e *Event) WithReadResult(res *engine.ReadResult) *Event {
	if res == nil {
		return e
	}
	e.RunID = res.RunID
	e.Duration = res.Duration
	for _, f := range res.Failures {
		e.Skipped = append(e.Skipped, f.Path)
	}
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks if execute mode was used
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	return e
}
