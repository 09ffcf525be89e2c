package health

import (
	"context"
	"fmt"
	"time"
)

// Status is the ordered health level of a cache dependency. Larger values
// are worse, so the status of a set of checks is its maximum.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Worse returns whichever of s and other is the more severe.
func (s Status) Worse(other Status) Status {
	if other > s {
		return other
	}
	return s
}

// MarshalText encodes the status as its name so JSON bodies read
// "healthy" rather than 0.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("health: unknown status %q", text)
}

// Result is the outcome of one check. Details carries check-specific
// figures such as store latency or key counts and is surfaced verbatim by
// the admin health endpoint.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(status Status, message string, err error) Result {
	return Result{Status: status, Message: message, Error: err, Timestamp: time.Now()}
}

func Healthy(message string) Result { return newResult(StatusHealthy, message, nil) }

func Degraded(message string) Result { return newResult(StatusDegraded, message, nil) }

func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// WithDetails merges details into the result, overwriting duplicate keys.
func (r Result) WithDetails(details map[string]any) Result {
	if len(details) == 0 {
		return r
	}
	merged := make(map[string]any, len(r.Details)+len(details))
	for k, v := range r.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	r.Details = merged
	return r
}

func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker probes one dependency of the coordinator.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Check honors cancellation and reports it as Unhealthy.
// - Errors: failures are reported in the Result, never by panicking.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc turns a plain function into a named Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
