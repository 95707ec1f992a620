package job

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/id"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StatePending means the job is waiting to be picked up, possibly
	// after a failed attempt.
	StatePending State = "PENDING"
	// StateRunning means a worker is executing the job.
	StateRunning State = "RUNNING"
	// StateCompleted means the job finished successfully.
	StateCompleted State = "COMPLETED"
	// StateFailed means the job failed and will not be retried.
	StateFailed State = "FAILED"
)

// States lists every state in lifecycle order.
var States = []State{StatePending, StateRunning, StateCompleted, StateFailed}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateRunning, StateCompleted, StateFailed:
		return true
	}
	return false
}

// Settled reports whether s is terminal.
func (s State) Settled() bool { return s == StateCompleted || s == StateFailed }

// ParseState parses a state name case-insensitively.
func ParseState(s string) (State, error) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", plaza.ErrInvalidState, s)
	}
	return st, nil
}

// Job represents a unit of work processed by a worker.
type Job struct {
	plaza.Entity

	ID          id.JobID        `json:"id"`
	Name        string          `json:"name"`
	Queue       string          `json:"queue"`
	Payload     []byte          `json:"payload"`
	State       State           `json:"state"`
	Progress    int             `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Attempts    int             `json:"attempts"`
	MaxRetries  int             `json:"max_retries"`
	Priority    int             `json:"priority"`
	WorkerID    id.WorkerID     `json:"worker_id,omitempty"`
	RunAt       time.Time       `json:"run_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	SettledAt   *time.Time      `json:"settled_at,omitempty"`
	HeartbeatAt *time.Time      `json:"heartbeat_at,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
}

// Duration is the time between StartedAt and SettledAt, or now while the
// job is running. It is zero for jobs that never started.
func (j *Job) Duration(now time.Time) time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	end := now
	if j.SettledAt != nil {
		end = *j.SettledAt
	}
	if d := end.Sub(*j.StartedAt); d > 0 {
		return d
	}
	return 0
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	c := *j
	if j.Payload != nil {
		c.Payload = append([]byte(nil), j.Payload...)
	}
	if j.Result != nil {
		c.Result = append(json.RawMessage(nil), j.Result...)
	}
	c.StartedAt = cloneTime(j.StartedAt)
	c.SettledAt = cloneTime(j.SettledAt)
	c.HeartbeatAt = cloneTime(j.HeartbeatAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
