package cron

import (
	"encoding/json"
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/plugin"
)

// Entry is a scheduled task registered with a Scheduler.
type Entry struct {
	ID        id.TaskID  `json:"id"`
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	JobName   string     `json:"job_name"`
	Queue     string     `json:"queue,omitempty"`
	Payload   []byte     `json:"payload,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt time.Time  `json:"next_run_at"`
	LastJobID id.JobID   `json:"last_job_id,omitempty"`

	schedule cronlib.Schedule
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

func newEntry(task plugin.ScheduledTask, now time.Time) (*Entry, error) {
	if task.Name == "" || task.JobName == "" {
		return nil, fmt.Errorf("cron: task needs a name and a job name")
	}
	sched, err := ParseSchedule(task.Schedule)
	if err != nil {
		return nil, fmt.Errorf("cron: task %q: invalid schedule %q: %w", task.Name, task.Schedule, err)
	}

	var payload []byte
	switch p := task.Payload.(type) {
	case nil:
	case []byte:
		payload = p
	case json.RawMessage:
		payload = p
	default:
		if payload, err = json.Marshal(p); err != nil {
			return nil, fmt.Errorf("cron: task %q: marshal payload: %w", task.Name, err)
		}
	}

	return &Entry{
		ID:        id.NewTaskID(),
		Name:      task.Name,
		Schedule:  task.Schedule,
		JobName:   task.JobName,
		Queue:     task.Queue,
		Payload:   payload,
		NextRunAt: sched.Next(now),
		schedule:  sched,
	}, nil
}

func (e *Entry) clone() *Entry {
	c := *e
	if e.LastRunAt != nil {
		t := *e.LastRunAt
		c.LastRunAt = &t
	}
	return &c
}
