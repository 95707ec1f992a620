package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

type jobModel struct {
	bun.BaseModel `bun:"table:plaza_jobs"`

	ID          string     `bun:"id,pk"`
	Name        string     `bun:"name,notnull"`
	Queue       string     `bun:"queue,notnull,default:'default'"`
	Payload     []byte     `bun:"payload,notnull,type:bytea"`
	State       string     `bun:"state,notnull,default:'PENDING'"`
	Progress    int        `bun:"progress,notnull,default:0"`
	Result      []byte     `bun:"result,type:bytea"`
	Error       string     `bun:"error,notnull,default:''"`
	Attempts    int        `bun:"attempts,notnull,default:0"`
	MaxRetries  int        `bun:"max_retries,notnull,default:0"`
	Priority    int        `bun:"priority,notnull,default:0"`
	WorkerID    *string    `bun:"worker_id"`
	RunAt       time.Time  `bun:"run_at,notnull,default:current_timestamp"`
	StartedAt   *time.Time `bun:"started_at"`
	SettledAt   *time.Time `bun:"settled_at"`
	HeartbeatAt *time.Time `bun:"heartbeat_at"`
	Timeout     int64      `bun:"timeout,notnull,default:0"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

func toJobModel(j *job.Job) *jobModel {
	m := &jobModel{
		ID:          j.ID.String(),
		Name:        j.Name,
		Queue:       j.Queue,
		Payload:     j.Payload,
		State:       string(j.State),
		Progress:    j.Progress,
		Result:      j.Result,
		Error:       j.Error,
		Attempts:    j.Attempts,
		MaxRetries:  j.MaxRetries,
		Priority:    j.Priority,
		RunAt:       j.RunAt,
		StartedAt:   j.StartedAt,
		SettledAt:   j.SettledAt,
		HeartbeatAt: j.HeartbeatAt,
		Timeout:     j.Timeout.Nanoseconds(),
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if !j.WorkerID.IsNil() {
		w := j.WorkerID.String()
		m.WorkerID = &w
	}
	return m
}

func fromJobModel(m *jobModel) (*job.Job, error) {
	parsedID, err := id.ParseJobID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("plaza/bun: parse job id %q: %w", m.ID, err)
	}

	j := &job.Job{
		Entity: plaza.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          parsedID,
		Name:        m.Name,
		Queue:       m.Queue,
		Payload:     m.Payload,
		State:       job.State(m.State),
		Progress:    m.Progress,
		Result:      m.Result,
		Error:       m.Error,
		Attempts:    m.Attempts,
		MaxRetries:  m.MaxRetries,
		Priority:    m.Priority,
		RunAt:       m.RunAt,
		StartedAt:   m.StartedAt,
		SettledAt:   m.SettledAt,
		HeartbeatAt: m.HeartbeatAt,
		Timeout:     time.Duration(m.Timeout),
	}

	if m.WorkerID != nil && *m.WorkerID != "" {
		if wid, wErr := id.ParseWorkerID(*m.WorkerID); wErr == nil {
			j.WorkerID = wid
		}
	}

	return j, nil
}

func fromJobModels(models []jobModel) ([]*job.Job, error) {
	jobs := make([]*job.Job, 0, len(models))
	for i := range models {
		j, err := fromJobModel(&models[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}
