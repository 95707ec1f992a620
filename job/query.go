package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/id"
)

// ErrInvalidInput marks malformed query arguments.
var ErrInvalidInput = errors.New("job: invalid input")

// Query is the read side of the job status API.
type Query struct {
	store Store
	now   func() time.Time
}

// NewQuery creates a query service over s.
func NewQuery(s Store) *Query {
	return &Query{store: s, now: time.Now}
}

// Job returns the job with the given ID, or nil when it does not exist.
// A malformed ID is an error.
func (q *Query) Job(ctx context.Context, jobID string) (*Info, error) {
	jid, err := id.ParseJobID(jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: job id %q: %w", ErrInvalidInput, jobID, err)
	}
	j, err := q.store.GetJob(ctx, jid)
	if errors.Is(err, plaza.ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("job: get %s: %w", jid, err)
	}
	return ToInfo(j, q.now()), nil
}

// Jobs lists jobs matching in, oldest first. A nil input lists all jobs.
func (q *Query) Jobs(ctx context.Context, in *ListInput) ([]*Info, error) {
	opts, err := in.toOpts()
	if err != nil {
		return nil, err
	}
	jobs, err := q.store.ListJobs(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("job: list: %w", err)
	}
	now := q.now()
	out := make([]*Info, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ToInfo(j, now))
	}
	return out, nil
}

// Counts returns the number of jobs per state.
func (q *Query) Counts(ctx context.Context) (map[State]int64, error) {
	out := make(map[State]int64, len(States))
	for _, s := range States {
		n, err := q.store.CountJobs(ctx, CountOpts{State: s})
		if err != nil {
			return nil, fmt.Errorf("job: count %s: %w", s, err)
		}
		out[s] = n
	}
	return out, nil
}

func (in *ListInput) toOpts() (ListOpts, error) {
	if in == nil {
		return ListOpts{}, nil
	}
	if in.Skip < 0 || in.Take < 0 {
		return ListOpts{}, fmt.Errorf("%w: skip and take must not be negative", ErrInvalidInput)
	}
	opts := ListOpts{Name: in.Name, Offset: in.Skip, Limit: in.Take}
	if in.State != nil {
		if !in.State.Valid() {
			return ListOpts{}, fmt.Errorf("%w: %q", plaza.ErrInvalidState, *in.State)
		}
		opts.State = *in.State
	}
	for _, raw := range in.IDs {
		jid, err := id.ParseJobID(raw)
		if err != nil {
			return ListOpts{}, fmt.Errorf("%w: job id %q: %w", ErrInvalidInput, raw, err)
		}
		opts.IDs = append(opts.IDs, jid)
	}
	return opts, nil
}
