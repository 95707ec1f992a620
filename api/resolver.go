package api

import (
	"context"

	"github.com/xraph/plaza/engine"
	"github.com/xraph/plaza/job"
)

// JobResolver implements the Query.job and Query.jobs fields of the admin
// schema. Bind it into the host GraphQL executor.
type JobResolver struct {
	query *job.Query
}

// NewJobResolver creates a JobResolver backed by eng's job store.
func NewJobResolver(eng *engine.Engine) *JobResolver {
	return &JobResolver{query: eng.JobQuery()}
}

// Job resolves Query.job. Unknown ids resolve to null.
func (r *JobResolver) Job(ctx context.Context, jobID string) (*job.Info, error) {
	return r.query.Job(ctx, jobID)
}

// Jobs resolves Query.jobs.
func (r *JobResolver) Jobs(ctx context.Context, input *job.ListInput) ([]*job.Info, error) {
	infos, err := r.query.Jobs(ctx, input)
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []*job.Info{}
	}
	return infos, nil
}
