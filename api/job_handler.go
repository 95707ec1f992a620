package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/job"
)

func (a *API) listJobs(ctx forge.Context, req *ListJobsRequest) ([]*job.Info, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, forge.BadRequest(err.Error())
	}

	infos, err := a.eng.JobQuery().Jobs(ctx.Context(), in)
	if err != nil {
		return nil, mapError(err)
	}

	return infos, ctx.JSON(http.StatusOK, infos)
}

func (a *API) getJob(ctx forge.Context, _ *GetJobRequest) (*job.Info, error) {
	jobID := ctx.Param("jobId")

	info, err := a.eng.JobQuery().Job(ctx.Context(), jobID)
	if err != nil {
		return nil, mapError(err)
	}
	if info == nil {
		return nil, forge.NotFound(fmt.Sprintf("%s: %s", plaza.ErrJobNotFound, jobID))
	}

	return info, ctx.JSON(http.StatusOK, info)
}

func (a *API) jobCounts(ctx forge.Context) error {
	counts, err := a.eng.JobQuery().Counts(ctx.Context())
	if err != nil {
		return fmt.Errorf("count jobs: %w", err)
	}

	return ctx.JSON(http.StatusOK, JobCountsResponse{
		Pending:   counts[job.StatePending],
		Running:   counts[job.StateRunning],
		Completed: counts[job.StateCompleted],
		Failed:    counts[job.StateFailed],
	})
}

func (r *ListJobsRequest) toInput() (*job.ListInput, error) {
	if r == nil {
		return nil, nil
	}
	in := &job.ListInput{Name: r.Name, Skip: r.Skip, Take: defaultLimit(r.Take)}
	if r.State != "" {
		st, err := job.ParseState(r.State)
		if err != nil {
			return nil, err
		}
		in.State = &st
	}
	// ids may arrive repeated or comma separated.
	for _, raw := range r.IDs {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				in.IDs = append(in.IDs, s)
			}
		}
	}
	return in, nil
}

func defaultLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return min(n, 1000)
}

// mapError converts plaza sentinel errors to forge HTTP errors.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, plaza.ErrJobNotFound),
		errors.Is(err, plaza.ErrPluginNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, job.ErrInvalidInput),
		errors.Is(err, plaza.ErrInvalidState):
		return forge.BadRequest(err.Error())
	case errors.Is(err, plaza.ErrNotBootstrapped):
		return forge.InternalError(err)
	}
	return err
}
