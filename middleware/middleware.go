package middleware

import (
	"context"

	"github.com/xraph/plaza/job"
)

// Handler is the terminal function that runs the job handler.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler. It must call next unless it short-circuits
// with an error.
type Middleware func(ctx context.Context, j *job.Job, next Handler) error

// Chain composes middleware so that the first one is the outermost:
//
//	Chain(logging, recover)  ⇒  logging → recover → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, j, prev)
			}
		}
		return h(ctx)
	}
}
