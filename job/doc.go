// Package job defines the background job entity, its four-state lifecycle,
// typed definitions, the store contract and the read-side query service
// behind the job status API.
//
// # Lifecycle
//
//	PENDING → RUNNING → COMPLETED
//	PENDING → RUNNING → PENDING (retry, RunAt in the future) → RUNNING → ...
//	PENDING → RUNNING → FAILED
//
// A retry keeps the job PENDING with a later RunAt and an incremented
// Attempts counter, so the public state set stays {PENDING, RUNNING,
// COMPLETED, FAILED}.
//
// # Defining a Job
//
//	var SendReviewDigest = job.NewDefinition("send-review-digest",
//	    func(ctx context.Context, in DigestInput) error {
//	        job.SetProgress(ctx, 50)
//	        return job.SetResult(ctx, map[string]int{"sent": n})
//	    },
//	    job.WithQueue("mail"),
//	)
//
// Definitions are registered with [RegisterDefinition]. Plugins contribute
// them as worker controllers.
//
// # Querying
//
// [Query] backs Query.job and Query.jobs. It returns [Info] values, the
// JobInfo view with duration in milliseconds.
package job
