// Package queue limits how fast and how many jobs of a named queue a
// worker process runs.
//
// Jobs carry a Queue name. The worker polls the queues listed in
// plaza.WorkerConfig.Queues and, when a [Limiter] is configured, asks it
// for a slot before running each dequeued job:
//
//	engine.Build(p,
//	    engine.WithQueueLimits(
//	        queue.Limit{Name: "search-index", MaxConcurrency: 2},
//	        queue.Limit{Name: "emails", RateLimit: 5, RateBurst: 10},
//	    ),
//	)
//
// A job denied a slot goes back to PENDING and is retried after the poll
// interval. Queues without a [Limit] are bounded only by the worker
// concurrency.
package queue
