// Package cron runs the scheduled tasks plugins contribute.
//
// A task pairs a cron expression with a job name and a static payload.
// Expressions use the standard five fields (minute, hour, day of month,
// month, day of week) or a descriptor such as "@hourly" or "@every 10m".
//
// The [Scheduler] keeps its entries in memory and checks for due entries
// on every tick. Each firing enqueues the task's job through an
// [EnqueueFunc] supplied by the engine and emits the TaskFired extension
// hook. Schedulers run only in worker processes that enable scheduled
// tasks, so a deployment should run them in exactly one worker.
package cron
