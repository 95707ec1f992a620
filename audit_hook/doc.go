// Package audithook records job and scheduled task lifecycle events to an
// audit trail.
//
// The extension turns every ext hook into an [Event] and hands it to a
// [Recorder]. Retries are recorded as warnings and terminal failures as
// critical events. [SlogRecorder] writes events as structured log lines:
//
//	engine.Build(p,
//	    engine.WithExtension(audithook.New(audithook.SlogRecorder(logger))),
//	)
//
// Use [WithActions] to record a subset:
//
//	audithook.New(recorder,
//	    audithook.WithActions(audithook.ActionJobFailed, audithook.ActionTaskFired),
//	)
package audithook
