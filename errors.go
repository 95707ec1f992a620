package plaza

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("plaza: no store configured")
	ErrStoreClosed     = errors.New("plaza: store closed")
	ErrMigrationFailed = errors.New("plaza: migration failed")

	// Not found errors.
	ErrJobNotFound    = errors.New("plaza: job not found")
	ErrPluginNotFound = errors.New("plaza: plugin not found")
	ErrNoHandler      = errors.New("plaza: no handler registered for job")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("plaza: job already exists")
	ErrDuplicatePlugin  = errors.New("plaza: duplicate plugin")
	ErrDuplicateTask    = errors.New("plaza: duplicate scheduled task")

	// State errors.
	ErrInvalidState          = errors.New("plaza: invalid job state")
	ErrAlreadyBootstrapped   = errors.New("plaza: already bootstrapped")
	ErrNotBootstrapped       = errors.New("plaza: not bootstrapped")
	ErrConfigFrozen          = errors.New("plaza: configuration is frozen after bootstrap")
	ErrInvalidSchema         = errors.New("plaza: invalid schema")
	ErrInvalidCustomFields   = errors.New("plaza: invalid custom field configuration")
	ErrOpenTasksNotCompleted = errors.New("plaza: open tasks did not complete before shutdown deadline")
)
