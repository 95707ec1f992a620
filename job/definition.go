package job

import "context"

// Definition is a typed job definition. T is the payload type and must be
// JSON-serializable.
type Definition[T any] struct {
	Name    string
	Handler func(ctx context.Context, payload T) error
	Opts    Options
}

// NewDefinition creates a typed job definition.
func NewDefinition[T any](name string, handler func(ctx context.Context, payload T) error, opts ...Option) *Definition[T] {
	def := &Definition[T]{
		Name:    name,
		Handler: handler,
		Opts:    DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&def.Opts)
	}
	return def
}

// Erase returns the payload-agnostic form of the definition.
func (d *Definition[T]) Erase() Erased {
	return Erased{Name: d.Name, Handler: wrap(d), Opts: d.Opts}
}

// Erased is a definition whose handler takes the raw JSON payload.
type Erased struct {
	Name    string
	Handler HandlerFunc
	Opts    Options
}
