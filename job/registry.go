package job

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// HandlerFunc is a type-erased job handler that accepts the raw JSON
// payload.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Registry maps job names to handlers and their default options.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Erased
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Erased)}
}

// RegisterDefinition registers a typed definition. The payload is decoded
// into T before the handler runs.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	r.Register(def.Erase())
}

// Register registers a type-erased definition, replacing any handler
// with the same name.
func (r *Registry) Register(e Erased) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[e.Name] = e
}

// RegisterHandler registers a raw handler with default options.
func (r *Registry) RegisterHandler(name string, h HandlerFunc, opts ...Option) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r.Register(Erased{Name: name, Handler: h, Opts: o})
}

// Get returns the handler for name.
func (r *Registry) Get(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.handlers[name]
	return e.Handler, ok
}

// Options returns the default options registered for name.
func (r *Registry) Options(name string) (Options, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.handlers[name]
	return e.Opts, ok
}

// Names returns all registered job names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func wrap[T any](def *Definition[T]) HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		var t T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &t); err != nil {
				return fmt.Errorf("unmarshal payload for job %q: %w", def.Name, err)
			}
		}
		return def.Handler(ctx, t)
	}
}
