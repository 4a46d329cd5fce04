// Package backend implements GeneFlow's execution contexts: the
// process-wide, per-backend resources (DRMAA sessions, authenticated
// REST clients) step executors submit and poll jobs through. Contexts
// follow an initialize → get_options → teardown lifecycle; shared
// session handles are typed values attached to a backend Registry.
package backend

import "context"

// State is a raw backend job state, before translation to a
// model.Status by the per-backend status map.
type State string

// Backend-reported states recognized across DRMAA-shaped and remote-REST
// backends.
const (
	StateUndetermined State = "undetermined"
	StateQueued       State = "queued"
	StateHeld         State = "held"
	StateRunning      State = "running"
	StateSuspended    State = "suspended"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Context is the common lifecycle every backend implements.
type Context interface {
	// Name identifies the backend: "local", "slurm", "gridengine", or
	// "remote".
	Name() string
	// DataScheme is the URI scheme this backend's data context operates
	// at: "local" or "agave". A step's work URI scheme must match its
	// execution context's data scheme.
	DataScheme() string
	// Initialize acquires any long-lived session/client. A failure here
	// is fatal: the runtime aborts before any step starts.
	Initialize(ctx context.Context) error
	// Teardown releases the session/client. The run command defers
	// Registry.TeardownAll once InitializeAll has succeeded, so it runs on
	// every later exit path, including after a fatal run error.
	Teardown(ctx context.Context) error
}

// Registry holds the initialized backend Contexts for one run, keyed by
// the execution-context name used in job/step definitions.
type Registry struct {
	contexts map[string]Context
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{contexts: map[string]Context{}}
}

// Add registers ctx under name.
func (r *Registry) Add(name string, ctx Context) {
	r.contexts[name] = ctx
}

// Get returns the Context registered under name, or false if none was
// registered.
func (r *Registry) Get(name string) (Context, bool) {
	c, ok := r.contexts[name]
	return c, ok
}

// InitializeAll initializes every registered context, stopping at the
// first failure (the runtime aborts the run in that case).
func (r *Registry) InitializeAll(ctx context.Context) error {
	for _, c := range r.contexts {
		if err := c.Initialize(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TeardownAll tears down every registered context, continuing past
// individual failures so every context gets a chance to release its
// resources, and returns the first error encountered (if any).
func (r *Registry) TeardownAll(ctx context.Context) error {
	var firstErr error
	for _, c := range r.contexts {
		if err := c.Teardown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
