package backend

import "context"

// LocalContext is the execution context for steps that run as child
// processes on the same host as the runtime. It holds no session: the
// lifecycle methods are no-ops, present only to satisfy Context.
type LocalContext struct{}

// NewLocalContext returns a ready-to-use LocalContext.
func NewLocalContext() *LocalContext {
	return &LocalContext{}
}

func (c *LocalContext) Name() string { return "local" }

func (c *LocalContext) DataScheme() string { return "local" }

func (c *LocalContext) Initialize(ctx context.Context) error { return nil }

func (c *LocalContext) Teardown(ctx context.Context) error { return nil }
