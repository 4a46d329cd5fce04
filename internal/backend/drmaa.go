package backend

import (
	"context"
	"fmt"
	"sync"
)

// JobTemplate is the subset of a DRMAA job template GeneFlow actually
// populates: the command, its arguments, the native queue/resource spec
// string passed through to the scheduler unparsed, and the captured
// stdout/stderr paths (DRMAA backends set errorPath/outputPath the same
// way the local executor redirects to _log/<job-name>.{out,err}).
type JobTemplate struct {
	RemoteCommand string
	Args          []string
	NativeSpec    string
	WorkingDir    string
	OutputPath    string
	ErrorPath     string
}

// DRMAASession is the boundary a real `github.com/dgruber/drmaa` (or
// equivalent gridengine/slurm) binding would implement. GeneFlow itself
// never imports a DRMAA binding directly, since the C library is only
// present on cluster hosts; production wiring plugs a real session in
// at this interface and tests run against FakeSession.
type DRMAASession interface {
	Init(contact string) error
	Exit() error
	RunJob(tmpl JobTemplate) (jobID string, err error)
	JobStatus(jobID string) (State, error)
	Wait(jobID string) (State, error)
	DeleteJobTemplate(jobID string) error
}

// drmaaContext is the shared implementation behind SlurmContext and
// GridengineContext: both schedulers are DRMAA-shaped from GeneFlow's
// point of view and differ only in name and native spec conventions.
type drmaaContext struct {
	mu      sync.Mutex
	name    string
	contact string
	session DRMAASession
}

func (c *drmaaContext) Name() string { return c.name }

func (c *drmaaContext) DataScheme() string { return "local" }

func (c *drmaaContext) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return fmt.Errorf("backend %s: no DRMAA session configured", c.name)
	}
	return c.session.Init(c.contact)
}

func (c *drmaaContext) Teardown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.Exit()
}

// Submit runs tmpl through the underlying session and returns the
// scheduler-assigned job ID.
func (c *drmaaContext) Submit(tmpl JobTemplate) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return "", fmt.Errorf("backend %s: not initialized", c.name)
	}
	return c.session.RunJob(tmpl)
}

// Status returns the current State of jobID.
func (c *drmaaContext) Status(jobID string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return StateUndetermined, fmt.Errorf("backend %s: not initialized", c.name)
	}
	return c.session.JobStatus(jobID)
}

// Wait blocks (per the underlying session's semantics) until jobID
// reaches a terminal state.
func (c *drmaaContext) Wait(jobID string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return StateUndetermined, fmt.Errorf("backend %s: not initialized", c.name)
	}
	return c.session.Wait(jobID)
}

// DeleteTemplate releases any scheduler-side resources tied to jobID.
func (c *drmaaContext) DeleteTemplate(jobID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.DeleteJobTemplate(jobID)
}

// SlurmContext is the execution context for steps submitted to a Slurm
// cluster via a DRMAA-shaped session.
type SlurmContext struct{ drmaaContext }

// NewSlurmContext returns a SlurmContext bound to session, identifying
// itself to the scheduler with contact (a DRMAA contact string, e.g. a
// cluster name or config path; may be empty for the default cluster).
func NewSlurmContext(contact string, session DRMAASession) *SlurmContext {
	return &SlurmContext{drmaaContext{name: "slurm", contact: contact, session: session}}
}

// GridengineContext is the execution context for steps submitted to a
// Grid Engine cluster via a DRMAA-shaped session.
type GridengineContext struct{ drmaaContext }

// NewGridengineContext returns a GridengineContext bound to session.
func NewGridengineContext(contact string, session DRMAASession) *GridengineContext {
	return &GridengineContext{drmaaContext{name: "gridengine", contact: contact, session: session}}
}
