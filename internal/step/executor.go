// Package step implements the per-backend step executors: the
// four-phase lifecycle (init_data_uri, iterate_map_uri,
// run/check_running_jobs, clean_up) that every backend (local, slurm,
// gridengine, remote-REST) drives over a step's map items. The phases
// that are identical across backends live in Common, a free-standing
// helper embedded by each backend struct; what differs (how a job is
// submitted and polled) is captured by the small Driver interface each
// backend implements.
package step

import (
	"context"

	"github.com/geneflow-org/geneflow/internal/geneuri"
	"github.com/geneflow-org/geneflow/internal/model"
)

// Executor is the common contract the Workflow Runtime drives every
// step through, regardless of backend.
type Executor interface {
	// StepName returns the step's definition name.
	StepName() string
	// InitDataURI creates the step's output folder (and nested _log/
	// subfolder) under its execution context's work URI. If clean is
	// true, a pre-existing folder is removed first.
	InitDataURI(ctx context.Context, clean bool) error
	// IterateMapURI populates the step's map items.
	IterateMapURI(ctx context.Context) error
	// Run submits every PENDING map item, respecting the throttle
	// limit.
	Run(ctx context.Context) error
	// CheckRunningJobs polls every non-terminal map item once and
	// updates its status, retrying FAILED items that qualify.
	CheckRunningJobs(ctx context.Context) error
	// AllDone reports whether every map item has reached a terminal
	// status.
	AllDone() bool
	// CleanUp finalizes the step: backend-specific artifact staging,
	// then the checkpoint policy. Returns an error if the checkpoint
	// fails (the step is FAILED).
	CleanUp(ctx context.Context) error
	// MapItems returns the step's current map items (read-only view;
	// callers must not mutate the returned slice's elements across
	// goroutines).
	MapItems() []model.MapItem
	// OutputURI returns the step's output folder URI, used by
	// dependent steps and by final-output staging.
	OutputURI() geneuri.URI
}
