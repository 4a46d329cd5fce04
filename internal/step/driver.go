package step

import (
	"context"

	"github.com/geneflow-org/geneflow/internal/model"
)

// Driver is the backend-specific capability Common needs to submit and
// poll one map item. Each backend (local/slurm/gridengine/remote)
// implements Driver directly; Common never knows which backend it is
// driving.
type Driver interface {
	// Submit launches item (whose Template and Attempt are already
	// populated) under jobName and returns the run-attempt record
	// describing the launch.
	Submit(ctx context.Context, item *model.MapItem, jobName string) (model.RunAttempt, error)
	// Poll inspects item's last run-attempt and returns its current
	// engine status, per the backend's status map.
	Poll(ctx context.Context, item *model.MapItem) (model.Status, error)
	// SupportsRetry reports whether a FAILED item may be resubmitted.
	// The local backend returns false.
	SupportsRetry() bool
}
