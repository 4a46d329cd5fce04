package step

import (
	"github.com/geneflow-org/geneflow/internal/backend"
	"github.com/geneflow-org/geneflow/internal/model"
)

// TranslateState maps a raw backend.State to a model.Status. Queued/held
// resolves to QUEUED for gridengine and PENDING for every other backend
// (slurm, remote).
func TranslateState(backendName string, st backend.State) model.Status {
	switch st {
	case backend.StateUndetermined:
		return model.StatusUnknown
	case backend.StateQueued, backend.StateHeld:
		if backendName == "gridengine" {
			return model.StatusQueued
		}
		return model.StatusPending
	case backend.StateRunning, backend.StateSuspended:
		return model.StatusRunning
	case backend.StateDone:
		return model.StatusFinished
	case backend.StateFailed:
		return model.StatusFailed
	default:
		return model.StatusUnknown
	}
}
