package shared

import (
	"sync"

	"github.com/geneflow-org/geneflow/internal/model"
)

// MaxRunAttempts bounds the number of run-attempts a map item may
// accumulate (len(run) == attempt+1, attempt ≤ 5). Attempt is
// 0-indexed, so a fifth and final attempt leaves
// Attempt == MaxRunAttempts-1; a failure there is terminal and no sixth
// run-attempt is appended.
const MaxRunAttempts = 5

// EvaluateCheckpoint applies a step's checkpoint policy to its map items'
// terminal-state distribution. Items must already be terminal
// (model.Status.Terminal()); EvaluateCheckpoint does not itself wait.
func EvaluateCheckpoint(policy model.Checkpoint, items []model.MapItem) bool {
	switch policy {
	case model.CheckpointNone:
		return true
	case model.CheckpointAny:
		if len(items) == 0 {
			return false
		}
		for _, it := range items {
			if it.Status == model.StatusFinished {
				return true
			}
		}
		return false
	case model.CheckpointAll:
		fallthrough
	default:
		if len(items) == 0 {
			return false
		}
		for _, it := range items {
			if it.Status != model.StatusFinished {
				return false
			}
		}
		return true
	}
}

// AllTerminal reports whether every item has settled into a terminal
// status.
func AllTerminal(items []model.MapItem) bool {
	for _, it := range items {
		if !it.Status.Terminal() {
			return false
		}
	}
	return true
}

// Throttle is the single admission gate both initial submission and
// retry re-submission pass through: the running counter is incremented
// on Admit and decremented exactly once per terminal transition via
// Release.
type Throttle struct {
	mu         sync.Mutex
	limit      int // 0 means unlimited
	numRunning int
}

// NewThrottle returns a Throttle with the given concurrent-job limit (0
// means unlimited).
func NewThrottle(limit int) *Throttle {
	return &Throttle{limit: limit}
}

// Admit reports whether one more non-terminal job may be started, and if
// so reserves the slot.
func (t *Throttle) Admit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit > 0 && t.numRunning >= t.limit {
		return false
	}
	t.numRunning++
	return true
}

// Release frees one slot. Call exactly once per map item that transitions
// to a terminal status after a successful Admit.
func (t *Throttle) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.numRunning > 0 {
		t.numRunning--
	}
}

// NumRunning returns the current count of admitted, not-yet-released
// slots (observably ≤ limit when limit > 0).
func (t *Throttle) NumRunning() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numRunning
}

// ShouldRetry reports whether a FAILED map item qualifies for another
// attempt: attempt count under the bound, for a backend that supports
// retry at all. Backends that don't (the local executor) short-circuit
// by passing supportsRetry=false rather than exposing a uniform retry
// call that must error for local.
func ShouldRetry(item *model.MapItem, supportsRetry bool) bool {
	if !supportsRetry {
		return false
	}
	if item.Status != model.StatusFailed {
		return false
	}
	return item.Attempt < MaxRunAttempts-1
}
