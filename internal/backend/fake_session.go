package backend

import (
	"fmt"
	"sync"
)

// FakeSession is an in-memory DRMAASession used by tests and available
// to callers who want to exercise the slurm/gridengine control flow
// without a real scheduler. Every submitted job immediately settles into
// TerminalState (StateDone by default), unless StateFunc is set, in
// which case it decides per submission (keyed by the job template's
// RemoteCommand+Args, with a per-key submission counter), letting tests
// model a job that fails its first attempt and succeeds on retry.
type FakeSession struct {
	mu            sync.Mutex
	initialized   bool
	TerminalState State
	StateFunc     func(tmpl JobTemplate, submissionIndex int) State
	nextID        int
	jobs          map[string]State
	submissions   map[string]int
}

// NewFakeSession returns a FakeSession whose jobs settle into
// StateDone.
func NewFakeSession() *FakeSession {
	return &FakeSession{TerminalState: StateDone, jobs: map[string]State{}, submissions: map[string]int{}}
}

func (f *FakeSession) Init(contact string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = true
	return nil
}

func (f *FakeSession) Exit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = false
	return nil
}

func (f *FakeSession) RunJob(tmpl JobTemplate) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return "", fmt.Errorf("fake session: RunJob before Init")
	}
	f.nextID++
	id := fmt.Sprintf("fake-%d", f.nextID)

	term := f.TerminalState
	if term == "" {
		term = StateDone
	}
	if f.StateFunc != nil {
		key := tmpl.RemoteCommand + " " + fmt.Sprint(tmpl.Args)
		idx := f.submissions[key]
		f.submissions[key] = idx + 1
		term = f.StateFunc(tmpl, idx)
	}
	f.jobs[id] = term
	return id, nil
}

func (f *FakeSession) JobStatus(jobID string) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.jobs[jobID]
	if !ok {
		return StateUndetermined, fmt.Errorf("fake session: unknown job %s", jobID)
	}
	return s, nil
}

func (f *FakeSession) Wait(jobID string) (State, error) {
	return f.JobStatus(jobID)
}

func (f *FakeSession) DeleteJobTemplate(jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, jobID)
	return nil
}
