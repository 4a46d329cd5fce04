// Package store defines GeneFlow's Status Store Adapter: the opaque
// interface the runtime depends on for reading workflow/app/job
// definitions and recording status transitions. The concrete
// persistence (SQLite, migrations) lives behind this interface; the
// runtime never touches a schema directly.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/geneflow-org/geneflow/internal/model"
)

// Store is the interface the Workflow Runtime depends on. Neither
// implementation in this package buffers writes: Memory and SQLite apply
// each mutation when its method returns (SQLite opens no transaction), so
// Commit has nothing left to flush and Rollback discards nothing.
type Store interface {
	GetJobDef(ctx context.Context, id string) (*model.Job, error)
	GetWorkflowDef(ctx context.Context, id string) (*model.Workflow, error)
	GetAppDefs(ctx context.Context, workflowID string) (map[string]model.App, error)
	ImportJobs(ctx context.Context, jobs []model.Job) error
	SetJobStarted(ctx context.Context, id string) error
	SetJobFinished(ctx context.Context, id string) error
	UpdateJobStatus(ctx context.Context, id string, status model.Status, message string) error
	// UpdateStepStatus records a step's terminal status and the
	// checkpoint policy it was judged under.
	UpdateStepStatus(ctx context.Context, jobID, stepName string, status model.Status, checkpoint model.Checkpoint) error
	// SaveMapItems persists a settled step's map items, run-attempts
	// included, for post-run inspection.
	SaveMapItems(ctx context.Context, jobID, stepName string, items []model.MapItem) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ErrNotFound is returned when a definition lookup finds nothing.
var ErrNotFound = fmt.Errorf("store: not found")

// Memory is an in-process, map-backed Store. It is the default for
// single-shot `geneflow run` invocations and is used throughout the
// test suite in place of a real SQLite file.
type Memory struct {
	mu sync.Mutex

	workflows map[string]model.Workflow
	apps      map[string]map[string]model.App // workflowID -> appKey -> App
	jobs      map[string]model.Job

	statuses     map[string]model.Status
	messages     map[string]string
	started      map[string]bool
	finished     map[string]bool
	stepStatuses map[string]map[string]model.Status
	mapItems     map[string]map[string][]model.MapItem
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		workflows:    map[string]model.Workflow{},
		apps:         map[string]map[string]model.App{},
		jobs:         map[string]model.Job{},
		statuses:     map[string]model.Status{},
		messages:     map[string]string{},
		started:      map[string]bool{},
		finished:     map[string]bool{},
		stepStatuses: map[string]map[string]model.Status{},
		mapItems:     map[string]map[string][]model.MapItem{},
	}
}

// PutWorkflow registers a workflow definition under id, for tests and
// single-shot CLI invocations that load definitions directly from YAML
// rather than a prior `install-workflow` step.
func (m *Memory) PutWorkflow(id string, wf model.Workflow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[id] = wf
}

// PutApps registers a workflow's app definitions, keyed the same way
// Workflow.Apps keys them.
func (m *Memory) PutApps(workflowID string, apps map[string]model.App) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[workflowID] = apps
}

// PutJob registers a job record directly (bypassing ImportJobs), for
// tests.
func (m *Memory) PutJob(job model.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.JobID] = job
	if _, ok := m.statuses[job.JobID]; !ok {
		m.statuses[job.JobID] = model.StatusPending
	}
}

func (m *Memory) GetJobDef(_ context.Context, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	return &j, nil
}

func (m *Memory) GetWorkflowDef(_ context.Context, id string) (*model.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: workflow %s", ErrNotFound, id)
	}
	return &wf, nil
}

func (m *Memory) GetAppDefs(_ context.Context, workflowID string) (map[string]model.App, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apps, ok := m.apps[workflowID]
	if !ok {
		return nil, fmt.Errorf("%w: apps for workflow %s", ErrNotFound, workflowID)
	}
	out := make(map[string]model.App, len(apps))
	for k, v := range apps {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) ImportJobs(_ context.Context, jobs []model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range jobs {
		m.jobs[j.JobID] = j
		if _, ok := m.statuses[j.JobID]; !ok {
			m.statuses[j.JobID] = model.StatusPending
		}
	}
	return nil
}

func (m *Memory) SetJobStarted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[id] = true
	m.statuses[id] = model.StatusRunning
	return nil
}

func (m *Memory) SetJobFinished(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[id] = true
	return nil
}

func (m *Memory) UpdateJobStatus(_ context.Context, id string, status model.Status, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
	m.messages[id] = message
	return nil
}

func (m *Memory) UpdateStepStatus(_ context.Context, jobID, stepName string, status model.Status, _ model.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stepStatuses[jobID] == nil {
		m.stepStatuses[jobID] = map[string]model.Status{}
	}
	m.stepStatuses[jobID][stepName] = status
	return nil
}

func (m *Memory) SaveMapItems(_ context.Context, jobID, stepName string, items []model.MapItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mapItems[jobID] == nil {
		m.mapItems[jobID] = map[string][]model.MapItem{}
	}
	copied := make([]model.MapItem, len(items))
	copy(copied, items)
	m.mapItems[jobID][stepName] = copied
	return nil
}

// Status returns the job's last-recorded status, for tests.
func (m *Memory) Status(id string) model.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[id]
}

// StepStatus returns a step's last-recorded status, for tests.
func (m *Memory) StepStatus(jobID, stepName string) model.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepStatuses[jobID][stepName]
}

// MapItems returns a step's saved map items, for tests.
func (m *Memory) MapItems(jobID, stepName string) []model.MapItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mapItems[jobID][stepName]
}

func (m *Memory) Commit(_ context.Context) error   { return nil }
func (m *Memory) Rollback(_ context.Context) error { return nil }
