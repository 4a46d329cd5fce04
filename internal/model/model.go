// Package model defines GeneFlow's immutable definition records (workflow,
// app, job) and the mutable per-run records (map items, run attempts) that
// the rest of the engine operates on.
package model

// InputType is the declared type of a workflow or app input.
type InputType string

// Recognized input types.
const (
	InputTypeFile      InputType = "File"
	InputTypeDirectory InputType = "Directory"
	InputTypeAny       InputType = "Any"
)

// Checkpoint is a step's policy for accepting a terminal map-item
// distribution.
type Checkpoint string

// Recognized checkpoint policies.
const (
	CheckpointAll  Checkpoint = "all"
	CheckpointAny  Checkpoint = "any"
	CheckpointNone Checkpoint = "none"
)

// Status is the lifecycle status of a job, step, or map item.
type Status string

// Recognized statuses, shared across jobs/steps/map-items/run-attempts.
const (
	StatusPending  Status = "PENDING"
	StatusQueued   Status = "QUEUED"
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
	StatusError    Status = "ERROR"
	StatusUnknown  Status = "UNKNOWN"
)

// Terminal reports whether s is a settled, non-transitional status.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusFailed, StatusError:
		return true
	default:
		return false
	}
}

// IOParam describes one workflow or app input/parameter declaration.
type IOParam struct {
	Type        string `yaml:"type" json:"type"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
	Default     any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// MapSpec is a step's optional fan-out specification.
type MapSpec struct {
	URI       string `yaml:"uri" json:"uri"`
	Glob      string `yaml:"glob" json:"glob"`
	Inclusive bool   `yaml:"inclusive" json:"inclusive"`
	Recursive bool   `yaml:"recursive" json:"recursive"`
}

// GlobOrDefault returns the map's glob pattern, defaulting to "*".
func (m *MapSpec) GlobOrDefault() string {
	if m == nil || m.Glob == "" {
		return "*"
	}
	return m.Glob
}

// StepExecution is the runtime-injected execution directive for a step:
// which backend context runs it, which submission method, and any
// backend-specific parameters.
type StepExecution struct {
	Context    string            `yaml:"context" json:"context"`
	Method     string            `yaml:"method" json:"method"`
	Parameters map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	// ExecInit is an optional pre-exec shell snippet forwarded to the
	// wrapper as --exec_init=<string>.
	ExecInit string `yaml:"exec_init,omitempty" json:"exec_init,omitempty"`
}

// Step is one node of a workflow's DAG.
type Step struct {
	Name       string            `yaml:"name" json:"name"`
	AppName    string            `yaml:"app_name" json:"app_name"`
	Depend     []string          `yaml:"depend,omitempty" json:"depend,omitempty"`
	Template   map[string]string `yaml:"template,omitempty" json:"template,omitempty"`
	Map        *MapSpec          `yaml:"map,omitempty" json:"map,omitempty"`
	Execution  StepExecution     `yaml:"execution,omitempty" json:"execution,omitempty"`
	Checkpoint Checkpoint        `yaml:"checkpoint,omitempty" json:"checkpoint,omitempty"`
}

// CheckpointOrDefault returns the step's checkpoint policy, defaulting to
// "all" when unset.
func (s *Step) CheckpointOrDefault() Checkpoint {
	if s.Checkpoint == "" {
		return CheckpointAll
	}
	return s.Checkpoint
}

// AppRef is a workflow's reference to an app package.
type AppRef struct {
	Git     string `yaml:"git" json:"git"`
	Version string `yaml:"version" json:"version"`
}

// Workflow is an immutable-after-load workflow definition.
type Workflow struct {
	Name        string             `yaml:"name" json:"name"`
	Version     string             `yaml:"version" json:"version"`
	Description string             `yaml:"description" json:"description"`
	Inputs      map[string]IOParam `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Parameters  map[string]IOParam `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Steps       map[string]Step    `yaml:"steps,omitempty" json:"steps,omitempty"`
	FinalOutput []string           `yaml:"final_output,omitempty" json:"final_output,omitempty"`
	Apps        map[string]AppRef  `yaml:"apps,omitempty" json:"apps,omitempty"`
}

// AppImplLocal is the local-backend implementation descriptor of an app.
type AppImplLocal struct {
	Script string `yaml:"script" json:"script"`
}

// AppImplAgave is the remote-REST-backend implementation descriptor of an
// app.
type AppImplAgave struct {
	AgaveAppID string `yaml:"agave_app_id" json:"agave_app_id"`
}

// AppImplementation is one backend's implementation descriptor for an app.
// Exactly one of Local/Agave is populated depending on the backend key it
// is stored under in App.Implementation.
type AppImplementation struct {
	Local *AppImplLocal `yaml:"local,omitempty" json:"local,omitempty"`
	Agave *AppImplAgave `yaml:"agave,omitempty" json:"agave,omitempty"`
}

// App is an immutable-after-load app definition: a reusable computation
// unit invoked by steps.
type App struct {
	Name           string                       `yaml:"name" json:"name"`
	Version        string                       `yaml:"version" json:"version"`
	Description    string                       `yaml:"description" json:"description"`
	Inputs         map[string]IOParam           `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Parameters     map[string]IOParam           `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Implementation map[string]AppImplementation `yaml:"implementation,omitempty" json:"implementation,omitempty"`
	// PreExec/PostExec are opaque to the engine: they are consumed by the
	// rendered wrapper script itself, not executed directly. Kept so App
	// records round-trip losslessly through the Store.
	PreExec  []string `yaml:"pre_exec,omitempty" json:"pre_exec,omitempty"`
	PostExec []string `yaml:"post_exec,omitempty" json:"post_exec,omitempty"`
}

// Notification is one status-change notification endpoint.
type Notification struct {
	URL string `yaml:"url" json:"url"`
	To  string `yaml:"to" json:"to"`
}

// JobExecution carries the job's per-step execution overrides. Context and
// Method are keyed by step name with a reserved "default" key; Parameters
// is keyed by step name (also with "default") to a parameter map.
type JobExecution struct {
	Context    map[string]string            `yaml:"context,omitempty" json:"context,omitempty"`
	Method     map[string]string            `yaml:"method,omitempty" json:"method,omitempty"`
	Parameters map[string]map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

const defaultKey = "default"

// Resolve returns the per-step override in m if present, otherwise the
// "default" entry, otherwise the zero value.
func Resolve(m map[string]string, step string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[step]; ok {
		return v
	}
	return m[defaultKey]
}

// ResolveParameters returns the merged parameter map for step: the
// "default" parameters overridden by any step-specific ones.
func ResolveParameters(m map[string]map[string]string, step string) map[string]string {
	out := map[string]string{}
	for k, v := range m[defaultKey] {
		out[k] = v
	}
	for k, v := range m[step] {
		out[k] = v
	}
	return out
}

// Job is an immutable-after-load job record: one request to run a
// workflow definition with user overrides.
type Job struct {
	JobID        string            `yaml:"job_id" json:"job_id"`
	Name         string            `yaml:"name" json:"name"`
	WorkflowID   string            `yaml:"workflow_id" json:"workflow_id"`
	OutputURI    string            `yaml:"output_uri" json:"output_uri"`
	WorkURI      map[string]string `yaml:"work_uri,omitempty" json:"work_uri,omitempty"`
	Inputs       map[string]any    `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Parameters   map[string]any    `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Execution    JobExecution      `yaml:"execution,omitempty" json:"execution,omitempty"`
	FinalOutput  []string          `yaml:"final_output,omitempty" json:"final_output,omitempty"`
	NoOutputHash bool              `yaml:"no_output_hash,omitempty" json:"no_output_hash,omitempty"`
	// Clean requests each step's output folder be deleted and recreated
	// before the step runs, instead of reusing whatever is already there.
	Clean         bool             `yaml:"clean,omitempty" json:"clean,omitempty"`
	Notifications []Notification   `yaml:"notifications,omitempty" json:"notifications,omitempty"`
}

// RunAttempt is one submission attempt for a map item. Fields are
// populated according to which backend produced the attempt; unused
// fields stay zero-valued.
type RunAttempt struct {
	// PID is set by the local backend.
	PID int `json:"pid,omitempty"`
	// HPCJobID is set by DRMAA backends (slurm, gridengine) and, as a
	// pass-through, by the remote backend.
	HPCJobID string `json:"hpc_job_id,omitempty"`
	// RemoteJobID and ArchiveURI are set by the remote-REST backend.
	RemoteJobID string `json:"remote_job_id,omitempty"`
	ArchiveURI  string `json:"archive_uri,omitempty"`
	Status      Status `json:"status"`
}

// MapItem is one unit of work within a step.
type MapItem struct {
	Filename string            `json:"filename"`
	Template map[string]string `json:"template"`
	Status   Status            `json:"status"`
	Attempt  int               `json:"attempt"`
	Run      []RunAttempt      `json:"run"`
}

// LastRun returns the most recent run-attempt, or nil if none exist yet.
func (m *MapItem) LastRun() *RunAttempt {
	if len(m.Run) == 0 {
		return nil
	}
	return &m.Run[len(m.Run)-1]
}
