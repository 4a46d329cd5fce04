// Package runtime implements the workflow runtime: the orchestrator
// that loads a job's definitions, injects its
// overrides, builds the workflow DAG, and drives each step's executor
// through its four-phase lifecycle in topological order, persisting
// status transitions through the Status Store Adapter and emitting
// Notifier events as it goes.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geneflow-org/geneflow/internal/backend"
	"github.com/geneflow-org/geneflow/internal/config"
	"github.com/geneflow-org/geneflow/internal/datamgr"
	"github.com/geneflow-org/geneflow/internal/geneuri"
	"github.com/geneflow-org/geneflow/internal/model"
	"github.com/geneflow-org/geneflow/internal/notify"
	"github.com/geneflow-org/geneflow/internal/step"
	"github.com/geneflow-org/geneflow/internal/step/shared"
	"github.com/geneflow-org/geneflow/internal/store"
	"github.com/geneflow-org/geneflow/internal/workflowdag"
)

// Runtime is a single job's execution engine. Backends, the Data
// Manager, the Store, and the Notifier are process-wide resources
// shared across every job the process runs; RunJob
// itself touches no state another concurrent RunJob call would race on,
// beyond what those shared resources already guard internally.
type Runtime struct {
	Store     store.Store
	DataMgr   *datamgr.Manager
	Backends  *backend.Registry
	Notifier  *notify.Notifier
	Log       *slog.Logger
	Cfg       config.Config
	// Importers maps an execution-context name to the datamgr.Agave
	// handle the remote-REST executor for that context imports archived
	// artifacts through. Only contexts backed by backend.RemoteContext
	// need an entry.
	Importers map[string]*datamgr.Agave
}

// New returns a Runtime over the given shared resources.
func New(st store.Store, dm *datamgr.Manager, backends *backend.Registry, notifier *notify.Notifier, log *slog.Logger, cfg config.Config, importers map[string]*datamgr.Agave) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{Store: st, DataMgr: dm, Backends: backends, Notifier: notifier, Log: log, Cfg: cfg, Importers: importers}
}

// RunJob runs jobID to completion: PENDING -> RUNNING -> FINISHED|ERROR.
// It returns an error only for conditions that prevent the job from
// reaching a terminal status at all (a bad definition, a Store failure);
// a step that legitimately fails its checkpoint ends the job ERROR with
// a nil return, since that is a normal run outcome, not a runtime defect.
func (r *Runtime) RunJob(ctx context.Context, jobID string) error {
	job, err := r.Store.GetJobDef(ctx, jobID)
	if err != nil {
		return fmt.Errorf("runtime: load job %s: %w", jobID, err)
	}
	wf, err := r.Store.GetWorkflowDef(ctx, job.WorkflowID)
	if err != nil {
		return fmt.Errorf("runtime: load workflow %s: %w", job.WorkflowID, err)
	}
	apps, err := r.Store.GetAppDefs(ctx, job.WorkflowID)
	if err != nil {
		return fmt.Errorf("runtime: load apps for workflow %s: %w", job.WorkflowID, err)
	}

	eff, err := ApplyJobOverrides(*wf, *job)
	if err != nil {
		return err
	}

	graph, err := workflowdag.NewGraph(wf.Inputs, wf.Steps)
	if err != nil {
		return fmt.Errorf("runtime: build graph: %w", err)
	}
	order, err := graph.TopologicalOrder()
	if err != nil {
		return fmt.Errorf("runtime: order steps: %w", err)
	}

	if err := r.Store.SetJobStarted(ctx, jobID); err != nil {
		return fmt.Errorf("runtime: set job started: %w", err)
	}
	r.Notifier.Notify(ctx, job.Notifications, jobID, "RUNNING", fmt.Sprintf("job %s started", job.Name))

	outputURI, err := r.jobOutputURI(*job)
	if err != nil {
		return r.fail(ctx, *job, err)
	}

	executors := map[string]step.Executor{}
	failed := map[string]bool{}

	for _, name := range order {
		if r.dependsOnFailed(graph, name, failed) {
			failed[name] = true
			r.Log.Warn("runtime: skipping step with failed dependency", "job", jobID, "step", name)
			continue
		}

		stepDef := wf.Steps[name]
		exec, err := r.runStep(ctx, *job, stepDef, apps, eff, executors)
		if err != nil {
			failed[name] = true
			r.Log.Error("runtime: step failed", "job", jobID, "step", name, "error", err)
			if serr := r.Store.UpdateStepStatus(ctx, jobID, name, model.StatusFailed, stepDef.CheckpointOrDefault()); serr != nil {
				return fmt.Errorf("runtime: record step status: %w", serr)
			}
			continue
		}
		executors[name] = exec
		if err := r.Store.UpdateStepStatus(ctx, jobID, name, model.StatusFinished, stepDef.CheckpointOrDefault()); err != nil {
			return fmt.Errorf("runtime: record step status: %w", err)
		}
		if err := r.Store.SaveMapItems(ctx, jobID, name, exec.MapItems()); err != nil {
			return fmt.Errorf("runtime: save map items: %w", err)
		}
	}

	jobStatus := model.StatusFinished
	if len(failed) > 0 {
		jobStatus = model.StatusError
	} else if err := r.stageFinalOutput(ctx, eff, executors, outputURI); err != nil {
		jobStatus = model.StatusError
		r.Log.Error("runtime: stage final output", "job", jobID, "error", err)
	}

	return r.finish(ctx, *job, jobStatus)
}

// dependsOnFailed reports whether step transitively depends on any
// already-failed (or failure-skipped) step.
func (r *Runtime) dependsOnFailed(graph *workflowdag.Graph, step string, failed map[string]bool) bool {
	for _, dep := range graph.DependencyOutputNames(step) {
		if failed[dep] {
			return true
		}
	}
	return false
}

// runStep drives one step's executor through its full lifecycle and
// returns the built Executor on success.
func (r *Runtime) runStep(ctx context.Context, job model.Job, def model.Step, apps map[string]model.App, eff Effective, prior map[string]step.Executor) (step.Executor, error) {
	app, ok := apps[def.AppName]
	if !ok {
		return nil, fmt.Errorf("step %s: unknown app %q", def.Name, def.AppName)
	}

	exec := effectiveExecution(def, job)
	def.Execution = exec
	backendCtx, ok := r.Backends.Get(exec.Context)
	if !ok {
		return nil, fmt.Errorf("step %s: unknown execution context %q", def.Name, exec.Context)
	}

	workBase := job.WorkURI[exec.Context]
	if workBase == "" {
		workBase = job.WorkURI["default"]
	}
	workRoot, err := geneuri.Parse(workBase)
	if err != nil {
		return nil, fmt.Errorf("step %s: work uri: %w", def.Name, err)
	}
	if workRoot.Scheme != backendCtx.DataScheme() {
		return nil, fmt.Errorf("step %s: work uri scheme %q does not match context %q's data scheme %q",
			def.Name, workRoot.Scheme, exec.Context, backendCtx.DataScheme())
	}
	stepWorkURI := workRoot.Join(jobSlug(job)).Join(def.Name)

	scope := shared.Scope{
		WorkflowInputs:     eff.InputValues,
		WorkflowParameters: eff.ParamValues,
		StepOutputs:        stepOutputs(prior),
	}

	limit := throttleLimit(exec, r.Cfg.DefaultThrottleLimit)
	pollDelay := r.Cfg.RunPollDelay
	if pollDelay <= 0 {
		pollDelay = 5 * time.Second
	}

	common := step.NewCommon(def, app, r.DataMgr, stepWorkURI, scope, limit, pollDelay)
	executor, err := r.buildExecutor(backendCtx, common, exec.Context)
	if err != nil {
		return nil, err
	}

	if err := executor.InitDataURI(ctx, job.Clean); err != nil {
		return nil, err
	}
	if err := executor.IterateMapURI(ctx); err != nil {
		return nil, err
	}
	if err := executor.Run(ctx); err != nil {
		return nil, err
	}
	for !executor.AllDone() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollDelay):
		}
		if err := executor.CheckRunningJobs(ctx); err != nil {
			return nil, err
		}
	}
	if err := executor.CleanUp(ctx); err != nil {
		return nil, err
	}
	return executor, nil
}

// buildExecutor selects the backend-specific Executor for ctxName's
// registered Context.
func (r *Runtime) buildExecutor(backendCtx backend.Context, common *step.Common, ctxName string) (step.Executor, error) {
	switch b := backendCtx.(type) {
	case *backend.LocalContext:
		return step.NewLocalExecutor(common), nil
	case *backend.SlurmContext:
		return step.NewSlurmExecutor(common, b), nil
	case *backend.GridengineContext:
		return step.NewGridengineExecutor(common, b), nil
	case *backend.RemoteContext:
		importer, ok := r.Importers[ctxName]
		if !ok {
			return nil, fmt.Errorf("runtime: no import handle configured for remote context %q", ctxName)
		}
		return step.NewRemoteExecutor(common, b, importer), nil
	default:
		return nil, fmt.Errorf("runtime: unrecognized backend context %q", ctxName)
	}
}

func stepOutputs(executors map[string]step.Executor) map[string]string {
	out := make(map[string]string, len(executors))
	for name, e := range executors {
		out[name] = e.OutputURI().Format()
	}
	return out
}

// jobSlug is the hashed job-subdirectory component ("<slug(name)>-<job_id[:8]>")
// every work/output URI is namespaced under.
func jobSlug(job model.Job) string {
	id := job.JobID
	if len(id) > 8 {
		id = id[:8]
	}
	return shared.Slug(job.Name) + "-" + id
}

// jobOutputURI resolves the job's output URI, applying the hashed
// job-subdirectory namespace unless NoOutputHash is set.
func (r *Runtime) jobOutputURI(job model.Job) (geneuri.URI, error) {
	u, err := geneuri.Parse(job.OutputURI)
	if err != nil {
		return geneuri.URI{}, fmt.Errorf("runtime: output uri: %w", err)
	}
	if job.NoOutputHash {
		return u, nil
	}
	return u.Join(jobSlug(job)), nil
}

// stageFinalOutput copies every final_output step's output folder into
// the job's output URI, named after the step.
func (r *Runtime) stageFinalOutput(ctx context.Context, eff Effective, executors map[string]step.Executor, outputURI geneuri.URI) error {
	if err := r.DataMgr.Mkdir(ctx, outputURI, true); err != nil {
		return fmt.Errorf("runtime: create output folder: %w", err)
	}
	for _, name := range eff.FinalOutput {
		exec, ok := executors[name]
		if !ok {
			return fmt.Errorf("runtime: final_output step %q did not run", name)
		}
		dest := outputURI.Join(name)
		if err := r.DataMgr.Copy(ctx, exec.OutputURI(), dest); err != nil {
			return fmt.Errorf("runtime: stage final output %q: %w", name, err)
		}
	}
	return nil
}

// fail records a job as ERROR due to a pre-execution failure (one that
// happened before any step ran).
func (r *Runtime) fail(ctx context.Context, job model.Job, cause error) error {
	if err := r.finish(ctx, job, model.StatusError); err != nil {
		return err
	}
	return cause
}

func (r *Runtime) finish(ctx context.Context, job model.Job, status model.Status) error {
	message := "completed"
	if status != model.StatusFinished {
		message = "one or more steps failed"
	}
	if err := r.Store.UpdateJobStatus(ctx, job.JobID, status, message); err != nil {
		return fmt.Errorf("runtime: update job status: %w", err)
	}
	if err := r.Store.SetJobFinished(ctx, job.JobID); err != nil {
		return fmt.Errorf("runtime: set job finished: %w", err)
	}
	if err := r.Store.Commit(ctx); err != nil {
		return fmt.Errorf("runtime: commit: %w", err)
	}
	r.Notifier.Notify(ctx, job.Notifications, job.JobID, string(status), fmt.Sprintf("job %s %s", job.Name, status))
	return nil
}
