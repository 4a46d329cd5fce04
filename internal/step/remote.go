package step

import (
	"context"
	"fmt"

	"github.com/geneflow-org/geneflow/internal/backend"
	"github.com/geneflow-org/geneflow/internal/datamgr"
	"github.com/geneflow-org/geneflow/internal/model"
	"github.com/geneflow-org/geneflow/internal/step/shared"
)

// remoteManifest is the job submission payload for an Agave-compatible
// job service.
type remoteManifest struct {
	Name          string            `json:"name"`
	AppID         string            `json:"appId"`
	Archive       bool              `json:"archive"`
	ArchiveSystem string            `json:"archiveSystem"`
	ArchivePath   string            `json:"archivePath"`
	Inputs        map[string]string `json:"inputs"`
	Parameters    map[string]string `json:"parameters"`
}

// RemoteExecutor drives a step on a remote-REST (Agave-compatible) job
// service: it submits a structured manifest referencing the app's
// remote app-id, polls job status, and on clean_up imports the job's
// archived outputs and captured logs back into the step's own (agave
// data-context) work area.
type RemoteExecutor struct {
	*Common
	Ctx      *backend.RemoteContext
	Importer *datamgr.Agave
}

// NewRemoteExecutor returns an Executor driving def against an
// Agave-compatible job service through ctx, importing archived artifacts
// via importer.
func NewRemoteExecutor(c *Common, ctx *backend.RemoteContext, importer *datamgr.Agave) *RemoteExecutor {
	return &RemoteExecutor{Common: c, Ctx: ctx, Importer: importer}
}

func (e *RemoteExecutor) SupportsRetry() bool { return true }

// Run implements Executor.Run.
func (e *RemoteExecutor) Run(ctx context.Context) error { return e.Common.Run(ctx, e) }

// CheckRunningJobs implements Executor.CheckRunningJobs.
func (e *RemoteExecutor) CheckRunningJobs(ctx context.Context) error {
	return e.Common.CheckRunningJobs(ctx, e)
}

func (e *RemoteExecutor) archivePath(jobName string) string {
	return e.StepWorkURI.ChoppedPath + "/_archive/" + jobName
}

func (e *RemoteExecutor) archiveURI(jobName string) string {
	return "agave://" + e.StepWorkURI.Authority + e.archivePath(jobName)
}

// Submit implements Driver.Submit.
func (e *RemoteExecutor) Submit(ctx context.Context, item *model.MapItem, jobName string) (model.RunAttempt, error) {
	impl, ok := e.App.Implementation["agave"]
	if !ok || impl.Agave == nil {
		return model.RunAttempt{}, fmt.Errorf("app %s: no agave implementation", e.App.Name)
	}

	inputs := map[string]string{}
	params := map[string]string{}
	for k, v := range item.Template {
		if k == "output" {
			continue
		}
		if _, isInput := e.App.Inputs[k]; isInput {
			if v != "" {
				inputs[k] = v
			}
			continue
		}
		if _, isParam := e.App.Parameters[k]; isParam {
			params[k] = v
		}
	}

	manifest := remoteManifest{
		Name:          jobName,
		AppID:         impl.Agave.AgaveAppID,
		Archive:       true,
		ArchiveSystem: e.StepWorkURI.Authority,
		ArchivePath:   e.archivePath(jobName),
		Inputs:        inputs,
		Parameters:    params,
	}

	jobID, err := e.Ctx.SubmitJob(ctx, manifest)
	if err != nil {
		return model.RunAttempt{}, fmt.Errorf("remote executor: submit: %w", err)
	}
	return model.RunAttempt{
		RemoteJobID: jobID,
		HPCJobID:    jobID,
		ArchiveURI:  e.archiveURI(jobName),
		Status:      TranslateState("remote", backend.StateQueued),
	}, nil
}

// Poll implements Driver.Poll.
func (e *RemoteExecutor) Poll(ctx context.Context, item *model.MapItem) (model.Status, error) {
	run := item.LastRun()
	if run == nil {
		return model.StatusUnknown, fmt.Errorf("remote executor: poll before submit")
	}
	st, err := e.Ctx.JobStatus(ctx, run.RemoteJobID)
	if err != nil {
		return model.StatusUnknown, fmt.Errorf("remote executor: status %s: %w", run.RemoteJobID, err)
	}
	return TranslateState("remote", st), nil
}

// CleanUp implements Executor.CleanUp: for every FINISHED item, imports
// its archived output directory and captured gf-*.{out,err} logs back
// into the step's own work area, then applies the checkpoint policy.
func (e *RemoteExecutor) CleanUp(ctx context.Context) error {
	system := e.StepWorkURI.Authority
	for _, item := range e.MapItems() {
		run := item.LastRun()
		if run == nil || item.Status != model.StatusFinished {
			continue
		}
		output := item.Template["output"]
		jobName := shared.JobName(item.Attempt, e.Def.Name, output)

		if err := e.Importer.ImportFromRemote(ctx, system, e.StepWorkURI.ChoppedPath, output, run.ArchiveURI+"/"+output); err != nil {
			return fmt.Errorf("remote executor: import output %s: %w", output, err)
		}
		for _, suffix := range []string{"out", "err"} {
			logName := jobName + "." + suffix
			src := run.ArchiveURI + "/" + logName
			if err := e.Importer.ImportFromRemote(ctx, system, e.LogURI.ChoppedPath, logName, src); err != nil {
				return fmt.Errorf("remote executor: import log %s: %w", logName, err)
			}
		}
	}
	return e.Finalize()
}
