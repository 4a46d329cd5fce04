package step

import (
	"context"
	"fmt"
	"strings"

	"github.com/geneflow-org/geneflow/internal/backend"
	"github.com/geneflow-org/geneflow/internal/model"
)

// drmaaBackend is the slice of backend.SlurmContext/backend.GridengineContext
// a DRMAA-shaped executor needs. Both concrete types satisfy it through
// their embedded drmaaContext.
type drmaaBackend interface {
	Name() string
	Submit(tmpl backend.JobTemplate) (string, error)
	Status(jobID string) (backend.State, error)
	DeleteTemplate(jobID string) error
}

// drmaaExecutor drives a step on a DRMAA-shaped scheduler (slurm or
// gridengine). The two backends differ only in their NativeSpec
// formatting, supplied by the constructor; submission and polling are
// otherwise identical.
type drmaaExecutor struct {
	*Common
	Backend    drmaaBackend
	NativeSpec func(params map[string]string) string
}

// NewSlurmExecutor returns an Executor driving def on a Slurm cluster
// through ctx, formatting native specs as
// "--nodes=1 --ntasks=1 -p <queue> --cpus-per-task=<slots> <other>".
func NewSlurmExecutor(c *Common, ctx *backend.SlurmContext) Executor {
	return &drmaaExecutor{Common: c, Backend: ctx, NativeSpec: slurmNativeSpec}
}

// NewGridengineExecutor returns an Executor driving def on a Grid Engine
// cluster through ctx, formatting native specs as
// "-q <queue> -pe smp <slots> <other>".
func NewGridengineExecutor(c *Common, ctx *backend.GridengineContext) Executor {
	return &drmaaExecutor{Common: c, Backend: ctx, NativeSpec: gridengineNativeSpec}
}

func slurmNativeSpec(params map[string]string) string {
	parts := []string{"--nodes=1", "--ntasks=1"}
	if q := params["queue"]; q != "" {
		parts = append(parts, "-p", q)
	}
	if s := params["slots"]; s != "" {
		parts = append(parts, fmt.Sprintf("--cpus-per-task=%s", s))
	}
	if o := params["other"]; o != "" {
		parts = append(parts, o)
	}
	return strings.Join(parts, " ")
}

func gridengineNativeSpec(params map[string]string) string {
	var parts []string
	if q := params["queue"]; q != "" {
		parts = append(parts, "-q", q)
	}
	if s := params["slots"]; s != "" {
		parts = append(parts, "-pe", "smp", s)
	}
	if o := params["other"]; o != "" {
		parts = append(parts, o)
	}
	return strings.Join(parts, " ")
}

func (e *drmaaExecutor) SupportsRetry() bool { return true }

// Run implements Executor.Run.
func (e *drmaaExecutor) Run(ctx context.Context) error { return e.Common.Run(ctx, e) }

// CheckRunningJobs implements Executor.CheckRunningJobs.
func (e *drmaaExecutor) CheckRunningJobs(ctx context.Context) error {
	return e.Common.CheckRunningJobs(ctx, e)
}

// Submit implements Driver.Submit.
func (e *drmaaExecutor) Submit(ctx context.Context, item *model.MapItem, jobName string) (model.RunAttempt, error) {
	impl, ok := e.App.Implementation["local"]
	if !ok || impl.Local == nil {
		return model.RunAttempt{}, fmt.Errorf("app %s: no local implementation for %s", e.App.Name, e.Backend.Name())
	}
	args := BuildWrapperArgs(e.App, *item, e.StepWorkURI, e.Def.Execution.Method, e.Def.Execution.ExecInit)

	tmpl := backend.JobTemplate{
		RemoteCommand: impl.Local.Script,
		Args:          args,
		NativeSpec:    e.NativeSpec(e.Def.Execution.Parameters),
		OutputPath:    e.LogURI.ChoppedPath + "/" + jobName + ".out",
		ErrorPath:     e.LogURI.ChoppedPath + "/" + jobName + ".err",
	}
	jobID, err := e.Backend.Submit(tmpl)
	if err != nil {
		return model.RunAttempt{}, fmt.Errorf("%s: submit: %w", e.Backend.Name(), err)
	}
	return model.RunAttempt{HPCJobID: jobID, Status: TranslateState(e.Backend.Name(), backend.StateQueued)}, nil
}

// Poll implements Driver.Poll.
func (e *drmaaExecutor) Poll(ctx context.Context, item *model.MapItem) (model.Status, error) {
	run := item.LastRun()
	if run == nil {
		return model.StatusUnknown, fmt.Errorf("%s: poll before submit", e.Backend.Name())
	}
	st, err := e.Backend.Status(run.HPCJobID)
	if err != nil {
		return model.StatusUnknown, fmt.Errorf("%s: status %s: %w", e.Backend.Name(), run.HPCJobID, err)
	}
	return TranslateState(e.Backend.Name(), st), nil
}

// CleanUp implements Executor.CleanUp. DRMAA-backed jobs write their
// outputs directly under StepWorkURI (it shares the local data
// context), so no artifact staging is needed beyond the checkpoint
// policy.
func (e *drmaaExecutor) CleanUp(ctx context.Context) error {
	return e.Finalize()
}
