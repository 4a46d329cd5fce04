package step

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/geneflow-org/geneflow/internal/model"
)

// LocalExecutor runs a step's map items as child processes on the same
// host as the runtime, invoking the app's local.script wrapper directly
// via os/exec. Local does not support retry: a FAILED item stays
// FAILED.
type LocalExecutor struct {
	*Common

	mu   sync.Mutex
	jobs map[int]*localJob
}

type localJob struct {
	mu       sync.Mutex
	done     bool
	exitCode int
	waitErr  error
}

// NewLocalExecutor returns an Executor driving def on the local host.
func NewLocalExecutor(c *Common) *LocalExecutor {
	return &LocalExecutor{Common: c, jobs: map[int]*localJob{}}
}

func (e *LocalExecutor) scriptPath() (string, error) {
	impl, ok := e.App.Implementation["local"]
	if !ok || impl.Local == nil {
		return "", fmt.Errorf("app %s: no local implementation", e.App.Name)
	}
	return impl.Local.Script, nil
}

func (e *LocalExecutor) SupportsRetry() bool { return false }

// Run implements Executor.Run.
func (e *LocalExecutor) Run(ctx context.Context) error { return e.Common.Run(ctx, e) }

// CheckRunningJobs implements Executor.CheckRunningJobs.
func (e *LocalExecutor) CheckRunningJobs(ctx context.Context) error {
	return e.Common.CheckRunningJobs(ctx, e)
}

// Submit implements Driver.Submit: launches the wrapper script,
// redirecting stdout/stderr to the step's _log folder, and tracks
// completion via a goroutine that blocks on cmd.Wait.
func (e *LocalExecutor) Submit(ctx context.Context, item *model.MapItem, jobName string) (model.RunAttempt, error) {
	script, err := e.scriptPath()
	if err != nil {
		return model.RunAttempt{}, err
	}
	args := BuildWrapperArgs(e.App, *item, e.StepWorkURI, e.Def.Execution.Method, e.Def.Execution.ExecInit)

	outPath := e.LogURI.ChoppedPath + "/" + jobName + ".out"
	errPath := e.LogURI.ChoppedPath + "/" + jobName + ".err"
	outFile, err := os.Create(outPath)
	if err != nil {
		return model.RunAttempt{}, fmt.Errorf("local executor: create %s: %w", outPath, err)
	}
	errFile, err := os.Create(errPath)
	if err != nil {
		outFile.Close()
		return model.RunAttempt{}, fmt.Errorf("local executor: create %s: %w", errPath, err)
	}

	cmd := exec.CommandContext(ctx, script, args...)
	cmd.Stdout = outFile
	cmd.Stderr = errFile
	if err := cmd.Start(); err != nil {
		outFile.Close()
		errFile.Close()
		return model.RunAttempt{}, fmt.Errorf("local executor: start %s: %w", script, err)
	}

	job := &localJob{}
	e.mu.Lock()
	e.jobs[cmd.Process.Pid] = job
	e.mu.Unlock()

	go func() {
		defer outFile.Close()
		defer errFile.Close()
		waitErr := cmd.Wait()
		job.mu.Lock()
		defer job.mu.Unlock()
		job.done = true
		if waitErr == nil {
			return
		}
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			job.exitCode = exitErr.ExitCode()
			return
		}
		job.waitErr = waitErr
		job.exitCode = -1
	}()

	return model.RunAttempt{PID: cmd.Process.Pid, Status: model.StatusRunning}, nil
}

// Poll implements Driver.Poll: FINISHED downgrades to FAILED on a
// nonzero exit code.
func (e *LocalExecutor) Poll(ctx context.Context, item *model.MapItem) (model.Status, error) {
	run := item.LastRun()
	if run == nil {
		return model.StatusUnknown, fmt.Errorf("local executor: poll before submit")
	}
	e.mu.Lock()
	job, ok := e.jobs[run.PID]
	e.mu.Unlock()
	if !ok {
		return model.StatusUnknown, fmt.Errorf("local executor: unknown pid %d", run.PID)
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	if !job.done {
		return model.StatusRunning, nil
	}
	if job.exitCode > 0 || job.waitErr != nil {
		return model.StatusFailed, nil
	}
	return model.StatusFinished, nil
}

// CleanUp implements Executor.CleanUp. Local outputs are already in
// place (the wrapper wrote them directly under StepWorkURI), so the
// only remaining work is the checkpoint policy.
func (e *LocalExecutor) CleanUp(ctx context.Context) error {
	return e.Finalize()
}
