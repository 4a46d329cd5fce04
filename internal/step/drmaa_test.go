package step

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geneflow-org/geneflow/internal/backend"
	"github.com/geneflow-org/geneflow/internal/model"
	"github.com/geneflow-org/geneflow/internal/step/shared"
)

func newSlurmExecutor(t *testing.T, def model.Step, app model.App, workURI string, session *backend.FakeSession, throttle int) Executor {
	t.Helper()
	ctx := backend.NewSlurmContext("", session)
	require.NoError(t, ctx.Initialize(context.Background()))
	common := NewCommon(def, app, newLocalManager(t), mustParse(t, workURI), shared.Scope{}, throttle, time.Millisecond)
	return NewSlurmExecutor(common, ctx)
}

func mapStepDef(name, mapDir string) model.Step {
	return model.Step{
		Name:       name,
		AppName:    "tool",
		Checkpoint: model.CheckpointAll,
		Template:   map[string]string{"input": "${1}"},
		Map:        &model.MapSpec{URI: mapDir, Glob: "*"},
		Execution:  model.StepExecution{Context: "slurm"},
	}
}

func seedMapDir(t *testing.T, root string, files ...string) string {
	t.Helper()
	mapDir := filepath.Join(root, "in")
	require.NoError(t, os.MkdirAll(mapDir, 0o755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(mapDir, f), []byte(f), 0o644))
	}
	return mapDir
}

func TestSlurmRetryOnTransientFailure(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	mapDir := seedMapDir(t, root, "a.txt", "b.txt", "c.txt")

	session := backend.NewFakeSession()
	session.StateFunc = func(tmpl backend.JobTemplate, submissionIndex int) backend.State {
		// b.txt fails its first attempt, succeeds on retry.
		if strings.Contains(strings.Join(tmpl.Args, " "), "--input=b.txt") && submissionIndex == 0 {
			return backend.StateFailed
		}
		return backend.StateDone
	}

	e := newSlurmExecutor(t, mapStepDef("align", mapDir), localApp("/bin/true", "input"),
		filepath.Join(root, "work", "align"), session, 0)

	driveExecutor(t, ctx, e)
	require.NoError(t, e.CleanUp(ctx), "checkpoint 'all' should pass after retry")

	for _, it := range e.MapItems() {
		assert.Equal(t, model.StatusFinished, it.Status)
		assert.Equal(t, it.Attempt+1, len(it.Run), "len(run) == attempt+1")
		if it.Filename == "b.txt" {
			assert.Equal(t, 1, it.Attempt)
			assert.Len(t, it.Run, 2)
		} else {
			assert.Equal(t, 0, it.Attempt)
		}
	}
}

func TestSlurmThrottleBoundsConcurrentItems(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	mapDir := seedMapDir(t, root, "a.txt", "b.txt", "c.txt")

	session := backend.NewFakeSession()
	e := newSlurmExecutor(t, mapStepDef("thr", mapDir), localApp("/bin/true", "input"),
		filepath.Join(root, "work", "thr"), session, 1)

	require.NoError(t, e.InitDataURI(ctx, true))
	require.NoError(t, e.IterateMapURI(ctx))
	require.NoError(t, e.Run(ctx))

	submitted := func() int {
		n := 0
		for _, it := range e.MapItems() {
			if len(it.Run) > 0 && !it.Status.Terminal() {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, submitted(), "initial Run must admit only one item past the throttle")
	for _, it := range e.MapItems() {
		if len(it.Run) > 0 {
			assert.Equal(t, model.StatusPending, it.Status,
				"a freshly-submitted slurm job's queued state translates to PENDING")
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	for !e.AllDone() {
		require.True(t, time.Now().Before(deadline))
		require.NoError(t, e.CheckRunningJobs(ctx))
		assert.LessOrEqual(t, submitted(), 1, "non-terminal map items must stay within the throttle limit")
	}
	require.NoError(t, e.CleanUp(ctx))

	for _, it := range e.MapItems() {
		assert.Equal(t, model.StatusFinished, it.Status)
	}
}

func TestSlurmFifthFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	mapDir := seedMapDir(t, root, "a.txt")

	session := backend.NewFakeSession()
	session.TerminalState = backend.StateFailed

	e := newSlurmExecutor(t, mapStepDef("doom", mapDir), localApp("/bin/true", "input"),
		filepath.Join(root, "work", "doom"), session, 0)

	driveExecutor(t, ctx, e)
	assert.Error(t, e.CleanUp(ctx))

	items := e.MapItems()
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusFailed, items[0].Status)
	assert.Equal(t, shared.MaxRunAttempts-1, items[0].Attempt)
	assert.Len(t, items[0].Run, shared.MaxRunAttempts, "no sixth run-attempt is appended")
}

func TestSlurmSubmitSetsLogPathsAndNativeSpec(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	var captured backend.JobTemplate
	session := backend.NewFakeSession()
	session.StateFunc = func(tmpl backend.JobTemplate, _ int) backend.State {
		captured = tmpl
		return backend.StateDone
	}

	def := model.Step{
		Name:       "s1",
		AppName:    "tool",
		Checkpoint: model.CheckpointAll,
		Execution: model.StepExecution{
			Context:    "slurm",
			Parameters: map[string]string{"queue": "batch", "slots": "4", "other": "--mem=8G"},
		},
	}
	workURI := filepath.Join(root, "work", "s1")
	e := newSlurmExecutor(t, def, localApp("/bin/true"), workURI, session, 0)

	driveExecutor(t, ctx, e)
	require.NoError(t, e.CleanUp(ctx))

	assert.Equal(t, "--nodes=1 --ntasks=1 -p batch --cpus-per-task=4 --mem=8G", captured.NativeSpec)
	assert.Equal(t, filepath.Join(workURI, "_log", "gf-0-s1-s1-0.out"), captured.OutputPath)
	assert.Equal(t, filepath.Join(workURI, "_log", "gf-0-s1-s1-0.err"), captured.ErrorPath)
}

func TestGridengineNativeSpecAndQueuedStatus(t *testing.T) {
	spec := gridengineNativeSpec(map[string]string{"queue": "all.q", "slots": "2"})
	assert.Equal(t, "-q all.q -pe smp 2", spec)

	assert.Equal(t, "", gridengineNativeSpec(nil), "absent parameters are omitted")

	assert.Equal(t, model.StatusQueued, TranslateState("gridengine", backend.StateQueued))
	assert.Equal(t, model.StatusPending, TranslateState("slurm", backend.StateQueued))
	assert.Equal(t, model.StatusPending, TranslateState("remote", backend.StateHeld))
	assert.Equal(t, model.StatusRunning, TranslateState("slurm", backend.StateSuspended))
	assert.Equal(t, model.StatusUnknown, TranslateState("slurm", backend.StateUndetermined))
}
