package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geneflow-org/geneflow/internal/backend"
	"github.com/geneflow-org/geneflow/internal/config"
	"github.com/geneflow-org/geneflow/internal/datamgr"
	"github.com/geneflow-org/geneflow/internal/gflog"
	"github.com/geneflow-org/geneflow/internal/model"
	"github.com/geneflow-org/geneflow/internal/notify"
	"github.com/geneflow-org/geneflow/internal/store"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.RunPollDelay = 5 * time.Millisecond
	return cfg
}

func newTestRuntime(t *testing.T, mem *store.Memory) *Runtime {
	t.Helper()
	dm := datamgr.NewManager()
	dm.Register("local", datamgr.NewLocal())

	registry := backend.NewRegistry()
	registry.Add("local", backend.NewLocalContext())
	require.NoError(t, registry.InitializeAll(context.Background()))
	t.Cleanup(func() { _ = registry.TeardownAll(context.Background()) })

	log := gflog.New(gflog.WithQuiet())
	return New(mem, dm, registry, notify.New(log), log, testConfig(), nil)
}

// mkOutputScript writes a wrapper that creates its --output directory and
// drops a result file into it, the way a real app wrapper populates the
// step's work area.
func mkOutputScript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "tool.sh")
	body := `#!/bin/sh
for arg in "$@"; do
  case "$arg" in
    --output=*)
      out="${arg#--output=local://}"
      mkdir -p "$out"
      echo done > "$out/result.txt"
      ;;
  esac
done
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func toolApp(script string) model.App {
	return model.App{
		Name:   "tool",
		Inputs: map[string]model.IOParam{"input": {Type: "File"}},
		Implementation: map[string]model.AppImplementation{
			"local": {Local: &model.AppImplLocal{Script: script}},
		},
	}
}

func twoStepWorkflow(readsPath string) model.Workflow {
	return model.Workflow{
		Name: "pipe",
		Inputs: map[string]model.IOParam{
			"reads": {Type: "File", Default: readsPath},
		},
		Steps: map[string]model.Step{
			"prep": {
				Name:     "prep",
				AppName:  "tool",
				Template: map[string]string{"input": "${workflow.inputs.reads}"},
			},
			"summarize": {
				Name:     "summarize",
				AppName:  "tool",
				Depend:   []string{"prep"},
				Template: map[string]string{"input": "${step.prep.output}"},
			},
		},
		FinalOutput: []string{"summarize"},
	}
}

func localJob(id, name, workRoot, outRoot string) model.Job {
	return model.Job{
		JobID:      id,
		Name:       name,
		WorkflowID: "pipe",
		OutputURI:  outRoot,
		WorkURI:    map[string]string{"local": workRoot},
		Execution:  model.JobExecution{Context: map[string]string{"default": "local"}},
	}
}

func TestRunJobTwoLocalStepsToFinished(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	readsPath := filepath.Join(root, "reads.fq")
	require.NoError(t, os.WriteFile(readsPath, []byte("@r1\nACGT\n"), 0o644))

	mem := store.NewMemory()
	mem.PutWorkflow("pipe", twoStepWorkflow(readsPath))
	mem.PutApps("pipe", map[string]model.App{"tool": toolApp(mkOutputScript(t, root))})

	workRoot := filepath.Join(root, "work")
	outRoot := filepath.Join(root, "out")
	job := localJob("0123456789abcdef", "run 1", workRoot, outRoot)
	mem.PutJob(job)

	rt := newTestRuntime(t, mem)
	require.NoError(t, rt.RunJob(ctx, job.JobID))
	assert.Equal(t, model.StatusFinished, mem.Status(job.JobID))

	// Work and final output land under the hashed job subdirectory.
	jobDir := "run-1-01234567"
	assert.FileExists(t, filepath.Join(workRoot, jobDir, "prep", "prep-0", "result.txt"))
	assert.FileExists(t, filepath.Join(workRoot, jobDir, "summarize", "summarize-0", "result.txt"))
	assert.FileExists(t, filepath.Join(outRoot, jobDir, "summarize", "summarize-0", "result.txt"))
	assert.DirExists(t, filepath.Join(workRoot, jobDir, "prep", "_log"))

	assert.Equal(t, model.StatusFinished, mem.StepStatus(job.JobID, "prep"))
	assert.Equal(t, model.StatusFinished, mem.StepStatus(job.JobID, "summarize"))
	saved := mem.MapItems(job.JobID, "summarize")
	require.Len(t, saved, 1)
	assert.Equal(t, "summarize-0", saved[0].Template["output"])
}

func TestRunJobCleanFlag(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	readsPath := filepath.Join(root, "reads.fq")
	require.NoError(t, os.WriteFile(readsPath, []byte("x"), 0o644))

	mem := store.NewMemory()
	mem.PutWorkflow("pipe", twoStepWorkflow(readsPath))
	mem.PutApps("pipe", map[string]model.App{"tool": toolApp(mkOutputScript(t, root))})

	workRoot := filepath.Join(root, "work")
	job := localJob("0123456789abcdef", "run 1", workRoot, filepath.Join(root, "out"))
	mem.PutJob(job)
	rt := newTestRuntime(t, mem)

	// Default (clean=false): a file already present in the step's work
	// folder survives the run.
	stray := filepath.Join(workRoot, "run-1-01234567", "prep", "stray.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stray), 0o755))
	require.NoError(t, os.WriteFile(stray, []byte("old"), 0o644))
	require.NoError(t, rt.RunJob(ctx, job.JobID))
	assert.FileExists(t, stray)

	// clean=true: the step's folder is deleted and recreated first.
	job.Clean = true
	mem.PutJob(job)
	require.NoError(t, rt.RunJob(ctx, job.JobID))
	assert.NoFileExists(t, stray)
}

func TestRunJobNoOutputHash(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	readsPath := filepath.Join(root, "reads.fq")
	require.NoError(t, os.WriteFile(readsPath, []byte("x"), 0o644))

	mem := store.NewMemory()
	mem.PutWorkflow("pipe", twoStepWorkflow(readsPath))
	mem.PutApps("pipe", map[string]model.App{"tool": toolApp(mkOutputScript(t, root))})

	outRoot := filepath.Join(root, "out")
	job := localJob("0123456789abcdef", "run 1", filepath.Join(root, "work"), outRoot)
	job.NoOutputHash = true
	mem.PutJob(job)

	rt := newTestRuntime(t, mem)
	require.NoError(t, rt.RunJob(ctx, job.JobID))
	assert.Equal(t, model.StatusFinished, mem.Status(job.JobID))
	assert.FileExists(t, filepath.Join(outRoot, "summarize", "summarize-0", "result.txt"))
}

func TestRunJobFailedStepSkipsDependentsAndErrors(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	wf := model.Workflow{
		Name: "pipe",
		Steps: map[string]model.Step{
			"broken": {Name: "broken", AppName: "tool"},
			"after":  {Name: "after", AppName: "tool", Depend: []string{"broken"}},
		},
	}
	app := toolApp("/bin/false")

	mem := store.NewMemory()
	mem.PutWorkflow("pipe", wf)
	mem.PutApps("pipe", map[string]model.App{"tool": app})

	workRoot := filepath.Join(root, "work")
	job := localJob("0123456789abcdef", "run 1", workRoot, filepath.Join(root, "out"))
	mem.PutJob(job)

	rt := newTestRuntime(t, mem)
	require.NoError(t, rt.RunJob(ctx, job.JobID), "a checkpoint failure is a run outcome, not a runtime defect")
	assert.Equal(t, model.StatusError, mem.Status(job.JobID))

	assert.NoDirExists(t, filepath.Join(workRoot, "run-1-01234567", "after"),
		"a step downstream of a failure must be skipped, not run")
	assert.Equal(t, model.StatusFailed, mem.StepStatus(job.JobID, "broken"))
}

func TestRunJobRejectsCycle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	wf := model.Workflow{
		Name: "pipe",
		Steps: map[string]model.Step{
			"s1": {Name: "s1", AppName: "tool", Depend: []string{"s2"}},
			"s2": {Name: "s2", AppName: "tool", Depend: []string{"s1"}},
		},
	}
	mem := store.NewMemory()
	mem.PutWorkflow("pipe", wf)
	mem.PutApps("pipe", map[string]model.App{"tool": toolApp("/bin/true")})

	job := localJob("0123456789abcdef", "run 1", filepath.Join(root, "work"), filepath.Join(root, "out"))
	mem.PutJob(job)

	rt := newTestRuntime(t, mem)
	err := rt.RunJob(ctx, job.JobID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
	assert.Equal(t, model.StatusPending, mem.Status(job.JobID), "a load failure aborts before any side effect")
}

func TestRunJobsPoolRunsAllJobs(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	readsPath := filepath.Join(root, "reads.fq")
	require.NoError(t, os.WriteFile(readsPath, []byte("x"), 0o644))

	mem := store.NewMemory()
	mem.PutWorkflow("pipe", twoStepWorkflow(readsPath))
	mem.PutApps("pipe", map[string]model.App{"tool": toolApp(mkOutputScript(t, root))})

	var ids []string
	for _, id := range []string{"aaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbb", "cccccccccccccccc"} {
		job := localJob(id, "run-"+id[:1], filepath.Join(root, "work"), filepath.Join(root, "out"))
		mem.PutJob(job)
		ids = append(ids, id)
	}

	rt := newTestRuntime(t, mem)
	errs := rt.RunJobs(ctx, ids)
	require.Len(t, errs, len(ids))
	for i, err := range errs {
		assert.NoError(t, err, "job %s", ids[i])
		assert.Equal(t, model.StatusFinished, mem.Status(ids[i]))
	}
}

func TestEffectiveExecutionOverrides(t *testing.T) {
	step := model.Step{
		Name: "align",
		Execution: model.StepExecution{
			Context:    "local",
			Parameters: map[string]string{"slots": "1", "queue": "base"},
		},
	}
	job := model.Job{
		Execution: model.JobExecution{
			Context: map[string]string{"default": "slurm", "align": "gridengine"},
			Method:  map[string]string{"default": "singularity"},
			Parameters: map[string]map[string]string{
				"default": {"slots": "4"},
				"align":   {"queue": "fast"},
			},
		},
	}

	exec := effectiveExecution(step, job)
	assert.Equal(t, "gridengine", exec.Context, "per-step context override wins")
	assert.Equal(t, "singularity", exec.Method, "default method applies when no per-step override exists")
	assert.Equal(t, "4", exec.Parameters["slots"], "job default parameter overrides the step's own")
	assert.Equal(t, "fast", exec.Parameters["queue"], "per-step parameter overrides the job default")
}

func TestThrottleLimitParameter(t *testing.T) {
	assert.Equal(t, 3, throttleLimit(model.StepExecution{Parameters: map[string]string{"throttle_limit": "3"}}, 0))
	assert.Equal(t, 7, throttleLimit(model.StepExecution{}, 7))
	assert.Equal(t, 7, throttleLimit(model.StepExecution{Parameters: map[string]string{"throttle_limit": "bogus"}}, 7))
}

func TestApplyJobOverridesMergesDefaults(t *testing.T) {
	wf := model.Workflow{
		Name: "pipe",
		Inputs: map[string]model.IOParam{
			"reads": {Type: "File", Default: "/default/reads.fq"},
			"ref":   {Type: "File", Default: "/default/ref.fa"},
		},
		Parameters: map[string]model.IOParam{
			"threads": {Type: "int", Default: 2},
		},
		FinalOutput: []string{"prep"},
	}
	job := model.Job{
		Inputs:      map[string]any{"reads": "/override/reads.fq"},
		Parameters:  map[string]any{"threads": 8},
		FinalOutput: []string{"summarize"},
	}

	eff, err := ApplyJobOverrides(wf, job)
	require.NoError(t, err)
	assert.Equal(t, "/override/reads.fq", eff.InputValues["reads"])
	assert.Equal(t, "/default/ref.fa", eff.InputValues["ref"], "unoverridden inputs keep their defaults")
	assert.Equal(t, "8", eff.ParamValues["threads"])
	assert.Equal(t, []string{"summarize"}, eff.FinalOutput, "job final_output wins over the workflow's")
}
