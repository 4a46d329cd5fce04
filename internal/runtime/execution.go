package runtime

import (
	"strconv"

	"github.com/geneflow-org/geneflow/internal/model"
)

// effectiveExecution merges a step's declared execution directive with
// the job's per-step overrides (job.Execution, keyed by step name with a
// "default" fallback per model.Resolve/model.ResolveParameters): the
// job's context/method win when set, parameters are merged with the
// job's values taking precedence over the step's own.
func effectiveExecution(step model.Step, job model.Job) model.StepExecution {
	exec := step.Execution

	if v := model.Resolve(job.Execution.Context, step.Name); v != "" {
		exec.Context = v
	}
	if v := model.Resolve(job.Execution.Method, step.Name); v != "" {
		exec.Method = v
	}

	merged := map[string]string{}
	for k, v := range exec.Parameters {
		merged[k] = v
	}
	for k, v := range model.ResolveParameters(job.Execution.Parameters, step.Name) {
		merged[k] = v
	}
	exec.Parameters = merged

	return exec
}

// throttleLimit returns the step's configured throttle_limit execution
// parameter, falling back to def when absent or unparseable.
func throttleLimit(exec model.StepExecution, def int) int {
	raw, ok := exec.Parameters["throttle_limit"]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
