package runtime

import (
	"fmt"

	"dario.cat/mergo"

	"github.com/geneflow-org/geneflow/internal/model"
)

// Effective is a workflow definition with a job's overrides already
// injected: override injection happens once at run start, producing
// values the rest of the run treats as read-only.
type Effective struct {
	Workflow    model.Workflow
	InputValues map[string]string // workflow input key -> resolved scalar value
	ParamValues map[string]string // workflow parameter key -> resolved scalar value
	FinalOutput []string          // job.FinalOutput if set, else workflow.FinalOutput
}

// ApplyJobOverrides merges job's input/parameter/final_output overrides
// onto wf's declared defaults (mergo.WithOverride lets the job's values
// win over the workflow's declared defaults).
func ApplyJobOverrides(wf model.Workflow, job model.Job) (Effective, error) {
	inputDefaults := map[string]any{}
	for k, p := range wf.Inputs {
		inputDefaults[k] = p.Default
	}
	if err := mergo.Merge(&inputDefaults, job.Inputs, mergo.WithOverride); err != nil {
		return Effective{}, fmt.Errorf("runtime: merge job inputs: %w", err)
	}

	paramDefaults := map[string]any{}
	for k, p := range wf.Parameters {
		paramDefaults[k] = p.Default
	}
	if err := mergo.Merge(&paramDefaults, job.Parameters, mergo.WithOverride); err != nil {
		return Effective{}, fmt.Errorf("runtime: merge job parameters: %w", err)
	}

	finalOutput := job.FinalOutput
	if len(finalOutput) == 0 {
		finalOutput = wf.FinalOutput
	}

	return Effective{
		Workflow:    wf,
		InputValues: stringifyAll(inputDefaults),
		ParamValues: stringifyAll(paramDefaults),
		FinalOutput: finalOutput,
	}, nil
}

func stringifyAll(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = stringify(v)
	}
	return out
}

// stringify renders an input/parameter value for template substitution.
// Sequence defaults (multiple File/Directory values) are
// joined with ",": GeneFlow's template grammar substitutes a single
// scalar per reference, and a wrapper script that wants a multi-valued
// input is expected to split on that separator itself.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		out := ""
		for i, e := range t {
			if i > 0 {
				out += ","
			}
			out += stringify(e)
		}
		return out
	default:
		return fmt.Sprint(t)
	}
}
