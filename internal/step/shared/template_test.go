package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAllScopes(t *testing.T) {
	scope := Scope{
		WorkflowInputs:     map[string]string{"reads": "/data/reads.fq"},
		WorkflowParameters: map[string]string{"threads": "4"},
		StepOutputs:        map[string]string{"align": "/work/align/out"},
		Positional:         map[string]string{"1": "sample1.fq", "2": "sample1"},
	}

	out, err := Evaluate("${workflow.inputs.reads}", scope)
	require.NoError(t, err)
	assert.Equal(t, "/data/reads.fq", out)

	out, err = Evaluate("-t ${workflow.parameters.threads}", scope)
	require.NoError(t, err)
	assert.Equal(t, "-t 4", out)

	out, err = Evaluate("${step.align.output}/call", scope)
	require.NoError(t, err)
	assert.Equal(t, "/work/align/out/call", out)

	out, err = Evaluate("${1}-${2}.vcf", scope)
	require.NoError(t, err)
	assert.Equal(t, "sample1.fq-sample1.vcf", out)
}

func TestEvaluateUnresolvedReferenceErrors(t *testing.T) {
	_, err := Evaluate("${workflow.inputs.missing}", Scope{})
	require.Error(t, err)

	_, err = Evaluate("${step.nope.output}", Scope{})
	require.Error(t, err)

	_, err = Evaluate("${bogus}", Scope{})
	require.Error(t, err)
}

func TestEvaluateTemplateMap(t *testing.T) {
	tmpl := map[string]string{
		"input":  "${workflow.inputs.reads}",
		"output": "static-value",
	}
	scope := Scope{WorkflowInputs: map[string]string{"reads": "/x.txt"}}

	out, err := EvaluateTemplate(tmpl, scope)
	require.NoError(t, err)
	assert.Equal(t, "/x.txt", out["input"])
	assert.Equal(t, "static-value", out["output"])
}
