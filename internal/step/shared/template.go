// Package shared holds the behavior every backend-specific step executor
// needs but none of them owns: template substitution, map-item iteration
// helpers, job-name construction, checkpoint evaluation, and the
// throttle/retry admission gate. Kept as a free-standing helper consumed
// by each backend struct rather than a shared base class.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// Scope resolves the reference namespaces a GeneFlow template
// expression can address: workflow inputs/parameters, completed step
// outputs, and the per-map-item positionals.
type Scope struct {
	WorkflowInputs     map[string]string
	WorkflowParameters map[string]string
	// StepOutputs maps a completed step's name to its output location.
	StepOutputs map[string]string
	// Positional holds ${1} (filename) and ${2} (basename without
	// extension) for map-item substitution; nil for unmapped steps.
	Positional map[string]string
}

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Evaluate substitutes every ${...} occurrence in raw against scope.
// An expression that cannot be resolved is a definition error: the step
// template referenced a workflow input/parameter/step that does not
// exist.
func Evaluate(raw string, scope Scope) (string, error) {
	var firstErr error
	out := exprPattern.ReplaceAllStringFunc(raw, func(match string) string {
		if firstErr != nil {
			return match
		}
		path := exprPattern.FindStringSubmatch(match)[1]
		val, err := resolve(path, scope)
		if err != nil {
			firstErr = err
			return match
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func resolve(path string, scope Scope) (string, error) {
	switch {
	case path == "1" || path == "2":
		v, ok := scope.Positional[path]
		if !ok {
			return "", fmt.Errorf("shared: positional reference ${%s} has no map-item context", path)
		}
		return v, nil
	case strings.HasPrefix(path, "workflow.inputs."):
		key := strings.TrimPrefix(path, "workflow.inputs.")
		v, ok := scope.WorkflowInputs[key]
		if !ok {
			return "", fmt.Errorf("shared: unresolved workflow input %q", key)
		}
		return v, nil
	case strings.HasPrefix(path, "workflow.parameters."):
		key := strings.TrimPrefix(path, "workflow.parameters.")
		v, ok := scope.WorkflowParameters[key]
		if !ok {
			return "", fmt.Errorf("shared: unresolved workflow parameter %q", key)
		}
		return v, nil
	case strings.HasPrefix(path, "step.") && strings.HasSuffix(path, ".output"):
		key := strings.TrimSuffix(strings.TrimPrefix(path, "step."), ".output")
		v, ok := scope.StepOutputs[key]
		if !ok {
			return "", fmt.Errorf("shared: unresolved step output reference %q", key)
		}
		return v, nil
	default:
		return "", fmt.Errorf("shared: unrecognized template expression ${%s}", path)
	}
}

// EvaluateTemplate applies Evaluate to every value in tmpl, returning a
// new map (the source map is never mutated).
func EvaluateTemplate(tmpl map[string]string, scope Scope) (map[string]string, error) {
	out := make(map[string]string, len(tmpl))
	for k, raw := range tmpl {
		v, err := Evaluate(raw, scope)
		if err != nil {
			return nil, fmt.Errorf("shared: template key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
