package step

import (
	"fmt"
	"sort"

	"github.com/geneflow-org/geneflow/internal/geneuri"
	"github.com/geneflow-org/geneflow/internal/model"
)

// BuildWrapperArgs assembles the argument list the local/slurm/gridengine
// executors pass to an app's local.script wrapper:
// one --<input-key>=<chopped-path> per non-empty input, one
// --<param-key>=<value> per parameter, --output=<...>, --exec_method=,
// and an optional --exec_init=. Keys are emitted in sorted order so the
// invocation is reproducible across runs.
func BuildWrapperArgs(app model.App, item model.MapItem, outputURI geneuri.URI, method, execInit string) []string {
	keys := make([]string, 0, len(item.Template))
	for k := range item.Template {
		if k == "output" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys)+3)
	for _, k := range keys {
		val := item.Template[k]
		if _, isInput := app.Inputs[k]; isInput {
			if val == "" {
				continue
			}
			args = append(args, fmt.Sprintf("--%s=%s", k, choppedPathOf(val)))
			continue
		}
		if _, isParam := app.Parameters[k]; isParam {
			args = append(args, fmt.Sprintf("--%s=%s", k, val))
		}
	}

	args = append(args, fmt.Sprintf("--output=%s/%s", outputURI.Format(), item.Template["output"]))
	args = append(args, fmt.Sprintf("--exec_method=%s", method))
	if execInit != "" {
		args = append(args, fmt.Sprintf("--exec_init=%s", execInit))
	}
	return args
}

// choppedPathOf returns val's chopped path if it parses as a GeneFlow
// URI, otherwise val unchanged (a non-URI scalar passed through as-is).
func choppedPathOf(val string) string {
	u, err := geneuri.Parse(val)
	if err != nil {
		return val
	}
	return u.ChoppedPath
}
