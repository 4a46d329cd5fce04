package main

import (
	"fmt"
	"strings"
)

// splitKV parses "key=value" flag repetitions (--in, --param, --work,
// --ec, --em) into a map, the same shape spf13/pflag's StringArray
// flags naturally accumulate.
func splitKV(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		idx := strings.IndexByte(p, '=')
		if idx < 0 {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		out[p[:idx]] = p[idx+1:]
	}
	return out, nil
}

// splitStepParam parses "--ep <step>.<param>=<value>" entries into
// step -> param -> value.
func splitStepParam(pairs []string) (map[string]map[string]string, error) {
	out := map[string]map[string]string{}
	for _, p := range pairs {
		eq := strings.IndexByte(p, '=')
		if eq < 0 {
			return nil, fmt.Errorf("expected step.param=value, got %q", p)
		}
		key, value := p[:eq], p[eq+1:]
		dot := strings.IndexByte(key, '.')
		if dot < 0 {
			return nil, fmt.Errorf("expected step.param=value, got %q", p)
		}
		step, param := key[:dot], key[dot+1:]
		if out[step] == nil {
			out[step] = map[string]string{}
		}
		out[step][param] = value
	}
	return out, nil
}
