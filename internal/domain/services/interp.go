package services

import (
	"fmt"
	"regexp"
	"strings"
)

var interpPattern = regexp.MustCompile(`\$\{([a-zA-Z0-9_.\-]+)\}`)

// InterpContext carries the values available to ${...} references in job and
// step configuration: outputs of finished jobs, matrix parameters of the
// current instance, and run-scoped values.
type InterpContext struct {
	RunID        string
	RunTimestamp string
	Matrix       map[string]string
	JobOutputs   map[string]map[string]string // job name -> key -> value
}

// Expand resolves ${...} references in s.
//
// Supported forms:
//
//	${run.id}                      ${run.timestamp}
//	${matrix.<key>}                ${jobs.<job>.outputs.<key>}
//
// Any unresolvable reference is an error; outputs are plain strings and a
// missing one is an infrastructure failure, not an empty value.
func (c *InterpContext) Expand(s string) (string, error) {
	var firstErr error
	out := interpPattern.ReplaceAllStringFunc(s, func(match string) string {
		ref := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		val, err := c.resolve(ref)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ExpandMap expands every value of in, returning a new map
func (c *InterpContext) ExpandMap(in map[string]string) (map[string]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		expanded, err := c.Expand(v)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", k, err)
		}
		out[k] = expanded
	}
	return out, nil
}

func (c *InterpContext) resolve(ref string) (string, error) {
	parts := strings.Split(ref, ".")
	switch {
	case ref == "run.id":
		return c.RunID, nil
	case ref == "run.timestamp":
		return c.RunTimestamp, nil
	case len(parts) == 2 && parts[0] == "matrix":
		val, ok := c.Matrix[parts[1]]
		if !ok {
			return "", fmt.Errorf("unknown matrix parameter %q", parts[1])
		}
		return val, nil
	case len(parts) == 4 && parts[0] == "jobs" && parts[2] == "outputs":
		outputs, ok := c.JobOutputs[parts[1]]
		if !ok {
			return "", fmt.Errorf("no outputs recorded for job %q", parts[1])
		}
		val, ok := outputs[parts[3]]
		if !ok {
			return "", fmt.Errorf("job %q has no output %q", parts[1], parts[3])
		}
		return val, nil
	default:
		return "", fmt.Errorf("unknown reference %q", ref)
	}
}
