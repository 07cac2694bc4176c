package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// maxSubstitutionPasses bounds variable-to-variable resolution. Ten passes
// cover any sane nesting depth while keeping cyclic definitions from looping
// forever.
const maxSubstitutionPasses = 10

// Substitute walks data (maps, sequences, strings) and replaces every
// ${name} placeholder with its value from variables. A placeholder whose name
// is not defined fails the whole walk, naming the variable and listing every
// defined one.
func Substitute(data interface{}, variables map[string]string) (interface{}, error) {
	switch v := data.(type) {
	case string:
		return substituteString(v, variables)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			sub, err := Substitute(val, variables)
			if err != nil {
				return nil, err
			}
			out[key] = sub
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			sub, err := Substitute(val, variables)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	default:
		return data, nil
	}
}

func substituteString(s string, variables map[string]string) (string, error) {
	var undefined []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		name := match[1]
		if _, ok := variables[name]; !ok {
			undefined = append(undefined, name)
		}
	}
	if len(undefined) > 0 {
		return "", errors.Errorf(
			"variable(s) %s used but not defined in 'variables' section (available variables: %s)",
			strings.Join(undefined, ", "), strings.Join(sortedNames(variables), ", "))
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		return variables[name]
	}), nil
}

// ResolveVariables expands variable-to-variable references by fixed-point
// iteration. If the values have not converged after the pass cap (for example
// a cyclic definition), the best-effort values are kept and a warning is
// logged; the subsequent document walk decides whether they are usable.
func ResolveVariables(variables map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(variables))
	for k, v := range variables {
		resolved[k] = v
	}
	converged := false
	for pass := 0; pass < maxSubstitutionPasses && !converged; pass++ {
		converged = true
		for key, value := range resolved {
			next, err := substituteString(value, resolved)
			if err != nil {
				return nil, err
			}
			if next != value {
				resolved[key] = next
				converged = false
			}
		}
	}
	if !converged {
		zap.S().Warnf("variable substitution may not have converged after %d passes", maxSubstitutionPasses)
	}
	return resolved, nil
}

// coerceVariables stringifies the raw 'variables' mapping. Scalars are
// rendered the way YAML prints them; non-scalar values are rejected upstream
// by Substitute never matching them.
func coerceVariables(raw map[string]interface{}) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func sortedNames(variables map[string]string) []string {
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
