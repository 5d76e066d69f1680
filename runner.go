package fluxion

import (
	"fmt"
	"os"
	"strings"
)

// Runner compiles and executes playbooks. Each run clones the registry and
// swaps echo for a recording variant, so echo output lands in the Result
// instead of stdout and concurrent runs never share state.
type Runner struct {
	registry *Registry
	opts     []Option
}

func NewRunner(registry *Registry, opts ...Option) *Runner {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Runner{registry: registry, opts: opts}
}

func (r *Runner) RunText(src, file string, vars map[string]any) (*Result, error) {
	prog, err := Compile(src, file)
	if err != nil {
		return nil, err
	}
	return r.RunProgram(prog, vars)
}

func (r *Runner) RunFile(path string, vars map[string]any) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return r.RunText(string(src), path, vars)
}

func (r *Runner) RunProgram(prog *Program, vars map[string]any) (*Result, error) {
	reg := r.registry.Clone()
	var echoes []string
	reg.Override("echo", func(args []any, kwargs map[string]any) (any, error) {
		line, err := echoLine(args, kwargs)
		if err != nil {
			return nil, err
		}
		echoes = append(echoes, line)
		return nil, nil
	})
	ev := NewEvaluator(reg, r.opts...)
	result, err := ev.Evaluate(prog, vars)
	if err != nil {
		return nil, err
	}
	result.Echoes = echoes
	return result, nil
}

// ParseDefines turns command-line "-D name=value" pairs into initial
// variables. Values stay strings; a bare name binds true.
func ParseDefines(defines []string) (map[string]any, error) {
	vars := make(map[string]any, len(defines))
	for _, d := range defines {
		name, value, found := strings.Cut(d, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid define %q", d)
		}
		if !found {
			vars[name] = true
			continue
		}
		vars[name] = value
	}
	return vars, nil
}
