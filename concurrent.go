package fluxion

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// ScriptResult pairs one playbook with its outcome.
type ScriptResult struct {
	Path   string
	Result *Result
	Err    error
}

// ConcurrentRunner executes many playbooks on a bounded worker pool. Each
// run owns its own scope and registry clone, so workers share nothing but
// the pool itself.
type ConcurrentRunner struct {
	runner  *Runner
	workers int
}

func NewConcurrentRunner(runner *Runner, workers int) *ConcurrentRunner {
	if runner == nil {
		runner = NewRunner(nil)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &ConcurrentRunner{runner: runner, workers: workers}
}

// RunFiles runs every playbook and returns results in input order. A
// cancelled context fails the remaining scripts without starting them.
func (c *ConcurrentRunner) RunFiles(ctx context.Context, paths []string, vars map[string]any) []ScriptResult {
	results := make([]ScriptResult, len(paths))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i] = ScriptResult{Path: paths[i], Err: err}
					continue
				}
				res, err := c.runner.RunFile(paths[i], vars)
				results[i] = ScriptResult{Path: paths[i], Result: res, Err: err}
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// RunAll is RunFiles with failures collected into a single error.
func (c *ConcurrentRunner) RunAll(ctx context.Context, paths []string, vars map[string]any) ([]ScriptResult, error) {
	results := c.RunFiles(ctx, paths, vars)
	merr := &MultiError{}
	for _, r := range results {
		if r.Err != nil {
			merr.Add(fmt.Errorf("%s: %w", r.Path, r.Err))
		}
	}
	if merr.HasErrors() {
		return results, merr
	}
	return results, nil
}
