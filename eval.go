package fluxion

import (
	"context"
	"fmt"
)

// returnSignal propagates a return value up through block execution. It is
// an ordinary value, not an error, so deferred cleanup and error wrapping
// never see it.
type returnSignal struct {
	value any
}

// Result is the outcome of one playbook run.
type Result struct {
	Return any
	Vars   map[string]any
	Echoes []string
}

// Evaluator walks a compiled Program. It is stateless between runs except
// for its registry and options, so one Evaluator may serve many programs.
type Evaluator struct {
	registry *Registry
	hook     func(stmt Node, env *Environment)
	ctx      context.Context
}

type Option func(*Evaluator)

// WithStatementHook installs a callback invoked before each statement,
// useful for tracing and step limits.
func WithStatementHook(hook func(stmt Node, env *Environment)) Option {
	return func(ev *Evaluator) { ev.hook = hook }
}

// WithContext makes evaluation honor cancellation between statements.
func WithContext(ctx context.Context) Option {
	return func(ev *Evaluator) { ev.ctx = ctx }
}

func NewEvaluator(registry *Registry, opts ...Option) *Evaluator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	ev := &Evaluator{registry: registry, ctx: context.Background()}
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

// Evaluate runs the program against a fresh global scope seeded with vars.
// Top-level functions are declared before any statement executes, so calls
// may precede their declaration in source order.
func (ev *Evaluator) Evaluate(prog *Program, vars map[string]any) (*Result, error) {
	env := NewEnv(nil)
	for k, v := range vars {
		env.Define(k, v)
	}
	for name, fn := range prog.Funcs {
		env.Define(name, &Closure{Name: name, Params: fn.Params, Body: fn.Body, Env: env})
	}
	var ret any
	for _, stmt := range prog.Stmts {
		v, err := ev.execStatement(stmt, env)
		if err != nil {
			return nil, err
		}
		if rs, ok := v.(returnSignal); ok {
			ret = rs.value
			break
		}
	}
	return &Result{Return: ret, Vars: exportVars(env)}, nil
}

func (ev *Evaluator) execStatement(stmt Node, env *Environment) (any, error) {
	if err := ev.ctx.Err(); err != nil {
		return nil, err
	}
	if ev.hook != nil {
		ev.hook(stmt, env)
	}
	return stmt.Eval(ev, env)
}

func (ev *Evaluator) execBlock(b *BlockNode, env *Environment) (any, error) {
	for _, stmt := range b.Stmts {
		v, err := ev.execStatement(stmt, env)
		if err != nil {
			return nil, err
		}
		if rs, ok := v.(returnSignal); ok {
			return rs, nil
		}
	}
	return nil, nil
}

// callClosure invokes a user function. The call scope chains to the
// function's defining scope, never the caller's.
func (ev *Evaluator) callClosure(cl *Closure, args []any, node Node) (any, error) {
	if len(args) != len(cl.Params) {
		return nil, evalErrf(ErrArity, node, "function %s expects %d arguments, got %d",
			cl.Name, len(cl.Params), len(args))
	}
	child := NewEnv(cl.Env)
	for i, param := range cl.Params {
		child.Define(param, args[i])
	}
	v, err := ev.execBlock(cl.Body, child)
	if err != nil {
		return nil, err
	}
	if rs, ok := v.(returnSignal); ok {
		return rs.value, nil
	}
	return nil, nil
}

func (ev *Evaluator) callBuiltin(name string, args []any, kwargs map[string]any, node Node, env *Environment) (any, error) {
	fn, ok := ev.registry.Lookup(name)
	if !ok {
		return nil, evalErrf(ErrUnknownFunction, node, "unknown function %s", name)
	}
	result, err := fn(args, kwargs)
	if err != nil {
		return nil, &EvalError{
			Kind:    ErrBuiltin,
			Message: fmt.Sprintf("builtin %s failed", name),
			Node:    node,
			Cause:   err,
		}
	}
	// Scripts can inspect the most recent builtin result without binding it.
	root := env
	for root.parent != nil {
		root = root.parent
	}
	root.Define("_last_command", result)
	return result, nil
}

// exportVars snapshots the global scope. Names with a double underscore
// prefix are run-internal and excluded.
func exportVars(env *Environment) map[string]any {
	out := make(map[string]any, len(env.vars))
	for k, v := range env.vars {
		if len(k) >= 2 && k[:2] == "__" {
			continue
		}
		out[k] = v
	}
	return out
}
