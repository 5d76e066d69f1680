package fluxion

// Environment is a name-to-value binding table with an optional parent used
// for lexical name resolution. The parent link is lookup-only; a child never
// owns its parent.
type Environment struct {
	vars   map[string]any
	parent *Environment
}

func NewEnv(parent *Environment) *Environment {
	return &Environment{
		vars:   make(map[string]any),
		parent: parent,
	}
}

// Lookup resolves name by walking child to parent until found or exhausted.
func (env *Environment) Lookup(name string) (any, bool) {
	if v, ok := env.vars[name]; ok {
		return v, true
	}
	if env.parent != nil {
		return env.parent.Lookup(name)
	}
	return nil, false
}

// Define binds name in this scope, overwriting any existing binding here.
// Bindings in outer scopes are shadowed, not touched.
func (env *Environment) Define(name string, value any) {
	env.vars[name] = value
}

// Set mutates the innermost scope in which name is already bound. It reports
// false when the name is bound nowhere on the chain.
func (env *Environment) Set(name string, value any) bool {
	for e := env; e != nil; e = e.parent {
		if _, ok := e.vars[name]; ok {
			e.vars[name] = value
			return true
		}
	}
	return false
}
