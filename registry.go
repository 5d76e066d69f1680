package fluxion

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Builtin is the host-function contract: positional args plus optional
// named args. Desugared commands arrive as a single map positional arg.
type Builtin func(args []any, kwargs map[string]any) (any, error)

// Registry holds named builtins. Lookup is case-insensitive. All methods
// are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Builtin
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Builtin)}
}

func (r *Registry) Register(name string, fn Builtin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	if _, exists := r.funcs[key]; exists {
		return fmt.Errorf("builtin %q already registered", name)
	}
	r.funcs[key] = fn
	return nil
}

// Override registers or replaces a builtin. Runners use it to swap echo
// for a recording variant; tests use it to mock probes.
func (r *Registry) Override(name string, fn Builtin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[strings.ToLower(name)] = fn
}

func (r *Registry) Lookup(name string) (Builtin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[strings.ToLower(name)]
	return fn, ok
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs = make(map[string]Builtin)
}

// Clone copies the registry so per-run overrides never leak into the
// shared instance.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &Registry{funcs: make(map[string]Builtin, len(r.funcs))}
	for name, fn := range r.funcs {
		out.funcs[name] = fn
	}
	return out
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the shared registry with the standard builtins.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewStdRegistry()
	})
	return defaultRegistry
}

// NewStdRegistry builds a fresh registry carrying the full standard set.
func NewStdRegistry() *Registry {
	r := NewRegistry()
	registerCoreBuiltins(r)
	registerStringBuiltins(r)
	registerTimeBuiltins(r)
	registerProbeBuiltins(r)
	registerSNMPBuiltins(r)
	return r
}
