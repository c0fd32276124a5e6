package automation

import (
	"fmt"
	"sync"
)

// Registry maps action kinds to their executors. Safe for concurrent reads;
// Register is meant to be called once at startup.
type Registry struct {
	mu        sync.RWMutex
	executors map[ActionKind]Executor
}

func NewRegistry() *Registry {
	return &Registry{executors: make(map[ActionKind]Executor)}
}

// Register adds an executor. Panics on a duplicate kind to surface
// misconfiguration at startup rather than at dispatch time.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[e.Kind()]; exists {
		panic(fmt.Sprintf("automation registry: duplicate executor for %q", e.Kind()))
	}
	r.executors[e.Kind()] = e
}

// Get returns the executor for kind.
func (r *Registry) Get(kind ActionKind) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[kind]
	if !ok {
		return nil, Permanentf("no executor registered for action kind %q", kind)
	}
	return e, nil
}

// Kinds returns the registered action kinds.
func (r *Registry) Kinds() []ActionKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ActionKind, 0, len(r.executors))
	for k := range r.executors {
		out = append(out, k)
	}
	return out
}
