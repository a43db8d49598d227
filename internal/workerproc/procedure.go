// Package workerproc implements the Worker process: its function catalog,
// per-function statistics, LRU cache, concurrent request loop, and chained
// workflow executor.
package workerproc

import (
	"context"
	"fmt"

	"github.com/faasnet/faasnet/internal/protocol"
)

// ProcedureFunc is the executable behind a registered function. The code
// blob that travels over the wire is content-addressed and names one of
// these in the Worker's plugin table; the dispatch plane never inspects
// what the blob resolves to.
type ProcedureFunc func(ctx context.Context, positional []any, defaults map[string]any) (any, error)

// ProcedureSpec pairs an implementation with the declared signature a
// register request must supply.
type ProcedureSpec struct {
	Signature protocol.FuncSignature
	Impl      ProcedureFunc
}

// Registry is the plugin table a Worker binary populates at startup with
// every procedure it is willing to execute. Register requests name one of
// these by the procedure name encoded in the code blob; a name the table
// doesn't hold fails at execution with execution_failed.
type Registry struct {
	procs map[string]ProcedureSpec
}

func NewRegistry() *Registry {
	return &Registry{procs: make(map[string]ProcedureSpec)}
}

// MustRegister panics on a duplicate name; intended for startup wiring in
// cmd/faas-worker, not request handling.
func (r *Registry) MustRegister(name string, spec ProcedureSpec) {
	if _, exists := r.procs[name]; exists {
		panic(fmt.Sprintf("workerproc: procedure %q already registered in plugin table", name))
	}
	r.procs[name] = spec
}

func (r *Registry) Lookup(name string) (ProcedureSpec, bool) {
	spec, ok := r.procs[name]
	return spec, ok
}
