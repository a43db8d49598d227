package workerproc

import (
	"context"
	"fmt"

	"github.com/faasnet/faasnet/internal/faaserr"
	"github.com/faasnet/faasnet/internal/workflow"
)

// runChain executes a structurally-validated workflow. The caller is
// expected to have already passed the workflow through
// workflow.ValidateStructure; runChain performs the Worker-side type
// checks before executing anything.
func (w *Worker) runChain(ctx context.Context, clientID string, wf *workflow.Workflow) (any, error) {
	resolved := make(map[string]Function, len(wf.Functions))
	for name := range wf.Functions {
		fn, ok := w.catalog.ByName(name)
		if !ok {
			return nil, faaserr.ValidationFailedErr("no function named %q is registered at this worker", name)
		}
		resolved[name] = fn
	}

	for name, node := range wf.Functions {
		fn := resolved[name]
		if err := checkCallArgs(fn.Signature, node.PositionalArgs, node.DefaultArgs); err != nil {
			return nil, fmt.Errorf("function %q: %w", name, err)
		}
		if node.Next != "" {
			next := resolved[node.Next]
			if err := checkChainReferences(name, fn.Signature.Return, wf.Functions[node.Next], next.Signature); err != nil {
				return nil, fmt.Errorf("edge %s -> %s: %w", name, node.Next, err)
			}
		}
	}

	cur := wf.EntryFunction
	node := wf.Functions[cur]
	result, err := w.executeFunction(ctx, resolved[cur], node.PositionalArgs, node.DefaultArgs, node.CacheResult)
	if err != nil {
		return nil, err
	}

	for node.Next != "" {
		prevName := cur
		cur = node.Next
		node = wf.Functions[cur]

		positional := substituteReferences(node.PositionalArgs, prevName, result)
		defaults := substituteDefaultReferences(node.DefaultArgs, prevName, result)

		result, err = w.executeFunction(ctx, resolved[cur], positional, defaults, node.CacheResult)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func substituteReferences(args []any, fromFunc string, value any) []any {
	want := "$" + fromFunc + ".output"
	out := make([]any, len(args))
	for i, a := range args {
		if s, ok := a.(string); ok && s == want {
			out[i] = value
			continue
		}
		out[i] = a
	}
	return out
}

func substituteDefaultReferences(args map[string]any, fromFunc string, value any) map[string]any {
	want := "$" + fromFunc + ".output"
	out := make(map[string]any, len(args))
	for k, a := range args {
		if s, ok := a.(string); ok && s == want {
			out[k] = value
			continue
		}
		out[k] = a
	}
	return out
}
