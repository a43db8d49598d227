package workflow

import (
	"fmt"

	"github.com/faasnet/faasnet/internal/faaserr"
)

// ValidateStructure performs the client-side structural check on a parsed
// workflow: well-formed id/entry_function, no self-loops, at least one
// terminal node, full reachability from the entry function, and that
// every "$X.output" reference targets a declared function name.
//
// It never inspects argument types — that is the Worker's job at
// chain_exec time (internal/workerproc/typecheck.go).
func ValidateStructure(wf *Workflow) error {
	if wf.ID == "" {
		return faaserr.ValidationFailedErr("missing or empty field \"id\"")
	}
	if wf.EntryFunction == "" {
		return faaserr.ValidationFailedErr("missing or empty field \"entry_function\"")
	}
	if len(wf.Functions) == 0 {
		return faaserr.ValidationFailedErr("missing or empty object \"functions\"")
	}
	if _, ok := wf.Functions[wf.EntryFunction]; !ok {
		return faaserr.ValidationFailedErr("entry function %q is missing in \"functions\"", wf.EntryFunction)
	}

	names := make(map[string]struct{}, len(wf.Functions))
	for name := range wf.Functions {
		if name == "" {
			return faaserr.ValidationFailedErr("empty function name")
		}
		names[name] = struct{}{}
	}

	nextOf := make(map[string]string, len(wf.Functions))
	hasTerminal := false
	for name, node := range wf.Functions {
		if node.Next != "" {
			if _, ok := names[node.Next]; !ok {
				return faaserr.ValidationFailedErr("field \"next\" for function %q does not point to a valid function", name)
			}
		} else {
			hasTerminal = true
		}
		if node.Next == name {
			return faaserr.ValidationFailedErr("self cycle not allowed: field \"next\" for function %q points to %q", name, name)
		}
		nextOf[name] = node.Next
	}

	if !hasTerminal {
		return faaserr.ValidationFailedErr("unable to detect final function in chain: no function has field \"next\" set to empty")
	}

	reachable := reachableSet(wf.EntryFunction, nextOf)
	for name := range wf.Functions {
		if _, ok := reachable[name]; !ok {
			return faaserr.ValidationFailedErr("function %q is unreachable", name)
		}
	}

	for name, node := range wf.Functions {
		for i, arg := range node.PositionalArgs {
			if err := checkReference(arg, names); err != nil {
				return faaserr.ValidationFailedErr("function %q positional arg %d: %v", name, i, err)
			}
		}
		for k, arg := range node.DefaultArgs {
			if err := checkReference(arg, names); err != nil {
				return faaserr.ValidationFailedErr("function %q default arg %q: %v", name, k, err)
			}
		}
	}

	return nil
}

// reachableSet walks the next-chain from entry and returns every function
// name reached, including entry itself.
func reachableSet(entry string, nextOf map[string]string) map[string]struct{} {
	seen := map[string]struct{}{entry: {}}
	cur := entry
	for {
		next, ok := nextOf[cur]
		if !ok || next == "" {
			break
		}
		if _, already := seen[next]; already {
			break // a cycle: the walk stops, and the nodes it never reached fail the reachability check
		}
		seen[next] = struct{}{}
		cur = next
	}
	return seen
}

func checkReference(arg any, names map[string]struct{}) error {
	if !IsReference(arg) {
		return nil
	}
	fn := ReferencedFunction(arg.(string))
	if _, ok := names[fn]; !ok {
		return fmt.Errorf("unknown function %q in referenced argument %q", fn, arg)
	}
	return nil
}
