// Package workflow implements the structural validation a Client performs
// before submitting a chain_exec request, and the reference-resolution
// helpers shared with the Worker-side type checker in internal/workerproc.
package workflow

// Node is one function invocation in a workflow chain.
type Node struct {
	PositionalArgs []any          `json:"positional_args"`
	DefaultArgs    map[string]any `json:"default_args"`
	Next           string         `json:"next"`
	CacheResult    bool           `json:"cache_result"`
}

// Workflow is the client-submitted chain_exec payload.
type Workflow struct {
	ID             string          `json:"id"`
	EntryFunction  string          `json:"entry_function"`
	Functions      map[string]Node `json:"functions"`
}

const refPrefix = "$"
const refSuffix = ".output"

// IsReference reports whether a literal argument value is an
// argument-reference ("$<name>.output") rather than a concrete value.
// Matching is an exact "$" prefix and ".output" suffix with a non-empty
// name between them, never character-set stripping.
func IsReference(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return isReferenceString(s)
}

func isReferenceString(s string) bool {
	if len(s) <= len(refPrefix)+len(refSuffix) {
		return false
	}
	if s[:len(refPrefix)] != refPrefix {
		return false
	}
	if s[len(s)-len(refSuffix):] != refSuffix {
		return false
	}
	return true
}

// ReferencedFunction extracts the source function name from a reference
// string such as "$add.output" -> "add". The caller must have already
// confirmed IsReference(v).
func ReferencedFunction(s string) string {
	return s[len(refPrefix) : len(s)-len(refSuffix)]
}
