package workerproc

import (
	"fmt"

	"github.com/faasnet/faasnet/internal/faaserr"
	"github.com/faasnet/faasnet/internal/protocol"
	"github.com/faasnet/faasnet/internal/workflow"
)

// checkCallArgs is the worker-side half of call validation: positional
// arity/type checks against the declared signature, default args scoped to
// declared parameter names, and rejection of a parameter filled both
// positionally and by name. References ("$X.output") are skipped here,
// never checked against their literal string form; checkChainReferences
// checks them against the source function's declared return type.
func checkCallArgs(sig protocol.FuncSignature, positional []any, defaults map[string]any) error {
	if len(positional) != len(sig.Positional) {
		return faaserr.ValidationFailedErr(
			"expected %d positional argument(s), got %d", len(sig.Positional), len(positional))
	}

	filled := make(map[string]struct{}, len(sig.Positional))
	for i, param := range sig.Positional {
		filled[param.Name] = struct{}{}
		if workflow.IsReference(positional[i]) {
			continue
		}
		provided := protocol.ValueType(positional[i])
		if !workflow.TypesCompatible(param.Type, provided) {
			return faaserr.ValidationFailedErr(
				"positional argument %d (%q): expected %s, got %s", i, param.Name, param.Type, provided)
		}
	}

	declaredDefaults := make(map[string]protocol.Param, len(sig.Defaults))
	for _, p := range sig.Defaults {
		declaredDefaults[p.Name] = p
	}

	for name, value := range defaults {
		if _, isPositional := filled[name]; isPositional {
			return faaserr.ValidationFailedErr("argument %q supplied both positionally and by name", name)
		}
		param, ok := declaredDefaults[name]
		if !ok {
			return faaserr.ValidationFailedErr("unknown default argument %q", name)
		}
		if workflow.IsReference(value) {
			continue
		}
		provided := protocol.ValueType(value)
		if !workflow.TypesCompatible(param.Type, provided) {
			return faaserr.ValidationFailedErr(
				"default argument %q: expected %s, got %s", name, param.Type, provided)
		}
	}

	return nil
}

// checkReturnTypeReference validates one edge a -> b in a chain: when b's
// argument at position i or name n is literally "$a.output", a's declared
// return type must be compatible with the destination parameter's
// declared type.
func checkReturnTypeReference(fromReturn protocol.ParamType, toParam protocol.Param) error {
	if !workflow.TypesCompatible(toParam.Type, fromReturn) {
		return faaserr.ValidationFailedErr(
			"argument %q expects %s but referenced function returns %s", toParam.Name, toParam.Type, fromReturn)
	}
	return nil
}

// checkChainReferences walks node's args looking for "$from.output"
// references and validates each against from's declared return type.
func checkChainReferences(from string, fromReturn protocol.ParamType, node workflow.Node, toSig protocol.FuncSignature) error {
	refString := fmt.Sprintf("$%s.output", from)

	for i, arg := range node.PositionalArgs {
		if s, ok := arg.(string); ok && s == refString {
			if i >= len(toSig.Positional) {
				continue // arity mismatch already reported by checkCallArgs
			}
			if err := checkReturnTypeReference(fromReturn, toSig.Positional[i]); err != nil {
				return err
			}
		}
	}
	declaredDefaults := make(map[string]protocol.Param, len(toSig.Defaults))
	for _, p := range toSig.Defaults {
		declaredDefaults[p.Name] = p
	}
	for name, val := range node.DefaultArgs {
		if s, ok := val.(string); ok && s == refString {
			param, ok := declaredDefaults[name]
			if !ok {
				continue // unknown-default already reported by checkCallArgs
			}
			if err := checkReturnTypeReference(fromReturn, param); err != nil {
				return err
			}
		}
	}
	return nil
}
