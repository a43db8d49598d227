package workerproc

import (
	"context"
	"fmt"

	"github.com/faasnet/faasnet/internal/protocol"
)

// BuiltinProcedures returns the small sample procedure set used by
// cmd/faas-worker and the package tests to exercise register/exec/
// chain_exec end to end. These stand in for user-supplied code the way a
// demo plugin table would.
func BuiltinProcedures() map[string]ProcedureSpec {
	return map[string]ProcedureSpec{
		"add": {
			Signature: protocol.FuncSignature{
				Positional: []protocol.Param{
					{Name: "a", Type: protocol.TypeInt},
					{Name: "b", Type: protocol.TypeInt},
				},
				Defaults: []protocol.Param{
					{Name: "c", Type: protocol.TypeInt, Default: float64(18)},
				},
				Return: protocol.TypeInt,
			},
			Impl: func(_ context.Context, positional []any, defaults map[string]any) (any, error) {
				a, err := toFloat(positional[0])
				if err != nil {
					return nil, err
				}
				b, err := toFloat(positional[1])
				if err != nil {
					return nil, err
				}
				c := 18.0
				if v, ok := defaults["c"]; ok {
					c, err = toFloat(v)
					if err != nil {
						return nil, err
					}
				}
				return a + b + c, nil
			},
		},
		"scale": {
			Signature: protocol.FuncSignature{
				Positional: []protocol.Param{
					{Name: "x", Type: protocol.TypeFloat},
				},
				Return: protocol.TypeFloat,
			},
			Impl: func(_ context.Context, positional []any, _ map[string]any) (any, error) {
				x, err := toFloat(positional[0])
				if err != nil {
					return nil, err
				}
				return x * 2.0, nil
			},
		},
	}
}

func toFloat(v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expected numeric argument, got %T", v)
	}
	return f, nil
}
