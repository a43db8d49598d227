package workerproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faasnet/faasnet/internal/protocol"
	"github.com/faasnet/faasnet/internal/workflow"
)

func nodeWithPositional(args []any) workflow.Node {
	return workflow.Node{PositionalArgs: args, DefaultArgs: map[string]any{}}
}

func nodeWithDefaults(defaults map[string]any) workflow.Node {
	return workflow.Node{DefaultArgs: defaults}
}

func addSignature() protocol.FuncSignature {
	return protocol.FuncSignature{
		Positional: []protocol.Param{
			{Name: "a", Type: protocol.TypeInt},
			{Name: "b", Type: protocol.TypeInt},
		},
		Defaults: []protocol.Param{
			{Name: "c", Type: protocol.TypeInt, Default: float64(18)},
		},
		Return: protocol.TypeInt,
	}
}

func TestCheckCallArgs_Valid(t *testing.T) {
	err := checkCallArgs(addSignature(), []any{float64(1), float64(2)}, map[string]any{"c": float64(3)})
	assert.NoError(t, err)
}

func TestCheckCallArgs_DefaultsAreOptional(t *testing.T) {
	err := checkCallArgs(addSignature(), []any{float64(1), float64(2)}, nil)
	assert.NoError(t, err)
}

func TestCheckCallArgs_ArityMismatch(t *testing.T) {
	err := checkCallArgs(addSignature(), []any{float64(1)}, nil)
	require.Error(t, err)

	err = checkCallArgs(addSignature(), []any{float64(1), float64(2), float64(3)}, nil)
	require.Error(t, err)
}

func TestCheckCallArgs_PositionalTypeMismatch(t *testing.T) {
	err := checkCallArgs(addSignature(), []any{"one", float64(2)}, nil)
	assert.Error(t, err)
}

func TestCheckCallArgs_CoercesNumericTypes(t *testing.T) {
	// float provided where int declared is in the coercion allowlist.
	err := checkCallArgs(addSignature(), []any{1.5, float64(2)}, map[string]any{"c": true})
	assert.NoError(t, err)
}

func TestCheckCallArgs_UnknownDefaultName(t *testing.T) {
	err := checkCallArgs(addSignature(), []any{float64(1), float64(2)}, map[string]any{"d": float64(3)})
	assert.Error(t, err)
}

func TestCheckCallArgs_DuplicatePositionalAndNamed(t *testing.T) {
	err := checkCallArgs(addSignature(), []any{float64(1), float64(2)}, map[string]any{"a": float64(9)})
	assert.Error(t, err)
}

func TestCheckCallArgs_ReferencesSkipTypeCheck(t *testing.T) {
	// "$prev.output" is a string, but references resolve before invocation
	// and are never checked against their literal string form.
	err := checkCallArgs(addSignature(), []any{"$prev.output", float64(2)}, map[string]any{"c": "$prev.output"})
	assert.NoError(t, err)
}

func TestCheckChainReferences_PositionalByIndex(t *testing.T) {
	scaleSig := protocol.FuncSignature{
		Positional: []protocol.Param{{Name: "x", Type: protocol.TypeFloat}},
		Return:     protocol.TypeFloat,
	}

	node := nodeWithPositional([]any{"$add.output"})
	assert.NoError(t, checkChainReferences("add", protocol.TypeInt, node, scaleSig))

	strSig := protocol.FuncSignature{
		Positional: []protocol.Param{{Name: "s", Type: protocol.TypeString}},
		Return:     protocol.TypeString,
	}
	assert.Error(t, checkChainReferences("add", protocol.TypeInt, node, strSig))
}

func TestCheckChainReferences_DefaultByName(t *testing.T) {
	sig := protocol.FuncSignature{
		Defaults: []protocol.Param{{Name: "x", Type: protocol.TypeFloat, Default: 1.0}},
		Return:   protocol.TypeFloat,
	}

	ok := nodeWithDefaults(map[string]any{"x": "$add.output"})
	assert.NoError(t, checkChainReferences("add", protocol.TypeInt, ok, sig))

	bad := nodeWithDefaults(map[string]any{"x": "$add.output"})
	assert.Error(t, checkChainReferences("add", protocol.TypeString, bad, sig))
}
