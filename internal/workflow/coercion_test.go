package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/faasnet/faasnet/internal/protocol"
)

func TestTypesCompatible_ExactMatch(t *testing.T) {
	assert.True(t, TypesCompatible(protocol.TypeInt, protocol.TypeInt))
	assert.True(t, TypesCompatible(protocol.TypeString, protocol.TypeString))
	assert.True(t, TypesCompatible(protocol.TypeList, protocol.TypeList))
}

func TestTypesCompatible_NumericAllowlist(t *testing.T) {
	numerics := []protocol.ParamType{
		protocol.TypeBool, protocol.TypeInt, protocol.TypeFloat, protocol.TypeComplex,
	}
	for _, declared := range numerics {
		for _, provided := range numerics {
			assert.True(t, TypesCompatible(declared, provided),
				"declared %s should accept provided %s", declared, provided)
		}
	}
}

func TestTypesCompatible_BytesPair(t *testing.T) {
	assert.True(t, TypesCompatible(protocol.TypeBytes, protocol.TypeBytesBuffer))
	assert.True(t, TypesCompatible(protocol.TypeBytesBuffer, protocol.TypeBytes))
}

func TestTypesCompatible_Rejections(t *testing.T) {
	assert.False(t, TypesCompatible(protocol.TypeInt, protocol.TypeString))
	assert.False(t, TypesCompatible(protocol.TypeString, protocol.TypeInt))
	assert.False(t, TypesCompatible(protocol.TypeBytes, protocol.TypeInt))
	assert.False(t, TypesCompatible(protocol.TypeList, protocol.TypeMap))
	assert.False(t, TypesCompatible(protocol.TypeFloat, protocol.TypeBytes))
}
