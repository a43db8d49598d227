package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueType_Scalars(t *testing.T) {
	assert.Equal(t, TypeBool, ValueType(true))
	assert.Equal(t, TypeInt, ValueType(float64(42)))
	assert.Equal(t, TypeFloat, ValueType(3.14))
	assert.Equal(t, TypeString, ValueType("hello"))
	assert.Equal(t, TypeAny, ValueType(nil))
}

func TestValueType_Aggregates(t *testing.T) {
	assert.Equal(t, TypeList, ValueType([]any{1, 2}))
	assert.Equal(t, TypeMap, ValueType(map[string]any{"k": "v"}))
}

func TestValueType_TaggedForms(t *testing.T) {
	assert.Equal(t, TypeComplex, ValueType(MakeComplex(1, 2)))
	assert.Equal(t, TypeBytes, ValueType(MakeBytes("aGVsbG8=")))
	assert.Equal(t, TypeBytesBuffer, ValueType(MakeBytesBuffer("aGVsbG8=")))
}
