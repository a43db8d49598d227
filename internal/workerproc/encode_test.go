package workerproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeResult_JSONRepresentable(t *testing.T) {
	result, resultType := encodeResult(float64(42))
	assert.Equal(t, "json", resultType)
	assert.Equal(t, float64(42), result)

	result, resultType = encodeResult(map[string]any{"k": []any{1.0, 2.0}})
	assert.Equal(t, "json", resultType)
	assert.Equal(t, map[string]any{"k": []any{1.0, 2.0}}, result)

	result, resultType = encodeResult(nil)
	assert.Equal(t, "json", resultType)
	assert.Nil(t, result)
}

func TestEncodeResult_OpaqueFallback(t *testing.T) {
	// A channel has no JSON representation.
	_, resultType := encodeResult(make(chan int))
	assert.Equal(t, "pickle_base64", resultType)
}
