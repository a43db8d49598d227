package protocol

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFuncID_MatchesFormula(t *testing.T) {
	serialized, err := EncodeCodeBlob(CodeBlob{
		Name: "add",
		Signature: FuncSignature{
			Positional: []Param{{Name: "a", Type: TypeInt}, {Name: "b", Type: TypeInt}},
			Return:     TypeInt,
		},
	})
	require.NoError(t, err)

	want := sha256.Sum256([]byte("add:" + serialized))
	assert.Equal(t, hex.EncodeToString(want[:]), ComputeFuncID("add", serialized))
}

func TestComputeFuncID_DistinctNamesDistinctIDs(t *testing.T) {
	blob, err := EncodeCodeBlob(CodeBlob{Name: "f", Signature: FuncSignature{Return: TypeInt}})
	require.NoError(t, err)

	assert.NotEqual(t, ComputeFuncID("f", blob), ComputeFuncID("g", blob))
}

func TestCodeBlob_RoundTrip(t *testing.T) {
	in := CodeBlob{
		Name: "scale",
		Signature: FuncSignature{
			Positional: []Param{{Name: "x", Type: TypeFloat}},
			Defaults:   []Param{{Name: "factor", Type: TypeFloat, Default: 2.0}},
			Return:     TypeFloat,
		},
	}

	serialized, err := EncodeCodeBlob(in)
	require.NoError(t, err)

	out, err := DecodeCodeBlob(serialized)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeCodeBlob_RejectsGarbage(t *testing.T) {
	_, err := DecodeCodeBlob("not!base64!!")
	assert.Error(t, err)

	_, err = DecodeCodeBlob("aGVsbG8=") // valid base64, not JSON
	assert.Error(t, err)
}
