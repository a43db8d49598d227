package protocol

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
)

// CodeBlob is the decoded shape of a register request's
// serialized_func_base64 field: Name doubles as the plugin-table lookup
// key (internal/workerproc.Registry), Signature is the reflected
// parameter/return shape that travels with the blob so Workers can
// validate calls without executing anything.
type CodeBlob struct {
	Name      string        `json:"name"`
	Signature FuncSignature `json:"signature"`
}

// EncodeCodeBlob is the client-side helper that produces the
// serialized_func_base64 payload a register request sends.
func EncodeCodeBlob(blob CodeBlob) (string, error) {
	raw, err := json.Marshal(blob)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeCodeBlob reverses EncodeCodeBlob.
func DecodeCodeBlob(serializedFuncBase64 string) (CodeBlob, error) {
	raw, err := base64.StdEncoding.DecodeString(serializedFuncBase64)
	if err != nil {
		return CodeBlob{}, err
	}
	var blob CodeBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return CodeBlob{}, err
	}
	return blob, nil
}

// ComputeFuncID content-addresses a function as
// hex(SHA-256(name + ":" + base64(code_blob))). serializedFuncBase64 is
// already the base64 encoding of the code blob as sent over the wire.
func ComputeFuncID(name, serializedFuncBase64 string) string {
	sum := sha256.Sum256([]byte(name + ":" + serializedFuncBase64))
	return hex.EncodeToString(sum[:])
}
