package protocol

// Wire encodings for the ParamType values JSON has no native
// representation for: bytes, bytes-buffer and complex. Scalars, strings,
// bools, lists and maps travel as plain JSON; these three ride inside an
// object carrying a reserved tag key (plus "real"/"imag" for complex) so
// ValueType can tell them apart on the Worker
// side without a declared type to compare against.
const (
	complexTag     = "__complex__"
	bytesTag       = "__bytes__"
	bytesBufferTag = "__bytes_buffer__"
)

// MakeComplex encodes a complex number as a tagged wire value.
func MakeComplex(real, imag float64) map[string]any {
	return map[string]any{complexTag: true, "real": real, "imag": imag}
}

// MakeBytes encodes a raw byte string as a tagged wire value.
func MakeBytes(b64 string) map[string]any {
	return map[string]any{bytesTag: b64}
}

// MakeBytesBuffer encodes a buffered byte string as a tagged wire value.
func MakeBytesBuffer(b64 string) map[string]any {
	return map[string]any{bytesBufferTag: b64}
}

// ValueType infers the ParamType of a JSON-decoded argument value, used by
// the Worker-side signature checker to compare provided argument types
// against a declared signature.
func ValueType(v any) ParamType {
	switch val := v.(type) {
	case nil:
		return TypeAny
	case bool:
		return TypeBool
	case float64:
		if val == float64(int64(val)) {
			return TypeInt
		}
		return TypeFloat
	case string:
		return TypeString
	case []any:
		return TypeList
	case map[string]any:
		if _, ok := val[complexTag]; ok {
			return TypeComplex
		}
		if _, ok := val[bytesTag]; ok {
			return TypeBytes
		}
		if _, ok := val[bytesBufferTag]; ok {
			return TypeBytesBuffer
		}
		return TypeMap
	default:
		return TypeAny
	}
}
