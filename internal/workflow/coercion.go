package workflow

import "github.com/faasnet/faasnet/internal/protocol"

// coercionAllowlist is the fixed table of implicit type promotions accepted
// during signature checks. Each row is symmetric: if a provided type
// appears in the destination type's row, it's accepted in either direction
// for that pair.
var coercionAllowlist = map[protocol.ParamType]map[protocol.ParamType]struct{}{
	protocol.TypeBool: {
		protocol.TypeInt: {}, protocol.TypeFloat: {}, protocol.TypeComplex: {},
	},
	protocol.TypeInt: {
		protocol.TypeBool: {}, protocol.TypeFloat: {}, protocol.TypeComplex: {},
	},
	protocol.TypeFloat: {
		protocol.TypeBool: {}, protocol.TypeInt: {}, protocol.TypeComplex: {},
	},
	protocol.TypeComplex: {
		protocol.TypeBool: {}, protocol.TypeInt: {}, protocol.TypeFloat: {},
	},
	protocol.TypeBytes: {
		protocol.TypeBytesBuffer: {},
	},
	protocol.TypeBytesBuffer: {
		protocol.TypeBytes: {},
	},
}

// TypesCompatible reports whether a value of type `provided` may be used
// where `declared` is required: exact match, or `provided` is in
// `declared`'s coercion row.
func TypesCompatible(declared, provided protocol.ParamType) bool {
	if declared == provided {
		return true
	}
	row, ok := coercionAllowlist[declared]
	if !ok {
		return false
	}
	_, ok = row[provided]
	return ok
}
