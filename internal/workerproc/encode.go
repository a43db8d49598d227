package workerproc

import (
	"encoding/base64"
	"encoding/json"
)

// encodeResult returns the on-the-wire JSON form when the result is
// representable that way. Otherwise it returns result_type pickle_base64
// with the base64 encoding of the placeholder text "<unencodable result>":
// the value itself is not serialized and cannot be recovered by the
// client. Go values surfaced by the plugin table are normally
// JSON-representable (scalars, strings, slices, maps, or protocol's tagged
// complex/bytes encodings), so the pickle_base64 branch fires only if a
// procedure returns something json.Marshal cannot encode (e.g. a channel
// or a func value).
func encodeResult(result any) (any, string) {
	raw, err := json.Marshal(result)
	if err == nil {
		var back any
		if uerr := json.Unmarshal(raw, &back); uerr == nil {
			return back, "json"
		}
	}
	return base64.StdEncoding.EncodeToString([]byte(errorString(result))), "pickle_base64"
}

func errorString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "<unencodable result>"
}
