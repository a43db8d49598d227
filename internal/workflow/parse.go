package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/faasnet/faasnet/internal/faaserr"
)

// Parse decodes a raw chain_exec workflow document. Each function record
// must carry exactly the four known fields; unknown fields anywhere are
// rejected. Structural checks beyond field shape are left to
// ValidateStructure.
func Parse(raw []byte) (*Workflow, error) {
	var envelope struct {
		ID            string                     `json:"id"`
		EntryFunction string                     `json:"entry_function"`
		Functions     map[string]json.RawMessage `json:"functions"`
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&envelope); err != nil {
		return nil, faaserr.DeserializationFailedErr("malformed workflow document: %v", err)
	}

	wf := &Workflow{
		ID:            envelope.ID,
		EntryFunction: envelope.EntryFunction,
		Functions:     make(map[string]Node, len(envelope.Functions)),
	}

	allowedFields := map[string]struct{}{
		"positional_args": {}, "default_args": {}, "next": {}, "cache_result": {},
	}

	for name, rawNode := range envelope.Functions {
		var fieldMap map[string]json.RawMessage
		if err := json.Unmarshal(rawNode, &fieldMap); err != nil {
			return nil, faaserr.ValidationFailedErr("object %q must be an object", name)
		}
		for field := range fieldMap {
			if _, ok := allowedFields[field]; !ok {
				return nil, faaserr.ValidationFailedErr("unknown field %q in object %q", field, name)
			}
		}
		for field := range allowedFields {
			if _, ok := fieldMap[field]; !ok {
				return nil, faaserr.ValidationFailedErr("missing field %q for object %q", field, name)
			}
		}

		var node Node
		if err := json.Unmarshal(rawNode, &node); err != nil {
			return nil, faaserr.ValidationFailedErr("object %q: %v", name, fmt.Errorf("malformed field: %w", err))
		}
		wf.Functions[name] = node
	}

	return wf, nil
}
