package workerproc

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/faasnet/faasnet/internal/faascache"
)

// buildCacheKey canonicalizes a call's arguments into a faascache.Key.
// Positional order is preserved as-is (it's already an ordered tuple);
// default args are sorted by key before encoding so that argument-order
// in the request body never affects the cache key.
func buildCacheKey(funcID string, positional []any, defaults map[string]any) faascache.Key {
	return faascache.Key{
		FuncID:      funcID,
		Positional:  canonicalJSON(positional),
		DefaultArgs: canonicalDefaultArgs(defaults),
	}
}

func canonicalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Arguments that survived workflow/coercion validation are always
		// JSON-representable; a failure here indicates a caller bug.
		return fmt.Sprintf("<unencodable:%v>", v)
	}
	return string(b)
}

// CacheDumpEntry is one get_cache_dump row with the canonical key encoding
// unpacked back into its argument form.
type CacheDumpEntry struct {
	FuncID         string         `json:"func_id"`
	PositionalArgs []any          `json:"positional_args"`
	DefaultArgs    map[string]any `json:"default_args"`
	Value          any            `json:"value"`
}

func decodeCacheDump(entries []faascache.DumpEntry) []CacheDumpEntry {
	out := make([]CacheDumpEntry, 0, len(entries))
	for _, e := range entries {
		row := CacheDumpEntry{FuncID: e.Key.FuncID, Value: e.Value}

		if err := json.Unmarshal([]byte(e.Key.Positional), &row.PositionalArgs); err != nil {
			row.PositionalArgs = nil
		}

		var named []struct {
			Name  string `json:"name"`
			Value any    `json:"value"`
		}
		if err := json.Unmarshal([]byte(e.Key.DefaultArgs), &named); err == nil {
			row.DefaultArgs = make(map[string]any, len(named))
			for _, nv := range named {
				row.DefaultArgs[nv.Name] = nv.Value
			}
		}

		out = append(out, row)
	}
	return out
}

func canonicalDefaultArgs(defaults map[string]any) string {
	names := make([]string, 0, len(defaults))
	for k := range defaults {
		names = append(names, k)
	}
	sort.Strings(names)

	ordered := make([]struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}, len(names))
	for i, name := range names {
		ordered[i].Name = name
		ordered[i].Value = defaults[name]
	}
	return canonicalJSON(ordered)
}
