package workerproc

import (
	"sort"
	"sync"

	"github.com/faasnet/faasnet/internal/protocol"
)

// Function is one registered procedure, keyed by func_id in Catalog.
type Function struct {
	FuncID            string                 `json:"func_id"`
	Name              string                 `json:"name"`
	SerializedBase64  string                 `json:"serialized_func_base64"`
	Signature         protocol.FuncSignature `json:"signature"`
	RegisteringClient string                 `json:"registering_client"`
}

// Catalog is the Worker's local function table.
type Catalog struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

func NewCatalog() *Catalog {
	return &Catalog{funcs: make(map[string]Function)}
}

// Exists reports whether funcID is already registered (register's
// no_action branch).
func (c *Catalog) Exists(funcID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.funcs[funcID]
	return ok
}

// Insert adds a new entry. Callers must check Exists first; Insert does
// not itself enforce the no_action invariant so callers can decide their
// own logging/response around it.
func (c *Catalog) Insert(fn Function) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[fn.FuncID] = fn
}

func (c *Catalog) Get(funcID string) (Function, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.funcs[funcID]
	return fn, ok
}

func (c *Catalog) Delete(funcID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.funcs, funcID)
}

// ListEntry is the light catalog row surfaced by list and get_worker_info
// (the code blob stays out of diagnostic payloads).
type ListEntry struct {
	FuncID            string `json:"func_id"`
	Name              string `json:"name"`
	RegisteringClient string `json:"registering_client"`
}

// ListEntries returns the catalog rows visible to clientID, sorted by
// function name. An empty clientID returns every row: the "list"
// operation scopes results to the requesting client, get_worker_info does
// not.
func (c *Catalog) ListEntries(clientID string) []ListEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ListEntry, 0, len(c.funcs))
	for id, fn := range c.funcs {
		if clientID != "" && fn.RegisteringClient != clientID {
			continue
		}
		out = append(out, ListEntry{FuncID: id, Name: fn.Name, RegisteringClient: fn.RegisteringClient})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// All returns every catalog entry, keyed by func_id (used by get_worker_info
// and catalog synchronization).
func (c *Catalog) All() map[string]Function {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Function, len(c.funcs))
	for id, fn := range c.funcs {
		out[id] = fn
	}
	return out
}

// FuncIDs returns the set of known func_ids (used by sync_state_response).
func (c *Catalog) FuncIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.funcs))
	for id := range c.funcs {
		out = append(out, id)
	}
	return out
}

// ByName resolves a declared workflow function name to its catalog entry.
// Chain-exec workflows reference functions by name, not func_id, so this
// scans the catalog and returns the first entry with that name; if several
// entries share a name, which one is returned is not defined.
func (c *Catalog) ByName(name string) (Function, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, fn := range c.funcs {
		if fn.Name == name {
			return fn, true
		}
	}
	return Function{}, false
}
