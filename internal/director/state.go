package director

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/faasnet/faasnet/internal/config"
	"github.com/faasnet/faasnet/internal/faaserr"
	"github.com/faasnet/faasnet/internal/protocol"
)

// pendingFanout tracks one in-flight unregister fan-out: the requesting
// client, the Workers the request was forwarded to, and the last response
// observed so far. Only the final response is forwarded to the client;
// the placement entry is deleted when the last response
// arrives, not when the fan-out starts, so a concurrent exec keeps
// resolving holders in the meantime.
type pendingFanout struct {
	ClientID     string
	FuncID       string
	Remaining    int
	Workers      map[string]struct{}
	LastResponse *protocol.ClientResponse
}

// State is every piece of shared Director bookkeeping: the worker registry,
// the placement map, the pending fan-out table, the synchronized flag, the
// round-robin index and the in-flight client set. All of it lives under one
// mutex held only for short, non-blocking critical sections, never
// across socket I/O.
type State struct {
	mu sync.Mutex

	registry  *Registry
	placement map[string]map[string]struct{}
	pending   map[string]*pendingFanout

	// serving counts in-flight requests per client id. The synchronization
	// loop only runs while this is empty.
	serving map[string]int

	// dirty reports that some Worker's catalog may be missing functions:
	// set on register and on a new Worker joining a non-empty cluster,
	// cleared when a synchronization pass completes.
	dirty bool

	strategy config.SelectionStrategy
	rrIndex  int
	rng      *rand.Rand
}

func NewState(strategy config.SelectionStrategy) *State {
	return &State{
		registry:  NewRegistry(),
		placement: make(map[string]map[string]struct{}),
		pending:   make(map[string]*pendingFanout),
		serving:   make(map[string]int),
		strategy:  strategy,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// selectWorker picks one Worker id from candidates using the configured
// strategy. Candidates must be non-empty and sorted (the deterministic
// ordering round-robin indexes into). Callers hold s.mu. Always returns
// a scalar id, whatever the candidate set size.
func (s *State) selectWorker(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", faaserr.NoWorkersErr("no workers are available")
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	switch s.strategy {
	case config.StrategyRandom:
		return candidates[s.rng.Intn(len(candidates))], nil
	default: // Round-Robin
		id := candidates[s.rrIndex%len(candidates)]
		s.rrIndex++
		return id, nil
	}
}

// holdersOf returns the sorted Worker ids currently placed for funcID.
// Callers hold s.mu.
func (s *State) holdersOf(funcID string) []string {
	set, ok := s.placement[funcID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// PlaceFunction records funcID as held by exactly workerID and marks the
// catalog dirty.
func (s *State) PlaceFunction(funcID, workerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placement[funcID] = map[string]struct{}{workerID: {}}
	s.dirty = true
}

// PlacementSnapshot returns a copy of the placement map for diagnostics.
func (s *State) PlacementSnapshot() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]string, len(s.placement))
	for funcID := range s.placement {
		out[funcID] = s.holdersOf(funcID)
	}
	return out
}

// LiveWorkers returns the sorted ids of every registered Worker.
func (s *State) LiveWorkers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.LiveIDs()
}

// beginServing records a client as waiting for a response; endServing
// reverses it. A client with several pipelined requests is counted once
// per request.
func (s *State) beginServing(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serving[clientID]++
}

func (s *State) endServing(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endServingLocked(clientID)
}

func (s *State) endServingLocked(clientID string) {
	if n, ok := s.serving[clientID]; ok {
		if n <= 1 {
			delete(s.serving, clientID)
		} else {
			s.serving[clientID] = n - 1
		}
	}
}

// fanoutResult is a completed fan-out ready to be answered: the waiting
// client and the response to forward.
type fanoutResult struct {
	ClientID string
	Response *protocol.ClientResponse
}

// AbsorbFanout records one unregister fan-out response from workerID.
// Intermediate responses are absorbed (done=false); the final one
// completes the fan-out, deletes the placement entry and releases the
// client.
func (s *State) AbsorbFanout(workerID, requestID string, resp *protocol.ClientResponse) (fanoutResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pf, ok := s.pending[requestID]
	if !ok {
		return fanoutResult{}, false
	}
	delete(pf.Workers, workerID)
	pf.Remaining--
	pf.LastResponse = resp
	if pf.Remaining > 0 {
		return fanoutResult{}, false
	}

	delete(s.pending, requestID)
	delete(s.placement, pf.FuncID)
	s.endServingLocked(pf.ClientID)
	return fanoutResult{ClientID: pf.ClientID, Response: resp}, true
}

// EvictWorker removes a dead Worker from the registry, every placement
// entry and every pending fan-out it was targeted by, returning any
// fan-outs that completed because this Worker was their last missing
// response.
func (s *State) EvictWorker(workerID string) []fanoutResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.Evict(workerID)
	for funcID, holders := range s.placement {
		delete(holders, workerID)
		if len(holders) == 0 {
			delete(s.placement, funcID)
		}
	}

	var done []fanoutResult
	for requestID, pf := range s.pending {
		if _, targeted := pf.Workers[workerID]; !targeted {
			continue
		}
		delete(pf.Workers, workerID)
		pf.Remaining--
		if pf.Remaining > 0 {
			continue
		}
		delete(s.pending, requestID)
		delete(s.placement, pf.FuncID)
		s.endServingLocked(pf.ClientID)
		resp := pf.LastResponse
		if resp == nil {
			resp = protocol.Err(string(faaserr.InternalError), "every worker holding the function died before responding")
		}
		done = append(done, fanoutResult{ClientID: pf.ClientID, Response: resp})
	}
	return done
}
