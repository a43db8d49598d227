package director

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/faasnet/faasnet/internal/protocol"
)

// syncLoop drives catalog synchronization: it wakes every
// synchronization_interval and runs a pass only when at least two Workers
// are registered, no client request is in flight, and the catalog is
// dirty.
func (d *Director) syncLoop() {
	defer d.wg.Done()

	interval := time.Duration(d.cfg.Workers.SynchronizationIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.state.mu.Lock()
			ready := len(d.state.registry.workers) >= 2 &&
				len(d.state.serving) == 0 &&
				d.state.dirty
			d.state.mu.Unlock()
			if !ready {
				continue
			}
			d.runSyncPass(interval)
		}
	}
}

// syncPlan is the pure outcome of comparing every Worker's reported
// function set: the union, each Worker's missing set, and each function's
// owners. All slices are sorted for deterministic selection.
type syncPlan struct {
	All     []string
	Missing map[string][]string
	Owners  map[string][]string
}

func computeSyncPlan(states map[string][]string) syncPlan {
	allSet := make(map[string]struct{})
	owners := make(map[string][]string)
	for workerID, funcs := range states {
		for _, funcID := range funcs {
			allSet[funcID] = struct{}{}
			owners[funcID] = append(owners[funcID], workerID)
		}
	}

	all := make([]string, 0, len(allSet))
	for funcID := range allSet {
		all = append(all, funcID)
	}
	sort.Strings(all)
	for _, ws := range owners {
		sort.Strings(ws)
	}

	missing := make(map[string][]string, len(states))
	for workerID, funcs := range states {
		has := make(map[string]struct{}, len(funcs))
		for _, funcID := range funcs {
			has[funcID] = struct{}{}
		}
		var m []string
		for _, funcID := range all {
			if _, ok := has[funcID]; !ok {
				m = append(m, funcID)
			}
		}
		missing[workerID] = m
	}

	return syncPlan{All: all, Missing: missing, Owners: owners}
}

// runSyncPass executes one strictly request-then-collect synchronization
// pass. If any expected response fails to arrive before the pass deadline,
// the pass is abandoned and retried next interval with placement and the
// dirty flag left unchanged.
func (d *Director) runSyncPass(passTimeout time.Duration) {
	started := time.Now()
	deadline := time.After(passTimeout)

	// Leftover responses from an abandoned prior pass would corrupt this
	// one's counting, so both queues start empty.
	d.drainSyncQueues()

	d.state.mu.Lock()
	workers := d.state.registry.LiveIDs()
	d.state.mu.Unlock()

	// Step 1: ask every Worker for its current function set.
	for _, workerID := range workers {
		d.sendSyncControl(workerID, protocol.DirectorControl{Operation: protocol.OpSyncStateRequest})
	}

	// Step 2: collect one state response per Worker.
	states := make(map[string][]string, len(workers))
	expected := make(map[string]struct{}, len(workers))
	for _, w := range workers {
		expected[w] = struct{}{}
	}
	for len(states) < len(workers) {
		select {
		case <-d.ctx.Done():
			return
		case <-deadline:
			d.abandonPass(started, "timed out waiting for worker state responses")
			return
		case msg := <-d.syncStateCh:
			if _, ok := expected[msg.WorkerID]; !ok {
				continue
			}
			delete(expected, msg.WorkerID)
			states[msg.WorkerID] = msg.FunctionIDs
		}
	}

	plan := computeSyncPlan(states)

	neededSet := make(map[string]struct{})
	for _, m := range plan.Missing {
		for _, funcID := range m {
			neededSet[funcID] = struct{}{}
		}
	}

	if len(neededSet) == 0 {
		d.finalizeSyncPass(started, workers, plan.All)
		return
	}

	needed := make([]string, 0, len(neededSet))
	for funcID := range neededSet {
		needed = append(needed, funcID)
	}
	sort.Strings(needed)

	// Step 3: request each missing function's code from one owner.
	for _, funcID := range needed {
		d.state.mu.Lock()
		owner, err := d.state.selectWorker(plan.Owners[funcID])
		d.state.mu.Unlock()
		if err != nil {
			// A function no reporting Worker owns cannot appear in a plan
			// built from reported states, but guard anyway.
			d.log.Error().Str("func_id", funcID).Msg("sync: no owner for missing function, skipped")
			continue
		}
		ctrl := protocol.DirectorControl{Operation: protocol.OpSyncFunctionCodeRequest}
		ctrl.FuncID = funcID
		d.sendSyncControl(owner, ctrl)
	}

	// Step 4: collect one code response per requested function.
	code := make(map[string]protocol.WorkerControl, len(needed))
	for len(code) < len(needed) {
		select {
		case <-d.ctx.Done():
			return
		case <-deadline:
			d.abandonPass(started, "timed out waiting for function code responses")
			return
		case msg := <-d.syncCodeCh:
			code[msg.FuncID] = msg
		}
	}

	// Step 5: announce per-Worker counts, then push the code.
	for _, workerID := range workers {
		missing := plan.Missing[workerID]
		d.sendSyncControl(workerID, protocol.DirectorControl{
			Operation: protocol.OpSyncMissingFunctionCount,
			Count:     len(missing),
		})
		for _, funcID := range missing {
			src, ok := code[funcID]
			if !ok {
				continue
			}
			ctrl := protocol.DirectorControl{
				Operation:         protocol.OpSyncMissingFunctionCode,
				Name:              src.Name,
				CodeBlobBase64:    src.CodeBlobBase64,
				Signature:         src.Signature,
				RegisteringClient: src.RegisteringClient,
			}
			ctrl.FuncID = funcID
			d.sendSyncControl(workerID, ctrl)
		}
	}

	d.finalizeSyncPass(started, workers, plan.All)
}

// finalizeSyncPass updates the placement map so every alive Worker appears
// for every function and clears the dirty flag.
func (d *Director) finalizeSyncPass(started time.Time, workers, allFuncs []string) {
	d.state.mu.Lock()
	for _, funcID := range allFuncs {
		holders := make(map[string]struct{}, len(workers))
		for _, w := range workers {
			if d.state.registry.IsLive(w) {
				holders[w] = struct{}{}
			}
		}
		if len(holders) > 0 {
			d.state.placement[funcID] = holders
		}
	}
	d.state.dirty = false
	placementCount := len(d.state.placement)
	d.state.mu.Unlock()

	d.metrics.SetPlacementSize(placementCount)
	d.metrics.ObserveSyncPass(time.Since(started), true)
	d.log.Info().Int("functions", len(allFuncs)).Int("workers", len(workers)).Dur("elapsed", time.Since(started)).Msg("sync pass completed")
}

func (d *Director) abandonPass(started time.Time, reason string) {
	d.metrics.ObserveSyncPass(time.Since(started), false)
	d.log.Warn().Str("reason", reason).Msg("sync pass abandoned, retrying next interval")
}

func (d *Director) drainSyncQueues() {
	for {
		select {
		case <-d.syncStateCh:
		case <-d.syncCodeCh:
		default:
			return
		}
	}
}

func (d *Director) sendSyncControl(workerID string, ctrl protocol.DirectorControl) {
	body, err := json.Marshal(ctrl)
	if err != nil {
		d.log.Error().Err(err).Msg("sync: encoding control message failed")
		return
	}
	if err := d.router.Send(workerID, body); err != nil {
		d.log.Warn().Err(err).Str("worker", workerID).Msg("sync: send failed")
	}
}
