package director

import "time"

// livenessLoop is the Director's liveness watcher: it wakes
// every heartbeat_check_interval and unregisters any Worker whose last
// heartbeat is older than twice the expected heartbeat interval, with an
// equally long grace window after registration.
func (d *Director) livenessLoop() {
	defer d.wg.Done()

	interval := time.Duration(d.cfg.Workers.HeartbeatCheckIntervalMs) * time.Millisecond
	tolerance := 2 * time.Duration(d.cfg.Workers.ExpectedHeartbeatIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			d.state.mu.Lock()
			stale := d.state.registry.Stale(now.Add(-tolerance), now.Add(-tolerance))
			d.state.mu.Unlock()
			for _, workerID := range stale {
				d.evictWorker(workerID)
			}
		}
	}
}

// evictWorker deletes a dead Worker's record, removes it from every
// placement entry and drops its pending fan-out obligations, finalizing
// any fan-out it was the last missing response for.
func (d *Director) evictWorker(workerID string) {
	done := d.state.EvictWorker(workerID)

	d.state.mu.Lock()
	liveCount := len(d.state.registry.workers)
	placementCount := len(d.state.placement)
	pendingCount := len(d.state.pending)
	d.state.mu.Unlock()

	d.metrics.SetLiveWorkers(liveCount)
	d.metrics.SetPlacementSize(placementCount)
	d.metrics.SetPendingFanouts(pendingCount)
	d.log.Info().Str("worker", workerID).Msg("worker evicted: missed heartbeats")

	for _, f := range done {
		d.replyClient(f.ClientID, f.Response)
	}
}
