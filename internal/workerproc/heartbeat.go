package workerproc

import (
	"time"

	"github.com/faasnet/faasnet/internal/protocol"
)

// heartbeatLoop emits a periodic liveness signal to the Director.
func (w *Worker) heartbeatLoop() {
	defer w.wg.Done()

	interval := time.Duration(w.cfg.Network.HeartbeatIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if err := w.sendControl(protocol.WorkerControl{
				DirectorOperation: protocol.DirOpHeartbeat,
				WorkerID:          w.id,
			}); err != nil {
				w.log.Warn().Err(err).Msg("heartbeat send failed")
			}
		}
	}
}
