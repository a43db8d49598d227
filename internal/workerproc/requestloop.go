package workerproc

import (
	"encoding/json"
	"errors"

	"github.com/faasnet/faasnet/internal/protocol"
	"github.com/faasnet/faasnet/internal/transport"
)

// recvLoop is the Worker's sole transport-reading goroutine. Every inbound
// control message is dispatched to its own goroutine, bounded by
// handlerSem, so slow user procedures don't stall unrelated requests.
func (w *Worker) recvLoop() {
	defer w.wg.Done()

	for {
		body, err := w.dealer.Recv()
		if err != nil {
			select {
			case <-w.ctx.Done():
				return
			default:
			}
			if !errors.Is(err, transport.ErrTimeout) {
				w.log.Error().Err(err).Msg("recv failed")
			}
			continue
		}

		var ctrl protocol.DirectorControl
		if err := json.Unmarshal(body, &ctrl); err != nil {
			w.log.Warn().Err(err).Msg("malformed director message dropped")
			continue
		}
		w.bumpRequestCount()

		select {
		case w.handlerSem <- struct{}{}:
		case <-w.ctx.Done():
			return
		}
		w.wg.Add(1)
		go func(c protocol.DirectorControl) {
			defer w.wg.Done()
			defer func() { <-w.handlerSem }()
			w.dispatch(w.ctx, c)
		}(ctrl)
	}
}

// sendLoop drains the one outbound queue every handler enqueues into; it
// is the only goroutine that writes handler responses to the socket.
// heartbeatLoop sends heartbeats directly, under the Dealer's own lock.
func (w *Worker) sendLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case body := <-w.outbox:
			if err := w.dealer.Send(body); err != nil {
				w.log.Error().Err(err).Msg("send failed")
			}
		}
	}
}
