package director

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/faasnet/faasnet/internal/config"
	"github.com/faasnet/faasnet/internal/faaserr"
	"github.com/faasnet/faasnet/internal/logging"
	"github.com/faasnet/faasnet/internal/protocol"
	"github.com/faasnet/faasnet/internal/transport"
)

// Director is the central routing and synchronization process: it binds the
// ROUTER socket every Client and Worker connects to, tracks Worker
// liveness, places functions, routes requests and drives catalog
// synchronization.
type Director struct {
	cfg     *config.DirectorConfig
	state   *State
	router  *transport.Router
	log     zerolog.Logger
	metrics *Metrics

	// Synchronization response queues, fed by the router loop and drained
	// by the sync loop.
	syncStateCh chan syncStateMsg
	syncCodeCh  chan protocol.WorkerControl

	startTime time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

type syncStateMsg struct {
	WorkerID    string
	FunctionIDs []string
}

func New(cfg *config.DirectorConfig, metrics *Metrics) *Director {
	return &Director{
		cfg:         cfg,
		state:       NewState(cfg.Workers.WorkerSelectionStrategy),
		log:         logging.WithComponent("director"),
		metrics:     metrics,
		syncStateCh: make(chan syncStateMsg, 64),
		syncCodeCh:  make(chan protocol.WorkerControl, 64),
	}
}

// State exposes the Director's shared bookkeeping for the diagnostics HTTP
// surface.
func (d *Director) State() *State { return d.state }

func (d *Director) StartTime() time.Time { return d.startTime }

// Start binds the ROUTER socket and launches the routing loop, the
// liveness watcher and the synchronization loop.
func (d *Director) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("director: already started")
	}
	d.started = true
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	router, err := transport.NewRouter(d.cfg.DirectorAddr())
	if err != nil {
		return fmt.Errorf("director: bind: %w", err)
	}
	d.router = router
	d.startTime = time.Now()
	d.log.Info().Str("addr", d.cfg.DirectorAddr()).Msg("listening")

	d.wg.Add(3)
	go d.routeLoop()
	go d.livenessLoop()
	go d.syncLoop()

	return nil
}

// Stop signals every loop and closes the socket with zero lingering.
func (d *Director) Stop() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()
	if d.router != nil {
		_ = d.router.Close()
	}
	return nil
}

// routeLoop is the main routing loop: it owns the ROUTER socket's receive
// side and dispatches every envelope by sender identity prefix.
func (d *Director) routeLoop() {
	defer d.wg.Done()

	for {
		env, err := d.router.Recv()
		if err != nil {
			select {
			case <-d.ctx.Done():
				return
			default:
			}
			if !errors.Is(err, transport.ErrTimeout) {
				d.log.Error().Err(err).Msg("recv failed")
			}
			continue
		}

		switch {
		case strings.HasPrefix(env.Identity, "worker-"):
			d.handleWorkerControl(env.Identity, env.Body)
		case strings.HasPrefix(env.Identity, "client-"):
			d.handleClientRequest(env.Identity, env.Body)
		default:
			d.log.Warn().Str("identity", env.Identity).Msg("unknown message source dropped")
		}
	}
}

// handleClientRequest routes one client operation to the Worker(s) that
// can serve it.
func (d *Director) handleClientRequest(clientID string, body []byte) {
	var req protocol.ClientRequest
	if err := json.Unmarshal(body, &req); err != nil {
		// The sender id is known even when the body won't decode, so an
		// internal_error reply is sent rather than leaving the client to
		// its receive timeout.
		d.log.Warn().Err(err).Str("client", clientID).Msg("malformed client request")
		d.replyClient(clientID, protocol.Err(string(faaserr.InternalError), "malformed request body"))
		return
	}

	d.log.Debug().Str("client", clientID).Str("operation", string(req.Operation)).Msg("client request")
	d.metrics.ObserveRequest(string(req.Operation))
	d.state.beginServing(clientID)

	switch req.Operation {
	case protocol.OpRegister:
		d.routeRegister(clientID, req)
	case protocol.OpUnregister:
		d.routeUnregister(clientID, req)
	case protocol.OpExec:
		d.routeExec(clientID, req)
	case protocol.OpGetWorkerInfo, protocol.OpGetCacheDump:
		d.routeToNamedWorker(clientID, req)
	case protocol.OpGetWorkerIDs:
		// Director-local: answered without contacting any Worker.
		d.state.endServing(clientID)
		d.replyClient(clientID, protocol.OK("", "json", d.state.LiveWorkers()))
	default:
		// list, get_stats, chain_exec, PING: any live Worker can serve.
		d.routeToAnyWorker(clientID, req)
	}
}

func (d *Director) routeRegister(clientID string, req protocol.ClientRequest) {
	blob, err := protocol.DecodeCodeBlob(req.SerializedFuncBase64)
	if err != nil {
		d.failClient(clientID, faaserr.DeserializationFailedErr("undecodable function payload: %v", err))
		return
	}
	funcID := protocol.ComputeFuncID(blob.Name, req.SerializedFuncBase64)
	req.FuncID = funcID

	d.state.mu.Lock()
	workers := d.state.registry.LiveIDs()
	if len(workers) == 0 {
		d.state.mu.Unlock()
		d.failClient(clientID, faaserr.NoWorkersErr("no workers are available"))
		return
	}
	// First Worker in the set stores the function; synchronization mirrors
	// it to the rest.
	chosen := workers[0]
	d.state.placement[funcID] = map[string]struct{}{chosen: {}}
	d.state.dirty = true
	d.state.mu.Unlock()

	d.log.Debug().Str("func_id", funcID).Str("worker", chosen).Str("func", blob.Name).Msg("placing function")
	d.forwardToWorker(clientID, chosen, req)
}

func (d *Director) routeUnregister(clientID string, req protocol.ClientRequest) {
	requestID := uuid.NewString()

	d.state.mu.Lock()
	holders := d.state.holdersOf(req.FuncID)
	if len(holders) == 0 {
		d.state.mu.Unlock()
		d.failClient(clientID, faaserr.NoWorkersErr("no worker holds function %q", req.FuncID))
		return
	}
	pf := &pendingFanout{
		ClientID:  clientID,
		FuncID:    req.FuncID,
		Remaining: len(holders),
		Workers:   make(map[string]struct{}, len(holders)),
	}
	for _, w := range holders {
		pf.Workers[w] = struct{}{}
	}
	d.state.pending[requestID] = pf
	d.state.mu.Unlock()
	d.metrics.SetPendingFanouts(d.pendingCount())

	req.RequestID = requestID
	for _, workerID := range holders {
		d.forwardToWorker(clientID, workerID, req)
	}
	// The placement entry survives until the last fan-out response arrives
	// (State.AbsorbFanout); deleting it here would make a concurrent exec
	// see no_workers for an id some Workers still serve.
}

func (d *Director) routeExec(clientID string, req protocol.ClientRequest) {
	d.state.mu.Lock()
	holders := d.state.holdersOf(req.FuncID)
	workerID, err := d.state.selectWorker(holders)
	d.state.mu.Unlock()
	if err != nil {
		d.failClient(clientID, err)
		return
	}
	d.forwardToWorker(clientID, workerID, req)
}

func (d *Director) routeToNamedWorker(clientID string, req protocol.ClientRequest) {
	d.state.mu.Lock()
	live := d.state.registry.IsLive(req.WorkerID)
	d.state.mu.Unlock()
	if !live {
		d.failClient(clientID, faaserr.NoWorkersErr("no currently registered worker is identified by id %q", req.WorkerID))
		return
	}
	d.forwardToWorker(clientID, req.WorkerID, req)
}

func (d *Director) routeToAnyWorker(clientID string, req protocol.ClientRequest) {
	d.state.mu.Lock()
	workerID, err := d.state.selectWorker(d.state.registry.LiveIDs())
	d.state.mu.Unlock()
	if err != nil {
		d.failClient(clientID, err)
		return
	}
	d.forwardToWorker(clientID, workerID, req)
}

// forwardToWorker wraps a client request as a Director->Worker control
// message and sends it.
func (d *Director) forwardToWorker(clientID, workerID string, req protocol.ClientRequest) {
	ctrl := protocol.DirectorControl{Operation: req.Operation, ClientRequest: req}
	body, err := json.Marshal(ctrl)
	if err != nil {
		d.failClient(clientID, faaserr.InternalErrorErr("encoding forwarded request: %v", err))
		return
	}
	if err := d.router.Send(workerID, body); err != nil {
		d.log.Error().Err(err).Str("worker", workerID).Msg("forward failed")
		d.failClient(clientID, faaserr.InternalErrorErr("forwarding request to worker"))
		return
	}
	d.log.Debug().Str("client", clientID).Str("worker", workerID).Msg("request forwarded")
}

// failClient replies with an err envelope and releases the client's
// in-flight tracking.
func (d *Director) failClient(clientID string, err error) {
	d.state.endServing(clientID)
	action, message := "", err.Error()
	if fe, ok := faaserr.As(err); ok {
		action, message = string(fe.Action()), fe.Message()
	}
	d.replyClient(clientID, protocol.Err(action, message))
}

func (d *Director) replyClient(clientID string, resp *protocol.ClientResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		d.log.Error().Err(err).Msg("encoding client response failed")
		return
	}
	if err := d.router.Send(clientID, body); err != nil {
		d.log.Error().Err(err).Str("client", clientID).Msg("reply failed")
	}
}

// handleWorkerControl routes one Worker->Director control message:
// forwarded responses, registration, heartbeats, sync responses.
func (d *Director) handleWorkerControl(workerID string, body []byte) {
	var ctrl protocol.WorkerControl
	if err := json.Unmarshal(body, &ctrl); err != nil {
		d.log.Warn().Err(err).Str("worker", workerID).Msg("malformed worker control dropped")
		return
	}

	switch ctrl.DirectorOperation {
	case protocol.DirOpWorkerRegistration:
		d.registerWorker(workerID)
	case protocol.DirOpHeartbeat:
		d.state.mu.Lock()
		d.state.registry.Heartbeat(workerID, time.Now())
		d.state.mu.Unlock()
	case protocol.DirOpForwardToClient:
		d.forwardToClient(workerID, ctrl)
	case protocol.DirOpSyncStateResponse:
		select {
		case d.syncStateCh <- syncStateMsg{WorkerID: workerID, FunctionIDs: ctrl.FunctionIDs}:
		default:
			d.log.Warn().Str("worker", workerID).Msg("sync state response dropped: queue full")
		}
	case protocol.DirOpFunctionCode:
		select {
		case d.syncCodeCh <- ctrl:
		default:
			d.log.Warn().Str("worker", workerID).Msg("function code response dropped: queue full")
		}
	default:
		d.log.Warn().Str("worker", workerID).Str("director_operation", string(ctrl.DirectorOperation)).Msg("unknown worker control")
	}
}

func (d *Director) registerWorker(workerID string) {
	d.state.mu.Lock()
	d.state.registry.Register(workerID, time.Now())
	// A Worker joining a cluster that already holds functions starts with
	// an empty catalog, so the catalogs are no longer equal.
	if len(d.state.placement) > 0 {
		d.state.dirty = true
	}
	count := len(d.state.registry.workers)
	d.state.mu.Unlock()

	d.metrics.SetLiveWorkers(count)
	d.log.Info().Str("worker", workerID).Int("live_workers", count).Msg("worker registered")

	ack, _ := json.Marshal(protocol.DirectorControl{Operation: protocol.OpAck})
	if err := d.router.Send(workerID, ack); err != nil {
		d.log.Warn().Err(err).Str("worker", workerID).Msg("registration ack failed")
	}
}

// forwardToClient relays one Worker response to its destination client,
// stripped of routing fields. unregister responses are absorbed until the
// fan-out's last one.
func (d *Director) forwardToClient(workerID string, ctrl protocol.WorkerControl) {
	resp := &protocol.ClientResponse{
		Status:     ctrl.Status,
		Action:     ctrl.Action,
		ResultType: ctrl.ResultType,
		Result:     ctrl.Result,
		Message:    ctrl.Message,
	}

	if ctrl.OriginalClientOperation == string(protocol.OpUnregister) && ctrl.MessageID != "" {
		d.absorbFanoutResponse(workerID, ctrl.MessageID, resp)
		return
	}

	d.state.endServing(ctrl.DestinationClient)
	d.replyClient(ctrl.DestinationClient, resp)
	d.log.Debug().Str("worker", workerID).Str("client", ctrl.DestinationClient).Msg("response routed")
}

// absorbFanoutResponse decrements the pending fan-out counter for one
// unregister response, forwarding only the last one and deleting the
// placement entry at that point.
func (d *Director) absorbFanoutResponse(workerID, requestID string, resp *protocol.ClientResponse) {
	final, done := d.state.AbsorbFanout(workerID, requestID, resp)
	if !done {
		return
	}
	d.metrics.SetPendingFanouts(d.pendingCount())
	d.metrics.SetPlacementSize(d.placementCount())
	d.replyClient(final.ClientID, final.Response)
}

func (d *Director) pendingCount() int {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	return len(d.state.pending)
}

func (d *Director) placementCount() int {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	return len(d.state.placement)
}
