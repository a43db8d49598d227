package workerproc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/faasnet/faasnet/internal/config"
	"github.com/faasnet/faasnet/internal/faascache"
	"github.com/faasnet/faasnet/internal/logging"
	"github.com/faasnet/faasnet/internal/protocol"
	"github.com/faasnet/faasnet/internal/transport"
)

// Worker is one Worker process: transport task, heartbeat task, a pool of
// per-request handler goroutines, and the catalog/stats/cache state they
// share. Lifecycle shape (context-scoped Start/Stop, WaitGroup-tracked
// background goroutines) is adapted from the dex project's worker manager.
type Worker struct {
	id       string
	cfg      *config.WorkerConfig
	registry *Registry
	catalog  *Catalog
	stats    *StatsTable
	cache    *faascache.Cache
	log      zerolog.Logger
	store    *Store

	dealer  *transport.Dealer
	outbox  chan []byte // MPSC: handler goroutines -> transport task
	handlerSem chan struct{}

	startTime    time.Time
	requestCount int64
	countMu      sync.Mutex

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// New creates a Worker with a random id suffix; id is the transport
// identity used as the Director's placement-map/worker-registry key.
func New(cfg *config.WorkerConfig, registry *Registry, store *Store) *Worker {
	return &Worker{
		id:         "worker-" + uuid.NewString(),
		cfg:        cfg,
		registry:   registry,
		catalog:    NewCatalog(),
		stats:      NewStatsTable(cfg.Statistics.Enabled),
		cache:      faascache.New(cfg.Behavior.Caching.MaxSize),
		log:        logging.WithWorkerID("pending"),
		store:      store,
		outbox:     make(chan []byte, 256),
		handlerSem: make(chan struct{}, 64),
	}
}

func (w *Worker) ID() string { return w.id }

// Start connects the Worker's DEALER socket, restores persisted state if
// configured, registers with the Director, and launches the transport,
// heartbeat, and request-handling loops.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("workerproc: worker already started")
	}
	w.started = true
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.log = logging.WithWorkerID(w.id)
	w.startTime = time.Now()

	if w.cfg.Behavior.ShutdownPersistence {
		if err := w.restoreState(); err != nil {
			w.log.Warn().Err(err).Msg("no prior shutdown state restored")
		}
	}

	dealer, err := transport.NewDealer(w.id, w.cfg.DirectorAddr())
	if err != nil {
		return fmt.Errorf("workerproc: connect to director: %w", err)
	}
	w.dealer = dealer

	if err := w.sendRegistration(); err != nil {
		return fmt.Errorf("workerproc: register with director: %w", err)
	}
	if err := w.awaitRegistrationAck(); err != nil {
		_ = w.dealer.Close()
		return err
	}

	w.wg.Add(3)
	go w.recvLoop()
	go w.sendLoop()
	go w.heartbeatLoop()

	return nil
}

// Stop signals every background loop and persists state if configured.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()

	if w.dealer != nil {
		_ = w.dealer.Close()
	}

	if w.cfg.Behavior.ShutdownPersistence {
		if err := w.persistState(); err != nil {
			w.log.Error().Err(err).Msg("failed to persist shutdown state")
		}
	}

	return nil
}

func (w *Worker) sendRegistration() error {
	ctrl := protocol.WorkerControl{
		DirectorOperation: protocol.DirOpWorkerRegistration,
		WorkerID:          w.id,
	}
	return w.sendControl(ctrl)
}

// registrationAckTimeoutMs bounds how long a starting Worker waits for the
// Director to acknowledge its registration before giving up.
const registrationAckTimeoutMs = 5000

// awaitRegistrationAck blocks until the Director's registration ACK
// arrives. A missing ACK means the Director is unreachable, which is fatal
// at startup.
func (w *Worker) awaitRegistrationAck() error {
	body, err := w.dealer.RecvTimeout(registrationAckTimeoutMs)
	if err != nil {
		return fmt.Errorf("workerproc: waiting for registration ack: %w", err)
	}
	if body == nil {
		return fmt.Errorf("workerproc: director at %s did not acknowledge registration within %dms", w.cfg.DirectorAddr(), registrationAckTimeoutMs)
	}
	var ctrl protocol.DirectorControl
	if err := json.Unmarshal(body, &ctrl); err != nil {
		return fmt.Errorf("workerproc: undecodable registration ack: %w", err)
	}
	if ctrl.Operation != protocol.OpAck {
		return fmt.Errorf("workerproc: expected registration ack, got %q", ctrl.Operation)
	}
	w.log.Debug().Msg("registration acknowledged by director")
	return nil
}

func (w *Worker) sendControl(ctrl protocol.WorkerControl) error {
	body, err := json.Marshal(ctrl)
	if err != nil {
		return err
	}
	return w.dealer.Send(body)
}

// enqueue hands a fully-built response to the sole goroutine draining the
// outbound socket; handlers never touch the socket directly.
func (w *Worker) enqueue(body []byte) {
	select {
	case w.outbox <- body:
	case <-w.ctx.Done():
	}
}

func (w *Worker) bumpRequestCount() {
	w.countMu.Lock()
	w.requestCount++
	w.countMu.Unlock()
}

func (w *Worker) RequestCount() int64 {
	w.countMu.Lock()
	defer w.countMu.Unlock()
	return w.requestCount
}

func (w *Worker) StartTime() time.Time { return w.startTime }

func (w *Worker) restoreState() error {
	if w.store == nil {
		return fmt.Errorf("workerproc: shutdown_persistence enabled but no store configured")
	}
	return w.store.Restore(w.id, w.catalog, w.stats)
}

func (w *Worker) persistState() error {
	if w.store == nil {
		return fmt.Errorf("workerproc: shutdown_persistence enabled but no store configured")
	}
	return w.store.Save(w.id, w.catalog, w.stats)
}
