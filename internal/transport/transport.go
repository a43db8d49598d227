// Package transport wraps the ZeroMQ ROUTER/DEALER sockets that carry
// every message in the cluster. The Director binds a ROUTER socket;
// Workers and Clients each connect a DEALER socket to it. ROUTER sockets
// prepend the sender's identity frame on receive and require it on send,
// giving the Director a single endpoint that knows who sent what and can
// address any connected peer. No handler in the rest of the module
// touches a *zmq.Socket directly; everything above this package sees
// (senderID, body) pairs carried in a 3-frame [identity][empty][body]
// envelope.
//
// ZeroMQ sockets are not safe for concurrent use, so each wrapper holds
// one mutex across every socket operation. Receives run with a short
// RCVTIMEO and surface ErrTimeout when nothing arrived, releasing the
// mutex between polls; senders contend for at most one poll interval and
// receive loops get a bounded window to observe shutdown.
package transport

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// ErrTimeout reports that no message arrived within the socket's poll
// interval. Receive loops treat it as "check for shutdown, poll again".
var ErrTimeout = errors.New("transport: receive timed out")

// recvPollInterval bounds how long a single Recv call holds the socket.
const recvPollInterval = 250 * time.Millisecond

// Envelope is one transport-level message: a sender identity plus an
// opaque body. The body is a JSON-encoded protocol message
// (internal/protocol); transport never inspects it.
type Envelope struct {
	Identity string
	Body     []byte
}

func isTimeout(err error) bool {
	var errno zmq.Errno
	if errors.As(err, &errno) {
		return errno == zmq.Errno(syscall.EAGAIN)
	}
	return false
}

// Router is the Director's bind-side socket.
type Router struct {
	mu  sync.Mutex
	soc *zmq.Socket
}

// NewRouter creates and binds a ROUTER socket at addr (e.g. "tcp://*:5555").
func NewRouter(addr string) (*Router, error) {
	soc, err := zmq.NewSocket(zmq.ROUTER)
	if err != nil {
		return nil, fmt.Errorf("transport: new ROUTER socket: %w", err)
	}
	if err := soc.SetRcvtimeo(recvPollInterval); err != nil {
		soc.Close()
		return nil, fmt.Errorf("transport: set receive timeout: %w", err)
	}
	if err := soc.SetLinger(0); err != nil {
		soc.Close()
		return nil, fmt.Errorf("transport: set linger: %w", err)
	}
	if err := soc.Bind(addr); err != nil {
		soc.Close()
		return nil, fmt.Errorf("transport: bind ROUTER to %s: %w", addr, err)
	}
	return &Router{soc: soc}, nil
}

// Recv waits up to one poll interval for an envelope, returning ErrTimeout
// if none arrived.
func (r *Router) Recv() (Envelope, error) {
	r.mu.Lock()
	parts, err := r.soc.RecvMessageBytes(0)
	r.mu.Unlock()
	if err != nil {
		if isTimeout(err) {
			return Envelope{}, ErrTimeout
		}
		return Envelope{}, fmt.Errorf("transport: router recv: %w", err)
	}
	if len(parts) != 3 {
		return Envelope{}, fmt.Errorf("transport: router recv: expected 3 frames, got %d", len(parts))
	}
	return Envelope{Identity: string(parts[0]), Body: parts[2]}, nil
}

// Send delivers body to the peer identified by identity. If that identity
// has disconnected, ZMQ silently drops the message - callers that need
// delivery confirmation must build it into the protocol.
func (r *Router) Send(identity string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.soc.SendMessage(identity, []byte{}, body)
	if err != nil {
		return fmt.Errorf("transport: router send to %s: %w", identity, err)
	}
	return nil
}

// Close must only be called once every goroutine using the socket has
// stopped.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.soc.Close()
}

// Dealer is the connect-side socket used by both Worker and Client
// processes. Its identity is fixed at construction so the Director's
// placement/pending tables can key on it directly.
type Dealer struct {
	mu       sync.Mutex
	soc      *zmq.Socket
	identity string
}

// NewDealer creates a DEALER socket with the given identity and connects it
// to addr (e.g. "tcp://director-host:5555").
func NewDealer(identity, addr string) (*Dealer, error) {
	soc, err := zmq.NewSocket(zmq.DEALER)
	if err != nil {
		return nil, fmt.Errorf("transport: new DEALER socket: %w", err)
	}
	if err := soc.SetIdentity(identity); err != nil {
		soc.Close()
		return nil, fmt.Errorf("transport: set identity: %w", err)
	}
	if err := soc.SetRcvtimeo(recvPollInterval); err != nil {
		soc.Close()
		return nil, fmt.Errorf("transport: set receive timeout: %w", err)
	}
	if err := soc.SetLinger(0); err != nil {
		soc.Close()
		return nil, fmt.Errorf("transport: set linger: %w", err)
	}
	if err := soc.Connect(addr); err != nil {
		soc.Close()
		return nil, fmt.Errorf("transport: connect DEALER to %s: %w", addr, err)
	}
	return &Dealer{soc: soc, identity: identity}, nil
}

func (d *Dealer) Identity() string {
	return d.identity
}

// Send transmits body to the Director. The empty delimiter frame is added
// automatically; DEALER sockets don't carry an explicit destination frame
// since they have exactly one peer (the Director).
func (d *Dealer) Send(body []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.soc.SendMessage([]byte{}, body)
	if err != nil {
		return fmt.Errorf("transport: dealer send: %w", err)
	}
	return nil
}

// Recv waits up to one poll interval for a message from the Director,
// returning ErrTimeout if none arrived.
func (d *Dealer) Recv() ([]byte, error) {
	d.mu.Lock()
	parts, err := d.soc.RecvMessageBytes(0)
	d.mu.Unlock()
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("transport: dealer recv: %w", err)
	}
	if len(parts) != 2 {
		return nil, fmt.Errorf("transport: dealer recv: expected 2 frames, got %d", len(parts))
	}
	return parts[1], nil
}

// RecvTimeout blocks until one message arrives or timeoutMs elapses without
// one, returning (nil, nil) on timeout. Used by the client SDK's
// single-attempt, no-retry receive.
func (d *Dealer) RecvTimeout(timeoutMs int) ([]byte, error) {
	deadline := time.Now().Add(msToDuration(timeoutMs))
	for {
		body, err := d.Recv()
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, ErrTimeout) {
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
	}
}

// Close must only be called once every goroutine using the socket has
// stopped.
func (d *Dealer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.soc.Close()
}
