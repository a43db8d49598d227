// Package client is the thin SDK over the cluster: every operation is one
// request/response exchange against the Director, with a configurable
// receive deadline and no automatic retry (the Director has no
// at-most-once guard, so a retried request could execute a procedure
// twice). The only client-side logic beyond the exchange itself is the
// structural workflow validation chain_exec runs before any Director
// contact.
package client

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/faasnet/faasnet/internal/faaserr"
	"github.com/faasnet/faasnet/internal/logging"
	"github.com/faasnet/faasnet/internal/protocol"
	"github.com/faasnet/faasnet/internal/transport"
	"github.com/faasnet/faasnet/internal/workflow"
)

// Client is one long-lived DEALER endpoint with a stable client- identity.
type Client struct {
	id               string
	dealer           *transport.Dealer
	receiveTimeoutMs int
	log              zerolog.Logger
}

// New connects to the Director at addr (e.g. "tcp://127.0.0.1:5555").
// receiveTimeoutMs bounds every operation's wait for a reply; a typical
// value is 5000.
func New(addr string, receiveTimeoutMs int) (*Client, error) {
	id := "client-" + uuid.NewString()
	dealer, err := transport.NewDealer(id, addr)
	if err != nil {
		return nil, fmt.Errorf("client: connect to director: %w", err)
	}
	return &Client{
		id:               id,
		dealer:           dealer,
		receiveTimeoutMs: receiveTimeoutMs,
		log:              logging.WithComponent("client"),
	}, nil
}

func (c *Client) ID() string { return c.id }

func (c *Client) Close() error { return c.dealer.Close() }

// call performs the single request/response exchange every operation is a
// wrapper over.
func (c *Client) call(req protocol.ClientRequest) (*protocol.ClientResponse, error) {
	req.Requester = c.id

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}
	if err := c.dealer.Send(body); err != nil {
		return nil, fmt.Errorf("client: send %s: %w", req.Operation, err)
	}

	raw, err := c.dealer.RecvTimeout(c.receiveTimeoutMs)
	if err != nil {
		return nil, fmt.Errorf("client: receive %s reply: %w", req.Operation, err)
	}
	if raw == nil {
		return nil, faaserr.TimeoutErr("no reply to %s within %dms", req.Operation, c.receiveTimeoutMs)
	}

	var resp protocol.ClientResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, faaserr.DeserializationFailedErr("undecodable %s reply: %v", req.Operation, err)
	}
	return &resp, nil
}

// Register submits a procedure for registration. name is the procedure's
// plugin-table key on the Workers; sig is its reflected signature. On
// success the response result carries the computed func_id.
func (c *Client) Register(name string, sig protocol.FuncSignature) (*protocol.ClientResponse, error) {
	serialized, err := protocol.EncodeCodeBlob(protocol.CodeBlob{Name: name, Signature: sig})
	if err != nil {
		return nil, fmt.Errorf("client: encode function payload: %w", err)
	}
	return c.call(protocol.ClientRequest{
		Operation:            protocol.OpRegister,
		SerializedFuncBase64: serialized,
	})
}

func (c *Client) Unregister(funcID string) (*protocol.ClientResponse, error) {
	return c.call(protocol.ClientRequest{Operation: protocol.OpUnregister, FuncID: funcID})
}

func (c *Client) Exec(funcID string, positional []any, defaults map[string]any, saveInCache bool) (*protocol.ClientResponse, error) {
	return c.call(protocol.ClientRequest{
		Operation:      protocol.OpExec,
		FuncID:         funcID,
		PositionalArgs: positional,
		DefaultArgs:    defaults,
		SaveInCache:    saveInCache,
	})
}

func (c *Client) List() (*protocol.ClientResponse, error) {
	return c.call(protocol.ClientRequest{Operation: protocol.OpList})
}

// GetStats fetches statistics for one function, or for all registered
// functions when funcName is nil.
func (c *Client) GetStats(funcName *string) (*protocol.ClientResponse, error) {
	return c.call(protocol.ClientRequest{Operation: protocol.OpGetStats, FuncName: funcName})
}

func (c *Client) GetWorkerInfo(workerID string) (*protocol.ClientResponse, error) {
	return c.call(protocol.ClientRequest{Operation: protocol.OpGetWorkerInfo, WorkerID: workerID})
}

func (c *Client) GetCacheDump(workerID string) (*protocol.ClientResponse, error) {
	return c.call(protocol.ClientRequest{Operation: protocol.OpGetCacheDump, WorkerID: workerID})
}

func (c *Client) GetWorkerIDs() (*protocol.ClientResponse, error) {
	return c.call(protocol.ClientRequest{Operation: protocol.OpGetWorkerIDs})
}

func (c *Client) Ping() (*protocol.ClientResponse, error) {
	return c.call(protocol.ClientRequest{Operation: protocol.OpPing})
}

// ChainExec validates rawWorkflow structurally and, only if it passes,
// submits it. A rejected workflow never reaches the Director.
func (c *Client) ChainExec(rawWorkflow []byte) (*protocol.ClientResponse, error) {
	wf, err := workflow.Parse(rawWorkflow)
	if err != nil {
		return nil, err
	}
	if err := workflow.ValidateStructure(wf); err != nil {
		return nil, err
	}
	return c.call(protocol.ClientRequest{
		Operation:    protocol.OpChainExec,
		JSONWorkflow: json.RawMessage(rawWorkflow),
	})
}
