// Package protocol defines the message shapes exchanged between Client,
// Director and Worker over the ZeroMQ control plane. Every message body is
// JSON; the sender identity travels as the transport envelope's first frame
// (see internal/transport), not as a body field.
package protocol

import "encoding/json"

// Operation identifies a client-facing RPC.
type Operation string

const (
	OpRegister      Operation = "register"
	OpUnregister    Operation = "unregister"
	OpList          Operation = "list"
	OpGetStats      Operation = "get_stats"
	OpExec          Operation = "exec"
	OpGetWorkerInfo Operation = "get_worker_info"
	OpGetCacheDump  Operation = "get_cache_dump"
	OpChainExec     Operation = "chain_exec"
	OpGetWorkerIDs  Operation = "get_worker_ids"
	OpPing          Operation = "PING"
)

// DirectorOp identifies a Worker -> Director control message kind, carried
// in WorkerControl.DirectorOperation.
type DirectorOp string

const (
	DirOpWorkerRegistration DirectorOp = "worker_registration"
	DirOpHeartbeat          DirectorOp = "heartbeat"
	DirOpForwardToClient    DirectorOp = "forward_to_client"
	DirOpSyncStateResponse  DirectorOp = "sync_state_response"
	DirOpFunctionCode       DirectorOp = "function_code_response"
)

// OpAck is the Director's reply to a worker_registration control message.
const OpAck Operation = "ACK"

// Director -> Worker synchronization control messages, carried in the
// Operation field alongside forwarded client operations.
const (
	OpSyncStateRequest         Operation = "sync_state_request"
	OpSyncFunctionCodeRequest  Operation = "sync_function_code_request"
	OpSyncMissingFunctionCount Operation = "sync_missing_function_code_count"
	OpSyncMissingFunctionCode  Operation = "sync_missing_function_code"
)

// ClientRequest is the body of every Client -> Director request.
type ClientRequest struct {
	Requester string    `json:"requester"`
	Operation Operation `json:"operation"`

	// register
	SerializedFuncBase64 string `json:"serialized_func_base64,omitempty"`

	// unregister, exec
	FuncID string `json:"func_id,omitempty"`

	// exec
	PositionalArgs []any          `json:"positional_args,omitempty"`
	DefaultArgs    map[string]any `json:"default_args,omitempty"`
	SaveInCache    bool           `json:"save_in_cache,omitempty"`

	// get_stats
	FuncName *string `json:"func_name,omitempty"`

	// get_worker_info, get_cache_dump
	WorkerID string `json:"worker_id,omitempty"`

	// chain_exec
	JSONWorkflow json.RawMessage `json:"json_workflow,omitempty"`

	// Injected by the Director before forwarding to a Worker.
	RequestID string `json:"request_id,omitempty"`
}

// ClientResponse is the body of every Director -> Client reply.
type ClientResponse struct {
	Status     string `json:"status"` // "ok" | "err"
	Action     string `json:"action,omitempty"`
	ResultType string `json:"result_type,omitempty"` // "json" | "pickle_base64"
	Result     any    `json:"result,omitempty"`
	Message    string `json:"message,omitempty"`
}

func OK(action string, resultType string, result any) *ClientResponse {
	return &ClientResponse{Status: "ok", Action: action, ResultType: resultType, Result: result}
}

func Err(action, message string) *ClientResponse {
	return &ClientResponse{Status: "err", Action: action, Message: message}
}

// WorkerControl is the body of every Worker -> Director control message.
type WorkerControl struct {
	DirectorOperation DirectorOp `json:"director_operation"`
	WorkerID          string     `json:"worker_id"`

	// forward_to_client
	DestinationClient       string `json:"destination_client,omitempty"`
	OriginalClientOperation string `json:"original_client_operation,omitempty"`
	Status                  string `json:"status,omitempty"`
	Action                  string `json:"action,omitempty"`
	ResultType              string `json:"result_type,omitempty"`
	Result                  any    `json:"result,omitempty"`
	Message                 string `json:"message,omitempty"`
	MessageID               string `json:"message_id,omitempty"`
	RequestID               string `json:"request_id,omitempty"`

	// sync_state_response
	FunctionIDs []string `json:"function_ids,omitempty"`

	// function_code_response
	FuncID            string         `json:"func_id,omitempty"`
	Name              string         `json:"name,omitempty"`
	CodeBlobBase64    string         `json:"code_blob_base64,omitempty"`
	Signature         *FuncSignature `json:"signature,omitempty"`
	RegisteringClient string         `json:"registering_client,omitempty"`
}

// DirectorControl is the body of every Director -> Worker control message.
// It doubles as the carrier for a forwarded client operation: Operation is
// either one of the sync_* operations above or a client Operation, with
// FuncID/RequestID injected by the Director as needed.
type DirectorControl struct {
	Operation Operation `json:"operation"`

	// Forwarded client request fields (set when Operation is a client op).
	// FuncID is reused for sync_function_code_request's {func_id} payload.
	ClientRequest

	// sync_missing_function_code_count
	Count int `json:"count,omitempty"`

	// sync_missing_function_code
	Name              string         `json:"name,omitempty"`
	CodeBlobBase64    string         `json:"code_blob_base64,omitempty"`
	Signature         *FuncSignature `json:"signature,omitempty"`
	RegisteringClient string         `json:"registering_client,omitempty"`
}

// ParamType enumerates the scalar/aggregate type vocabulary used in function
// signatures and the coercion table.
type ParamType string

const (
	TypeBool        ParamType = "bool"
	TypeInt         ParamType = "int"
	TypeFloat       ParamType = "float"
	TypeComplex     ParamType = "complex"
	TypeString      ParamType = "string"
	TypeBytes       ParamType = "bytes"
	TypeBytesBuffer ParamType = "bytes-buffer"
	TypeList        ParamType = "list"
	TypeMap         ParamType = "map"
	TypeAny         ParamType = "any"
)

// Param describes one positional or default parameter.
type Param struct {
	Name    string    `json:"name"`
	Type    ParamType `json:"type"`
	Default any       `json:"default,omitempty"` // only meaningful for default args
}

// FuncSignature is the reflected shape of a registered procedure: an ordered
// positional parameter list, a named default-argument list, and a return
// type. Obtained once at register time (via the opaque code blob's reflected
// signature) and stored alongside the blob.
type FuncSignature struct {
	Positional []Param   `json:"positional"`
	Defaults   []Param   `json:"defaults"`
	Return     ParamType `json:"return"`
}
