package workerproc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/faasnet/faasnet/internal/faaserr"
	"github.com/faasnet/faasnet/internal/protocol"
	"github.com/faasnet/faasnet/internal/workflow"
)

// dispatch routes one Director->Worker control message to its handler.
// Client-facing operations enqueue a forward_to_client response; the
// synchronization operations either reply directly to the Director or, for
// the code-push step, install silently.
func (w *Worker) dispatch(ctx context.Context, ctrl protocol.DirectorControl) {
	switch ctrl.Operation {
	case protocol.OpRegister:
		w.handleRegister(ctrl)
	case protocol.OpUnregister:
		w.handleUnregister(ctrl)
	case protocol.OpExec:
		w.handleExec(ctx, ctrl)
	case protocol.OpList:
		w.handleList(ctrl)
	case protocol.OpGetStats:
		w.handleGetStats(ctrl)
	case protocol.OpGetWorkerInfo:
		w.handleGetWorkerInfo(ctrl)
	case protocol.OpGetCacheDump:
		w.handleGetCacheDump(ctrl)
	case protocol.OpChainExec:
		w.handleChainExec(ctx, ctrl)
	case protocol.OpPing:
		w.handlePing(ctrl)
	case protocol.OpSyncStateRequest:
		w.handleSyncStateRequest()
	case protocol.OpSyncFunctionCodeRequest:
		w.handleSyncFunctionCodeRequest(ctrl)
	case protocol.OpAck:
		w.log.Debug().Msg("registration acknowledged by director")
	case protocol.OpSyncMissingFunctionCount:
		w.log.Debug().Int("count", ctrl.Count).Msg("sync: expecting missing functions")
	case protocol.OpSyncMissingFunctionCode:
		w.handleSyncInstall(ctrl)
	default:
		if ctrl.Requester != "" {
			w.replyClient(ctrl.Requester, "", string(ctrl.Operation), faaserr.InternalErrorErr("unrecognized operation %q", ctrl.Operation))
		} else {
			w.log.Warn().Str("operation", string(ctrl.Operation)).Msg("unrecognized director control message dropped")
		}
	}
}

// replyOK enqueues a successful forward_to_client response.
func (w *Worker) replyOK(requester, messageID, originalOp, action, resultType string, result any) {
	ctrl := protocol.WorkerControl{
		DirectorOperation:       protocol.DirOpForwardToClient,
		WorkerID:                w.id,
		DestinationClient:       requester,
		OriginalClientOperation: originalOp,
		Status:                  "ok",
		Action:                  action,
		ResultType:              resultType,
		Result:                  result,
		MessageID:               messageID,
	}
	w.enqueueControl(ctrl)
}

// replyClient enqueues an error forward_to_client response derived from err.
func (w *Worker) replyClient(requester, messageID, originalOp string, err error) {
	action, message := errToActionMessage(err)
	ctrl := protocol.WorkerControl{
		DirectorOperation:       protocol.DirOpForwardToClient,
		WorkerID:                w.id,
		DestinationClient:       requester,
		OriginalClientOperation: originalOp,
		Status:                  "err",
		Action:                  action,
		Message:                 message,
		MessageID:               messageID,
	}
	w.enqueueControl(ctrl)
}

func errToActionMessage(err error) (action, message string) {
	if fe, ok := faaserr.As(err); ok {
		return string(fe.Action()), fe.Message()
	}
	return "", err.Error()
}

func (w *Worker) enqueueControl(ctrl protocol.WorkerControl) {
	body, err := json.Marshal(ctrl)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to encode worker control message")
		return
	}
	w.enqueue(body)
}

func (w *Worker) handleRegister(ctrl protocol.DirectorControl) {
	if ctrl.FuncID == "" {
		w.replyClient(ctrl.Requester, "", "register", faaserr.InternalErrorErr("director did not supply func_id"))
		return
	}

	blob, err := protocol.DecodeCodeBlob(ctrl.SerializedFuncBase64)
	if err != nil {
		w.replyClient(ctrl.Requester, "", "register", faaserr.DeserializationFailedErr("%v", err))
		return
	}

	for _, p := range blob.Signature.Positional {
		if p.Type == "" {
			w.replyClient(ctrl.Requester, "", "register", faaserr.MissingAnnotationErr("unspecified type annotation for parameter %q of function %q", p.Name, blob.Name))
			return
		}
	}
	for _, p := range blob.Signature.Defaults {
		if p.Type == "" {
			w.replyClient(ctrl.Requester, "", "register", faaserr.MissingAnnotationErr("unspecified type annotation for parameter %q of function %q", p.Name, blob.Name))
			return
		}
	}
	if blob.Signature.Return == "" {
		w.replyClient(ctrl.Requester, "", "register", faaserr.MissingAnnotationErr("unspecified return annotation of function %q", blob.Name))
		return
	}

	if w.catalog.Exists(ctrl.FuncID) {
		w.log.Warn().Str("func", blob.Name).Msg("function already registered")
		w.replyOK(ctrl.Requester, "", "register", "no_action", "json", ctrl.FuncID)
		return
	}

	w.catalog.Insert(Function{
		FuncID:            ctrl.FuncID,
		Name:              blob.Name,
		SerializedBase64:  ctrl.SerializedFuncBase64,
		Signature:         blob.Signature,
		RegisteringClient: ctrl.Requester,
	})
	w.log.Info().Str("func", blob.Name).Msg("function registered")
	w.replyOK(ctrl.Requester, "", "register", "registered", "json", ctrl.FuncID)
}

func (w *Worker) handleUnregister(ctrl protocol.DirectorControl) {
	fn, ok := w.catalog.Get(ctrl.FuncID)
	if !ok {
		w.replyClient(ctrl.Requester, ctrl.RequestID, "unregister", faaserr.NoFuncErr("no function with id %q is registered at this worker", ctrl.FuncID))
		return
	}
	if fn.RegisteringClient != ctrl.Requester {
		w.replyClient(ctrl.Requester, ctrl.RequestID, "unregister", faaserr.ForbiddenErr("only the client that registered a function is able to unregister it"))
		return
	}

	w.catalog.Delete(ctrl.FuncID)
	w.stats.Delete(fn.Name)
	w.log.Info().Str("func", fn.Name).Msg("function unregistered")
	w.replyOK(ctrl.Requester, ctrl.RequestID, "unregister", "unregistered", "", nil)
}

func (w *Worker) handleExec(ctx context.Context, ctrl protocol.DirectorControl) {
	fn, ok := w.catalog.Get(ctrl.FuncID)
	if !ok {
		w.replyClient(ctrl.Requester, "", "exec", faaserr.NoFuncErr("no function with id %q is registered at this worker", ctrl.FuncID))
		return
	}

	result, err := w.executeFunction(ctx, fn, ctrl.PositionalArgs, ctrl.DefaultArgs, ctrl.SaveInCache)
	if err != nil {
		w.replyClient(ctrl.Requester, "", "exec", err)
		return
	}

	encoded, resultType := encodeResult(result)
	w.replyOK(ctrl.Requester, "", "exec", "executed", resultType, encoded)
}

func (w *Worker) handleList(ctrl protocol.DirectorControl) {
	w.replyOK(ctrl.Requester, "", "list", "", "json", w.catalog.ListEntries(ctrl.Requester))
}

func (w *Worker) handleGetStats(ctrl protocol.DirectorControl) {
	if ctrl.FuncName != nil {
		st, ok := w.stats.Get(*ctrl.FuncName)
		if !ok {
			w.replyClient(ctrl.Requester, "", "get_stats", faaserr.NoFuncErr("no function named %q is registered right now", *ctrl.FuncName))
			return
		}
		w.replyOK(ctrl.Requester, "", "get_stats", "", "json", st)
		return
	}
	w.replyOK(ctrl.Requester, "", "get_stats", "", "json", w.stats.All())
}

func (w *Worker) handleGetWorkerInfo(ctrl protocol.DirectorControl) {
	info := map[string]any{
		"identity": map[string]any{
			"id":         w.id,
			"start_time": w.startTime,
			"uptime":     time.Since(w.startTime).String(),
		},
		"config": map[string]any{
			"enabled_statistics": w.cfg.Statistics.Enabled,
			"caching_policy":     w.cfg.Behavior.Caching.Policy,
			"caching_max_size":   w.cfg.Behavior.Caching.MaxSize,
		},
		"functions": w.catalog.ListEntries(""),
		"network": map[string]any{
			"request_count": w.RequestCount(),
		},
	}
	w.replyOK(ctrl.Requester, "", "get_worker_info", "", "json", info)
}

func (w *Worker) handleGetCacheDump(ctrl protocol.DirectorControl) {
	w.replyOK(ctrl.Requester, "", "get_cache_dump", "", "json", decodeCacheDump(w.cache.Dump()))
}

func (w *Worker) handlePing(ctrl protocol.DirectorControl) {
	w.replyOK(ctrl.Requester, "", "PING", "pong", "json", map[string]any{
		"uptime_seconds":       time.Since(w.startTime).Seconds(),
		"functions_registered": len(w.catalog.FuncIDs()),
	})
}

func (w *Worker) handleChainExec(ctx context.Context, ctrl protocol.DirectorControl) {
	wf, err := workflow.Parse(ctrl.JSONWorkflow)
	if err != nil {
		w.replyClient(ctrl.Requester, "", "chain_exec", err)
		return
	}
	if err := workflow.ValidateStructure(wf); err != nil {
		w.replyClient(ctrl.Requester, "", "chain_exec", err)
		return
	}

	result, err := w.runChain(ctx, ctrl.Requester, wf)
	if err != nil {
		w.replyClient(ctrl.Requester, "", "chain_exec", err)
		return
	}

	encoded, resultType := encodeResult(result)
	w.replyOK(ctrl.Requester, "", "chain_exec", "chain_executed", resultType, encoded)
}

func (w *Worker) handleSyncStateRequest() {
	w.enqueueControl(protocol.WorkerControl{
		DirectorOperation: protocol.DirOpSyncStateResponse,
		WorkerID:          w.id,
		FunctionIDs:       w.catalog.FuncIDs(),
	})
}

func (w *Worker) handleSyncFunctionCodeRequest(ctrl protocol.DirectorControl) {
	fn, ok := w.catalog.Get(ctrl.FuncID)
	if !ok {
		w.log.Error().Str("func_id", ctrl.FuncID).Msg("sync: requested function code not held by this worker")
		return
	}
	sig := fn.Signature
	w.enqueueControl(protocol.WorkerControl{
		DirectorOperation: protocol.DirOpFunctionCode,
		WorkerID:          w.id,
		FuncID:            fn.FuncID,
		Name:              fn.Name,
		CodeBlobBase64:    fn.SerializedBase64,
		Signature:         &sig,
		RegisteringClient: fn.RegisteringClient,
	})
}

func (w *Worker) handleSyncInstall(ctrl protocol.DirectorControl) {
	if w.catalog.Exists(ctrl.FuncID) {
		return
	}
	sig := protocol.FuncSignature{}
	if ctrl.Signature != nil {
		sig = *ctrl.Signature
	}
	w.catalog.Insert(Function{
		FuncID:            ctrl.FuncID,
		Name:              ctrl.Name,
		SerializedBase64:  ctrl.CodeBlobBase64,
		Signature:         sig,
		RegisteringClient: ctrl.RegisteringClient,
	})
	w.log.Info().Str("func", ctrl.Name).Msg("sync: installed function")
}
