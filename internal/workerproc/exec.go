package workerproc

import (
	"context"
	"time"

	"github.com/faasnet/faasnet/internal/faaserr"
)

// executeFunction is the single call path shared by exec and chain_exec.
// On a cache hit it returns the cached value without touching stats; on a
// miss it invokes the registered procedure, times it, records stats, and
// optionally caches the result.
func (w *Worker) executeFunction(ctx context.Context, fn Function, positional []any, defaults map[string]any, saveInCache bool) (any, error) {
	key := buildCacheKey(fn.FuncID, positional, defaults)

	if w.cache.Check(key) {
		if val, ok := w.cache.Get(key); ok {
			return val, nil
		}
	}

	spec, ok := w.registry.Lookup(fn.Name)
	if !ok {
		return nil, faaserr.ExecutionFailedErr("no procedure implementation registered for %q", fn.Name)
	}

	start := time.Now()
	result, err := spec.Impl(ctx, positional, defaults)
	elapsed := time.Since(start)
	if err != nil {
		return nil, faaserr.ExecutionFailedErr("%v", err)
	}

	w.stats.Record(fn.Name, elapsed)

	if saveInCache {
		if putErr := w.cache.Put(key, result); putErr != nil {
			// Can only happen if Check/Put raced under a bug in this package;
			// the result is still returned to the caller.
			w.log.Warn().Str("func", fn.Name).Err(putErr).Msg("cache put failed")
		}
	}

	return result, nil
}
