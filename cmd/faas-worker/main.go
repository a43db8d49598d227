// faas-worker executes registered procedures for the cluster. It connects
// to the Director, registers itself, and serves forwarded client
// operations and synchronization control messages until stopped.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/faasnet/faasnet/internal/config"
	"github.com/faasnet/faasnet/internal/logging"
	"github.com/faasnet/faasnet/internal/workerproc"
)

func main() {
	configPath := flag.String("config", "worker_config.toml", "Path to the worker TOML config")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	jsonLogs := flag.Bool("json-logs", false, "Emit JSON logs instead of console output")
	flag.Parse()

	logging.Init(logging.Config{Level: logging.Level(*logLevel), JSONOutput: *jsonLogs})

	cfg, err := config.LoadWorkerConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faas-worker: %v\n", err)
		os.Exit(1)
	}

	registry := workerproc.NewRegistry()
	for name, spec := range workerproc.BuiltinProcedures() {
		registry.MustRegister(name, spec)
	}

	var store *workerproc.Store
	if cfg.Behavior.ShutdownPersistence {
		store, err = workerproc.OpenStore(cfg.Behavior.DumpFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "faas-worker: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	w := workerproc.New(cfg, registry, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		// Director unreachable at startup is fatal.
		fmt.Fprintf(os.Stderr, "faas-worker: %v\n", err)
		os.Exit(1)
	}
	logging.WithWorkerID(w.ID()).Info().Str("director", cfg.DirectorAddr()).Msg("worker running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logging.Info("shutting down")

	cancel()
	if err := w.Stop(); err != nil {
		logging.Errorf("worker stop failed", err)
	}
}
