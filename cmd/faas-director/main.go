// faas-director is the cluster's central routing and synchronization
// process. It binds the ZeroMQ ROUTER socket every Client and Worker
// connects to and serves a read-only diagnostics HTTP surface alongside.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faasnet/faasnet/internal/config"
	"github.com/faasnet/faasnet/internal/director"
	"github.com/faasnet/faasnet/internal/logging"
)

func main() {
	configPath := flag.String("config", "director_config.toml", "Path to the director TOML config")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	jsonLogs := flag.Bool("json-logs", false, "Emit JSON logs instead of console output")
	flag.Parse()

	logging.Init(logging.Config{Level: logging.Level(*logLevel), JSONOutput: *jsonLogs})

	cfg, err := config.LoadDirectorConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faas-director: %v\n", err)
		os.Exit(1)
	}

	metrics := director.NewMetrics()
	d := director.New(cfg, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "faas-director: %v\n", err)
		os.Exit(1)
	}

	httpSrv := director.NewHTTPServer(cfg.Diagnostics.HTTPAddr, d)
	go func() {
		if err := httpSrv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("diagnostics http server failed", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logging.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	cancel()
	if err := d.Stop(); err != nil {
		logging.Errorf("director stop failed", err)
	}
}
