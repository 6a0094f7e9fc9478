// vidflow/main.go
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"vidflow/api"
	"vidflow/config"
	"vidflow/job"
	"vidflow/tool"
)

const banner = `
VidFlow - Source Separation Server

API Endpoints:
  GET    /api/health           - Check server status
  POST   /api/separate         - Upload and process video
  GET    /outputs/{id}/{file}  - Download processed files
  DELETE /api/cleanup/{id}     - Remove a job's files
`

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "vidflow",
	})

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "err", err)
	}

	// 2. Create working directories
	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("failed to create directory", "dir", dir, "err", err)
		}
	}

	// 3. Initialize the tool runner and orchestrator
	runner, err := tool.NewExecRunner(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize tool runner", "err", err)
	}
	if !runner.LookPath(cfg.DemucsBin) {
		logger.Warn("demucs not found on PATH; separation requests will fail", "bin", cfg.DemucsBin)
	}

	orch := job.NewOrchestrator(cfg, runner, logger)

	// 4. Set up router and server
	router := api.SetupRouter(orch, cfg, logger)
	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, cfg.Port),
		Handler: router,
	}

	// 5. Start the HTTP server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Print(banner)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", "err", err)
		}
	}()

	// 6. Wait for interrupt signal for graceful shutdown
	<-ctx.Done()
	stop()
	logger.Info("shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", "err", err)
	}

	logger.Info("server exiting")
}
