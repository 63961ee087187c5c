/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shift scheduling server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Configure logrus
  3. Initialize SQLite store
  4. Create service, API handler and router
  5. Start the weekly draft job
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080, env PORT)
  -db      SQLite database path (default: shifts.db, env DB_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  LOG_LEVEL, LOG_FORMAT (text|json), DRAFT_CRON, DRAFT_JOB_ENABLED,
  CORS_ORIGINS. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the draft job (waits for a running job)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/shifts.db"
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Weekly draft job
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/shift-engine/api"
	"github.com/warp/shift-engine/config"
	"github.com/warp/shift-engine/service"
	"github.com/warp/shift-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	svc := service.New(store, logger.WithField("component", "service"))
	handler := api.NewHandler(svc, logger.WithField("component", "api"))
	router := api.NewRouter(handler, cfg.CORSOrigins)

	drafts := api.NewDraftScheduler(svc, cfg.DraftCron, logger.WithField("component", "drafts"))
	drafts.Enabled = cfg.DraftJobEnabled
	if err := drafts.Start(); err != nil {
		logger.WithError(err).Fatal("failed to start draft scheduler")
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr": cfg.Addr(),
			"db":   cfg.DBPath,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	drafts.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	logger.Info("server stopped")
}
