package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/derekprior/fixtures/internal/api"
	"github.com/derekprior/fixtures/internal/config"
	"github.com/derekprior/fixtures/internal/logging"
	"github.com/derekprior/fixtures/internal/store"
)

const shutdownTimeout = 10 * time.Second

func runServe(addr string) error {
	config.LoadDotEnv()
	srv := config.ServerFromEnv()
	if addr == "" {
		addr = ":" + srv.Port
	}
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logging.NewLogger(logging.Config{Level: srv.LogLevel, Format: srv.LogFormat})

	st, err := store.Open(srv.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(api.NewHandler(st, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error(logger, "server failed", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error(logger, "shutdown failed", err)
		return err
	}
	return nil
}
