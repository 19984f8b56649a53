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

	"github.com/spf13/pflag"

	"github.com/dukerupert/nestmate/internal/fakenest"
	"github.com/dukerupert/nestmate/internal/logging"
)

func main() {
	addr := pflag.String("addr", ":8080", "listen address")
	joinLimit := pflag.Int("join-limit", 20, "join attempts allowed per client and window")
	joinWindow := pflag.Duration("join-window", time.Minute, "join rate limit window")
	logLevel := pflag.String("log-level", "info", "debug, info, warn or error")
	logFormat := pflag.String("log-format", "text", "text or json")
	pflag.Parse()

	logger := logging.Setup(*logLevel, *logFormat)

	backend := fakenest.New(
		fakenest.WithLogger(logger),
		fakenest.WithJoinLimit(*joinLimit, *joinWindow),
	)

	// No WriteTimeout: change feed connections stay open.
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("fakenest listening", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(os.Stderr, "\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
