// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/whisper/api"
	"github.com/luxfi/whisper/healthcheck"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the message workflow over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withNode(ctx, func(n *node) error {
			return serve(ctx, n)
		})
	},
}

func serve(ctx context.Context, n *node) error {
	// A failed handshake is reported through status; clients re-initiate it
	// with POST /v1/session.
	if err := n.controller.Initialize(ctx); err != nil {
		logger.Warn("FHE session not initialized", zap.Error(err))
	}
	if err := n.controller.Reload(ctx); err != nil {
		logger.Warn("Initial load failed", zap.Error(err))
	}

	checker := healthcheck.NewChecker(n.gateway.ProbeAvailability, cfg.HealthCacheTTL, logger.Named("health"))
	handler := api.NewHandler(
		api.Config{
			RateLimit: cfg.APIRateLimit,
			RateBurst: cfg.APIRateBurst,
			Health:    healthcheck.NewHandler(checker),
			Gatherer:  n.registry,
		},
		n.controller,
		logger.Named("api"),
	)

	errGroup, ctx := errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		httpServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.APIPort),
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()

		logger.Info("Serving API", zap.Uint16("port", cfg.APIPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve API: %w", err)
		}
		return nil
	})

	return errGroup.Wait()
}
