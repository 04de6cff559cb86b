// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/icmark/internal/config"
	"github.com/gogpu/icmark/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the editing service",
	Long: `Serve the HTTP API: create a session, upload the front and back photos,
adjust or drag the mark, then download each side or both stacked.

Sessions live in memory and are dropped after --session-ttl of inactivity.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("addr", config.DefaultAddr, "listen address")
	f.Duration("session-ttl", config.DefaultTTL, "idle time before a session is dropped")
	f.Int64("max-upload", config.DefaultMaxUpload, "maximum upload size in bytes")

	_ = viper.BindPFlag(config.KeyServerAddr, f.Lookup("addr"))
	_ = viper.BindPFlag(config.KeySessionTTL, f.Lookup("session-ttl"))
	_ = viper.BindPFlag(config.KeyMaxUpload, f.Lookup("max-upload"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	srv := server.New(server.Options{
		SessionTTL:   cfg.Server.SessionTTL,
		MaxUpload:    cfg.Server.MaxUpload,
		NewWorkspace: eng.workspace,
	})

	ctx, stop := signal.NotifyContext(contextOr(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.Store().Run(ctx, sweepInterval(cfg.Server.SessionTTL))

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.Server.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// sweepInterval checks for idle sessions a few times per TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Second)
}
