package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"vlan-traffic-simulator/internal/api"
	"vlan-traffic-simulator/internal/metrics"
	"vlan-traffic-simulator/internal/snapshot"
	"vlan-traffic-simulator/internal/topology"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulator HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context) error {
	p, err := loadTopology(ctx, cfg)
	if err != nil {
		slog.Error("Failed to load topology", "error", err)
		return err
	}
	defer p.Close()

	srv := &api.Server{
		Engine:   newEngine(cfg),
		Topology: snapshot.New(p.source, cfg.Cache.TTL),
		Metrics:  metrics.New(),
		Log:      slog.Default(),
		Version:  version,
	}

	if p.store != nil {
		if err := p.store.Migrate(ctx); err != nil {
			return err
		}
		if cfg.Store.Seed {
			seeded, err := p.store.Seed(ctx, topology.DefaultSegments(), topology.DefaultRules())
			if err != nil {
				return err
			}
			if seeded {
				slog.Info("Seeded empty store with the demo topology")
			}
		}
		srv.Catalog = p.store
	}

	rec, err := newRecorder(cfg, p.store)
	if err != nil {
		return err
	}
	defer rec.Close()
	srv.Recorder = rec

	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: srv.Router(&api.Options{
			AccessLog:    cfg.Server.AccessLog,
			RateLimit:    cfg.Server.RateLimit,
			Burst:        cfg.Server.Burst,
			AllowOrigins: cfg.Server.AllowOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening", "addr", cfg.Server.Addr, "provider", cfg.Topology.Provider, "recorder", cfg.Recorder.Type, "read_only", srv.Catalog == nil)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
