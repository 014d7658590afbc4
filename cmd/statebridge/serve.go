package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/statebridge/internal/cli"
	"github.com/aretw0/statebridge/internal/presentation/tui"
	httpAdapter "github.com/aretw0/statebridge/pkg/adapters/http"
	redisAdapter "github.com/aretw0/statebridge/pkg/adapters/redis"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the scene and exposes its state over HTTP (JSON + Server-Sent Events).
Prometheus metrics are served on the configured metrics path. When a Redis
address is configured, actions and updates are also relayed over pub/sub.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("redis") {
			cfg.Redis.Addr, _ = cmd.Flags().GetString("redis")
		}
		quiet, _ := cmd.Flags().GetBool("quiet")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		rt, err := cli.NewRuntime(cfg, cli.Options{Logger: logger, Registerer: reg})
		if err != nil {
			return err
		}

		api := httpAdapter.NewServer(rt.System(), rt.Element(), httpAdapter.WithLogger(logger))
		defer api.Close()

		router := chi.NewRouter()
		router.Handle(cfg.HTTP.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		router.Mount("/", api)

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		var relay *redisAdapter.Relay
		if cfg.Redis.Enabled() {
			relay = redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, rt.Element(),
				redisAdapter.WithPrefix(cfg.Redis.Prefix),
				redisAdapter.WithLogger(logger),
			)
			relay.Forward(rt.System())
			if err := relay.Open(ctx); err != nil {
				return fmt.Errorf("error connecting to redis: %w", err)
			}
			defer relay.Close()
		}

		if err := rt.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := rt.Stop(stopCtx); err != nil {
				logger.Error("scene shutdown failed", "err", err)
			}
		}()

		if relay != nil {
			go func() {
				if err := relay.Serve(ctx); err != nil {
					logger.Error("redis relay stopped", "err", err)
				}
			}()
		}

		srv := &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: router,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			serverErrors <- srv.ListenAndServe()
		}()

		out := cmd.OutOrStdout()
		if !quiet && tui.IsTerminal(out) {
			tui.PrintBanner(out)
		}
		logger.Info("statebridge server started", "addr", srv.Addr, "system", rt.System().Name(), "scene_id", rt.Scene().ID())

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("shutdown started", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			// SSE streams never finish on their own.
			api.Close()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("statebridge server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for the pub/sub relay")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
