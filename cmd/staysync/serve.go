package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"staysync/internal/app/schedule"
	"staysync/internal/infra/config"
	ginserver "staysync/internal/infra/http/gin"
	"staysync/internal/infra/obs"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the task workers and periodic jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

			rt, err := buildRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			if err := loadFixtures(ctx, rt, logger); err != nil {
				logger.Warn("property fixtures load failed", "error", err, "path", cfg.PropertiesFixtures)
			}

			runner := &schedule.Runner{Logger: logger}
			if err := rt.schedule(runner); err != nil {
				return err
			}

			var wg sync.WaitGroup
			background := func(name string, fn func(context.Context) error) {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("background worker stopped", "worker", name, "error", err)
						stop()
					}
				}()
			}
			background("scheduler", func(ctx context.Context) error { runner.Run(ctx); return nil })
			if rt.dispatcher != nil {
				background("dispatcher", func(ctx context.Context) error { rt.dispatcher.Run(ctx, dispatchWorkers); return nil })
			}
			if rt.worker != nil {
				background("outbox-relay", rt.worker.Run)
			}
			if rt.consumer != nil {
				background("task-consumer", func(ctx context.Context) error { return rt.consumer.Run(ctx, rt.topics) })
			}

			server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: rt.checks}, rt.handlers())
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("http shutdown failed", "error", err)
				}
			}()

			logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage, "platforms", cfg.PlatformMode)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				stop()
				wg.Wait()
				return err
			}
			wg.Wait()
			logger.Info("HTTP server stopped")
			return nil
		},
	}
}

func (rt *runtime) handlers() ginserver.Handlers {
	h := ginserver.Handlers{
		Booking:      ginserver.BookingHandler{Commands: rt.app.Commands, Queries: rt.app.Queries, Logger: rt.logger},
		HostBooking:  ginserver.HostBookingHandler{Commands: rt.app.Commands, Queries: rt.app.Queries, Logger: rt.logger},
		Availability: ginserver.AvailabilityHandler{Commands: rt.app.Commands, Queries: rt.app.Queries, Logger: rt.logger},
		Property:     ginserver.PropertyHandler{Commands: rt.app.Commands, Queries: rt.app.Queries, Logger: rt.logger},
		Channel:      ginserver.ChannelHandler{Commands: rt.app.Commands, Keys: rt.keys, Logger: rt.logger},
	}
	if rt.tokens != nil {
		h.AuthMiddleware = ginserver.AuthMiddleware{Tokens: rt.tokens, Logger: rt.logger}.Handle
	}
	return h
}
