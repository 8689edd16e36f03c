package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/argus/internal/application"
	appanalysis "github.com/bryanwahyu/argus/internal/application/analysis"
	"github.com/bryanwahyu/argus/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/argus/internal/infra/storage"
	"github.com/bryanwahyu/argus/internal/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		b, err := openBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		// init service
		svc := &appanalysis.Service{
			Repo:   b.repo,
			Clock:  application.SystemClock{},
			Rand:   application.SystemRand{},
			Logger: logger,
		}

		deps := httpserver.Deps{
			Logger:         logger,
			APIKeys:        cfg.Auth.APIKeys,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			HealthCheckers: b.checkers,
			MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		}

		// init minio
		if cfg.Minio.Enabled {
			store, err := minioStore.New(ctx,
				cfg.Minio.Endpoint,
				cfg.Minio.Region,
				cfg.Minio.BucketName,
				cfg.Minio.AccessKey,
				cfg.Minio.SecretKey,
				cfg.Minio.UseSSL,
			)
			if err != nil {
				return fmt.Errorf("minio init error: %w", err)
			}
			deps.Uploads = store
			deps.HealthCheckers["minio"] = store
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		deps.Metrics = middleware.NewMetrics(reg)

		if cfg.RateLimit.Capacity > 0 {
			deps.Limiter = middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
			defer deps.Limiter.Close()
		}

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:         addr,
			Handler:      httpserver.NewRouter(svc, deps),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("server listening", "addr", addr, "driver", cfg.Database.Driver)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}
