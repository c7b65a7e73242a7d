package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tapecert/tapecert/pkg/api"
	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/authz"
	"github.com/tapecert/tapecert/pkg/bootstrap"
	"github.com/tapecert/tapecert/pkg/config"
	"github.com/tapecert/tapecert/pkg/observability"
	"github.com/tapecert/tapecert/pkg/stats"
	"github.com/tapecert/tapecert/pkg/store/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting certificate service")

	st, err := postgres.New(cfg.Store)
	if err != nil {
		logger.WithError(err).Error("failed to initialize store")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.PostgresTimeout)
	err = bootstrap.Run(ctx, st, cfg.Auth, logger)
	cancel()
	if err != nil {
		logger.WithError(err).Error("bootstrap failed")
		os.Exit(1)
	}

	engine := authz.NewEngine(st)
	reporter := stats.NewReporter(st, st, engine)
	tokens := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	server := api.NewServer(st, engine, reporter, tokens, logger, api.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Metrics:     metrics,
	})

	apiSrv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Probes and metrics live on their own port so they stay reachable
	// without auth and outside the public surface.
	opsMux := http.NewServeMux()
	checker := observability.NewHealthChecker(st.DB(), st.RedisClient())
	observability.RegisterHealthRoutes(opsMux, checker)
	if metrics != nil {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsSrv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      opsMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", apiSrv.Addr).Info("api server listening")
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			os.Exit(1)
		}
	}()
	go func() {
		logger.WithField("addr", opsSrv.Addr).Info("ops server listening")
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("ops server failed")
			os.Exit(1)
		}
	}()

	if metrics != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				metrics.ObserveDBStats(st.DB())
			}
		}()
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiSrv, opsSrv)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return st.Close()
	})
	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
