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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/sumire/orgissues/internal/handler"
	"github.com/sumire/orgissues/internal/metrics"
	"github.com/sumire/orgissues/internal/repository"
	"github.com/sumire/orgissues/internal/service"
)

func serve(ctx context.Context, envFile string) error {
	cfg, log, db, err := bootstrap(ctx, envFile)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer db.Close()

	if cfg.AutoMigrate {
		if err := repository.NewMigrator(db, log).Up(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	m := metrics.New()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(m.PrometheusCollectors()...)

	issueSvc := service.NewIssueService(
		repository.NewIssueRepository(db),
		m.InstrumentActivity(repository.NewActivityRepository(db)),
		log,
		service.IssueOptions{AuditDeletes: cfg.AuditDeletes},
	)

	e := handler.NewRouter(issueSvc, log, handler.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        m,
		Gatherer:       reg,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.Int("port", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", zap.Stringer("signal", sig))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}
