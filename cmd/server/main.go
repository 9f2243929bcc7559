package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/api"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/config"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/events/kafka"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/ledger"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/logging"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/metrics"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/stats"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	var m *metrics.Metrics
	var statsOpts []stats.Option
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		statsOpts = append(statsOpts, stats.WithObserver(m))
	}
	aggregator := stats.New(statsOpts...)

	ledgerOpts := []ledger.Option{
		ledger.WithLogger(log),
		ledger.WithTxRetries(cfg.Payments.TransactionRetries),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Async:   cfg.Kafka.Async,
		}, log)
		defer publisher.Close()
		ledgerOpts = append(ledgerOpts, ledger.WithPublisher(publisher))
		log.Info("publishing transfer events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	service, cleanup, err := newTransferService(ctx, cfg, aggregator, log, ledgerOpts)
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(api.NewTransferHandler(service, log), log, api.RouterConfig{
		Metrics:     m,
		Gatherer:    reg,
		MetricsPath: cfg.Metrics.Path,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Server.Addr, "backend", cfg.Payments.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
