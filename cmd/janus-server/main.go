package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/BrandonDHaskell/Janus/server/internal/config"
	"github.com/BrandonDHaskell/Janus/server/internal/db"
	"github.com/BrandonDHaskell/Janus/server/internal/grpcapi"
	"github.com/BrandonDHaskell/Janus/server/internal/httpapi"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/alert"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/allowlist"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/radio"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	sqlitestore "github.com/BrandonDHaskell/Janus/server/internal/janus/store/sqlite"
	"github.com/BrandonDHaskell/Janus/server/internal/metrics"
)

func main() {
	logger := log.New(os.Stdout, "janus-server ", log.LstdFlags|log.LUTC)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("db open: %v", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		doc := devAllowList()
		if err := db.SeedDev(ctx, conn, db.SeedDevOptions{AllowList: &doc}); err != nil {
			logger.Fatalf("db seed: %v", err)
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	networkStore := sqlitestore.NewNetworkStore(conn, writer)
	eventStore := sqlitestore.NewStatusEventStore(conn, writer)
	cache := sqlitestore.NewAllowListCache(conn, writer)

	// Metrics
	var (
		m   *metrics.Metrics
		reg *prometheus.Registry
	)
	if cfg.MetricsEnabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}

	// Allow-list
	allowStore := allowlist.NewStore(cfg.AllowListMaxAge)
	var (
		source     allowlist.Source
		fileSource *allowlist.FileSource
	)
	switch {
	case cfg.AllowListURL != "":
		source = allowlist.NewHTTPSource(cfg.AllowListURL, 30*time.Second)
	case cfg.AllowListFile != "":
		fileSource = &allowlist.FileSource{Path: cfg.AllowListFile}
		source = fileSource
	}
	syncer := allowlist.NewSyncer(allowStore, source, cache, allowlist.SyncerConfig{
		Interval: cfg.AllowListSyncInterval,
		Metrics:  m,
	}, logger)
	if err := syncer.Restore(ctx); err != nil {
		logger.Printf("allowlist restore error: %v", err)
	}
	syncer.Start(ctx)
	defer syncer.Stop()

	if fileSource != nil {
		go func() {
			err := fileSource.Watch(ctx, 0, func() { _ = syncer.SyncNow(ctx) })
			if err != nil {
				logger.Printf("allowlist watch error: %v", err)
			}
		}()
	}

	// Alerts
	sinks := alert.Multi{alert.LogSink{Logger: logger}}
	if len(cfg.KafkaBrokers) > 0 {
		ks := alert.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer ks.Close()
		sinks = append(sinks, ks)
		logger.Printf("kafka alerts enabled topic=%s", cfg.KafkaTopic)
	}
	if cfg.MQTTBroker != "" {
		ms, err := alert.NewMQTTSink(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
		if err != nil {
			logger.Printf("mqtt alerts disabled: %v", err)
		} else {
			defer ms.Close()
			sinks = append(sinks, ms)
			logger.Printf("mqtt alerts enabled prefix=%s", cfg.MQTTTopicPrefix)
		}
	}

	// Services
	machine := service.NewStatusMachine(networkStore, logger, m)
	coordinator := service.NewCoordinator(allowStore, machine, sinks, logger, m)

	var scanner service.Scanner
	if cfg.ScanFile != "" {
		scanner = radio.NewFileScanner(cfg.ScanFile)
	}
	background := service.NewBackgroundScanner(scanner, coordinator, service.BackgroundConfig{
		Interval: cfg.ScanInterval,
	}, logger)
	background.Start(ctx)
	defer background.Stop()

	pruner := service.NewEventPruner(eventStore, service.PrunerConfig{
		RetentionDays: cfg.EventRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// HTTP
	deps := httpapi.Dependencies{
		Logger:       logger,
		Addr:         cfg.HTTPAddr,
		Coordinator:  coordinator,
		Machine:      machine,
		Events:       eventStore,
		AllowList:    allowStore,
		NearbyWindow: cfg.NearbyWindow,
		Metrics:      m,
	}
	if source != nil {
		deps.Syncer = syncer
	}
	if reg != nil {
		deps.Gatherer = reg
	}
	srv := httpapi.NewServer(deps)

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	// gRPC
	var rpc *grpcapi.Server
	if cfg.GRPCAddr != "" {
		rpc = grpcapi.NewServer(cfg.GRPCAddr, grpcapi.NewNetworkService(machine, coordinator, cfg.NearbyWindow), logger)
		go func() {
			logger.Printf("grpc listening on %s", cfg.GRPCAddr)
			if err := rpc.Start(); err != nil {
				logger.Printf("grpc server error: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if rpc != nil {
		rpc.Shutdown(shutdownCtx)
	}
	_ = srv.Shutdown(shutdownCtx)
}
