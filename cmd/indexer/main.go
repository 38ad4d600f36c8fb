// Package main provides the pool ledger indexer entry point: it polls chain
// logs for the watched contracts, decodes them and feeds the accounting
// processor.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pool-ledger/internal/accounting"
	"github.com/pool-ledger/internal/api"
	"github.com/pool-ledger/internal/chain"
	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/cove"
	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/ledger"
	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/pricing"
	"github.com/pool-ledger/internal/processor"
	"github.com/pool-ledger/internal/registry"
	"github.com/pool-ledger/internal/sink"
	"github.com/pool-ledger/internal/store"
)

func main() {
	log.Println("Pool ledger indexer starting...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.NewLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)

	dep, err := config.LoadDeployment(cfg.Manifest.Path)
	if err != nil {
		log.Fatalf("Failed to load deployment manifest: %v", err)
	}

	postgres, err := store.NewPostgres(&cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	var entities store.Store = postgres
	if cfg.Database.Redis.Enabled {
		client, err := store.NewRedisClient(&cfg.Database.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		entities = store.NewCached(entities, client, store.DefaultEntityTTL, logger)
	}

	var recorders []sink.Recorder
	if cfg.Database.ClickHouse.Enabled {
		ch, err := sink.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		recorders = append(recorders, sink.NewClickHouseRecorder(ch))
	}
	if cfg.Kafka.Enabled {
		recorders = append(recorders, sink.NewKafkaRecorder(&cfg.Kafka))
	}
	tee := sink.NewTee(entities, logger, recorders...)
	entities = tee
	defer func() {
		if err := tee.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close record sinks")
		}
	}()

	reader, err := chain.NewEthReader(cfg.Chain.RPCPrimary, cfg.Chain.ReadsPerSec, cfg.Chain.ReadBurst, logger)
	if err != nil {
		log.Fatalf("Failed to connect to RPC: %v", err)
	}

	resolver := pricing.NewResolver(entities, reader, dep, logger)
	reg := registry.NewTokenRegistry(entities, reader, dep, logger)
	led := ledger.NewPoolLedger(entities, reader, resolver, reg, dep, logger)
	pools := accounting.NewAccountant(entities, reader, resolver, reg, led, dep, logger)
	coves := cove.NewAccountant(entities, reader, resolver, reg, led, dep, logger)

	watch := newWatchSet(dep)
	proc := processor.New(pools, coves, watch, logger)

	decoder, err := events.NewDecoder()
	if err != nil {
		log.Fatalf("Failed to build event decoder: %v", err)
	}

	checks := map[string]api.HealthCheck{
		"postgres": postgres.Ping,
	}
	server := api.NewServer(&cfg.Server, proc, checks, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Status server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &poller{
		client:  reader.Client(),
		decoder: decoder,
		proc:    proc,
		store:   entities,
		watch:   watch,
		logger:  logger,
		cfg:     cfg.Chain,
		genesis: earliestStartBlock(dep),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("Shutting down")

	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Status server shutdown failed")
	}
}

// earliestStartBlock picks the scan genesis: the lowest configured pool
// start block, zero when the manifest has none
func earliestStartBlock(dep *config.Deployment) uint64 {
	var earliest uint64
	for _, pool := range dep.Pools {
		if earliest == 0 || pool.StartBlock < earliest {
			earliest = pool.StartBlock
		}
	}
	return earliest
}

// initialAddresses seeds the watch set from the manifest: the registry,
// every configured pool, oracle proxy and cove contract
func initialAddresses(dep *config.Deployment) []common.Address {
	var addrs []common.Address
	if dep.Registry != "" {
		addrs = append(addrs, common.HexToAddress(dep.Registry))
	}
	for pool := range dep.Pools {
		addrs = append(addrs, common.HexToAddress(pool))
	}
	for _, oracle := range dep.Oracles {
		addrs = append(addrs, common.HexToAddress(oracle.Proxy))
	}
	for _, c := range dep.Coves {
		addrs = append(addrs, common.HexToAddress(c))
	}
	return addrs
}
