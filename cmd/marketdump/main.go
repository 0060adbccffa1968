// Package main provides the market order dump tool: it refreshes the live
// order book for configured regions, stalest first, and recomputes
// long-duration type flags.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eve-companion/internal/config"
	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/market"
	"github.com/eve-companion/internal/storage"
)

func main() {
	var (
		regionID = flag.Int64("region", 0, "Collect one specific region instead of the stalest")
		all      = flag.Bool("all", false, "Collect every configured region once")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(
		logging.ParseLevel(cfg.Logging.Level),
		logging.ParseFormat(cfg.Logging.Format),
	)

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	orderRepo := storage.NewMarketOrderRepository(postgres)

	var archive *storage.OrderSnapshotRepository
	if cfg.Market.SnapshotArchive {
		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			logger.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		defer clickhouse.Close()
		archive = storage.NewOrderSnapshotRepository(clickhouse)
	}

	// The interface check keeps a nil *OrderSnapshotRepository from hiding
	// inside a non-nil interface value.
	collector := market.NewCollector(
		cfg.Market.OrderRegionIDs,
		cfg.Market.LongOrderDays,
		esi.NewClient(&cfg.ESI),
		orderRepo,
		snapshotArchiveOrNil(archive),
	)

	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), logger))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Interrupted, aborting collection")
		cancel()
	}()

	switch {
	case *regionID != 0:
		err = collector.CollectRegion(ctx, *regionID)
	case *all:
		for _, id := range cfg.Market.OrderRegionIDs {
			if err = collector.CollectRegion(ctx, id); err != nil {
				break
			}
		}
	default:
		err = collector.Run(ctx)
	}
	if err != nil {
		logger.Fatalf("Collection failed: %v", err)
	}
	logger.Info("Market dump finished")
}

func snapshotArchiveOrNil(archive *storage.OrderSnapshotRepository) market.SnapshotArchive {
	if archive == nil {
		return nil
	}
	return archive
}
