// Package main provides the task runner entry point: it wires storage, the
// ESI client and the credential broker into the periodic sync jobs and runs
// them until shutdown.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eve-companion/internal/api"
	"github.com/eve-companion/internal/config"
	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/market"
	"github.com/eve-companion/internal/notify"
	"github.com/eve-companion/internal/scheduler"
	"github.com/eve-companion/internal/sso"
	"github.com/eve-companion/internal/storage"
	"github.com/eve-companion/internal/tasks"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(
		logging.ParseLevel(cfg.Logging.Level),
		logging.ParseFormat(cfg.Logging.Format),
	)
	logging.InitGlobalLogger(
		logging.ParseLevel(cfg.Logging.Level),
		logging.ParseFormat(cfg.Logging.Format),
	)
	logger.Info("Task runner starting")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, continuing without caching")
		redis = nil
	} else {
		defer redis.Close()
	}

	characterRepo := storage.NewCharacterRepository(postgres)
	featureRepo := storage.NewFeatureRepository(postgres)
	skillSetRepo := storage.NewSkillSetRepository(postgres)
	blueprintRepo := storage.NewBlueprintRepository(postgres)
	miningRepo := storage.NewMiningLedgerRepository(postgres)
	contractRepo := storage.NewContractRepository(postgres)
	contractItemRepo := storage.NewContractItemRepository(postgres)
	historyRepo := storage.NewMarketHistoryRepository(postgres)
	notificationRepo := storage.NewNotificationRepository(postgres)
	invTypeRepo := storage.NewInvTypeRepository(postgres, redis)
	marketOrderRepo := storage.NewMarketOrderRepository(postgres)

	var orderArchive market.SnapshotArchive
	if cfg.Market.SnapshotArchive {
		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			logger.WithError(err).Warn("ClickHouse unavailable, order snapshots disabled")
		} else {
			defer clickhouse.Close()
			orderArchive = storage.NewOrderSnapshotRepository(clickhouse)
		}
	}

	broker, err := sso.NewBroker(&cfg.SSO, characterRepo, redis)
	if err != nil {
		logger.Fatalf("Failed to create credential broker: %v", err)
	}

	esiClient := esi.NewClient(&cfg.ESI)

	var notifier tasks.Notifier
	if cfg.Discord.BotToken != "" {
		discord, err := notify.NewDiscordNotifier(&cfg.Discord)
		if err != nil {
			logger.Fatalf("Failed to create Discord notifier: %v", err)
		}
		notifier = discord
	} else {
		logger.Warn("No Discord bot token configured, alerts will only be logged")
		notifier = logNotifier{logger: logger}
	}

	sched := scheduler.New(logger)
	defs := tasks.Definitions(&tasks.Deps{
		Config:        cfg,
		Tokens:        broker,
		ESI:           esiClient,
		Notifier:      notifier,
		Characters:    characterRepo,
		Features:      featureRepo,
		SkillSets:     skillSetRepo,
		Blueprints:    blueprintRepo,
		MiningLedger:  miningRepo,
		Contracts:     contractRepo,
		ContractItems: contractItemRepo,
		MarketHistory: historyRepo,
		Notifications: notificationRepo,
		InvTypes:      invTypeRepo,
		MarketOrders:  marketOrderRepo,
		OrderArchive:  orderArchive,
	})
	if err := tasks.RegisterAll(sched, &cfg.Tasks, defs); err != nil {
		logger.Fatalf("Failed to register tasks: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logging.WithLogger(ctx, logger)

	if err := sched.Start(ctx); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	var redisPinger api.Pinger
	if redis != nil {
		redisPinger = redis
	}
	server := api.NewServer(&cfg.Server, logger, sched, postgres, redisPinger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatalf("Status server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig.String()).Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Status server shutdown failed")
	}

	cancel()
	sched.Stop()
	logger.Info("Task runner stopped")
}

// logNotifier stands in for Discord when no bot token is configured.
type logNotifier struct {
	logger *logging.Logger
}

func (l logNotifier) NotifyUser(_ context.Context, discordUserID, message string) error {
	l.logger.WithFields(map[string]interface{}{
		"discord_user_id": discordUserID,
		"message":         message,
	}).Info("Notification (dry run)")
	return nil
}
