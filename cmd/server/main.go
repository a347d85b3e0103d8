package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/digkill/vidcrafter/internal/auth"
	"github.com/digkill/vidcrafter/internal/config"
	"github.com/digkill/vidcrafter/internal/database"
	"github.com/digkill/vidcrafter/internal/metrics"
	"github.com/digkill/vidcrafter/internal/notify"
	"github.com/digkill/vidcrafter/internal/repository"
	"github.com/digkill/vidcrafter/internal/server"
	"github.com/digkill/vidcrafter/internal/service"
	"github.com/digkill/vidcrafter/internal/storage"
	"github.com/digkill/vidcrafter/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var notifier service.Notifier
	var telegram *notify.Telegram
	if cfg.NotifierEnabled() {
		bot, err := notify.NewTelegramBot(cfg.TelegramBotToken)
		if err != nil {
			log.Fatalf("telegram bot: %v", err)
		}
		telegram = notify.NewTelegram(bot, cfg.TelegramAdminChatID, logr)
		notifier = telegram
	}

	var store server.BlobStore
	if cfg.StorageEnabled() {
		s3Store, err := storage.NewS3Store(storage.Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			UsePathStyle: cfg.S3UsePathStyle,
			Prefix:       cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		store = s3Store
	}

	userRepo := repository.NewUserRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	generationRepo := repository.NewGenerationRepository(db)

	ledger := service.NewLedger(userRepo)
	couponService := service.NewCouponService(couponRepo, ledger, logr, m, notifier)
	gate := service.NewUsageGate(ledger, generationRepo, cfg.FreeCartoonGenerations, m)
	generationService := service.NewGenerationService(userRepo, generationRepo, logr, m)
	statsService := service.NewStatsService(userRepo, couponRepo, generationRepo)

	srv := server.New(server.Options{
		Addr:           cfg.HTTPListenAddr,
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logr, server.Deps{
		Identity:    auth.NewResolver(auth.NewTokenManager(cfg.JWTSecret), userRepo),
		Coupons:     couponService,
		Gate:        gate,
		Generations: generationService,
		Stats:       statsService,
		Store:       store,
		Gatherer:    reg,
	})

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("http server stopped", "err", err)
	}
	if telegram != nil {
		telegram.Wait()
	}
}
