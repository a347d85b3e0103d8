package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/digkill/vidcrafter/internal/config"
	"github.com/digkill/vidcrafter/internal/database"
	"github.com/digkill/vidcrafter/internal/metrics"
	"github.com/digkill/vidcrafter/internal/repository"
	"github.com/digkill/vidcrafter/internal/seed"
	"github.com/digkill/vidcrafter/internal/service"
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

	users := repository.NewUserRepository(db)
	coupons := service.NewCouponService(
		repository.NewCouponRepository(db),
		service.NewLedger(users),
		logr,
		metrics.New(prometheus.NewRegistry()),
		nil,
	)

	res, err := seed.Run(ctx, logr, users, coupons, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if !res.Created {
		fmt.Printf("Admin user %s already exists\n", res.Admin.Email)
		return
	}
	fmt.Printf("Admin user created: %s\n", res.Admin.Email)
	for _, c := range res.Coupons {
		fmt.Printf("Created coupon: %s (%d generations)\n", c.Code, c.Value)
	}
}
