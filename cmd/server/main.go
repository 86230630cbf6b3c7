package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"

	"github.com/ancient666-pro/askit-dark-feed/internal/config"
	"github.com/ancient666-pro/askit-dark-feed/internal/db"
	"github.com/ancient666-pro/askit-dark-feed/internal/handler"
	"github.com/ancient666-pro/askit-dark-feed/internal/ledger"
	"github.com/ancient666-pro/askit-dark-feed/internal/middleware"
	"github.com/ancient666-pro/askit-dark-feed/internal/payment"
	"github.com/ancient666-pro/askit-dark-feed/internal/repository"
	"github.com/ancient666-pro/askit-dark-feed/internal/router"
	"github.com/ancient666-pro/askit-dark-feed/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	middleware.InitLogger(cfg.LogLevel, "askit-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.CreateSchema(ctx, pool); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	// Vote ledger: Redis-backed when the cache connection is up, so the
	// one-vote-per-device guard survives restarts. In-memory otherwise.
	var kv ledger.KV
	if cache.Client() != nil {
		kv = ledger.NewRedisKV(cache.Client())
	} else {
		log.Println("ledger: redis unavailable, using in-memory vote ledger")
		kv = ledger.NewMemoryKV()
	}
	voteLedger := ledger.New(kv)

	pollRepo := repository.NewPollRepo(pool)
	paymentRepo := repository.NewPaymentRepo(pool)

	razorpay := payment.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayAPIURL)
	if !razorpay.Configured() {
		log.Println("razorpay: credentials missing, boost endpoints will reject requests")
	}

	pollSvc := service.NewPollService(pollRepo, voteLedger, cache)
	boostSvc := service.NewBoostService(pollRepo, paymentRepo, razorpay, cache)

	handler.InitMetrics(pool)

	trendWorker := service.NewTrendWorker(pool, pollRepo, cache)
	go trendWorker.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "AskIt API",
		ServerHeader: "AskIt",
	})

	router.Setup(app, &router.Handlers{
		Poll:   handler.NewPollHandler(pollSvc, cache),
		Vote:   handler.NewVoteHandler(pollSvc),
		Boost:  handler.NewBoostHandler(boostSvc),
		Device: handler.NewDeviceHandler(),
		Stats:  handler.NewStatsHandler(paymentRepo),
		Health: handler.NewHealthHandler(pool, cache.Client(), paymentRepo),
	}, cfg.CORSOrigins)

	go func() {
		<-ctx.Done()
		log.Println("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("AskIt backend starting on :%s (env=%s)", cfg.Port, cfg.Environment)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
