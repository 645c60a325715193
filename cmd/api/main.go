package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-backoffice/internal/client"
	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/fraud"
	"commerce-backoffice/internal/repository"
	"commerce-backoffice/internal/server"
	"commerce-backoffice/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Gateway.WebhookSecret == "" {
		fmt.Println("GATEWAY_WEBHOOK_SECRET is required")
		os.Exit(1)
	}

	db, err := client.InitDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	auditService := service.NewAuditService(auditRepo)
	analyzer := fraud.NewAnalyzer(historyRepo,
		fraud.WithTimeout(time.Duration(cfg.Fraud.QueryTimeoutMS)*time.Millisecond))

	orderService := service.NewOrderService(
		db, orderRepo, paymentRepo, refundRepo, inventoryRepo, auditService, analyzer)

	webhookService := service.NewWebhookService(
		cfg.Gateway.WebhookSecret,
		time.Duration(cfg.Idempotency.TTLMinutes)*time.Minute,
		idempotencyRepo,
		deliveryRepo,
		orderService,
	)

	srv := server.NewServer(webhookService, orderService, auditService, analyzer,
		cfg.Gateway.WebhookRateLimit)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	if err := srv.Shutdown(); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}
