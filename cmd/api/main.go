package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nfpickle-donations/internal/client"
	"nfpickle-donations/internal/config"
	"nfpickle-donations/internal/handler"
	"nfpickle-donations/internal/logging"
	"nfpickle-donations/internal/repository"
	"nfpickle-donations/internal/server"
	"nfpickle-donations/internal/service"

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

	logger := logging.New(cfg.Log)

	db, err := client.InitDatabase(cfg.Database)
	if err != nil {
		logger.Error("database init failed", "err", err)
		os.Exit(1)
	}
	stripeClient := client.NewStripeClient(&cfg.Stripe)

	donationRepo := repository.NewDonationRepository(db)
	eventRepo := repository.NewProviderEventRepository(db)

	donationService := service.NewDonationService(stripeClient, donationRepo, cfg.Donation.MaxAmount, logger)
	webhookService := service.NewWebhookService(stripeClient, donationRepo, eventRepo, logger)

	donationHandler := handler.NewDonationHandler(donationService, cfg.Stripe.PublishableKey, logger)
	webhookHandler := handler.NewWebhookHandler(webhookService, logger)

	srv := server.NewServer(donationHandler, webhookHandler, cfg.Admin.SessionSecret, logger)
	obsSrv := server.NewObservabilityServer(cfg.Observability.Addr)

	reconciler := service.NewReconciler(stripeClient, donationRepo, cfg.Reconcile.Schedule, cfg.Reconcile.StaleAfter, logger)
	if err := reconciler.Start(); err != nil {
		logger.Error("reconciler start failed", "err", err)
		os.Exit(1)
	}

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	logger.Info("starting HTTP server", "addr", serverAddr, "environment", cfg.Environment.Name)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "err", err)
			os.Exit(1)
		}
	}()

	go func() {
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("observability server error", "err", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	reconciler.Stop()

	if err := obsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("observability server shutdown error", "err", err)
	}
	if err := srv.Shutdown(); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
}
