package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/auth"
	"github.com/devcon-dev/devcon/internal/config"
	"github.com/devcon-dev/devcon/internal/handlers"
	"github.com/devcon-dev/devcon/internal/router"
	"github.com/devcon-dev/devcon/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := db.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if err := auth.InitJWT(cfg.JWTSecret, cfg.TokenTTL); err != nil {
		log.Fatalf("Failed to initialize JWT: %v", err)
	}

	notifier := services.NewNotifier(services.NewSMTPSender(cfg), cfg.NotifyBuffer, cfg.NotifyMaxAttempts, cfg.NotifyRetryDelay)
	notifier.Start()
	defer notifier.Stop()

	tickets := services.NewTicketService(cfg)
	teams := services.NewTeamService(cfg)
	payments := services.NewPaymentService(cfg, tickets, notifier)
	registrations := services.NewRegistrationService(cfg, teams, payments, notifier)
	checkins := services.NewCheckInService()

	handlers.Init(cfg, registrations, payments, checkins, tickets, notifier)

	r := router.NewRouter(cfg)

	log.Printf("Starting server on port %s", cfg.Port)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
