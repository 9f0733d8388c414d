package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "makerspace/docs"
	"makerspace/internal/booking"
	"makerspace/internal/cancellation"
	"makerspace/internal/clock"
	"makerspace/internal/config"
	"makerspace/internal/db"
	"makerspace/internal/email"
	"makerspace/internal/equipment"
	"makerspace/internal/logger"
	"makerspace/internal/mq"
	"makerspace/internal/notify"
	"makerspace/internal/schedule"
	"makerspace/internal/server"
	"makerspace/internal/settings"
	"makerspace/internal/tracing"
	"makerspace/internal/user"
)

const version = "1.0.0"

// @title Makerspace API
// @version 1.0
// @description Equipment slot booking, cancellations and refunds for a makerspace.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init()
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithLevel(cfg.LogLevel)
	defer logger.Sync()
	logger.Info("Starting makerspace application", "version", version)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Invalid timezone: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, "makerspace", version, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatalf("Failed to init tracing: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	clk := clock.NewSystem()
	txManager := db.NewTxManager(database, cfg.TxTimeout)
	grid := equipment.Grid{Duration: cfg.SlotDuration(), Location: loc}

	userRepo := user.NewRepository(database)
	equipmentRepo := equipment.NewRepository(database)
	bookingRepo := booking.NewRepository(database)
	cancellationRepo := cancellation.NewRepository(database)
	settingsStore := settings.NewStore(settings.NewRepository(database))

	policy := schedule.NewPolicy(settingsStore, loc)

	emailService := email.New(email.Options{
		From:      cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
		SMTPHost:  cfg.SMTPHost,
		SMTPPort:  cfg.SMTPPort,
		SMTPUser:  cfg.SMTPUser,
		SMTPPass:  cfg.SMTPPass,
		RedisAddr: cfg.RedisAddr,
		Location:  loc,
	})
	defer emailService.Close()
	go emailService.Start(ctx)
	logger.Info("Email service initialized")

	var publisher notify.Publisher
	if cfg.AMQPURL != "" {
		p, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatalf("Failed to connect to broker: %v", err)
		}
		defer p.Close()
		publisher = p
		logger.Info("Event publisher connected", "exchange", cfg.AMQPExchange)
	}

	dispatcher := notify.NewDispatcher(userRepo, emailService, publisher)

	handlers := server.Handlers{
		User:      user.NewHandler(user.NewService(userRepo)),
		Equipment: equipment.NewHandler(equipment.NewService(equipmentRepo, txManager, grid, clk)),
		Booking: booking.NewHandler(
			booking.NewService(bookingRepo, equipmentRepo, policy, txManager, grid, clk),
			dispatcher,
		),
		Cancellation: cancellation.NewHandler(
			cancellation.NewService(cancellationRepo, bookingRepo, equipmentRepo, txManager, clk),
			dispatcher,
		),
		Schedule: schedule.NewHandler(policy, settingsStore),
	}

	srv := server.New(cfg, handlers, server.HealthChecks{
		Database: database.PingContext,
		Redis:    emailService.Ping,
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	dispatcher.Wait()
	cancel()

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Errorf("Error during tracing shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
