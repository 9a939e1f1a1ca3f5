package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/config"
	"github.com/mamadbah2/inventory/internal/messaging"
	"github.com/mamadbah2/inventory/internal/repository"
	"github.com/mamadbah2/inventory/internal/repository/sheets"
	"github.com/mamadbah2/inventory/internal/scheduler"
	"github.com/mamadbah2/inventory/internal/server/handlers"
	"github.com/mamadbah2/inventory/internal/server/router"
	authsvc "github.com/mamadbah2/inventory/internal/service/auth"
	commandsvc "github.com/mamadbah2/inventory/internal/service/commands"
	reportingsvc "github.com/mamadbah2/inventory/internal/service/reporting"
	stocksvc "github.com/mamadbah2/inventory/internal/service/stock"
	whatsappsvc "github.com/mamadbah2/inventory/internal/service/whatsapp"
	"github.com/mamadbah2/inventory/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/inventory/pkg/clients/whatsapp"
	"github.com/mamadbah2/inventory/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	store, err := repository.Open(startupCtx, *cfg, baseLogger.Named("repo"))
	if err != nil {
		baseLogger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close storage", zap.Error(err))
		}
	}()

	var publisher interface {
		stocksvc.Publisher
		Close() error
	} = messaging.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		baseLogger.Info("kafka events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			baseLogger.Error("failed to close event publisher", zap.Error(err))
		}
	}()

	stockSvc := stocksvc.NewService(store, publisher, cfg.Stock.LowStockThreshold, baseLogger.Named("svc.stock"))
	authSvc := authsvc.NewService(cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Initialize AI Client
	var translator commandsvc.Translator
	if cfg.AI.AnthropicKey != "" {
		translator = anthropic.NewClient(cfg.AI.AnthropicKey)
		baseLogger.Info("anthropic command translation enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, only the strict command grammar is understood")
	}
	commandDispatcher := commandsvc.NewService(stockSvc, translator, baseLogger.Named("svc.commands"))

	var messenger whatsappsvc.MessagingService = whatsappsvc.DisabledService{}
	if cfg.WhatsApp.AccessToken != "" && cfg.WhatsApp.PhoneNumberID != "" {
		whatsClient := whatsappclient.NewClient(whatsappclient.Options{
			BaseURL:       cfg.WhatsApp.BaseURL,
			APIVersion:    cfg.WhatsApp.APIVersion,
			AccessToken:   cfg.WhatsApp.AccessToken,
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
			Retries:       2,
		})
		messenger = whatsappsvc.NewMetaWhatsAppService(whatsClient, baseLogger.Named("svc.whatsapp"))
	}

	reportOpts := reportingsvc.Options{Currency: cfg.Reporting.Currency}
	if cfg.WhatsApp.Enabled() {
		reportOpts.Messenger = messenger
		reportOpts.AlertRecipient = cfg.WhatsApp.AlertRecipient
	}
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets.CredentialsPath, cfg.Sheets.SpreadsheetID, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		reportOpts.Sheet = sheetsRepo
	}
	reportingSvc := reportingsvc.NewService(stockSvc, store, reportOpts, baseLogger.Named("svc.reporting"))

	// Initialize Scheduler
	location, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.String("timezone", cfg.Reporting.Timezone), zap.Error(err))
	}
	sched, err := scheduler.NewScheduler(reportingSvc, scheduler.Options{
		ReportSchedule:    cfg.Reporting.CronSchedule,
		ReconcileSchedule: cfg.Reporting.ReconcileCronSchedule,
		ReconcileFix:      cfg.Reporting.ReconcileFix,
		Location:          location,
	}, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	engine := router.New(router.Handlers{
		Health:        handlers.NewHealthHandler(store, baseLogger.Named("handlers.health")),
		Auth:          handlers.NewAuthHandler(authSvc, baseLogger.Named("handlers.auth")),
		Items:         handlers.NewItemHandler(stockSvc, baseLogger.Named("handlers.items")),
		Transactions:  handlers.NewTransactionHandler(stockSvc, baseLogger.Named("handlers.transactions")),
		Commands:      handlers.NewCommandHandler(commandDispatcher, baseLogger.Named("handlers.commands")),
		Reports:       handlers.NewReportHandler(stockSvc, reportingSvc, baseLogger.Named("handlers.reports")),
		Notifications: handlers.NewNotificationHandler(messenger, baseLogger.Named("handlers.notifications")),
	}, authSvc, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.WithCORS(engine, cfg.Server.CORSAllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
