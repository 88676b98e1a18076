package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/groupbuy-service/internal/auth"
	"github.com/vasiliy-maslov/groupbuy-service/internal/bg"
	"github.com/vasiliy-maslov/groupbuy-service/internal/catalog"
	"github.com/vasiliy-maslov/groupbuy-service/internal/config"
	"github.com/vasiliy-maslov/groupbuy-service/internal/content"
	"github.com/vasiliy-maslov/groupbuy-service/internal/db"
	"github.com/vasiliy-maslov/groupbuy-service/internal/handler"
	"github.com/vasiliy-maslov/groupbuy-service/internal/notification"
	"github.com/vasiliy-maslov/groupbuy-service/internal/order"
	"github.com/vasiliy-maslov/groupbuy-service/internal/scheduler"
	"github.com/vasiliy-maslov/groupbuy-service/internal/storage"
	"github.com/vasiliy-maslov/groupbuy-service/internal/transport"
	"github.com/vasiliy-maslov/groupbuy-service/internal/user"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "groupbuy").Logger()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		log.Warn().Err(err).Str("level", cfg.App.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Group-buy service starting...")

	ctx := context.Background()
	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	if err := pg.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userSvc := user.NewService(user.NewRepository(pg.Pool), tokens)

	deliveries := &bg.Async{}
	notificationRepo := notification.NewRepository(pg.Pool)
	orderSinks := notification.Fanout{notification.StoreSink{Repo: notificationRepo}}
	var messageDispatcher *notification.Dispatcher
	if cfg.SMTP.Enabled() {
		email := notification.NewEmailSink(cfg.SMTP, userSvc)
		orderSinks = append(orderSinks, email)
		messageDispatcher = notification.NewDispatcher(email, deliveries)
		log.Info().Str("host", cfg.SMTP.Host).Msg("Email notifications enabled")
	}
	notificationSvc := notification.NewService(notificationRepo, messageDispatcher)
	orderDispatcher := notification.NewDispatcher(orderSinks, deliveries)

	catalogSvc := catalog.NewService(catalog.NewRepository(pg.Pool), cfg.Pricing.DefaultAirCargoCost)
	orderSvc := order.NewService(order.NewRepository(pg.Pool), catalogSvc, orderDispatcher)
	pageSvc := content.NewService(content.NewRepository(pg.Pool))

	var uploader storage.Uploader
	if cfg.Cloudinary.Enabled() {
		uploader, err = storage.NewCloudinary(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to init file storage")
		}
	} else {
		log.Warn().Msg("Cloudinary is not configured, uploads are disabled")
	}

	sweeper, err := scheduler.New(orderSvc, cfg.Scheduler.OverdueSweepInterval, time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	sweeper.Start()

	router := transport.NewRouter(transport.Handlers{
		Users:         handler.NewUserHandler(userSvc),
		Catalog:       handler.NewCatalogHandler(catalogSvc),
		Orders:        handler.NewOrderHandler(orderSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Pages:         handler.NewPageHandler(pageSvc),
		Uploads:       handler.NewUploadHandler(uploader, cfg.App.MaxUploadBytes),
	}, tokens, pg.Pool)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sweeper.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Scheduler shutdown failed")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := deliveries.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Pending notifications were not delivered before shutdown")
	}
	log.Info().Msg("Server stopped")
}
