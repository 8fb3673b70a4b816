package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/senecabooks/bookstore-services/internal/auth"
	"github.com/senecabooks/bookstore-services/internal/catalog"
	"github.com/senecabooks/bookstore-services/internal/clients"
	"github.com/senecabooks/bookstore-services/internal/config"
	"github.com/senecabooks/bookstore-services/internal/db"
	"github.com/senecabooks/bookstore-services/internal/openlibrary"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "catalog-service").Logger()
	decimal.MarshalJSONWithoutQuotes = true

	log.Info().Msg("Catalog service starting...")

	cfg, err := config.Load("catalog-service")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(cfg.Postgres, "catalog_service")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	if err := dbConn.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	httpClient := &http.Client{Timeout: cfg.Clients.Timeout}
	userClient := clients.NewUserClient(cfg.Clients.UserServiceURL, httpClient)
	external := openlibrary.NewClient(nil)

	bookRepository := catalog.NewRepository(dbConn.Pool)
	catalogService := catalog.NewService(bookRepository, external)
	catalogHandler := catalog.NewHandler(catalogService)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	catalogHandler.RegisterRoutes(router, auth.Authenticator(userClient))

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Catalog service stopped gracefully")
}
