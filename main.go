package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"streamseek/api"
	"streamseek/config"
	"streamseek/handlers"
	"streamseek/services/metadata"
	"streamseek/services/providers"
	"streamseek/services/user_settings"
	"streamseek/utils"
)

func main() {
	dataDir := os.Getenv("STREAMSEEK_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("[main] create data dir: %v", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   filepath.Join(dataDir, "logs", "streamseek.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}))

	cfgManager, err := config.Load(dataDir)
	if err != nil {
		log.Fatalf("[main] load config: %v", err)
	}
	cfg := cfgManager.Get()

	metadataSvc := metadata.NewService(metadata.Config{
		WatchmodeAPIKey: cfg.WatchmodeAPIKey,
		TMDBAPIKey:      cfg.TMDBAPIKey,
		CacheDir:        filepath.Join(dataDir, "cache"),
		CacheTTL:        cfg.CacheTTL(),
	})

	settingsSvc, err := user_settings.NewService(dataDir)
	if err != nil {
		log.Fatalf("[main] user settings: %v", err)
	}

	registry := providers.NewRegistry()

	metadataHandler := handlers.NewMetadataHandler(metadataSvc, registry, cfgManager)
	metadataHandler.SetUserSettingsProvider(settingsSvc)
	providersHandler := handlers.NewProvidersHandler(settingsSvc)

	router := utils.NewRouter()
	router.Use(api.RequestIDMiddleware())
	router.Use(api.LoggingMiddleware())

	// Roughly one request per two seconds per IP with headroom for page loads.
	limiter := api.NewIPRateLimiter(rate.Every(2*time.Second), 30)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.RateLimitMiddleware(limiter))
	apiRouter.HandleFunc("/search", metadataHandler.Search).Methods(http.MethodGet)
	apiRouter.HandleFunc("/titles/{id}", metadataHandler.Details).Methods(http.MethodGet)
	apiRouter.HandleFunc("/popular", metadataHandler.Popular).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{id}/providers", providersHandler.Get).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{id}/providers", providersHandler.Update).Methods(http.MethodPut)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[main] listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}
