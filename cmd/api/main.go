package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/account"
	"studio/internal/genai"
	"studio/internal/http/handlers"
	"studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/storage"
	"studio/internal/studio"
)

func main() {
	_ = godotenv.Load()

	// A missing or placeholder credential is fatal; nothing runs partially.
	cfg, err := infra.LoadConfig()
	if err != nil {
		bootLogger := infra.NewLogger("production")
		bootLogger.Fatal().Err(err).Msg("configuration error")
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	store, err := storage.NewFileStore(cfg.StorageBasePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare image storage")
	}

	gemini, err := genai.NewClient(genai.Options{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		TextModel:   cfg.GeminiTextModel,
		ImageModel:  cfg.GeminiImageModel,
		SpeechModel: cfg.GeminiSpeechModel,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration error")
	}

	verifier := account.NewGoogleVerifier(cfg.GoogleIssuer, cfg.GoogleClientID)
	auth := account.NewAuthService(verifier, cfg.SessionSecret, logger)
	gallery := account.NewGalleryService(runner, store, cfg.StorageBaseURL, logger)

	manager := studio.NewManager(gemini, gemini, logger)
	unwatch := manager.WatchAuth(auth)
	defer unwatch()

	app := handlers.NewApp(auth, gallery, gemini, manager, logger)
	router := httpapi.NewRouter(app, logger, cfg.AllowedOrigins)

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
