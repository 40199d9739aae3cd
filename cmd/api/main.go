package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storyweave/adventure/internal/config"
	"github.com/storyweave/adventure/internal/handlers"
	"github.com/storyweave/adventure/internal/logger"
	"github.com/storyweave/adventure/internal/middleware"
	"github.com/storyweave/adventure/internal/services"
	"github.com/storyweave/adventure/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Adventure API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	var factory handlers.LLMFactory
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		factory = func(apiKey string) (services.LLMService, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return services.NewGeminiService(ctx, apiKey, cfg.SummaryModel, log)
		}
	case config.ProviderAnthropic:
		factory = func(apiKey string) (services.LLMService, error) {
			return services.NewAnthropicService(apiKey, cfg.SummaryModel, log), nil
		}
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider,
			"supported", []string{config.ProviderGemini, config.ProviderAnthropic})
		os.Exit(1)
	}

	store := storage.NewRedisSaveStore(cfg.RedisURL, log)
	storeCtx, storeCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storeCancel()
	if err := store.WaitForConnection(storeCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	lang := cfg.DefaultLang

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	sessionHandler := handlers.NewSessionHandler(log, store, factory, cfg.Credential(), cfg.ModelName, lang)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	handler := middleware.RequestLogging(log, mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}
