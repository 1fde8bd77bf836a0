package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/leadscout/leadscout/internal/config"
	"github.com/leadscout/leadscout/internal/intent"
	"github.com/leadscout/leadscout/internal/notifications"
	"github.com/leadscout/leadscout/internal/search"
	"github.com/leadscout/leadscout/internal/sources"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting LeadScout")

	registry := sources.NewRegistry(
		sources.NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditUserAgent, cfg.RedditRateLimit),
		sources.NewHackerNewsSource(cfg.HackerNewsRateLimit),
	)

	scorer := intent.NewScorer(intent.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	}, intent.DefaultBatchPolicy())
	if !scorer.Enabled() {
		logrus.Warn("OPENAI_API_KEY not set, AI intent scoring disabled")
	}

	api := &apiServer{
		orchestrator: search.New(registry, scorer),
		notifier:     notifications.NewService(cfg),
	}

	router := mux.NewRouter()
	router.Use(loggingMiddleware, corsMiddleware)

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/api/platforms", api.handlePlatforms).Methods("GET")
	router.HandleFunc("/api/search", api.handleSearch).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/search/ranked", api.handleSearchRanked).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/search/ai", api.handleSearchAI).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/search/{platform}", api.handleSearchPlatform).Methods("POST", "OPTIONS")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // fan-out plus AI triage can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}
