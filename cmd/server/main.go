package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"ncc.gov.ng/nora/internal/api"
	"ncc.gov.ng/nora/internal/config"
	"ncc.gov.ng/nora/internal/core"
	"ncc.gov.ng/nora/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.LogLevel)

	// Initialize LLM backends
	llmService, err := core.NewLLMService(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize LLM service")
	}
	defer llmService.Close()

	chatService := core.NewChatService(llmService, core.NewModelTable(cfg.Models), cfg.MaxTokens)

	var limiter *api.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		log.Info().Float64("rps", cfg.RateLimitRPS).Int("burst", cfg.RateLimitBurst).Msg("Rate limiting /api/chat")
	}

	apiHandler := api.NewAPIHandler(chatService, cfg.MaxDuration)
	router := api.NewRouter(apiHandler, limiter)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Streams are cut by the per-request deadline first.
		WriteTimeout: cfg.MaxDuration + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Starting server. Press Ctrl+C to quit.")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Str("addr", serverAddr).Msg("Could not listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exiting gracefully")
}
