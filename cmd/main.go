package main

import (
	"context"
	"errors"
	"kbc"
	"kbc/internal/api/handler/endpoints"
	"kbc/internal/api/handler/middleware"
	"kbc/internal/api/service"
	"kbc/internal/realtime"
	"kbc/pkg"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
)

func main() {
	kbc.InitConfig(".env")
	cfg := kbc.GetConfig()
	gin.SetMode(gin.ReleaseMode)
	if cfg.Mode == "dev" {
		gin.SetMode(gin.DebugMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	router, err := graceful.Default(graceful.WithAddr(cfg.ApiPort))
	if err != nil {
		panic(err)
	}
	defer stop()
	defer router.Close()

	router.Use(middleware.RequestID())

	var publisher service.GenerationEventPublisher
	if nc := newPublisher(cfg); nc != nil {
		defer nc.Close()
		publisher = nc
	}

	flowService := service.NewFlowGenerationService(
		pkg.NewStorageAPIClient(&http.Client{Timeout: 30 * time.Second}),
		newGenerator(cfg),
		publisher,
		service.GenerationSettings{
			Model:               cfg.Anthropic.Model,
			MaxOutputTokens:     int64(cfg.Anthropic.MaxTokens),
			Temperature:         cfg.Anthropic.Temperature,
			WarnOnPhaseCycles:   cfg.FlowConfig.WarnOnPhaseCycles,
			TruncationSignature: cfg.FlowConfig.TruncationSignature,
		},
		kbc.Logger,
	)
	limiter := pkg.NewRedisRateLimiter(
		kbc.Redis,
		"ratelimit:flows:generate",
		cfg.RateLimitConfig.Generations,
		time.Duration(cfg.RateLimitConfig.WindowSeconds)*time.Second,
	)

	endpoints.FlowHandler(router, flowService, limiter, kbc.Logger)

	kbc.Logger.Debug().Msgf("Starting flow generation API on port %s", cfg.ApiPort)
	if err = router.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		kbc.Logger.Fatal().Msg(err.Error())
	}
}

// newGenerator returns nil without an API key; requests then fail with
// "AI service is not configured".
func newGenerator(cfg kbc.AppConfig) service.FlowGenerator {
	if cfg.Anthropic.ApiKey == "" {
		kbc.Logger.Warn().Msg("ANTHROPIC_API_KEY is not set, flow generation is disabled")
		return nil
	}
	opts := []option.RequestOption{option.WithMaxRetries(cfg.Anthropic.MaxRetries)}
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	return pkg.NewAnthropicClient(cfg.Anthropic.ApiKey, opts...)
}

func newPublisher(cfg kbc.AppConfig) *realtime.NATSPublisher {
	if cfg.NatsConfig.URL == "" {
		return nil
	}
	publisher, err := realtime.NewNATSPublisher(cfg.NatsConfig.URL, cfg.NatsConfig.SubjectPrefix, kbc.Logger)
	if err != nil {
		kbc.Logger.Warn().Err(err).Msg("NATS unavailable, generation events are disabled")
		return nil
	}
	kbc.Logger.Info().Str("url", cfg.NatsConfig.URL).Msg("Publishing generation events to NATS")
	return publisher
}
