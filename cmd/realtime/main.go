package main

import (
	"context"
	"kbc"
	"kbc/internal/api/models"
	"kbc/internal/realtime"
	"os/signal"
	"syscall"
)

// Follows flow generation events on NATS and writes them to the log.
func main() {
	kbc.InitConfig(".env")
	cfg := kbc.GetConfig()

	if cfg.NatsConfig.URL == "" {
		kbc.Logger.Fatal().Msg("NATS_URL is required")
	}

	subscriber, err := realtime.NewGenerationSubscriber(cfg.NatsConfig.URL, cfg.NatsConfig.SubjectPrefix, kbc.Logger)
	if err != nil {
		kbc.Logger.Fatal().Err(err).Msg("NATS subscriber")
	}
	defer subscriber.Close()

	err = subscriber.Subscribe(func(projectID string, event models.FlowGenerationEvent) {
		entry := kbc.Logger.Info()
		if event.Status == models.GenerationFailed {
			entry = kbc.Logger.Warn().Str("stage", event.Stage).Str("error", event.Error)
		}
		entry.
			Str("project", projectID).
			Str("requestId", event.RequestID).
			Str("flow", event.FlowName).
			Int("tasks", event.TaskCount).
			Int("warnings", event.WarningCount).
			Int64("inputTokens", event.InputTokens).
			Int64("outputTokens", event.OutputTokens).
			Int64("durationMs", event.DurationMs).
			Msgf("Flow generation %s", event.Status)
	})
	if err != nil {
		kbc.Logger.Fatal().Err(err).Msg("NATS subscribe")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	kbc.Logger.Info().Msg("Stopping event tail")
}
