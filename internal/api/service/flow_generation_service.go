package service

import (
	"context"
	"kbc/internal/api/models"
	"kbc/internal/gen"
	"kbc/pkg"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const promptLogPrefixLength = 100

// ComponentCatalog lists the components available to a project.
type ComponentCatalog interface {
	FetchComponents(ctx context.Context, creds pkg.StorageCredentials) ([]models.Component, error)
}

// FlowGenerator submits instructions and a prompt to the generation service.
type FlowGenerator interface {
	Generate(ctx context.Context, req pkg.GenerationRequest) (pkg.GenerationResult, error)
}

// GenerationEventPublisher receives one event per orchestrated generation.
type GenerationEventPublisher interface {
	PublishGenerationEvent(event models.FlowGenerationEvent) error
}

// CredentialProvider yields the caller's Storage API credentials or fails
// with an AuthenticationRequiredError.
type CredentialProvider func() (pkg.StorageCredentials, error)

// StaticCredentials returns a provider that checks both values are present.
func StaticCredentials(token, stackURL string) CredentialProvider {
	return func() (pkg.StorageCredentials, error) {
		var missing []string
		if strings.TrimSpace(token) == "" {
			missing = append(missing, "X-StorageApi-Token")
		}
		if strings.TrimSpace(stackURL) == "" {
			missing = append(missing, "X-Stack-Url")
		}
		if len(missing) > 0 {
			return pkg.StorageCredentials{}, &AuthenticationRequiredError{Missing: missing}
		}
		return pkg.StorageCredentials{Token: token, StackURL: stackURL}, nil
	}
}

type GenerationSettings struct {
	Model               string
	MaxOutputTokens     int64
	Temperature         float64
	WarnOnPhaseCycles   bool
	TruncationSignature []string
}

type GenerateFlowInput struct {
	Prompt    string
	ProjectID string
	RequestID string
}

type GenerateFlowResult struct {
	Flow       models.GeneratedFlowConfig
	Mermaid    string
	Components []models.Component
	Warnings   []string
	Usage      pkg.GenerationUsage
}

// Pipeline stages, reported on failure events.
const (
	StageFetchCatalog     = "fetch_catalog"
	StageInvokeGeneration = "invoke_generation"
	StageRecoverAndParse  = "recover_and_parse"
)

type FlowGenerationService struct {
	catalog   ComponentCatalog
	generator FlowGenerator
	publisher GenerationEventPublisher
	settings  GenerationSettings
	logger    zerolog.Logger
	now       func() time.Time
}

// NewFlowGenerationService wires the pipeline. A nil generator means the
// service is not configured and every call fails with
// ErrAIServiceNotConfigured; a nil publisher disables events.
func NewFlowGenerationService(
	catalog ComponentCatalog,
	generator FlowGenerator,
	publisher GenerationEventPublisher,
	settings GenerationSettings,
	logger zerolog.Logger,
) *FlowGenerationService {
	return &FlowGenerationService{
		catalog:   catalog,
		generator: generator,
		publisher: publisher,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
	}
}

// GenerateFlow runs the whole pipeline for one request. Input problems are
// reported before any outbound call is made.
func (slf *FlowGenerationService) GenerateFlow(ctx context.Context, input GenerateFlowInput, credentials CredentialProvider) (*GenerateFlowResult, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return nil, ErrPromptRequired
	}
	creds, err := credentials()
	if err != nil {
		return nil, err
	}
	if slf.generator == nil {
		return nil, ErrAIServiceNotConfigured
	}

	log := slf.logger.With().Str("requestId", input.RequestID).Logger()
	started := slf.now()
	event := models.FlowGenerationEvent{
		RequestID: input.RequestID,
		ProjectID: input.ProjectID,
		Model:     slf.settings.Model,
	}

	result, stage, err := slf.run(ctx, log, prompt, creds, &event)

	event.DurationMs = slf.now().Sub(started).Milliseconds()
	event.OccurredAt = slf.now().UTC()
	if err != nil {
		event.Status = models.GenerationFailed
		event.Stage = stage
		event.Error = err.Error()
	} else {
		event.Status = models.GenerationSucceeded
	}
	slf.publish(log, event)

	return result, err
}

func (slf *FlowGenerationService) run(
	ctx context.Context,
	log zerolog.Logger,
	prompt string,
	creds pkg.StorageCredentials,
	event *models.FlowGenerationEvent,
) (*GenerateFlowResult, string, error) {
	components, err := slf.catalog.FetchComponents(ctx, creds)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch component catalog")
		return nil, StageFetchCatalog, err
	}
	log.Info().Int("components", len(components)).Msg("Fetched component catalog")

	system := BuildSystemPrompt(components)
	log.Info().
		Int("systemPromptLength", len(system)).
		Str("prompt", prefix(prompt, promptLogPrefixLength)).
		Msg("Calling generation service")

	generation, err := slf.generator.Generate(ctx, pkg.GenerationRequest{
		SystemInstructions: system,
		UserPrompt:         prompt,
		Model:              slf.settings.Model,
		MaxOutputTokens:    slf.settings.MaxOutputTokens,
		Temperature:        slf.settings.Temperature,
	})
	if err != nil {
		log.Error().Err(err).Msg("Generation failed")
		return nil, StageInvokeGeneration, err
	}
	if generation.Model != "" {
		event.Model = generation.Model
	}
	event.InputTokens = generation.Usage.InputTokens
	event.OutputTokens = generation.Usage.OutputTokens
	log.Info().
		Int64("inputTokens", generation.Usage.InputTokens).
		Int64("outputTokens", generation.Usage.OutputTokens).
		Int64("totalTokens", generation.Usage.Total()).
		Str("stopReason", generation.StopReason).
		Msg("Generation completed")

	repairer := pkg.BraceBalanceRepairer{KnownPartialIDs: slf.settings.TruncationSignature}
	flow, err := RecoverFlowConfig(generation.Text, repairer)
	if err != nil {
		log.Error().
			Err(err).
			Str("responseTail", tail(generation.Text, diagnosticTailLength)).
			Msg("Failed to parse generation response")
		return nil, StageRecoverAndParse, err
	}

	warnings := ValidateComponentReferences(flow.Tasks, components)
	if slf.settings.WarnOnPhaseCycles && DetectPhaseCycle(flow.Phases) {
		warnings = append(warnings, phaseCycleWarning)
	}
	if len(warnings) > 0 {
		log.Warn().Strs("warnings", warnings).Msg("Generated flow has warnings")
	}

	mermaid := gen.RenderFlowDiagram(flow.Configuration(), components)

	event.FlowName = flow.Name
	event.PhaseCount = len(flow.Phases)
	event.TaskCount = len(flow.Tasks)
	event.WarningCount = len(warnings)

	return &GenerateFlowResult{
		Flow:       *flow,
		Mermaid:    mermaid,
		Components: components,
		Warnings:   warnings,
		Usage:      generation.Usage,
	}, "", nil
}

func (slf *FlowGenerationService) publish(log zerolog.Logger, event models.FlowGenerationEvent) {
	if slf.publisher == nil {
		return
	}
	if err := slf.publisher.PublishGenerationEvent(event); err != nil {
		log.Warn().Err(err).Msg("Failed to publish generation event")
	}
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
