package pkg

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrEmptyGeneration is matched by EmptyGenerationError through errors.Is.
var ErrEmptyGeneration = errors.New("AI returned empty response")

// GenerationServiceError wraps a transport or service-side failure of the
// completion API.
type GenerationServiceError struct {
	StatusCode int
	Err        error
}

func (e *GenerationServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation service error (status %d): %s", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation service error: %s", e.Err)
}

func (e *GenerationServiceError) Unwrap() error {
	return e.Err
}

// EmptyGenerationError is returned when the service answered without any
// textual content block.
type EmptyGenerationError struct {
	BlockCount int
}

func (e *EmptyGenerationError) Error() string {
	return fmt.Sprintf("%s (%d content blocks, none textual)", ErrEmptyGeneration, e.BlockCount)
}

func (e *EmptyGenerationError) Is(target error) bool {
	return target == ErrEmptyGeneration
}

type GenerationRequest struct {
	SystemInstructions string
	UserPrompt         string
	Model              string
	MaxOutputTokens    int64
	Temperature        float64
}

type GenerationUsage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u GenerationUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

type GenerationResult struct {
	Text       string
	Model      string
	StopReason string
	Usage      GenerationUsage
}

// completionBlock and completion are the only parts of a completion answer the
// pipeline relies on.
type completionBlock struct {
	Type string
	Text string
}

type completion struct {
	Content    []completionBlock
	Usage      GenerationUsage
	Model      string
	StopReason string
}

// firstText returns the text of the first non-empty textual block.
func (c completion) firstText() (string, error) {
	for _, block := range c.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", &EmptyGenerationError{BlockCount: len(c.Content)}
}

// AnthropicClient submits generation requests to the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient builds a client for apiKey; extra options (base URL,
// retries, HTTP client) are passed through to the SDK.
func NewAnthropicClient(apiKey string, opts ...option.RequestOption) *AnthropicClient {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicClient{client: anthropic.NewClient(all...)}
}

func (slf *AnthropicClient) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	if req.Temperature < 0 || req.Temperature > 1 {
		return GenerationResult{}, &GenerationServiceError{
			Err: fmt.Errorf("temperature must be within [0,1], got %v", req.Temperature),
		}
	}

	msg, err := slf.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   req.MaxOutputTokens,
		Temperature: anthropic.Float(req.Temperature),
		System:      []anthropic.TextBlockParam{{Text: req.SystemInstructions}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	})
	if err != nil {
		serviceErr := &GenerationServiceError{Err: err}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			serviceErr.StatusCode = apiErr.StatusCode
		}
		return GenerationResult{}, serviceErr
	}
	if msg == nil {
		return GenerationResult{}, &GenerationServiceError{Err: errors.New("no message in response")}
	}

	return completionFromMessage(msg).result()
}

func completionFromMessage(msg *anthropic.Message) completion {
	c := completion{
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: GenerationUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
	for _, block := range msg.Content {
		c.Content = append(c.Content, completionBlock{Type: block.Type, Text: block.Text})
	}
	return c
}

func (c completion) result() (GenerationResult, error) {
	text, err := c.firstText()
	if err != nil {
		return GenerationResult{}, err
	}
	return GenerationResult{
		Text:       text,
		Model:      c.Model,
		StopReason: c.StopReason,
		Usage:      c.Usage,
	}, nil
}
