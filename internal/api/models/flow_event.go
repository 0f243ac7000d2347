package models

import "time"

type GenerationStatus string

const (
	GenerationSucceeded GenerationStatus = "succeeded"
	GenerationFailed    GenerationStatus = "failed"
)

// FlowGenerationEvent summarises one orchestrated generation for the event bus.
// It never carries the raw generation text.
type FlowGenerationEvent struct {
	RequestID    string           `json:"requestId"`
	ProjectID    string           `json:"projectId,omitempty"`
	Status       GenerationStatus `json:"status"`
	Stage        string           `json:"stage,omitempty"`
	FlowName     string           `json:"flowName,omitempty"`
	PhaseCount   int              `json:"phaseCount"`
	TaskCount    int              `json:"taskCount"`
	WarningCount int              `json:"warningCount"`
	Model        string           `json:"model,omitempty"`
	InputTokens  int64            `json:"inputTokens"`
	OutputTokens int64            `json:"outputTokens"`
	DurationMs   int64            `json:"durationMs"`
	Error        string           `json:"error,omitempty"`
	OccurredAt   time.Time        `json:"occurredAt"`
}
