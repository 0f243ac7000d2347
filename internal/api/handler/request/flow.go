package request

type GenerateFlow struct {
	Prompt    string `json:"prompt" validate:"required"`
	ProjectID string `json:"projectId"` // not used by the pipeline, carried on events
}
