package response

import "kbc/internal/api/models"

type GeneratedFlow struct {
	Name          string                   `json:"name"`
	Description   string                   `json:"description"`
	Configuration models.FlowConfiguration `json:"configuration"`
}

type GenerateFlow struct {
	Success    bool               `json:"success"`
	Flow       GeneratedFlow      `json:"flow"`
	Mermaid    string             `json:"mermaid"`
	Components []models.Component `json:"components"`
	Warnings   []string           `json:"warnings,omitempty"`
}
