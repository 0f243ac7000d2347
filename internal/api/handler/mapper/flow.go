package mapper

import (
	"kbc/internal/api/handler/response"
	"kbc/internal/api/models"
	"kbc/internal/api/service"
)

// ToGenerateFlowResponse builds the success envelope. Absent lists are
// written as empty arrays and absent configData as an empty object so clients
// never see null in the configuration.
func ToGenerateFlowResponse(result *service.GenerateFlowResult) response.GenerateFlow {
	phases := make([]models.Phase, 0, len(result.Flow.Phases))
	for _, p := range result.Flow.Phases {
		if p.DependsOn == nil {
			p.DependsOn = []string{}
		}
		phases = append(phases, p)
	}

	tasks := make([]models.Task, 0, len(result.Flow.Tasks))
	for _, t := range result.Flow.Tasks {
		if t.Task.ConfigData == nil {
			t.Task.ConfigData = map[string]any{}
		}
		tasks = append(tasks, t)
	}

	components := result.Components
	if components == nil {
		components = []models.Component{}
	}

	var warnings []string
	if len(result.Warnings) > 0 {
		warnings = result.Warnings
	}

	return response.GenerateFlow{
		Success: true,
		Flow: response.GeneratedFlow{
			Name:        result.Flow.Name,
			Description: result.Flow.Description,
			Configuration: models.FlowConfiguration{
				Phases: phases,
				Tasks:  tasks,
			},
		},
		Mermaid:    result.Mermaid,
		Components: components,
		Warnings:   warnings,
	}
}
