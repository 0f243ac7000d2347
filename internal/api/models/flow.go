package models

const TaskModeRun = "run"

// Phase is a logical execution stage; DependsOn lists ids of other phases of
// the same configuration.
type Phase struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	DependsOn []string `json:"dependsOn"`
}

type TaskSpec struct {
	Mode       string         `json:"mode"`
	ConfigData map[string]any `json:"configData"`
}

// Task runs one component inside one phase.
type Task struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ComponentID string   `json:"componentId"`
	Phase       string   `json:"phase"`
	Task        TaskSpec `json:"task"`
}

type FlowConfiguration struct {
	Phases []Phase `json:"phases"`
	Tasks  []Task  `json:"tasks"`
}

// GeneratedFlowConfig is the typed form of a generation service answer.
type GeneratedFlowConfig struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Phases      []Phase `json:"phases"`
	Tasks       []Task  `json:"tasks"`
}

func (g GeneratedFlowConfig) Configuration() FlowConfiguration {
	return FlowConfiguration{Phases: g.Phases, Tasks: g.Tasks}
}
