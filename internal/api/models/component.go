package models

type ComponentType string

const (
	ComponentTypeExtractor      ComponentType = "extractor"
	ComponentTypeTransformation ComponentType = "transformation"
	ComponentTypeWriter         ComponentType = "writer"
	ComponentTypeApplication    ComponentType = "application"
)

// ComponentIcon keeps the two smallest icon sizes published by the Storage API.
type ComponentIcon struct {
	Small string `json:"small"`
	Large string `json:"large,omitempty"`
}

// Component is one connector, transformation, writer or application available
// to a project.
type Component struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Type ComponentType  `json:"type"`
	Icon *ComponentIcon `json:"icon,omitempty"`
}

// ComponentIndex returns the catalog keyed by component id.
func ComponentIndex(components []Component) map[string]Component {
	index := make(map[string]Component, len(components))
	for _, c := range components {
		index[c.ID] = c
	}
	return index
}
