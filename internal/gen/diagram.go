package gen

import (
	"bytes"
	"fmt"
	"io"
	"kbc/internal/api/models"
	"strings"
)

const diagramTheme = `%%{init: {'theme':'base', 'themeVariables': {'primaryColor':'#EBF5FF','primaryTextColor':'#1F2937','primaryBorderColor':'#3B82F6','lineColor':'#6B7280','secondaryColor':'#F3F4F6','tertiaryColor':'#FEF3C7'}, 'fontFamily': 'sans-serif'}}%%`

// styleClass is one classDef of the diagram, keyed by component type.
type styleClass struct {
	componentType models.ComponentType
	name          string
	style         string
}

var styleClasses = []styleClass{
	{models.ComponentTypeExtractor, "extractClass", "fill:#E0F2FE,stroke:#1F8FFF,stroke-width:2px,color:#003d7a"},
	{models.ComponentTypeTransformation, "transformClass", "fill:#F3E8FF,stroke:#A855F7,stroke-width:2px,color:#4C0519"},
	{models.ComponentTypeWriter, "loadClass", "fill:#DCFCE7,stroke:#10B981,stroke-width:2px,color:#15803D"},
	{models.ComponentTypeApplication, "appClass", "fill:#FEF3C7,stroke:#F59E0B,stroke-width:2px,color:#78350F"},
}

// NodeID keeps only the ASCII letters and digits of a task id. Distinct ids
// that differ only in punctuation map to the same node.
func NodeID(taskID string) string {
	var b strings.Builder
	b.Grow(len(taskID))
	for i := 0; i < len(taskID); i++ {
		c := taskID[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// reservedNodeIDs are Mermaid keywords that cannot name a node.
var reservedNodeIDs = map[string]bool{
	"end": true, "graph": true, "subgraph": true, "flowchart": true, "class": true,
	"classdef": true, "style": true, "linkstyle": true, "click": true, "direction": true,
}

// DiagramNodeID is NodeID with a positional fallback ("task<index+1>") for
// ids that strip to nothing or to a Mermaid keyword.
func DiagramNodeID(taskID string, index int) string {
	id := NodeID(taskID)
	if id == "" || reservedNodeIDs[strings.ToLower(id)] {
		return fmt.Sprintf("task%d", index+1)
	}
	return id
}

// TypeLabel is the short stage label shown under a task name.
func TypeLabel(component models.Component, found bool) string {
	if !found {
		return "Component"
	}
	switch component.Type {
	case models.ComponentTypeExtractor:
		return "Extract"
	case models.ComponentTypeTransformation:
		return "Transform"
	case models.ComponentTypeWriter:
		return "Load"
	case models.ComponentTypeApplication:
		return "App"
	default:
		return "Task"
	}
}

func classFor(componentType models.ComponentType) (string, bool) {
	for _, sc := range styleClasses {
		if sc.componentType == componentType {
			return sc.name, true
		}
	}
	return "", false
}

// DiagramEmitter writes a Mermaid flowchart for a flow configuration.
type DiagramEmitter struct {
	w       io.Writer
	indent  int
	err     error
	catalog map[string]models.Component
	nodeIDs []string
}

func NewDiagramEmitter(w io.Writer, catalog []models.Component) *DiagramEmitter {
	return &DiagramEmitter{w: w, catalog: models.ComponentIndex(catalog)}
}

// RenderFlowDiagram returns the diagram text. The output depends only on the
// inputs.
func RenderFlowDiagram(flow models.FlowConfiguration, catalog []models.Component) string {
	var buf bytes.Buffer
	// writes to a bytes.Buffer cannot fail
	_ = NewDiagramEmitter(&buf, catalog).Emit(flow)
	return buf.String()
}

func (e *DiagramEmitter) Emit(flow models.FlowConfiguration) error {
	e.nodeIDs = make([]string, len(flow.Tasks))
	for i, task := range flow.Tasks {
		e.nodeIDs[i] = DiagramNodeID(task.ID, i)
	}

	e.write(diagramTheme)
	e.write("\n\n")
	e.write("graph TB\n")

	e.indent++
	e.emitPhases(flow)
	e.emitEdges(flow.Tasks)
	e.newline()
	e.emitClassDefs()
	e.newline()
	e.emitClassAssignments(flow.Tasks)
	e.indent--

	return e.err
}

func (e *DiagramEmitter) emitPhases(flow models.FlowConfiguration) {
	tasksByPhase := make(map[string][]int, len(flow.Phases))
	for i, task := range flow.Tasks {
		tasksByPhase[task.Phase] = append(tasksByPhase[task.Phase], i)
	}

	known := make(map[string]bool, len(flow.Phases))
	for i, phase := range flow.Phases {
		known[phase.ID] = true

		e.linef("subgraph Phase%d[\"Phase %d: %s\"]", i+1, i+1, escapeLabel(phase.Name))
		e.indent++
		for _, i := range tasksByPhase[phase.ID] {
			e.emitNode(i, flow.Tasks[i])
		}
		e.indent--
		e.line("end")
		e.newline()
	}

	// tasks pointing at a phase that does not exist still get a node
	for i, task := range flow.Tasks {
		if !known[task.Phase] {
			e.emitNode(i, task)
		}
	}
}

func (e *DiagramEmitter) emitNode(index int, task models.Task) {
	component, found := e.catalog[task.ComponentID]
	e.linef("%s[\"%s<br/><small>%s • %s</small>\"]",
		e.nodeIDs[index], escapeLabel(task.Name), TypeLabel(component, found), escapeLabel(task.ComponentID))
}

// emitEdges chains the tasks in input order; phase dependencies are not
// reflected.
func (e *DiagramEmitter) emitEdges(tasks []models.Task) {
	for i := 0; i+1 < len(tasks); i++ {
		label := "Processed Data"
		if i == 0 {
			label = "Data Flow"
		}
		e.linef("%s -->|%s| %s", e.nodeIDs[i], label, e.nodeIDs[i+1])
	}
}

func (e *DiagramEmitter) emitClassDefs() {
	for _, sc := range styleClasses {
		e.linef("classDef %s %s", sc.name, sc.style)
	}
}

func (e *DiagramEmitter) emitClassAssignments(tasks []models.Task) {
	for i, task := range tasks {
		component, found := e.catalog[task.ComponentID]
		if !found {
			continue
		}
		if class, ok := classFor(component.Type); ok {
			e.linef("class %s %s", e.nodeIDs[i], class)
		}
	}
}

func (e *DiagramEmitter) write(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

func (e *DiagramEmitter) line(s string) {
	e.write(strings.Repeat("  ", e.indent))
	e.write(s)
	e.newline()
}

func (e *DiagramEmitter) linef(format string, args ...any) {
	e.line(fmt.Sprintf(format, args...))
}

func (e *DiagramEmitter) newline() {
	e.write("\n")
}

// escapeLabel keeps double quotes from closing a quoted Mermaid label.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
