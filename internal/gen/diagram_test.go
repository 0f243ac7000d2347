package gen

import (
	"kbc/internal/api/models"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	nodeLine = regexp.MustCompile(`^\s+[A-Za-z0-9]*\["`)
	edgeLine = regexp.MustCompile(`-->\|`)
)

func countLines(diagram string, re *regexp.Regexp) int {
	n := 0
	for _, l := range strings.Split(diagram, "\n") {
		if re.MatchString(l) {
			n++
		}
	}
	return n
}

func testCatalog() []models.Component {
	return []models.Component{
		{ID: "keboola.ex-google-sheets", Name: "Google Sheets", Type: models.ComponentTypeExtractor},
		{ID: "keboola.snowflake-transformation", Name: "Snowflake SQL", Type: models.ComponentTypeTransformation},
		{ID: "keboola.wr-snowflake", Name: "Snowflake", Type: models.ComponentTypeWriter},
		{ID: "keboola.app-orchestrator", Name: "Orchestrator", Type: models.ComponentTypeApplication},
		{ID: "keboola.processor-move", Name: "Move files", Type: "processor"},
	}
}

func sheetsToSnowflake() models.FlowConfiguration {
	return models.FlowConfiguration{
		Phases: []models.Phase{
			{ID: "phase-1", Name: "Extract", DependsOn: []string{}},
			{ID: "phase-2", Name: "Load", DependsOn: []string{"phase-1"}},
		},
		Tasks: []models.Task{
			{ID: "task-1", Name: "Extract Sheets", ComponentID: "keboola.ex-google-sheets", Phase: "phase-1"},
			{ID: "task-2", Name: "Load Snowflake", ComponentID: "keboola.wr-snowflake", Phase: "phase-2"},
		},
	}
}

func TestRenderFlowDiagram_TwoTasks(t *testing.T) {
	diagram := RenderFlowDiagram(sheetsToSnowflake(), testCatalog())

	assert.True(t, strings.HasPrefix(diagram, "%%{init:"))
	assert.Contains(t, diagram, "\ngraph TB\n")
	assert.Contains(t, diagram, `  subgraph Phase1["Phase 1: Extract"]`)
	assert.Contains(t, diagram, `  subgraph Phase2["Phase 2: Load"]`)
	assert.Contains(t, diagram, `    task1["Extract Sheets<br/><small>Extract • keboola.ex-google-sheets</small>"]`)
	assert.Contains(t, diagram, `    task2["Load Snowflake<br/><small>Load • keboola.wr-snowflake</small>"]`)
	assert.Contains(t, diagram, "  task1 -->|Data Flow| task2\n")
	assert.Contains(t, diagram, "  class task1 extractClass\n")
	assert.Contains(t, diagram, "  class task2 loadClass\n")

	assert.Equal(t, 2, countLines(diagram, nodeLine))
	assert.Equal(t, 1, countLines(diagram, edgeLine))
	assert.Equal(t, 4, strings.Count(diagram, "classDef "))
}

func TestRenderFlowDiagram_EdgeLabels(t *testing.T) {
	flow := models.FlowConfiguration{
		Phases: []models.Phase{{ID: "p", Name: "All"}},
		Tasks: []models.Task{
			{ID: "a", Name: "A", ComponentID: "keboola.ex-google-sheets", Phase: "p"},
			{ID: "b", Name: "B", ComponentID: "keboola.snowflake-transformation", Phase: "p"},
			{ID: "c", Name: "C", ComponentID: "keboola.wr-snowflake", Phase: "p"},
		},
	}

	diagram := RenderFlowDiagram(flow, testCatalog())

	assert.Contains(t, diagram, "  a -->|Data Flow| b\n")
	assert.Contains(t, diagram, "  b -->|Processed Data| c\n")
	assert.Equal(t, 2, countLines(diagram, edgeLine))
}

func TestRenderFlowDiagram_Deterministic(t *testing.T) {
	flow := sheetsToSnowflake()
	catalog := testCatalog()

	assert.Equal(t, RenderFlowDiagram(flow, catalog), RenderFlowDiagram(flow, catalog))
}

func TestRenderFlowDiagram_NeverOmitsTasks(t *testing.T) {
	flow := models.FlowConfiguration{
		Phases: []models.Phase{{ID: "phase-1", Name: "Extract"}},
		Tasks: []models.Task{
			{ID: "task-1", Name: "In phase", ComponentID: "keboola.ex-google-sheets", Phase: "phase-1"},
			{ID: "task-2", Name: "Unknown phase", ComponentID: "keboola.wr-snowflake", Phase: "phase-9"},
			{ID: "task-3", Name: "No phase", ComponentID: "keboola.wr-snowflake"},
		},
	}

	diagram := RenderFlowDiagram(flow, testCatalog())

	assert.Equal(t, len(flow.Tasks), countLines(diagram, nodeLine))
	assert.Contains(t, diagram, "\n  task2[\"Unknown phase")
}

func TestRenderFlowDiagram_Styling(t *testing.T) {
	flow := models.FlowConfiguration{
		Phases: []models.Phase{{ID: "p", Name: "Mixed"}},
		Tasks: []models.Task{
			{ID: "t-app", Name: "App", ComponentID: "keboola.app-orchestrator", Phase: "p"},
			{ID: "t-other", Name: "Other", ComponentID: "keboola.processor-move", Phase: "p"},
			{ID: "t-missing", Name: "Missing", ComponentID: "keboola.ex-unknown", Phase: "p"},
			{ID: "t-sql", Name: "SQL", ComponentID: "keboola.snowflake-transformation", Phase: "p"},
		},
	}

	diagram := RenderFlowDiagram(flow, testCatalog())

	assert.Contains(t, diagram, "tapp[\"App<br/><small>App • keboola.app-orchestrator</small>\"]")
	assert.Contains(t, diagram, "tother[\"Other<br/><small>Task • keboola.processor-move</small>\"]")
	assert.Contains(t, diagram, "tmissing[\"Missing<br/><small>Component • keboola.ex-unknown</small>\"]")
	assert.Contains(t, diagram, "  class tapp appClass\n")
	assert.Contains(t, diagram, "  class tsql transformClass\n")
	assert.NotContains(t, diagram, "class tother ")
	assert.NotContains(t, diagram, "class tmissing ")
}

func TestRenderFlowDiagram_Empty(t *testing.T) {
	diagram := RenderFlowDiagram(models.FlowConfiguration{}, nil)

	assert.True(t, strings.HasPrefix(diagram, "%%{init:"))
	assert.Contains(t, diagram, "graph TB\n")
	assert.Zero(t, countLines(diagram, nodeLine))
	assert.Zero(t, countLines(diagram, edgeLine))
	assert.NotContains(t, diagram, "subgraph")
}

func TestRenderFlowDiagram_EscapesQuotes(t *testing.T) {
	flow := models.FlowConfiguration{
		Phases: []models.Phase{{ID: "p", Name: `The "raw" layer`}},
		Tasks:  []models.Task{{ID: "t", Name: `Read "orders"`, ComponentID: "keboola.ex-google-sheets", Phase: "p"}},
	}

	diagram := RenderFlowDiagram(flow, testCatalog())

	assert.Contains(t, diagram, `subgraph Phase1["Phase 1: The #quot;raw#quot; layer"]`)
	assert.Contains(t, diagram, `t["Read #quot;orders#quot;<br/>`)
}

func TestNodeID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"task-1", "task1"},
		{"task.1", "task1"},
		{"Task_Extract 2", "TaskExtract2"},
		{"éxtract-ü", "xtract"},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NodeID(tt.input)
			require.Equal(t, tt.want, got)
			assert.Equal(t, got, NodeID(got), "stripping is idempotent")
		})
	}
}

func TestRenderFlowDiagram_DegenerateTaskIDs(t *testing.T) {
	flow := models.FlowConfiguration{
		Phases: []models.Phase{{ID: "p", Name: "All"}},
		Tasks: []models.Task{
			{ID: "--", Name: "A", ComponentID: "keboola.ex-google-sheets", Phase: "p"},
			{ID: "end", Name: "B", ComponentID: "keboola.wr-snowflake", Phase: "p"},
			{ID: "", Name: "C", ComponentID: "x", Phase: "p"},
		},
	}

	diagram := RenderFlowDiagram(flow, testCatalog())

	assert.Contains(t, diagram, "    task1[\"A<br/>")
	assert.Contains(t, diagram, "    task2[\"B<br/>")
	assert.Contains(t, diagram, "    task3[\"C<br/>")
	assert.Contains(t, diagram, "  task1 -->|Data Flow| task2\n")
	assert.Contains(t, diagram, "  task2 -->|Processed Data| task3\n")
	assert.Contains(t, diagram, "  class task2 loadClass\n")
	assert.NotContains(t, diagram, "end[")
	assert.NotContains(t, diagram, "\n  -->")
	assert.NotContains(t, diagram, "\n    [")
	assert.Equal(t, 1, strings.Count(diagram, "\n  end\n"), "only the subgraph is closed")
}

func TestDiagramNodeID(t *testing.T) {
	tests := []struct {
		taskID string
		index  int
		want   string
	}{
		{"task-1", 0, "task1"},
		{"task.1", 5, "task1"},
		{"---", 2, "task3"},
		{"end", 0, "task1"},
		{"END", 3, "task4"},
		{"sub-graph", 1, "task2"},
		{"endpoint", 0, "endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.taskID, func(t *testing.T) {
			assert.Equal(t, tt.want, DiagramNodeID(tt.taskID, tt.index))
		})
	}
}
