package service

import (
	"fmt"
	"kbc/internal/api/models"
)

const phaseCycleWarning = "Phase dependencies contain a cycle; the flow cannot be ordered for execution"

// ValidateComponentReferences returns one warning per task whose component is
// not in the catalog, in task order.
func ValidateComponentReferences(tasks []models.Task, catalog []models.Component) []string {
	available := make(map[string]bool, len(catalog))
	for _, c := range catalog {
		available[c.ID] = true
	}

	var warnings []string
	for _, task := range tasks {
		if !available[task.ComponentID] {
			warnings = append(warnings, fmt.Sprintf(
				"Component %q used in task %q is not available in this project", task.ComponentID, task.Name))
		}
	}
	return warnings
}

// DetectPhaseCycle reports whether dependsOn edges between phases form a
// cycle. References to unknown phases are ignored.
func DetectPhaseCycle(phases []models.Phase) bool {
	inDegree := make(map[string]int, len(phases))
	for _, p := range phases {
		inDegree[p.ID] = 0
	}

	dependents := make(map[string][]string)
	for _, p := range phases {
		for _, dep := range p.DependsOn {
			if _, ok := inDegree[dep]; !ok {
				continue
			}
			dependents[dep] = append(dependents[dep], p.ID)
			inDegree[p.ID]++
		}
	}

	queue := make([]string, 0, len(inDegree))
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++

		for _, next := range dependents[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	return visited < len(inDegree)
}
