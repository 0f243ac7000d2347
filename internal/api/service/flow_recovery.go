package service

import (
	"encoding/json"
	"kbc/internal/api/models"
	"kbc/pkg"
)

const diagnosticTailLength = 500

// RecoverFlowConfig turns raw generation text into a typed configuration:
// fences are stripped, the repairer gets one chance to fix the text, then the
// result is parsed and checked for the required top-level fields.
func RecoverFlowConfig(raw string, repairer pkg.JSONRepairer) (*models.GeneratedFlowConfig, error) {
	cleaned := pkg.StripCodeFences(raw)

	repaired, err := repairer.Repair(cleaned)
	if err != nil {
		return nil, err
	}

	var cfg models.GeneratedFlowConfig
	if err := json.Unmarshal([]byte(repaired), &cfg); err != nil {
		return nil, &ResponseParseError{Tail: tail(raw, diagnosticTailLength), Err: err}
	}

	if missing := missingFields(cfg); len(missing) > 0 {
		return nil, &InvalidStructureError{Missing: missing}
	}
	return &cfg, nil
}

func missingFields(cfg models.GeneratedFlowConfig) []string {
	var missing []string
	if cfg.Name == "" {
		missing = append(missing, "name")
	}
	if cfg.Description == "" {
		missing = append(missing, "description")
	}
	if cfg.Phases == nil {
		missing = append(missing, "phases")
	}
	if cfg.Tasks == nil {
		missing = append(missing, "tasks")
	}
	return missing
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
