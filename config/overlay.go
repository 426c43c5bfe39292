package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overlayFile is the on-disk shape of a workflow overlay:
//
//	workflow:
//	  max_summary_chars: 300
//	  doc_max_selected: 3
//	  extra_keywords: [予算, roadmap]
type overlayFile struct {
	Workflow *WorkflowConfig `yaml:"workflow"`
}

// LoadOverlay applies the workflow section of a YAML file on top of s.
// Fields absent from the file keep their current values.
func LoadOverlay(s Settings, path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decode into a copy of the current settings so omitted keys survive.
	current := s.Workflow
	file := overlayFile{Workflow: &current}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return s, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := current.Validate(); err != nil {
		return s, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	s.Workflow = current
	return s, nil
}
