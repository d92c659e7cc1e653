package artifact

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is optional metadata shipped next to a model artifact.
type Manifest struct {
	ModelVersion     string     `yaml:"model_version"`
	IdentifierColumn string     `yaml:"identifier_column"`
	Features         []string   `yaml:"features"`
	Labels           LabelNames `yaml:"labels"`
	Notes            string     `yaml:"notes,omitempty"`
}

// LabelNames are the display names of the two classes.
type LabelNames struct {
	Positive string `yaml:"positive"`
	Negative string `yaml:"negative"`
}

// DefaultLabelNames are used when no manifest overrides them.
var DefaultLabelNames = LabelNames{Positive: "Churn", Negative: "Not Churn"}

// Name returns the display name for a predicted class.
func (l LabelNames) Name(class int) string {
	if class == 1 {
		return l.Positive
	}
	return l.Negative
}

// LoadManifest reads a YAML manifest. Empty label names fall back to the
// defaults.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.Labels.Positive == "" {
		m.Labels.Positive = DefaultLabelNames.Positive
	}
	if m.Labels.Negative == "" {
		m.Labels.Negative = DefaultLabelNames.Negative
	}
	return &m, nil
}
