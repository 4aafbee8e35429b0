package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// environmentsFile is the YAML shape of the environments section of the
// config file. Other sections of the same file are ignored here.
type environmentsFile struct {
	Environments Environments `yaml:"environments"`
}

// LoadYAMLEnvironments reads per-environment policies from a YAML file.
func LoadYAMLEnvironments(path string) (Environments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadYAMLEnvironments: %w", err)
	}
	var f environmentsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("LoadYAMLEnvironments: %w", err)
	}
	return f.Environments, nil
}
