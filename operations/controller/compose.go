package controller

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Compose is the subset of a compose file the reconciler understands.
type Compose struct {
	Services map[string]Service  `yaml:"services"`
	Networks map[string]Resource `yaml:"networks"`
	Volumes  map[string]Resource `yaml:"volumes"`
}

type Service struct {
	Image         string   `yaml:"image"`
	ContainerName string   `yaml:"container_name"`
	Environment   []string `yaml:"environment"`
	Ports         []string `yaml:"ports"`
	Volumes       []string `yaml:"volumes"`
	Networks      []string `yaml:"networks"`
}

// Resource is a top-level network or volume entry. Both carry the same keys.
type Resource struct {
	Name     string `yaml:"name,omitempty"`
	Driver   string `yaml:"driver,omitempty"`
	External bool   `yaml:"external,omitempty"`
}

func ParseComposeFile(filePath string) (*Compose, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file %s: %w", filePath, err)
	}
	return ParseCompose(data)
}

func ParseCompose(data []byte) (*Compose, error) {
	var compose Compose
	if err := yaml.Unmarshal(data, &compose); err != nil {
		return nil, fmt.Errorf("failed to unmarshal compose file: %w", err)
	}
	if len(compose.Services) == 0 {
		return nil, fmt.Errorf("compose file defines no services")
	}
	for name, svc := range compose.Services {
		if svc.Image == "" {
			return nil, fmt.Errorf("service %q has no image", name)
		}
	}
	return &compose, nil
}
