// Package seed holds the destinations bundled with the application.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/msomdec/travelupa/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed destinations.yaml
var defaultFile []byte

type file struct {
	Destinations []entry `yaml:"destinations"`
}

type entry struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	ImageURL      string `yaml:"imageUrl"`
	ImageResource string `yaml:"imageResource"`
}

// Default returns the bundled destinations.
func Default() ([]domain.DestinationRecord, error) {
	return Parse(defaultFile)
}

// LoadFile reads destinations from a YAML file on disk.
func LoadFile(path string) ([]domain.DestinationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document and validates each destination.
func Parse(data []byte) ([]domain.DestinationRecord, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse seed: %v", domain.ErrInvalidInput, err)
	}

	records := make([]domain.DestinationRecord, 0, len(f.Destinations))
	for i, e := range f.Destinations {
		rec := domain.DestinationRecord{
			Name:          e.Name,
			Description:   e.Description,
			ImageURL:      e.ImageURL,
			ImageResource: e.ImageResource,
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("destination %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
