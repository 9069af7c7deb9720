package catalog

import (
	"fmt"
	"os"

	"Mirror_Rank_Go/pkg/model"

	"gopkg.in/yaml.v3"
)

// regionEntry is one region block of mirrors.yaml.
type regionEntry struct {
	Name string   `yaml:"name"`
	URLs []string `yaml:"urls"`
}

type catalogFile struct {
	Regions []regionEntry `yaml:"regions"`
}

// Load reads the mirror catalog and flattens it to a list of endpoints.
// File order is preserved: it is the tie-break order when two mirrors
// measure the same speed.
func Load(path string) ([]model.Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse mirror catalog '%s': %w", path, err)
	}

	var endpoints []model.Endpoint
	for _, region := range cf.Regions {
		for _, u := range region.URLs {
			if u == "" {
				continue
			}
			endpoints = append(endpoints, model.Endpoint{URL: u, Region: region.Name})
		}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("mirror catalog '%s' contains no mirrors", path)
	}
	return endpoints, nil
}
