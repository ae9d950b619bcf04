package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// SeedObjects returns the built-in starter catalog, a bright-object subset
// used on first run and in tests until a full catalog is imported.
func SeedObjects() ([]Object, error) {
	var objects []Object
	if err := yaml.Unmarshal(seedYAML, &objects); err != nil {
		return nil, fmt.Errorf("parse embedded catalog: %w", err)
	}
	return objects, nil
}

// SeedDefault loads the built-in catalog into the store.
func (s *Store) SeedDefault() error {
	objects, err := SeedObjects()
	if err != nil {
		return err
	}
	return s.Seed(objects)
}
