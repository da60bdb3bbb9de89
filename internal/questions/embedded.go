package questions

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"quiz-rush-service/internal/domain"
)

//go:embed catalogs/*.yaml
var catalogFS embed.FS

// DefaultCatalogs returns the bundled flags, capitals and badges catalogs.
func DefaultCatalogs() (map[domain.GameType]domain.Catalog, error) {
	entries, err := catalogFS.ReadDir("catalogs")
	if err != nil {
		return nil, err
	}
	out := make(map[domain.GameType]domain.Catalog, len(entries))
	for _, entry := range entries {
		data, err := catalogFS.ReadFile("catalogs/" + entry.Name())
		if err != nil {
			return nil, err
		}
		var catalog domain.Catalog
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		out[catalog.GameType] = catalog
	}
	return out, nil
}
