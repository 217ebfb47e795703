package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"barrio-etl/internal/domain"
)

// datasetCatalog is the YAML document shape for dataset definitions.
type datasetCatalog struct {
	Datasets []domain.DatasetSpec `yaml:"datasets"`
}

// DefaultDatasets is the built-in catalog: the canonical neighborhood
// dimension plus the fact extracts the upstream adapters produce. A YAML
// file (DATASETS_FILE) replaces it wholesale.
func DefaultDatasets() []domain.DatasetSpec {
	return []domain.DatasetSpec{
		{
			Name:        "neighborhoods",
			LogicalType: "neighborhoods",
			Source:      "opendata-bcn",
			GlobPattern: "neighborhoods_*.csv",
			Required:    true,
			Role:        domain.DatasetRoleDimension,
			Table:       "neighborhoods",
			KeyColumn:   "barrio_id",
		},
		{
			Name:        "prices-sale",
			LogicalType: "prices-sale",
			Source:      "idealista",
			GlobPattern: "prices_sale_*.csv",
			Required:    true,
			Role:        domain.DatasetRoleFact,
			Table:       "prices_sale",
			FKColumn:    "barrio_id",
		},
		{
			Name:        "prices-rent",
			LogicalType: "prices-rent",
			Source:      "idealista",
			GlobPattern: "prices_rent_*.csv",
			Required:    false,
			Role:        domain.DatasetRoleFact,
			Table:       "prices_rent",
			FKColumn:    "barrio_id",
		},
		{
			Name:        "demographics",
			LogicalType: "demographics",
			Source:      "opendata-bcn",
			GlobPattern: "demographics_*.csv",
			Required:    true,
			Role:        domain.DatasetRoleFact,
			Table:       "demographics",
			FKColumn:    "barrio_id",
		},
		{
			Name:        "income",
			LogicalType: "income",
			Source:      "ine",
			GlobPattern: "income_*.csv",
			Required:    false,
			Role:        domain.DatasetRoleFact,
			Table:       "income",
			FKColumn:    "barrio_id",
		},
		{
			Name:        "geometries",
			LogicalType: "geometries",
			Source:      "opendata-bcn",
			GlobPattern: "geometries_*.csv",
			Required:    false,
			Role:        domain.DatasetRoleFact,
			Table:       "geometries",
			FKColumn:    "barrio_id",
		},
	}
}

// LoadDatasets returns the dataset catalog: the YAML file when path is
// non-empty, the built-in catalog otherwise. Exactly one dimension dataset
// must be present.
func LoadDatasets(path string) ([]domain.DatasetSpec, error) {
	specs := DefaultDatasets()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
		if err != nil {
			return nil, fmt.Errorf("read datasets file %s: %w", path, err)
		}
		var cat datasetCatalog
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("parse datasets file %s: %w", path, err)
		}
		specs = cat.Datasets
	}

	dimensions := 0
	for i := range specs {
		if err := specs[i].Validate(); err != nil {
			return nil, err
		}
		if specs[i].Role == domain.DatasetRoleDimension {
			dimensions++
		}
	}
	if dimensions != 1 {
		return nil, domain.ErrValidation("dataset catalog must declare exactly one dimension dataset, got %d", dimensions)
	}
	return specs, nil
}
