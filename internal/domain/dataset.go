package domain

// Dataset roles within the star schema.
const (
	DatasetRoleDimension = "dimension"
	DatasetRoleFact      = "fact"
)

// DatasetSpec declares one logical dataset the pipeline integrates: how to
// find its raw extract, whether a run can proceed without it, and where the
// normalized rows land.
type DatasetSpec struct {
	Name        string `yaml:"name"`
	LogicalType string `yaml:"logical_type"`
	Source      string `yaml:"source,omitempty"` // optional manifest source filter
	GlobPattern string `yaml:"glob_pattern"`     // filesystem fallback when no manifest entry matches
	Required    bool   `yaml:"required"`
	Role        string `yaml:"role"` // dimension | fact
	Table       string `yaml:"table"`
	FKColumn    string `yaml:"fk_column,omitempty"`  // fact datasets only
	KeyColumn   string `yaml:"key_column,omitempty"` // dimension dataset only
}

// Validate checks that the dataset declaration is well-formed.
func (d *DatasetSpec) Validate() error {
	if d.Name == "" {
		return ErrValidation("dataset name is required")
	}
	if d.LogicalType == "" {
		return ErrValidation("dataset %q: logical_type is required", d.Name)
	}
	if d.Table == "" {
		return ErrValidation("dataset %q: table is required", d.Name)
	}
	switch d.Role {
	case DatasetRoleDimension:
		if d.FKColumn != "" {
			return ErrValidation("dataset %q: dimension datasets take no fk_column", d.Name)
		}
		if d.KeyColumn == "" {
			return ErrValidation("dataset %q: dimension datasets require key_column", d.Name)
		}
	case DatasetRoleFact:
		if d.FKColumn == "" {
			return ErrValidation("dataset %q: fact datasets require fk_column", d.Name)
		}
		if d.KeyColumn != "" {
			return ErrValidation("dataset %q: fact datasets take no key_column", d.Name)
		}
	default:
		return ErrValidation("dataset %q: role must be %q or %q", d.Name, DatasetRoleDimension, DatasetRoleFact)
	}
	return nil
}
