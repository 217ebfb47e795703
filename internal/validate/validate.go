// Package validate checks fact frames against the canonical dimension
// before anything is persisted. It is a shared primitive: each call site
// picks the failure policy matching its risk profile rather than the
// validator hardcoding one.
package validate

import (
	"barrio-etl/internal/domain"
	"barrio-etl/internal/frame"
)

// Strategy selects what happens to rows whose foreign key is absent from
// the dimension.
type Strategy string

const (
	// StrategyFilter drops invalid rows and reports them. The default.
	StrategyFilter Strategy = "filter"
	// StrategyStrict fails the validation on the first invalid row.
	StrategyStrict Strategy = "strict"
	// StrategyWarn keeps invalid rows and reports them.
	StrategyWarn Strategy = "warn"
)

// ParseStrategy maps a config string to a Strategy. Empty means filter.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return StrategyFilter, nil
	case StrategyFilter, StrategyStrict, StrategyWarn:
		return Strategy(s), nil
	default:
		return "", domain.ErrValidation("unknown FK validation strategy %q (want filter, strict, or warn)", s)
	}
}

// Result reports the outcome of validating one fact frame. It is derived
// data, immutable once computed.
type Result struct {
	TableName      string
	FKColumn       string
	TotalRecords   int
	ValidRecords   int
	InvalidRecords int
	InvalidKeys    map[int64]struct{}
}

// IsValid reports whether every row referenced an existing dimension key.
func (r *Result) IsValid() bool { return r.InvalidRecords == 0 }

// PctInvalid returns the invalid-row percentage; 0 for an empty frame.
func (r *Result) PctInvalid() float64 {
	if r.TotalRecords == 0 {
		return 0
	}
	return float64(r.InvalidRecords) / float64(r.TotalRecords) * 100
}

// FactTable names one fact frame for batch validation. A nil Frame passes
// through untouched (the dataset was optional and absent this run).
type FactTable struct {
	Name     string
	FKColumn string
	Frame    *frame.Frame
}

// ForeignKeys verifies that df's foreign-key column contains only values
// present in ref's primary-key column, applying the given strategy.
//
// A missing fkColumn or pkColumn is an input-contract violation and returns
// a *domain.ValidationError — the caller passed the wrong column name, which
// is a programming defect, not a data-quality event. Under strict, any
// invalid row returns a *domain.FKValidationError and no output frame.
func ForeignKeys(df *frame.Frame, fkColumn string, ref *frame.Frame, pkColumn, tableName string, strategy Strategy) (*frame.Frame, *Result, error) {
	if !df.HasColumn(fkColumn) {
		return nil, nil, domain.ErrValidation("column %q does not exist in table %q", fkColumn, tableName)
	}
	if !ref.HasColumn(pkColumn) {
		return nil, nil, domain.ErrValidation("column %q does not exist in reference frame", pkColumn)
	}

	result := &Result{
		TableName:    tableName,
		FKColumn:     fkColumn,
		TotalRecords: df.NumRows(),
		InvalidKeys:  map[int64]struct{}{},
	}

	// Empty frame: trivially valid under every strategy.
	if df.Empty() {
		result.ValidRecords = 0
		return df, result, nil
	}

	pkValues, err := ref.Values(pkColumn)
	if err != nil {
		return nil, nil, err
	}
	known := make(map[int64]struct{}, len(pkValues))
	for _, v := range pkValues {
		if k, ok := frame.AsInt64(v); ok {
			known[k] = struct{}{}
		}
	}

	fkValues, err := df.Values(fkColumn)
	if err != nil {
		return nil, nil, err
	}

	// A row is invalid when its FK value is absent from the dimension key
	// set; unparseable keys count as invalid too. Each row is counted once.
	rowValid := make([]bool, len(fkValues))
	for i, v := range fkValues {
		k, ok := frame.AsInt64(v)
		if !ok {
			rowValid[i] = false
			result.InvalidRecords++
			continue
		}
		if _, exists := known[k]; exists {
			rowValid[i] = true
			continue
		}
		rowValid[i] = false
		result.InvalidRecords++
		result.InvalidKeys[k] = struct{}{}
	}
	result.ValidRecords = result.TotalRecords - result.InvalidRecords

	switch strategy {
	case StrategyStrict:
		if result.InvalidRecords > 0 {
			return nil, nil, domain.NewFKValidationError(tableName, result.InvalidKeys, result.InvalidRecords)
		}
		return df, result, nil
	case StrategyWarn:
		return df, result, nil
	case StrategyFilter, "":
		out := df.FilterRows(func(row int) bool { return rowValid[row] })
		return out, result, nil
	default:
		return nil, nil, domain.ErrValidation("unknown FK validation strategy %q", strategy)
	}
}

// AllFactTables validates every supplied fact frame against the dimension
// frame. Outputs keep the input order; nil frames pass through as nil
// without producing a Result. The aggregate holds only computed results.
func AllFactTables(ref *frame.Frame, pkColumn string, tables []FactTable, strategy Strategy) ([]*frame.Frame, []*Result, error) {
	outputs := make([]*frame.Frame, len(tables))
	results := make([]*Result, 0, len(tables))

	for i, t := range tables {
		if t.Frame == nil {
			outputs[i] = nil
			continue
		}
		out, res, err := ForeignKeys(t.Frame, t.FKColumn, ref, pkColumn, t.Name, strategy)
		if err != nil {
			return nil, nil, err
		}
		outputs[i] = out
		results = append(results, res)
	}
	return outputs, results, nil
}
