// Package transform holds the per-dataset transformation collaborators the
// orchestrator calls between file resolution and validation. The orchestrator
// treats them as opaque: raw tabular frame in, normalized frame with a fixed
// column set out. The reference normalizers here are intentionally thin and
// replaceable — upstream adapters own the real extraction semantics.
package transform

import (
	"time"

	"barrio-etl/internal/domain"
	"barrio-etl/internal/frame"
	"barrio-etl/internal/store"
)

// Meta carries dataset metadata into a transform invocation.
type Meta struct {
	Dataset      string
	ResolvedPath string
	LoadedAt     time.Time
}

// Func is the collaborator contract: normalize one raw extract.
type Func func(raw *frame.Frame, meta Meta) (*frame.Frame, error)

// Entry binds a transform to the fixed column set its output carries.
type Entry struct {
	Func    Func
	Columns []store.ColumnDef
}

// Registry maps dataset names to transform entries.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry returns a registry pre-populated with the reference
// normalizers for every built-in dataset.
func NewRegistry() *Registry {
	r := &Registry{entries: map[string]Entry{}}

	r.Register("neighborhoods", Entry{
		Func: NormalizeNeighborhoods,
		Columns: []store.ColumnDef{
			{Name: "barrio_id", Type: "BIGINT"},
			{Name: "name", Type: "VARCHAR"},
			{Name: "district", Type: "VARCHAR"},
		},
	})
	r.Register("prices-sale", Entry{
		Func: NormalizePrices,
		Columns: []store.ColumnDef{
			{Name: "barrio_id", Type: "BIGINT"},
			{Name: "price_eur_m2", Type: "DOUBLE"},
			{Name: "period", Type: "VARCHAR"},
		},
	})
	r.Register("prices-rent", Entry{
		Func: NormalizePrices,
		Columns: []store.ColumnDef{
			{Name: "barrio_id", Type: "BIGINT"},
			{Name: "price_eur_m2", Type: "DOUBLE"},
			{Name: "period", Type: "VARCHAR"},
		},
	})
	r.Register("demographics", Entry{
		Func: NormalizeDemographics,
		Columns: []store.ColumnDef{
			{Name: "barrio_id", Type: "BIGINT"},
			{Name: "population", Type: "BIGINT"},
			{Name: "year", Type: "BIGINT"},
		},
	})
	r.Register("income", Entry{
		Func: NormalizeIncome,
		Columns: []store.ColumnDef{
			{Name: "barrio_id", Type: "BIGINT"},
			{Name: "avg_income_eur", Type: "DOUBLE"},
			{Name: "year", Type: "BIGINT"},
		},
	})
	r.Register("geometries", Entry{
		Func: NormalizeGeometries,
		Columns: []store.ColumnDef{
			{Name: "barrio_id", Type: "BIGINT"},
			{Name: "wkt", Type: "VARCHAR"},
		},
	})

	return r
}

// Register adds or replaces the transform entry for a dataset.
func (r *Registry) Register(dataset string, e Entry) {
	r.entries[dataset] = e
}

// Get returns the transform entry for a dataset.
func (r *Registry) Get(dataset string) (Entry, error) {
	e, ok := r.entries[dataset]
	if !ok {
		return Entry{}, domain.ErrNotFound("no transform registered for dataset %q", dataset)
	}
	return e, nil
}
