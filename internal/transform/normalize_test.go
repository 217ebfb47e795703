package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barrio-etl/internal/domain"
	"barrio-etl/internal/frame"
)

func rawFrame(t *testing.T, cols []string, rows ...[]any) *frame.Frame {
	t.Helper()
	f, err := frame.New(cols...)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, f.AppendRow(r...))
	}
	return f
}

func TestNormalizeNeighborhoods_CatalanHeaders(t *testing.T) {
	raw := rawFrame(t,
		[]string{"codi_barri", "nom_barri", "nom_districte"},
		[]any{"1", "  el Raval ", "Ciutat Vella"},
		[]any{"2", "el Gòtic", "Ciutat Vella"},
	)

	out, err := NormalizeNeighborhoods(raw, Meta{Dataset: "neighborhoods"})
	require.NoError(t, err)

	assert.Equal(t, []string{"barrio_id", "name", "district"}, out.Columns())
	require.Equal(t, 2, out.NumRows())

	id, err := out.At(0, "barrio_id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	name, err := out.At(0, "name")
	require.NoError(t, err)
	assert.Equal(t, "el Raval", name)
}

func TestNormalizePrices_CommaDecimalAndEnglishHeaders(t *testing.T) {
	raw := rawFrame(t,
		[]string{"barrio_id", "precio_m2", "periodo"},
		[]any{"1", "4123,50", "2024-Q1"},
		[]any{"2", "", "2024-Q1"},
	)

	out, err := NormalizePrices(raw, Meta{Dataset: "prices-sale"})
	require.NoError(t, err)

	price, err := out.At(0, "price_eur_m2")
	require.NoError(t, err)
	assert.Equal(t, 4123.50, price)

	// Blank price coerces to nil rather than aborting the run.
	price, err = out.At(1, "price_eur_m2")
	require.NoError(t, err)
	assert.Nil(t, price)
}

func TestNormalizeDemographics_IntCoercion(t *testing.T) {
	raw := rawFrame(t,
		[]string{"codi_barri", "poblacio", "any"},
		[]any{"3", "15042", "2023"},
		[]any{"4", "not-a-number", "2023"},
	)

	out, err := NormalizeDemographics(raw, Meta{Dataset: "demographics"})
	require.NoError(t, err)

	pop, err := out.At(0, "population")
	require.NoError(t, err)
	assert.Equal(t, int64(15042), pop)

	pop, err = out.At(1, "population")
	require.NoError(t, err)
	assert.Nil(t, pop)
}

func TestNormalize_UnparseableKeyPassesThrough(t *testing.T) {
	raw := rawFrame(t,
		[]string{"barrio_id", "wkt"},
		[]any{"??", "POINT(2.17 41.38)"},
	)

	out, err := NormalizeGeometries(raw, Meta{Dataset: "geometries"})
	require.NoError(t, err)

	// Bad keys survive the transform so the FK validator reports them.
	key, err := out.At(0, "barrio_id")
	require.NoError(t, err)
	assert.Equal(t, "??", key)
}

func TestNormalize_MissingSourceColumn(t *testing.T) {
	raw := rawFrame(t, []string{"barrio_id", "unrelated"}, []any{"1", "x"})

	_, err := NormalizeIncome(raw, Meta{Dataset: "income"})
	require.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "income")
}

func TestRegistry_KnownAndUnknownDatasets(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{"neighborhoods", "prices-sale", "prices-rent", "demographics", "income", "geometries"} {
		entry, err := reg.Get(name)
		require.NoError(t, err, "missing entry for %s", name)
		assert.NotNil(t, entry.Func)
		assert.NotEmpty(t, entry.Columns)
	}

	_, err := reg.Get("unknown-dataset")
	require.Error(t, err)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRegistry_EntriesMatchNormalizedColumns(t *testing.T) {
	reg := NewRegistry()

	raw := rawFrame(t,
		[]string{"barrio_id", "price_eur_m2", "period"},
		[]any{"1", "3999.0", "2024-Q2"},
	)

	entry, err := reg.Get("prices-rent")
	require.NoError(t, err)

	out, err := entry.Func(raw, Meta{Dataset: "prices-rent"})
	require.NoError(t, err)
	for _, col := range entry.Columns {
		assert.True(t, out.HasColumn(col.Name), "normalized frame missing %s", col.Name)
	}
}
