package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/duckdb/duckdb-go/v2"

	"barrio-etl/internal/frame"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.duckdb"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDefs() (TableDef, TableDef) {
	dim := TableDef{Name: "neighborhoods", Columns: []ColumnDef{
		{Name: "barrio_id", Type: "BIGINT"},
		{Name: "name", Type: "VARCHAR"},
	}}
	fact := TableDef{Name: "prices_sale", Columns: []ColumnDef{
		{Name: "barrio_id", Type: "BIGINT"},
		{Name: "price_eur_m2", Type: "DOUBLE"},
	}}
	return dim, fact
}

func dimFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New("barrio_id", "name")
	require.NoError(t, err)
	require.NoError(t, f.AppendRow(int64(1), "Raval"))
	require.NoError(t, f.AppendRow(int64(2), "Gòtic"))
	return f
}

func priceFrame(t *testing.T, rows int) *frame.Frame {
	t.Helper()
	f, err := frame.New("barrio_id", "price_eur_m2")
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		require.NoError(t, f.AppendRow(int64(i%2+1), 4000.0+float64(i)))
	}
	return f
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	dim, fact := testDefs()

	require.NoError(t, s.EnsureSchema(ctx, []TableDef{dim, fact}))
	require.NoError(t, s.EnsureSchema(ctx, []TableDef{dim, fact}))

	n, err := s.CountRows(ctx, "neighborhoods")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplace_LoadsDimensionAndFacts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	dim, fact := testDefs()
	require.NoError(t, s.EnsureSchema(ctx, []TableDef{dim, fact}))

	counts, err := s.Replace(ctx,
		Load{Def: dim, Frame: dimFrame(t)},
		[]Load{{Def: fact, Frame: priceFrame(t, 4)}},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["neighborhoods"])
	assert.Equal(t, 4, counts["prices_sale"])

	n, err := s.CountRows(ctx, "prices_sale")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestReplace_RerunFullyReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	dim, fact := testDefs()
	require.NoError(t, s.EnsureSchema(ctx, []TableDef{dim, fact}))

	_, err := s.Replace(ctx, Load{Def: dim, Frame: dimFrame(t)}, []Load{{Def: fact, Frame: priceFrame(t, 10)}})
	require.NoError(t, err)

	// Second run with fewer rows must not accumulate.
	counts, err := s.Replace(ctx, Load{Def: dim, Frame: dimFrame(t)}, []Load{{Def: fact, Frame: priceFrame(t, 3)}})
	require.NoError(t, err)
	assert.Equal(t, 3, counts["prices_sale"])

	n, err := s.CountRows(ctx, "prices_sale")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestReplace_AbsentFactTruncatesStaleRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	dim, fact := testDefs()
	require.NoError(t, s.EnsureSchema(ctx, []TableDef{dim, fact}))

	_, err := s.Replace(ctx, Load{Def: dim, Frame: dimFrame(t)}, []Load{{Def: fact, Frame: priceFrame(t, 5)}})
	require.NoError(t, err)

	counts, err := s.Replace(ctx, Load{Def: dim, Frame: dimFrame(t)}, []Load{{Def: fact, Frame: nil}})
	require.NoError(t, err)
	assert.Equal(t, 0, counts["prices_sale"])

	n, err := s.CountRows(ctx, "prices_sale")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplace_MissingFrameColumnFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	dim, fact := testDefs()
	require.NoError(t, s.EnsureSchema(ctx, []TableDef{dim, fact}))

	wrong, err := frame.New("barrio_id", "unexpected")
	require.NoError(t, err)
	require.NoError(t, wrong.AppendRow(int64(1), "x"))

	_, err = s.Replace(ctx, Load{Def: dim, Frame: dimFrame(t)}, []Load{{Def: fact, Frame: wrong}})
	require.Error(t, err)
}

func TestCreateTableStmt_RejectsUnsafeIdentifiers(t *testing.T) {
	_, err := createTableStmt(TableDef{Name: "drop;table", Columns: []ColumnDef{{Name: "a", Type: "BIGINT"}}})
	require.Error(t, err)

	_, err = createTableStmt(TableDef{Name: "ok", Columns: []ColumnDef{{Name: "a", Type: "BIGINT; DROP"}}})
	require.Error(t, err)

	_, err = createTableStmt(TableDef{Name: "ok", Columns: nil})
	require.Error(t, err)
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("prices_sale"))
	assert.NoError(t, ValidateIdentifier("_private"))
	assert.Error(t, ValidateIdentifier(""))
	assert.Error(t, ValidateIdentifier("1table"))
	assert.Error(t, ValidateIdentifier(`a"b`))
}
