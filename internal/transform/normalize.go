package transform

import (
	"strconv"
	"strings"

	"barrio-etl/internal/domain"
	"barrio-etl/internal/frame"
)

// Column aliases accepted from the upstream extracts. The adapters have
// drifted over time (Catalan open-data headers vs. the newer English ones),
// so each normalized column picks the first alias present in the raw frame.
var (
	barrioIDAliases   = []string{"barrio_id", "codi_barri", "id_barrio"}
	nameAliases       = []string{"name", "nombre", "nom_barri"}
	districtAliases   = []string{"district", "distrito", "nom_districte"}
	priceAliases      = []string{"price_eur_m2", "precio_m2", "price"}
	periodAliases     = []string{"period", "periodo", "data"}
	populationAliases = []string{"population", "poblacion", "poblacio"}
	yearAliases       = []string{"year", "anio", "any"}
	incomeAliases     = []string{"avg_income_eur", "renta_media", "import_euros"}
	wktAliases        = []string{"wkt", "geometria_wkt", "geometry"}
)

// NormalizeNeighborhoods produces the dimension frame:
// barrio_id, name, district.
func NormalizeNeighborhoods(raw *frame.Frame, meta Meta) (*frame.Frame, error) {
	return project(raw, meta, []mapping{
		{out: "barrio_id", aliases: barrioIDAliases, coerce: coerceKey},
		{out: "name", aliases: nameAliases, coerce: coerceString},
		{out: "district", aliases: districtAliases, coerce: coerceString},
	})
}

// NormalizePrices produces a price fact frame:
// barrio_id, price_eur_m2, period. Used for both sale and rent extracts.
func NormalizePrices(raw *frame.Frame, meta Meta) (*frame.Frame, error) {
	return project(raw, meta, []mapping{
		{out: "barrio_id", aliases: barrioIDAliases, coerce: coerceKey},
		{out: "price_eur_m2", aliases: priceAliases, coerce: coerceFloat},
		{out: "period", aliases: periodAliases, coerce: coerceString},
	})
}

// NormalizeDemographics produces: barrio_id, population, year.
func NormalizeDemographics(raw *frame.Frame, meta Meta) (*frame.Frame, error) {
	return project(raw, meta, []mapping{
		{out: "barrio_id", aliases: barrioIDAliases, coerce: coerceKey},
		{out: "population", aliases: populationAliases, coerce: coerceInt},
		{out: "year", aliases: yearAliases, coerce: coerceInt},
	})
}

// NormalizeIncome produces: barrio_id, avg_income_eur, year.
func NormalizeIncome(raw *frame.Frame, meta Meta) (*frame.Frame, error) {
	return project(raw, meta, []mapping{
		{out: "barrio_id", aliases: barrioIDAliases, coerce: coerceKey},
		{out: "avg_income_eur", aliases: incomeAliases, coerce: coerceFloat},
		{out: "year", aliases: yearAliases, coerce: coerceInt},
	})
}

// NormalizeGeometries produces: barrio_id, wkt.
func NormalizeGeometries(raw *frame.Frame, meta Meta) (*frame.Frame, error) {
	return project(raw, meta, []mapping{
		{out: "barrio_id", aliases: barrioIDAliases, coerce: coerceKey},
		{out: "wkt", aliases: wktAliases, coerce: coerceString},
	})
}

// mapping describes one normalized output column.
type mapping struct {
	out     string
	aliases []string
	coerce  func(any) any
}

// project builds the normalized frame by selecting and coercing the mapped
// columns. A missing source column is a contract violation: the extract does
// not match what the adapter promised.
func project(raw *frame.Frame, meta Meta, mappings []mapping) (*frame.Frame, error) {
	sources := make([]string, len(mappings))
	outCols := make([]string, len(mappings))
	for i, m := range mappings {
		src, ok := pickColumn(raw, m.aliases)
		if !ok {
			return nil, domain.ErrValidation("dataset %q: extract has none of the expected columns %v",
				meta.Dataset, m.aliases)
		}
		sources[i] = src
		outCols[i] = m.out
	}

	out, err := frame.New(outCols...)
	if err != nil {
		return nil, err
	}
	for row := 0; row < raw.NumRows(); row++ {
		values := make([]any, len(mappings))
		for i, m := range mappings {
			v, err := raw.At(row, sources[i])
			if err != nil {
				return nil, err
			}
			values[i] = m.coerce(v)
		}
		if err := out.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func pickColumn(f *frame.Frame, aliases []string) (string, bool) {
	for _, a := range aliases {
		if f.HasColumn(a) {
			return a, true
		}
	}
	return "", false
}

// coerceKey parses an integer key; unparseable values pass through unchanged
// so the referential-integrity validator counts them as invalid rather than
// the transform aborting the run.
func coerceKey(v any) any {
	if k, ok := frame.AsInt64(v); ok {
		return k
	}
	return v
}

func coerceInt(v any) any {
	if n, ok := frame.AsInt64(v); ok {
		return n
	}
	return nil
}

func coerceFloat(v any) any {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, ",", "."))
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return nil
	default:
		return nil
	}
}

func coerceString(v any) any {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case nil:
		return nil
	default:
		return v
	}
}
