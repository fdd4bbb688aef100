package transform

import (
	"encoding/json"

	"github.com/rasnes/covid-etl/dataset"
)

// Observations turns the per-country series into one clean table:
// concatenated, projected, null-filled, without empty rows.
func Observations(series []dataset.CountryObservations) dataset.Table {
	return Normalize(Concat(series))
}

// Concat appends all series country by country, keeping source order, and
// projects every record onto dataset.Columns. A projected column that no
// record carries is left out of the table.
func Concat(series []dataset.CountryObservations) dataset.Table {
	seen := map[string]bool{}
	var rows []dataset.Observation

	for _, s := range series {
		seen[dataset.ColCountryCode] = true
		for _, record := range s.Records {
			for key := range record {
				seen[key] = true
			}
			rows = append(rows, observationFromRecord(s.CountryCode, record))
		}
	}

	columns := make([]string, 0, len(dataset.Columns))
	for _, col := range dataset.Columns {
		if seen[col] {
			columns = append(columns, col)
		}
	}

	return dataset.Table{Columns: columns, Rows: rows}
}

// Normalize drops rows that carry no data at all and replaces every missing
// numeric value with zero, whether or not its column appears in the table.
// Running it on its own output returns the same table.
func Normalize(t dataset.Table) dataset.Table {
	rows := make([]dataset.Observation, 0, len(t.Rows))
	for _, row := range t.Rows {
		if isEmpty(row) {
			continue
		}
		row.TotalCases = zeroIfNil(row.TotalCases)
		row.NewCases = zeroIfNil(row.NewCases)
		row.TotalDeaths = zeroIfNil(row.TotalDeaths)
		row.NewDeaths = zeroIfNil(row.NewDeaths)
		rows = append(rows, row)
	}

	columns := make([]string, len(t.Columns))
	copy(columns, t.Columns)
	return dataset.Table{Columns: columns, Rows: rows}
}

// isEmpty reports whether a row has neither a date nor any numeric value.
// The country code is added by the extractor and does not count as data.
func isEmpty(row dataset.Observation) bool {
	return row.Date == nil &&
		row.TotalCases == nil &&
		row.NewCases == nil &&
		row.TotalDeaths == nil &&
		row.NewDeaths == nil
}

func observationFromRecord(countryCode string, record map[string]any) dataset.Observation {
	obs := dataset.Observation{
		CountryCode: countryCode,
		TotalCases:  toFloat(record[dataset.ColTotalCases]),
		NewCases:    toFloat(record[dataset.ColNewCases]),
		TotalDeaths: toFloat(record[dataset.ColTotalDeaths]),
		NewDeaths:   toFloat(record[dataset.ColNewDeaths]),
	}
	if date, ok := record[dataset.ColDate].(string); ok {
		obs.Date = &date
	}
	return obs
}

// toFloat converts a decoded JSON value to a number. Anything that is not a
// number counts as missing.
func toFloat(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func zeroIfNil(v *float64) *float64 {
	if v != nil {
		return v
	}
	zero := 0.0
	return &zero
}
