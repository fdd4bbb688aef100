package transform

import (
	"testing"

	"github.com/rasnes/covid-etl/config"
	"github.com/rasnes/covid-etl/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func s(v string) *string { return &v }

func TestObservations(t *testing.T) {
	tests := []struct {
		name   string
		series []dataset.CountryObservations
		want   dataset.Table
	}{
		{
			name: "fills missing numerics with zero",
			series: []dataset.CountryObservations{
				{CountryCode: "COL", Records: []map[string]any{
					{"date": "2021-01-01", "total_cases": 10.0, "new_cases": nil, "total_deaths": nil, "new_deaths": nil},
				}},
			},
			want: dataset.Table{
				Columns: dataset.Columns,
				Rows: []dataset.Observation{
					{CountryCode: "COL", Date: s("2021-01-01"), TotalCases: f(10), NewCases: f(0), TotalDeaths: f(0), NewDeaths: f(0)},
				},
			},
		},
		{
			name: "fills numerics no record carries",
			series: []dataset.CountryObservations{
				{CountryCode: "COL", Records: []map[string]any{
					{"date": "2021-01-01", "total_cases": 10.0},
				}},
			},
			want: dataset.Table{
				Columns: []string{"country_code", "date", "total_cases"},
				Rows: []dataset.Observation{
					{CountryCode: "COL", Date: s("2021-01-01"), TotalCases: f(10), NewCases: f(0), TotalDeaths: f(0), NewDeaths: f(0)},
				},
			},
		},
		{
			name: "columns absent from the whole table are omitted",
			series: []dataset.CountryObservations{
				{CountryCode: "COL", Records: []map[string]any{
					{"date": "2021-01-01", "total_cases": 10.0, "stringency_index": 50.0},
				}},
			},
			want: dataset.Table{
				Columns: []string{"country_code", "date", "total_cases"},
				Rows: []dataset.Observation{
					{CountryCode: "COL", Date: s("2021-01-01"), TotalCases: f(10), NewCases: f(0), TotalDeaths: f(0), NewDeaths: f(0)},
				},
			},
		},
		{
			name: "concatenates country-major in source order",
			series: []dataset.CountryObservations{
				{CountryCode: "PER", Records: []map[string]any{
					{"date": "2021-01-02", "new_cases": 3.0},
					{"date": "2021-01-01", "new_cases": 1.0},
				}},
				{CountryCode: "COL", Records: []map[string]any{
					{"date": "2021-01-01", "total_deaths": 7.0},
				}},
			},
			want: dataset.Table{
				Columns: []string{"country_code", "date", "new_cases", "total_deaths"},
				Rows: []dataset.Observation{
					{CountryCode: "PER", Date: s("2021-01-02"), TotalCases: f(0), NewCases: f(3), TotalDeaths: f(0), NewDeaths: f(0)},
					{CountryCode: "PER", Date: s("2021-01-01"), TotalCases: f(0), NewCases: f(1), TotalDeaths: f(0), NewDeaths: f(0)},
					{CountryCode: "COL", Date: s("2021-01-01"), TotalCases: f(0), NewCases: f(0), TotalDeaths: f(7), NewDeaths: f(0)},
				},
			},
		},
		{
			name: "drops rows without any data",
			series: []dataset.CountryObservations{
				{CountryCode: "BRA", Records: []map[string]any{
					{},
					{"date": nil, "total_cases": nil, "new_cases": nil, "total_deaths": nil, "new_deaths": nil},
					{"date": "2021-01-01", "new_deaths": 2.0},
					{"tests_units": "people tested"},
				}},
			},
			want: dataset.Table{
				Columns: dataset.Columns,
				Rows: []dataset.Observation{
					{CountryCode: "BRA", Date: s("2021-01-01"), TotalCases: f(0), NewCases: f(0), TotalDeaths: f(0), NewDeaths: f(2)},
				},
			},
		},
		{
			name: "keeps a row with numbers but no date",
			series: []dataset.CountryObservations{
				{CountryCode: "VEN", Records: []map[string]any{
					{"date": nil, "total_cases": 4.0},
				}},
			},
			want: dataset.Table{
				Columns: []string{"country_code", "date", "total_cases"},
				Rows: []dataset.Observation{
					{CountryCode: "VEN", TotalCases: f(4), NewCases: f(0), TotalDeaths: f(0), NewDeaths: f(0)},
				},
			},
		},
		{
			name:   "no series",
			series: nil,
			want:   dataset.Table{Columns: []string{}, Rows: []dataset.Observation{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Observations(tt.series)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	series := []dataset.CountryObservations{
		{CountryCode: "COL", Records: []map[string]any{
			{"date": "2021-01-01", "total_cases": 10.0},
			{},
			{"date": "2021-01-02", "total_cases": nil, "new_cases": 2.0, "new_deaths": nil},
		}},
		{CountryCode: "BRA", Records: []map[string]any{
			{"date": "2021-01-01", "total_deaths": 1.0},
		}},
	}

	once := Observations(series)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}

func TestObservations_NumericsPresentAndNonNegative(t *testing.T) {
	series := []dataset.CountryObservations{
		{CountryCode: "ECU", Records: []map[string]any{
			{"date": "2021-01-01", "total_cases": 10.0},
		}},
		{CountryCode: "COL", Records: []map[string]any{
			{"date": "2021-01-01", "total_cases": 10.0, "new_cases": nil, "total_deaths": 0.0, "new_deaths": nil},
			{"date": "2021-01-02", "total_cases": nil, "new_cases": 5.0, "total_deaths": nil, "new_deaths": 1.0},
			{"date": "2021-01-03", "total_cases": "n/a", "new_cases": true, "total_deaths": 3.0, "new_deaths": 0.0},
		}},
	}

	table := Observations(series)
	require.Len(t, table.Rows, 4)
	for _, row := range table.Rows {
		for _, v := range []*float64{row.TotalCases, row.NewCases, row.TotalDeaths, row.NewDeaths} {
			require.NotNil(t, v)
			assert.GreaterOrEqual(t, *v, 0.0)
		}
	}
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, f(1.5), toFloat(1.5))
	assert.Equal(t, f(3), toFloat(3))
	assert.Equal(t, f(7), toFloat(int64(7)))
	assert.Nil(t, toFloat(nil))
	assert.Nil(t, toFloat("12"))
	assert.Nil(t, toFloat(true))
}

func TestBuildReferences(t *testing.T) {
	countries := []config.Country{
		{Code: "COL", Name: "Colombia"},
		{Code: "BRA", Name: "Brasil"},
		{Code: "ECU", Name: "Ecuador"},
		{Code: "VEN", Name: "Venezuela"},
		{Code: "PER", Name: "Perú"},
	}

	refs := BuildReferences(countries)
	assert.Equal(t, []dataset.CountryReference{
		{Code: "COL", Name: "Colombia"},
		{Code: "BRA", Name: "Brasil"},
		{Code: "ECU", Name: "Ecuador"},
		{Code: "VEN", Name: "Venezuela"},
		{Code: "PER", Name: "Perú"},
	}, refs)

	// Deterministic
	assert.Equal(t, refs, BuildReferences(countries))
	assert.Empty(t, BuildReferences(nil))
}
