// Package dataset holds the records passed between the extract, transform and load steps.
package dataset

// Column names as they appear in the source JSON and in the covid_data table.
const (
	ColCountryCode = "country_code"
	ColDate        = "date"
	ColTotalCases  = "total_cases"
	ColNewCases    = "new_cases"
	ColTotalDeaths = "total_deaths"
	ColNewDeaths   = "new_deaths"
)

// Columns is the projection kept by the transform step, in output order.
var Columns = []string{ColCountryCode, ColDate, ColTotalCases, ColNewCases, ColTotalDeaths, ColNewDeaths}

// NumericColumns are the columns whose missing values are filled with zero.
var NumericColumns = []string{ColTotalCases, ColNewCases, ColTotalDeaths, ColNewDeaths}

// RawDataset is the decoded API response, keyed by ISO country code.
type RawDataset map[string]CountrySeries

// CountrySeries is the per-country object. Only the daily series is decoded.
type CountrySeries struct {
	Data []map[string]any `json:"data"`
}

// CountryObservations is the daily series of one country, records kept verbatim.
type CountryObservations struct {
	CountryCode string
	Records     []map[string]any
}

// Observation is one daily row. Nil pointers mean the value was absent.
type Observation struct {
	CountryCode string
	Date        *string
	TotalCases  *float64
	NewCases    *float64
	TotalDeaths *float64
	NewDeaths   *float64
}

// Table is an ordered set of observations together with the columns that
// exist in it. A column never seen in the source is not listed.
type Table struct {
	Columns []string
	Rows    []Observation
}

// HasColumn reports whether col is part of the table.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// CountryReference is a row of the countries dimension.
type CountryReference struct {
	Code string
	Name string
}
