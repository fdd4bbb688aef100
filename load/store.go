package load

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rasnes/covid-etl/config"
	"github.com/rasnes/covid-etl/dataset"
)

// Store is a relational backend holding the countries and covid_data tables.
// Each write method commits on its own.
type Store interface {
	// UpsertCountries inserts the countries whose code is not stored yet.
	// Existing rows are left untouched. Returns the number of new rows.
	UpsertCountries(ctx context.Context, refs []dataset.CountryReference) (int, error)
	// CountryKeys maps every stored country code to its unique_number.
	CountryKeys(ctx context.Context) (map[string]int64, error)
	// InsertObservations appends one covid_data row per observation whose
	// country code is in keys. The others are skipped and counted.
	InsertObservations(ctx context.Context, keys map[string]int64, table dataset.Table) (inserted int, skipped int, err error)
	Close() error
}

const (
	insertCountryQuery = "INSERT INTO countries (country_code, country_name) VALUES (%s, %s) ON CONFLICT (country_code) DO NOTHING"
	countryKeysQuery   = "SELECT unique_number, country_code FROM countries"
	insertCovidQuery   = "INSERT INTO covid_data (unique_number, date, total_cases, new_cases, total_deaths, new_deaths) VALUES (%s, CAST(%s AS DATE), %s, %s, %s, %s)"
)

// Open connects to the store selected by storage.driver.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Storage.Driver {
	case "", "duckdb":
		return NewDuckDB(cfg, logger)
	case "postgres":
		return NewPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// covidValues returns the insert arguments for one observation, after the key.
func covidValues(obs dataset.Observation) []any {
	return []any{
		nullable(obs.Date),
		nullable(obs.TotalCases),
		nullable(obs.NewCases),
		nullable(obs.TotalDeaths),
		nullable(obs.NewDeaths),
	}
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
