package load

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rasnes/covid-etl/dataset"
)

// Loader writes a transformed table and its reference rows to a Store.
type Loader struct {
	Store  Store
	Logger *slog.Logger
}

type Result struct {
	CountriesInserted    int
	ObservationsInserted int
	ObservationsSkipped  int
}

func NewLoader(store Store, logger *slog.Logger) *Loader {
	return &Loader{Store: store, Logger: logger}
}

// Load runs the three load phases in order: upsert countries, read back their
// unique_number keys, append observations. The first failing phase stops the
// load. Countries committed in the first phase stay even when the
// observations fail.
func (l *Loader) Load(ctx context.Context, refs []dataset.CountryReference, table dataset.Table) (Result, error) {
	var res Result

	keys, inserted, err := l.SyncCountries(ctx, refs)
	if err != nil {
		return res, err
	}
	res.CountriesInserted = inserted

	nInserted, nSkipped, err := l.Store.InsertObservations(ctx, keys, table)
	if err != nil {
		return res, fmt.Errorf("error inserting observations: %w", err)
	}
	res.ObservationsInserted = nInserted
	res.ObservationsSkipped = nSkipped

	if nSkipped > 0 {
		l.Logger.Info("Skipped observations without a stored country", "skipped", nSkipped)
	}
	l.Logger.Debug("Inserted observations", "inserted", nInserted)

	return res, nil
}

// SyncCountries upserts the reference rows and returns the code to
// unique_number mapping of every stored country.
func (l *Loader) SyncCountries(ctx context.Context, refs []dataset.CountryReference) (map[string]int64, int, error) {
	inserted, err := l.Store.UpsertCountries(ctx, refs)
	if err != nil {
		return nil, 0, fmt.Errorf("error upserting countries: %w", err)
	}
	l.Logger.Debug("Upserted countries", "requested", len(refs), "inserted", inserted)

	keys, err := l.Store.CountryKeys(ctx)
	if err != nil {
		return nil, inserted, fmt.Errorf("error reading country keys: %w", err)
	}
	return keys, inserted, nil
}
