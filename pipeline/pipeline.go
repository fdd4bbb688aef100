package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rasnes/covid-etl/config"
	"github.com/rasnes/covid-etl/dataset"
	"github.com/rasnes/covid-etl/extract"
	"github.com/rasnes/covid-etl/load"
	"github.com/rasnes/covid-etl/transform"
	"github.com/rasnes/covid-etl/utils"
)

var (
	// ErrFetch wraps every failure to retrieve the dataset. Nothing is loaded.
	ErrFetch = errors.New("fetch failed")
	// ErrStorage wraps every failure while connecting to or writing the store.
	ErrStorage = errors.New("storage failed")
)

// StoreOpener connects to the store. It is only called once the dataset has
// been fetched and transformed.
type StoreOpener func(ctx context.Context) (load.Store, error)

type Pipeline struct {
	Config       *config.Config
	Client       *extract.OWIDClient
	OpenStore    StoreOpener
	Logger       *slog.Logger
	timeProvider utils.TimeProvider
}

type Result struct {
	RunID                string
	Countries            int
	Observations         int
	CountriesInserted    int
	ObservationsInserted int
	ObservationsSkipped  int
	Duration             time.Duration
}

func NewPipeline(cfg *config.Config, logger *slog.Logger, timeProvider utils.TimeProvider) (*Pipeline, error) {
	client, err := extract.NewOWIDClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating OWID HTTP client: %w", err)
	}

	return &Pipeline{
		Config: cfg,
		Client: client,
		OpenStore: func(ctx context.Context) (load.Store, error) {
			return load.Open(ctx, cfg, logger)
		},
		Logger:       logger,
		timeProvider: timeProvider,
	}, nil
}

// Run fetches, transforms and loads the dataset once. The store is opened
// only after the data is ready and is always closed before returning.
func (p *Pipeline) Run(ctx context.Context) (res Result, err error) {
	res.RunID = uuid.NewString()
	log := p.Logger.With("run_id", res.RunID)
	start := p.timeProvider.Now()
	defer func() {
		res.Duration = p.timeProvider.Now().Sub(start)
	}()

	table, refs, err := p.prepare(ctx, log)
	if err != nil {
		return res, err
	}
	res.Countries = len(refs)
	res.Observations = len(table.Rows)
	log.Info("Clean data prepared for loading", "countries", len(refs), "observations", len(table.Rows))

	err = p.withStore(ctx, log, func(store load.Store) error {
		loaded, err := load.NewLoader(store, log).Load(ctx, refs, table)
		res.CountriesInserted = loaded.CountriesInserted
		res.ObservationsInserted = loaded.ObservationsInserted
		res.ObservationsSkipped = loaded.ObservationsSkipped
		return err
	})
	if err != nil {
		return res, err
	}

	log.Info("Data inserted into the database",
		"countries_inserted", res.CountriesInserted,
		"observations_inserted", res.ObservationsInserted,
		"observations_skipped", res.ObservationsSkipped)
	return res, nil
}

// SyncCountries only upserts the configured countries, without fetching the dataset.
func (p *Pipeline) SyncCountries(ctx context.Context) (map[string]int64, error) {
	log := p.Logger.With("run_id", uuid.NewString())
	refs := transform.BuildReferences(p.Config.Source.Countries)

	var keys map[string]int64
	err := p.withStore(ctx, log, func(store load.Store) error {
		var inserted int
		var err error
		keys, inserted, err = load.NewLoader(store, log).SyncCountries(ctx, refs)
		if err == nil {
			log.Info("Countries synchronized", "requested", len(refs), "inserted", inserted)
		}
		return err
	})
	return keys, err
}

func (p *Pipeline) prepare(ctx context.Context, log *slog.Logger) (dataset.Table, []dataset.CountryReference, error) {
	raw, err := p.Client.FetchDataset(ctx)
	if err != nil {
		var fetchErr *extract.FetchError
		if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
			log.Error("Error accessing the API", "status", fetchErr.StatusCode, "url", fetchErr.URL)
		} else {
			log.Error("Error accessing the API", "error", err)
		}
		return dataset.Table{}, nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	series := extract.Countries(raw, p.Config.CountryCodes(), log)
	table := transform.Observations(series)
	refs := transform.BuildReferences(p.Config.Source.Countries)
	return table, refs, nil
}

// withStore opens the store, runs fn and closes the store on every path.
// Storage errors are logged here and returned wrapped in ErrStorage.
func (p *Pipeline) withStore(ctx context.Context, log *slog.Logger, fn func(load.Store) error) error {
	store, err := p.OpenStore(ctx)
	if err != nil {
		log.Error("Error connecting to the database", "error", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("Error closing the database connection", "error", cerr)
			return
		}
		log.Info("Database connection closed")
	}()

	if err := fn(store); err != nil {
		log.Error("Error loading data into the database", "error", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}
