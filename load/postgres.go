package load

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/rasnes/covid-etl/config"
	"github.com/rasnes/covid-etl/dataset"
)

// Postgres is a Store backed by a single PostgreSQL connection.
type Postgres struct {
	Logger *slog.Logger
	Conn   *pgx.Conn
}

// NewPostgres connects using the postgres section of the config and the
// POSTGRES_PASSWORD environment variable.
func NewPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Postgres, error) {
	pg := cfg.Postgres
	if pg.Database == "" {
		return nil, fmt.Errorf("postgres.database is required")
	}
	if pg.Username == "" {
		return nil, fmt.Errorf("postgres.username is required")
	}
	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD env variable is not set")
	}

	host := pg.Host
	if host == "" {
		host = "localhost"
	}
	port := pg.Port
	if port == "" {
		port = "5432"
	}
	sslMode := pg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	logger.Info("Connecting to PostgreSQL", "host", host, "port", port, "database", pg.Database, "username", pg.Username)

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		pg.Username, password, host, port, pg.Database, sslMode,
	)
	return NewPostgresFromConnString(ctx, connStr, logger)
}

// NewPostgresFromConnString connects with a ready-made connection string.
func NewPostgresFromConnString(ctx context.Context, connStr string, logger *slog.Logger) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("Connected to PostgreSQL database")
	return &Postgres{Logger: logger, Conn: conn}, nil
}

func (p *Postgres) Close() error {
	return p.Conn.Close(context.Background())
}

func (p *Postgres) UpsertCountries(ctx context.Context, refs []dataset.CountryReference) (int, error) {
	tx, err := p.Conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(insertCountryQuery, "$1", "$2")
	inserted := 0
	for _, ref := range refs {
		tag, err := tx.Exec(ctx, query, ref.Code, ref.Name)
		if err != nil {
			return 0, fmt.Errorf("failed to insert country %s: %w", ref.Code, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit countries: %w", err)
	}
	return inserted, nil
}

func (p *Postgres) CountryKeys(ctx context.Context) (map[string]int64, error) {
	rows, err := p.Conn.Query(ctx, countryKeysQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]int64)
	for rows.Next() {
		var key int64
		var code string
		if err := rows.Scan(&key, &code); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		keys[code] = key
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return keys, nil
}

func (p *Postgres) InsertObservations(ctx context.Context, keys map[string]int64, table dataset.Table) (int, int, error) {
	tx, err := p.Conn.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(insertCovidQuery, "$1", "$2", "$3", "$4", "$5", "$6")
	inserted, skipped := 0, 0
	for _, obs := range table.Rows {
		key, ok := keys[obs.CountryCode]
		if !ok {
			skipped++
			continue
		}
		args := append([]any{key}, covidValues(obs)...)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return 0, 0, fmt.Errorf("failed to insert observation for %s: %w", obs.CountryCode, err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit covid_data: %w", err)
	}
	return inserted, skipped, nil
}
