package load

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/marcboeker/go-duckdb"
	"github.com/rasnes/covid-etl/config"
	"github.com/rasnes/covid-etl/dataset"
)

type DuckDB struct {
	Logger    *slog.Logger
	DB        *sql.DB
	Connector *duckdb.Connector
	DBType    string
}

func NewDuckDB(config *config.Config, logger *slog.Logger) (*DuckDB, error) {
	var path string
	var dbType string
	if strings.HasPrefix(config.DuckDB.Path, "md:") {
		motherduckToken := os.Getenv("MOTHERDUCK_TOKEN")
		if motherduckToken == "" {
			return nil, fmt.Errorf("MOTHERDUCK_TOKEN env variable is not set")
		}
		path = fmt.Sprintf("%s?motherduck_token=%s", config.DuckDB.Path, motherduckToken)
		dbType = ":md:"
	} else if config.DuckDB.Path == "" || config.DuckDB.Path == ":memory:" {
		path = ""
		dbType = ":memory:"
	} else {
		path = config.DuckDB.Path
		dbType = path
	}

	var connInitFn func(driver.ExecerContext) error
	if len(config.DuckDB.ConnInitFnQueries) > 0 {
		connInitFn = func(exec driver.ExecerContext) error {
			for _, path := range config.DuckDB.ConnInitFnQueries {
				query, err := readQuery(path)
				if err != nil {
					return err
				}

				_, err = exec.ExecContext(context.Background(), string(query), nil)
				if err != nil {
					return fmt.Errorf("failed to execute query from file %s: %w", path, err)
				}
			}
			return nil
		}
		logger.Debug(fmt.Sprintf("Connection initialization queries: %v", config.DuckDB.ConnInitFnQueries))
	}

	connector, err := duckdb.NewConnector(path, connInitFn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	db := sql.OpenDB(connector)
	// One session per run.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		connector.Close()
		return nil, fmt.Errorf("failed to connect to DuckDB: %w", err)
	}

	switch dbType {
	case ":memory:":
		logger.Info("Connected to DuckDB in-memory database")
	case ":md:":
		logger.Info("Connected to MotherDuck database")
	default:
		logger.Info(fmt.Sprintf("Connected to local DuckDB database at %s", dbType))
	}

	return &DuckDB{
		Logger:    logger,
		DB:        db,
		Connector: connector,
		DBType:    dbType,
	}, nil
}

func readQuery(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	query, err := io.ReadAll(file)
	if err != nil {
		file.Close() // Ensure the file is closed if reading fails
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file %s: %w", path, err)
	}
	return query, nil
}

func (db *DuckDB) Close() error {
	dbErr := db.DB.Close()
	connErr := db.Connector.Close()
	if dbErr != nil {
		return dbErr
	}
	return connErr
}

func (db *DuckDB) UpsertCountries(ctx context.Context, refs []dataset.CountryReference) (int, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(insertCountryQuery, "?", "?"))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare countries insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, ref := range refs {
		res, err := stmt.ExecContext(ctx, ref.Code, ref.Name)
		if err != nil {
			return 0, fmt.Errorf("failed to insert country %s: %w", ref.Code, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("error getting rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit countries: %w", err)
	}
	return inserted, nil
}

func (db *DuckDB) CountryKeys(ctx context.Context) (map[string]int64, error) {
	rows, err := db.DB.QueryContext(ctx, countryKeysQuery)
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

func (db *DuckDB) InsertObservations(ctx context.Context, keys map[string]int64, table dataset.Table) (int, int, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(insertCovidQuery, "?", "?", "?", "?", "?", "?"))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare covid_data insert: %w", err)
	}
	defer stmt.Close()

	inserted, skipped := 0, 0
	for _, obs := range table.Rows {
		key, ok := keys[obs.CountryCode]
		if !ok {
			skipped++
			continue
		}
		args := append([]any{key}, covidValues(obs)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, 0, fmt.Errorf("failed to insert observation for %s: %w", obs.CountryCode, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit covid_data: %w", err)
	}
	return inserted, skipped, nil
}

// GetQueryResults executes a query and returns the results as a map of column names to slices of values
func (db *DuckDB) GetQueryResults(query string) (map[string][]string, error) {
	rows, err := db.DB.QueryContext(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	results := make(map[string][]string)
	for _, col := range columns {
		results[col] = []string{}
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, col := range columns {
			results[col] = append(results[col], fmt.Sprintf("%v", values[i]))
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return results, nil
}
