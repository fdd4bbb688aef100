package config

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name     string
		baseYAML string  // Base YAML config
		envYAML  string  // Environment-specific YAML (optional)
		env      string  // Environment variable value
		want     *Config // Expected Config
		wantErr  bool    // Expecting an error?
	}{
		{
			name: "Successful Load with Default Env",
			baseYAML: `
source:
  url: "https://example.com/owid.json"
  countries:
    - code: COL
      name: Colombia
    - code: BRA
      name: Brasil
extract:
  backoff:
    retry_wait_min: 1s
    retry_wait_max: 30s
    retry_max: 0
duckdb:
  path: "covid.db"
log:
  level: info
  format: text
`,
			env: "",
			want: &Config{
				Env: "dev",
				Source: SourceConfig{
					URL: "https://example.com/owid.json",
					Countries: []Country{
						{Code: "COL", Name: "Colombia"},
						{Code: "BRA", Name: "Brasil"},
					},
				},
				Extract: ExtractConfig{
					Backoff: BackoffConfig{
						RetryWaitMin: time.Second,
						RetryWaitMax: 30 * time.Second,
						RetryMax:     0,
					},
				},
				Storage: StorageConfig{Driver: "duckdb"},
				DuckDB: DuckDBConfig{
					Path: "covid.db",
				},
				Log: LogConfig{Level: "info", Format: "text"},
			},
			wantErr: false,
		},
		{
			name: "Successful Load with Environment Override",
			baseYAML: `
source:
  url: "https://example.com/owid.json"
  countries:
    - code: COL
      name: Colombia
storage:
  driver: duckdb
duckdb:
  conn_init_fn_queries:
    - "sql/schema__duckdb.sql"
`,
			envYAML: `
storage:
  driver: postgres
postgres:
  host: db.internal
  port: "5433"
  database: BD_Covid19
  username: soporte
`,
			env: "prod",
			want: &Config{
				Env: "prod",
				Source: SourceConfig{
					URL:       "https://example.com/owid.json",
					Countries: []Country{{Code: "COL", Name: "Colombia"}},
				},
				Storage: StorageConfig{Driver: "postgres"},
				DuckDB: DuckDBConfig{
					ConnInitFnQueries: []string{"sql/schema__duckdb.sql"},
				},
				Postgres: PostgresConfig{
					Host:     "db.internal",
					Port:     "5433",
					Database: "BD_Covid19",
					Username: "soporte",
				},
			},
			wantErr: false,
		},
		{
			name: "Missing URL",
			baseYAML: `
source:
  countries:
    - code: COL
      name: Colombia
`,
			wantErr: true,
		},
		{
			name: "Duplicate country code",
			baseYAML: `
source:
  url: "https://example.com/owid.json"
  countries:
    - code: COL
      name: Colombia
    - code: COL
      name: Colombia again
`,
			wantErr: true,
		},
		{
			name: "Unknown storage driver",
			baseYAML: `
source:
  url: "https://example.com/owid.json"
  countries:
    - code: COL
      name: Colombia
storage:
  driver: mssql
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset Viper for each test
			viper.Reset()

			baseConfigReader := strings.NewReader(tt.baseYAML)
			var envConfigReader io.Reader
			if tt.envYAML != "" {
				envConfigReader = strings.NewReader(tt.envYAML)
			}

			got, err := NewConfig(baseConfigReader, envConfigReader, tt.env)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			assert.Equal(t, tt.want, got, "Config structs don't match")
		})
	}
}

func TestCountryCodes(t *testing.T) {
	cfg := &Config{Source: SourceConfig{Countries: []Country{
		{Code: "PER", Name: "Perú"},
		{Code: "COL", Name: "Colombia"},
	}}}
	assert.Equal(t, []string{"PER", "COL"}, cfg.CountryCodes())
}
