package config

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Source   SourceConfig
	Extract  ExtractConfig
	Storage  StorageConfig
	DuckDB   DuckDBConfig
	Postgres PostgresConfig
	Log      LogConfig
	Env      string
}

// SourceConfig describes where the dataset comes from and which countries are kept.
// Countries is a sequence, not a map, so that definition order survives decoding.
type SourceConfig struct {
	URL       string    `mapstructure:"url"`
	Countries []Country `mapstructure:"countries"`
}

type Country struct {
	Code string `mapstructure:"code"`
	Name string `mapstructure:"name"`
}

type ExtractConfig struct {
	Backoff BackoffConfig
	Timeout time.Duration `mapstructure:"timeout"`
}

type BackoffConfig struct {
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	RetryMax     int           `mapstructure:"retry_max"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DuckDBConfig struct {
	Path              string   `mapstructure:"path"`
	ConnInitFnQueries []string `mapstructure:"conn_init_fn_queries"`
}

// PostgresConfig holds the connection parameters. The password is read from
// POSTGRES_PASSWORD when the store is opened.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	SSLMode  string `mapstructure:"sslmode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CountryCodes returns the configured country codes in definition order.
func (c *Config) CountryCodes() []string {
	codes := make([]string, 0, len(c.Source.Countries))
	for _, country := range c.Source.Countries {
		codes = append(codes, country.Code)
	}
	return codes
}

// NewConfig loads the configuration from the provided base config reader
// and merges it with the environment-specific configuration.
func NewConfig(baseConfigReader io.Reader, envConfigReader io.Reader, env string) (*Config, error) {
	if env == "" { // Use the provided 'env' or default to "dev"
		env = "dev"
	}

	viper.SetConfigType("yaml")

	// Read the base configuration
	if err := viper.ReadConfig(baseConfigReader); err != nil {
		return nil, fmt.Errorf("error reading base config: %w", err)
	}

	// Merge with environment-specific configuration (only if provided)
	if envConfigReader != nil {
		if err := viper.MergeConfig(envConfigReader); err != nil {
			log.Printf("Error merging environment-specific config: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.Env = env
	if config.Storage.Driver == "" {
		config.Storage.Driver = "duckdb"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the settings every run depends on.
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if len(c.Source.Countries) == 0 {
		return fmt.Errorf("source.countries must list at least one country")
	}
	seen := make(map[string]bool, len(c.Source.Countries))
	for i, country := range c.Source.Countries {
		if country.Code == "" {
			return fmt.Errorf("source.countries[%d]: code is required", i)
		}
		if seen[country.Code] {
			return fmt.Errorf("source.countries[%d]: duplicate code %q", i, country.Code)
		}
		seen[country.Code] = true
	}
	switch c.Storage.Driver {
	case "duckdb", "postgres":
	default:
		return fmt.Errorf("storage.driver must be duckdb or postgres, got %q", c.Storage.Driver)
	}
	return nil
}
