package cmd

import (
	"fmt"
	"io"
	"os"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/rasnes/covid-etl/config"
	"github.com/rasnes/covid-etl/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "covid-etl",
	Short: "Loads OWID COVID-19 data for a fixed set of countries into a relational store",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCountriesCmd())
	rootCmd.AddCommand(newLambdaCmd())
}

func isRunningOnGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

func isRunningOnLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func initializeConfigAndLogger() (*config.Config, *slog.Logger, error) {
	// Used until the configured logger is available
	log := logger.NewLogger(config.LogConfig{})
	if !isRunningOnGitHubActions() && !isRunningOnLambda() {
		err := godotenv.Load()
		if err != nil {
			log.Warn("No .env file loaded", "error", err)
		}
	}

	baseConfigFile, err := os.Open("config.base.yaml")
	if err != nil {
		log.Error("Error opening base config file", "error", err)
		return nil, nil, err
	}
	defer baseConfigFile.Close()

	env := os.Getenv("APP_ENV")
	var envConfig io.Reader
	envConfigFilename := fmt.Sprintf("config.%s.yaml", env)
	if _, err := os.Stat(envConfigFilename); err == nil {
		envConfigFile, err := os.Open(envConfigFilename)
		if err != nil {
			log.Error("Error opening environment config file", "file", envConfigFilename, "error", err)
			return nil, nil, err
		}
		defer envConfigFile.Close()
		envConfig = envConfigFile
	}

	cfg, err := config.NewConfig(baseConfigFile, envConfig, env)
	if err != nil {
		log.Error("Error reading config", "error", err)
		return nil, nil, err
	}

	return cfg, logger.NewLogger(cfg.Log).With("env", cfg.Env), nil
}
