package cmd

import (
	"github.com/rasnes/covid-etl/pipeline"
	"github.com/rasnes/covid-etl/utils"
	"github.com/spf13/cobra"
)

func newCountriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "countries",
		Short:        "Upserts the configured countries without fetching the dataset",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := initializeConfigAndLogger()
			if err != nil {
				return err
			}

			p, err := pipeline.NewPipeline(cfg, log, utils.RealTimeProvider{})
			if err != nil {
				log.Error("Error creating pipeline", "error", err)
				return err
			}

			keys, err := p.SyncCountries(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cfg.Source.Countries {
				log.Debug("Country key", "country_code", c.Code, "unique_number", keys[c.Code])
			}
			return nil
		},
	}
}
