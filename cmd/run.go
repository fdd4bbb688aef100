package cmd

import (
	"github.com/rasnes/covid-etl/pipeline"
	"github.com/rasnes/covid-etl/utils"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetches the dataset and loads the configured countries and their observations",
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

			res, err := p.Run(cmd.Context())
			if err != nil {
				// Failures are already logged by the pipeline
				if strict {
					return err
				}
				return nil
			}
			log.Info("Batch job completed without errors",
				"run_id", res.RunID,
				"countries", res.Countries,
				"observations", res.Observations,
				"duration", res.Duration)
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with a non-zero status when the run fails")
	cmd.SilenceUsage = true

	return cmd
}
