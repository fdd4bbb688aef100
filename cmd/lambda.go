package cmd

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rasnes/covid-etl/pipeline"
	"github.com/rasnes/covid-etl/utils"
	"github.com/spf13/cobra"
)

func newLambdaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serves the ETL run as an AWS Lambda handler",
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

			lambda.Start(func(ctx context.Context) error {
				_, err := p.Run(ctx)
				return err
			})
			return nil
		},
	}
}
