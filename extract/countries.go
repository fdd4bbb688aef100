package extract

import (
	"log/slog"

	"github.com/rasnes/covid-etl/dataset"
)

// Countries picks the requested countries out of the raw dataset, in the order
// of codes. Codes missing from the dataset are skipped.
func Countries(raw dataset.RawDataset, codes []string, logger *slog.Logger) []dataset.CountryObservations {
	result := make([]dataset.CountryObservations, 0, len(codes))
	for _, code := range codes {
		series, ok := raw[code]
		if !ok {
			logger.Info("Country not present in dataset, skipping", "country_code", code)
			continue
		}

		records := make([]map[string]any, len(series.Data))
		copy(records, series.Data)
		result = append(result, dataset.CountryObservations{
			CountryCode: code,
			Records:     records,
		})
	}
	return result
}
