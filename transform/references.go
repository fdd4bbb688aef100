package transform

import (
	"github.com/rasnes/covid-etl/config"
	"github.com/rasnes/covid-etl/dataset"
)

// BuildReferences returns one reference row per configured country, in
// configuration order.
func BuildReferences(countries []config.Country) []dataset.CountryReference {
	refs := make([]dataset.CountryReference, 0, len(countries))
	for _, c := range countries {
		refs = append(refs, dataset.CountryReference{Code: c.Code, Name: c.Name})
	}
	return refs
}
