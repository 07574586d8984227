// Package countrystats derives the dashboard's view models from upstream
// statistics: the selector's option list, the selected country's record,
// the relabeled chart series and locale-formatted counters.
//
// Every function here is pure. The inputs are small (one record per country,
// one record per day), so lookups are linear scans with no index.
package countrystats

import (
	"github.com/dalemusser/stratacovid/internal/domain/models"
)

// DeriveCountryOptions maps each summary to a selector option, keeping source
// order. It also returns the option whose value equals slug, if any, so the
// caller can seed the selector's displayed value.
func DeriveCountryOptions(stats []models.CountrySummary, slug string) ([]models.CountryOption, models.CountryOption, bool) {
	options := make([]models.CountryOption, len(stats))
	for i, c := range stats {
		options[i] = models.CountryOption{Value: c.Slug, Label: c.Country}
	}
	match, ok := FindOption(options, slug)
	return options, match, ok
}

// FindOption returns the first option whose value equals slug.
func FindOption(options []models.CountryOption, slug string) (models.CountryOption, bool) {
	for _, o := range options {
		if o.Value == slug {
			return o, true
		}
	}
	return models.CountryOption{}, false
}

// FindCountry returns the first summary whose slug equals slug.
// An empty slug never matches.
func FindCountry(stats []models.CountrySummary, slug string) (models.CountrySummary, bool) {
	if slug == "" {
		return models.CountrySummary{}, false
	}
	for _, c := range stats {
		if c.Slug == slug {
			return c, true
		}
	}
	return models.CountrySummary{}, false
}
