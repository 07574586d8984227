// internal/domain/models/site.go
package models

// DefaultSiteName is used when no site_name is configured.
const DefaultSiteName = "COVID-19 Dashboard"

// DefaultCountrySlug is the selection a new viewer starts with.
const DefaultCountrySlug = "turkey"

// DefaultAPIBaseURL is the upstream statistics API.
const DefaultAPIBaseURL = "https://api.covid19api.com"
