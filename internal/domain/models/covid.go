// internal/domain/models/covid.go
package models

import "time"

// CountrySummary is one country's entry in the upstream summary dataset.
// Field names match the upstream JSON so records decode without tags
// being renamed.
type CountrySummary struct {
	Country        string `json:"Country"`
	CountryCode    string `json:"CountryCode,omitempty"`
	Slug           string `json:"Slug"`
	NewConfirmed   int64  `json:"NewConfirmed"`
	TotalConfirmed int64  `json:"TotalConfirmed"`
	NewDeaths      int64  `json:"NewDeaths"`
	TotalDeaths    int64  `json:"TotalDeaths"`
	NewRecovered   int64  `json:"NewRecovered"`
	TotalRecovered int64  `json:"TotalRecovered"`
	Date           string `json:"Date,omitempty"`
}

// SummaryResponse is the body of GET {base}/summary.
type SummaryResponse struct {
	Countries []CountrySummary `json:"Countries"`
}

// DayCase is one record of a country's "day one" confirmed-case series.
type DayCase struct {
	Country     string `json:"Country"`
	CountryCode string `json:"CountryCode,omitempty"`
	Province    string `json:"Province,omitempty"`
	City        string `json:"City,omitempty"`
	Lat         string `json:"Lat,omitempty"`
	Lon         string `json:"Lon,omitempty"`
	Cases       int64  `json:"Cases"`
	Status      string `json:"Status,omitempty"`
	Date        string `json:"Date"`
}

// CountryOption is a selector entry: value is the slug, label the display name.
type CountryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// IsZero reports whether the option carries no slug.
func (o CountryOption) IsZero() bool {
	return o.Value == ""
}

// ChartPoint is one day of the chart series.
//
// Date is the axis label ("day - monthIndex"). It drops the year, so a series
// is only unambiguous when it stays within one calendar year; Day keeps the
// full date for callers that need it.
type ChartPoint struct {
	Date  string    `json:"Date"`
	Cases int64     `json:"Cases"`
	Day   time.Time `json:"Day"`
}

// ChartDatum is the {label, value} pair consumed by the chart surface.
type ChartDatum struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}
