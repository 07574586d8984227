// Package dashstate holds the dashboard's per-viewer state.
//
// State lives in immutable Snapshot values. A Snapshot changes only through
// Reduce, which applies one Event and returns a new Snapshot. Controller
// drives fetch cycles against the upstream API and feeds their outcomes to
// Reduce; Registry keeps one Controller per viewer.
package dashstate

import (
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/domain/models"
)

// Phase is the controller's position in the selection state machine.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is one immutable view of a viewer's dashboard.
// Slices are never modified after a Snapshot is published.
type Snapshot struct {
	Phase   Phase
	Epoch   uint64 // fetch cycle that produced this snapshot
	CycleID string

	// Slug is the selected country; Selected is the option shown in the
	// selector. Selected is zero until a summary containing Slug arrives.
	Slug     string
	Selected models.CountryOption

	Stats   []models.CountrySummary
	Options []models.CountryOption
	Country *models.CountrySummary // absent when Slug is not in Stats

	Chart        []models.ChartPoint
	ChartPending bool
	ChartError   string
	MultiYear    bool

	Error  string // set in PhaseError
	Notice string // recoverable empty state, e.g. unknown slug

	UpdatedAt time.Time

	format *countrystats.Formatter
}

// Loading reports whether the summary for the current cycle is still
// outstanding. Every derived accessor is gated on it.
func (s Snapshot) Loading() bool {
	return s.Phase == PhaseUninitialized || s.Phase == PhaseLoading
}

// CountryList returns the selector options, or nothing while loading.
func (s Snapshot) CountryList() []models.CountryOption {
	if s.Loading() {
		return nil
	}
	return s.Options
}

// ChartPoints returns the chart series, or nothing while loading.
func (s Snapshot) ChartPoints() []models.ChartPoint {
	if s.Loading() {
		return nil
	}
	return s.Chart
}

// ChartSeries returns the chart series as {label, value} pairs.
func (s Snapshot) ChartSeries() []models.ChartDatum {
	return countrystats.Series(s.ChartPoints())
}

// SelectedLabel is the name to show for the current selection.
func (s Snapshot) SelectedLabel() string {
	if s.Selected.Label != "" {
		return s.Selected.Label
	}
	return s.Slug
}

func (s Snapshot) TotalConfirmed() string {
	return s.count(func(c models.CountrySummary) int64 { return c.TotalConfirmed })
}

func (s Snapshot) TotalRecovered() string {
	return s.count(func(c models.CountrySummary) int64 { return c.TotalRecovered })
}

func (s Snapshot) TotalDeaths() string {
	return s.count(func(c models.CountrySummary) int64 { return c.TotalDeaths })
}

func (s Snapshot) NewConfirmed() string {
	return s.count(func(c models.CountrySummary) int64 { return c.NewConfirmed })
}

func (s Snapshot) NewRecovered() string {
	return s.count(func(c models.CountrySummary) int64 { return c.NewRecovered })
}

func (s Snapshot) NewDeaths() string {
	return s.count(func(c models.CountrySummary) int64 { return c.NewDeaths })
}

// count formats one field of the selected record, or returns the
// placeholder while loading or when there is no record.
func (s Snapshot) count(field func(models.CountrySummary) int64) string {
	if s.Loading() || s.Country == nil || s.format == nil {
		return countrystats.Placeholder
	}
	return s.format.Count(field(*s.Country))
}
