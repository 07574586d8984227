package dashstate

import (
	"fmt"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/app/system/covidapi"
	"github.com/dalemusser/stratacovid/internal/domain/models"
)

// Event is an input to Reduce.
type Event interface {
	epoch() uint64
}

// Started opens a new fetch cycle for Selection.
type Started struct {
	Epoch     uint64
	CycleID   string
	Selection models.CountryOption
	At        time.Time
}

// SummaryLoaded carries the outcome of the summary fetch.
type SummaryLoaded struct {
	Epoch uint64
	Stats []models.CountrySummary
	Err   error
	At    time.Time
}

// HistoryLoaded carries the outcome of the history fetch.
type HistoryLoaded struct {
	Epoch  uint64
	Points []models.ChartPoint
	Err    error
	At     time.Time
}

func (e Started) epoch() uint64       { return e.Epoch }
func (e SummaryLoaded) epoch() uint64 { return e.Epoch }
func (e HistoryLoaded) epoch() uint64 { return e.Epoch }

// Reduce applies ev to s and returns the resulting snapshot. It never
// modifies s. applied is false when ev belongs to a superseded cycle or
// does not fit the current phase; the returned snapshot is then s.
func Reduce(s Snapshot, ev Event) (next Snapshot, applied bool) {
	switch e := ev.(type) {
	case Started:
		if e.Epoch <= s.Epoch {
			return s, false
		}
		return started(s, e), true
	case SummaryLoaded:
		if e.Epoch != s.Epoch || s.Phase != PhaseLoading {
			return s, false
		}
		return summaryLoaded(s, e), true
	case HistoryLoaded:
		if e.Epoch != s.Epoch || s.Phase != PhaseReady || !s.ChartPending {
			return s, false
		}
		return historyLoaded(s, e), true
	default:
		return s, false
	}
}

func started(s Snapshot, e Started) Snapshot {
	next := s
	next.Phase = PhaseLoading
	next.Epoch = e.Epoch
	next.CycleID = e.CycleID
	next.Slug = e.Selection.Value
	next.Selected = e.Selection
	if next.Selected.Label == "" {
		next.Selected = models.CountryOption{}
	}
	// Stats and Options survive so an Error phase can still offer the
	// selector; the accessors hide them while loading.
	next.Country = nil
	next.Chart = nil
	next.ChartPending = false
	next.ChartError = ""
	next.MultiYear = false
	next.Error = ""
	next.Notice = ""
	next.UpdatedAt = e.At
	return next
}

func summaryLoaded(s Snapshot, e SummaryLoaded) Snapshot {
	next := s
	next.UpdatedAt = e.At
	if e.Err != nil {
		next.Phase = PhaseError
		next.Error = covidapi.Describe(e.Err)
		return next
	}

	options, match, ok := countrystats.DeriveCountryOptions(e.Stats, s.Slug)
	next.Phase = PhaseReady
	next.Stats = e.Stats
	next.Options = options

	// The selector's display value is seeded once per selection.
	if next.Selected.IsZero() && ok {
		next.Selected = match
	}

	if country, found := countrystats.FindCountry(e.Stats, s.Slug); found {
		next.Country = &country
		next.ChartPending = true
		return next
	}
	if len(e.Stats) == 0 {
		next.Notice = "The statistics service returned no countries."
	} else {
		next.Notice = fmt.Sprintf("No statistics for %q.", s.Slug)
	}
	return next
}

func historyLoaded(s Snapshot, e HistoryLoaded) Snapshot {
	next := s
	next.UpdatedAt = e.At
	next.ChartPending = false
	if e.Err != nil {
		next.ChartError = covidapi.Describe(e.Err)
		return next
	}
	next.Chart = e.Points
	next.MultiYear = countrystats.SpansMultipleYears(e.Points)
	return next
}
