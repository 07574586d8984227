package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/app/system/dashstate"
	"github.com/dalemusser/stratacovid/internal/domain/models"
	"go.uber.org/zap"
)

// SampleStats returns a small summary dataset.
func SampleStats() []models.CountrySummary {
	return []models.CountrySummary{
		{Country: "Turkey", CountryCode: "TR", Slug: "turkey", NewConfirmed: 1500, TotalConfirmed: 100000, NewRecovered: 900, TotalRecovered: 80000, NewDeaths: 40, TotalDeaths: 2000},
		{Country: "United States of America", CountryCode: "US", Slug: "united-states", NewConfirmed: 25000, TotalConfirmed: 1234567, NewRecovered: 12000, TotalRecovered: 300000, NewDeaths: 900, TotalDeaths: 70000},
	}
}

// SampleHistory returns day-one series for the countries in SampleStats.
func SampleHistory() map[string][]models.DayCase {
	return map[string][]models.DayCase{
		"turkey": {
			{Country: "Turkey", Cases: 1, Status: "confirmed", Date: "2020-03-11T00:00:00Z"},
			{Country: "Turkey", Cases: 5, Status: "confirmed", Date: "2020-03-12T00:00:00Z"},
			{Country: "Turkey", Cases: 6, Status: "confirmed", Date: "2020-03-13T00:00:00Z"},
		},
		"united-states": {
			{Country: "United States of America", Cases: 1, Status: "confirmed", Date: "2020-01-22T00:00:00Z"},
		},
	}
}

// StubFetcher serves canned upstream data and satisfies dashstate.Fetcher.
type StubFetcher struct {
	mu         sync.Mutex
	Stats      []models.CountrySummary
	History    map[string][]models.DayCase
	SummaryErr error
	HistoryErr error

	summaryCalls int
}

// NewStubFetcher returns a StubFetcher loaded with the sample data.
func NewStubFetcher() *StubFetcher {
	return &StubFetcher{Stats: SampleStats(), History: SampleHistory()}
}

// SetSummaryErr changes the summary outcome for later calls.
func (f *StubFetcher) SetSummaryErr(err error) {
	f.mu.Lock()
	f.SummaryErr = err
	f.mu.Unlock()
}

// SummaryCalls returns how many times FetchSummary was called.
func (f *StubFetcher) SummaryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaryCalls
}

func (f *StubFetcher) FetchSummary(ctx context.Context) ([]models.CountrySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	if f.SummaryErr != nil {
		return nil, f.SummaryErr
	}
	return f.Stats, nil
}

func (f *StubFetcher) FetchHistory(ctx context.Context, slug string) ([]models.DayCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.HistoryErr != nil {
		return nil, f.HistoryErr
	}
	return f.History[slug], nil
}

// NewRegistry returns a registry over f with "turkey" as the default country
// and English number formatting.
func NewRegistry(f dashstate.Fetcher) *dashstate.Registry {
	return dashstate.NewRegistry(f, dashstate.ControllerConfig{
		DefaultSlug: "turkey",
		Formatter:   countrystats.MustFormatter("en"),
	}, 0, zap.NewNop())
}

// Settle waits for c's current fetch cycle.
func Settle(t interface {
	Helper()
	Fatalf(string, ...any)
}, c *dashstate.Controller) dashstate.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Settled(ctx); err != nil {
		t.Fatalf("fetch cycle did not settle: %v", err)
	}
	return c.Snapshot()
}
