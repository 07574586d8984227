package dashstate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/app/system/covidapi"
	"github.com/dalemusser/stratacovid/internal/domain/models"
	"go.uber.org/zap"
)

// fakeFetcher serves canned data. Summary calls may be held by gates; a
// gated call ignores ctx, like a transport that does not honor cancellation.
// When entered is set, each summary call sends its index there on entry.
type fakeFetcher struct {
	mu           sync.Mutex
	stats        [][]models.CountrySummary // per call; the last entry repeats
	summaryErr   error
	history      map[string][]models.DayCase
	historyErr   error
	gates        map[int]chan struct{}
	entered      chan int
	summaryCalls int
	historyCalls []string
}

func (f *fakeFetcher) FetchSummary(ctx context.Context) ([]models.CountrySummary, error) {
	f.mu.Lock()
	call := f.summaryCalls
	f.summaryCalls++
	gate := f.gates[call]
	entered := f.entered
	err := f.summaryErr
	var stats []models.CountrySummary
	if len(f.stats) > 0 {
		stats = f.stats[min(call, len(f.stats)-1)]
	}
	f.mu.Unlock()

	if entered != nil {
		entered <- call
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (f *fakeFetcher) FetchHistory(ctx context.Context, slug string) ([]models.DayCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls = append(f.historyCalls, slug)
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[slug], nil
}

func (f *fakeFetcher) setSummaryErr(err error) {
	f.mu.Lock()
	f.summaryErr = err
	f.mu.Unlock()
}

func (f *fakeFetcher) historySlugs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.historyCalls...)
}

func worldStats() []models.CountrySummary {
	return []models.CountrySummary{
		{Country: "Turkey", Slug: "turkey", NewConfirmed: 1500, TotalConfirmed: 100000, NewRecovered: 900, TotalRecovered: 80000, NewDeaths: 40, TotalDeaths: 2000},
		{Country: "United States of America", Slug: "united-states", NewConfirmed: 25000, TotalConfirmed: 1234567, NewRecovered: 12000, TotalRecovered: 300000, NewDeaths: 900, TotalDeaths: 70000},
	}
}

func worldHistory() map[string][]models.DayCase {
	return map[string][]models.DayCase{
		"turkey": {
			{Country: "Turkey", Cases: 1, Date: "2020-03-11T00:00:00Z"},
			{Country: "Turkey", Cases: 5, Date: "2020-03-12T00:00:00Z"},
		},
		"united-states": {
			{Country: "United States of America", Cases: 1, Date: "2020-01-22T00:00:00Z"},
		},
	}
}

func newFake() *fakeFetcher {
	return &fakeFetcher{
		stats:   [][]models.CountrySummary{worldStats()},
		history: worldHistory(),
	}
}

func testConfig() ControllerConfig {
	return ControllerConfig{
		DefaultSlug: "turkey",
		Formatter:   countrystats.MustFormatter("en"),
	}
}

func newTestController(f Fetcher, slug string) *Controller {
	return NewController(f, testConfig(), slug, zap.NewNop())
}

func settle(t *testing.T, c *Controller) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Settled(ctx); err != nil {
		t.Fatalf("Settled() error = %v", err)
	}
	return c.Snapshot()
}

// awaitSummaryCall waits until summary call number want has started.
func awaitSummaryCall(t *testing.T, f *fakeFetcher, want int) {
	t.Helper()
	select {
	case got := <-f.entered:
		if got != want {
			t.Fatalf("summary call %d entered, want %d", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("summary call %d never started", want)
	}
}

func transportErr() error {
	return fmt.Errorf("%w: dial tcp: connection refused", covidapi.ErrTransport)
}
