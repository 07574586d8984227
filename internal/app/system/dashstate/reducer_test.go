package dashstate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/app/system/covidapi"
	"github.com/dalemusser/stratacovid/internal/domain/models"
)

func initial(slug string) Snapshot {
	return Snapshot{Phase: PhaseUninitialized, Slug: slug, format: countrystats.MustFormatter("en")}
}

func mustReduce(t *testing.T, s Snapshot, ev Event) Snapshot {
	t.Helper()
	next, applied := Reduce(s, ev)
	if !applied {
		t.Fatalf("Reduce(%T) not applied", ev)
	}
	return next
}

func TestReduce_Started(t *testing.T) {
	s := mustReduce(t, initial("turkey"), Started{Epoch: 1, CycleID: "c1", Selection: models.CountryOption{Value: "turkey"}})

	if s.Phase != PhaseLoading {
		t.Errorf("Phase = %v, want loading", s.Phase)
	}
	if !s.Loading() {
		t.Error("Loading() = false, want true")
	}
	if s.Epoch != 1 || s.CycleID != "c1" {
		t.Errorf("Epoch/CycleID = %d/%q", s.Epoch, s.CycleID)
	}
	if !s.Selected.IsZero() {
		t.Errorf("Selected = %+v, want zero until seeded", s.Selected)
	}
}

func TestReduce_SummaryLoaded(t *testing.T) {
	s := mustReduce(t, initial("turkey"), Started{Epoch: 1, Selection: models.CountryOption{Value: "turkey"}})
	s = mustReduce(t, s, SummaryLoaded{Epoch: 1, Stats: worldStats()})

	if s.Phase != PhaseReady {
		t.Fatalf("Phase = %v, want ready", s.Phase)
	}
	if s.Loading() {
		t.Error("Loading() = true after summary")
	}
	if len(s.CountryList()) != 2 {
		t.Errorf("len(CountryList()) = %d, want 2", len(s.CountryList()))
	}
	if want := (models.CountryOption{Value: "turkey", Label: "Turkey"}); s.Selected != want {
		t.Errorf("Selected = %+v, want %+v", s.Selected, want)
	}
	if s.Country == nil || s.Country.Slug != "turkey" {
		t.Fatalf("Country = %+v, want turkey", s.Country)
	}
	if !s.ChartPending {
		t.Error("ChartPending = false, want true")
	}
	if got := s.TotalConfirmed(); got != "100,000" {
		t.Errorf("TotalConfirmed() = %q, want 100,000", got)
	}
}

func TestReduce_SeedsSelectedOnlyOnce(t *testing.T) {
	chosen := models.CountryOption{Value: "turkey", Label: "Türkiye"}
	s := mustReduce(t, initial("turkey"), Started{Epoch: 1, Selection: chosen})
	s = mustReduce(t, s, SummaryLoaded{Epoch: 1, Stats: worldStats()})

	if s.Selected != chosen {
		t.Errorf("Selected = %+v, want the chosen option %+v", s.Selected, chosen)
	}
}

func TestReduce_SummaryFailure(t *testing.T) {
	s := mustReduce(t, initial("turkey"), Started{Epoch: 1, Selection: models.CountryOption{Value: "turkey"}})
	s = mustReduce(t, s, SummaryLoaded{Epoch: 1, Err: transportErr()})

	if s.Phase != PhaseError {
		t.Fatalf("Phase = %v, want error", s.Phase)
	}
	if s.Loading() {
		t.Error("Loading() = true in error phase")
	}
	if s.Error != covidapi.Describe(transportErr()) {
		t.Errorf("Error = %q", s.Error)
	}
	if got := s.TotalDeaths(); got != countrystats.Placeholder {
		t.Errorf("TotalDeaths() = %q, want placeholder", got)
	}
	if !s.View().CanRetry {
		t.Error("View().CanRetry = false in error phase")
	}
}

func TestReduce_UnmatchedSlug(t *testing.T) {
	s := mustReduce(t, initial("atlantis"), Started{Epoch: 1, Selection: models.CountryOption{Value: "atlantis"}})
	s = mustReduce(t, s, SummaryLoaded{Epoch: 1, Stats: worldStats()})

	if s.Phase != PhaseReady {
		t.Fatalf("Phase = %v, want ready", s.Phase)
	}
	if s.Country != nil {
		t.Errorf("Country = %+v, want nil", s.Country)
	}
	if s.ChartPending {
		t.Error("ChartPending = true for unmatched slug")
	}
	if !strings.Contains(s.Notice, "atlantis") {
		t.Errorf("Notice = %q, want it to name the slug", s.Notice)
	}
	if len(s.CountryList()) != 2 {
		t.Errorf("len(CountryList()) = %d, want 2", len(s.CountryList()))
	}
	for name, got := range map[string]string{
		"TotalConfirmed": s.TotalConfirmed(),
		"TotalRecovered": s.TotalRecovered(),
		"TotalDeaths":    s.TotalDeaths(),
		"NewConfirmed":   s.NewConfirmed(),
		"NewRecovered":   s.NewRecovered(),
		"NewDeaths":      s.NewDeaths(),
	} {
		if got != countrystats.Placeholder {
			t.Errorf("%s() = %q, want placeholder", name, got)
		}
	}
}

func TestReduce_EmptySummary(t *testing.T) {
	s := mustReduce(t, initial("turkey"), Started{Epoch: 1, Selection: models.CountryOption{Value: "turkey"}})
	s = mustReduce(t, s, SummaryLoaded{Epoch: 1, Stats: []models.CountrySummary{}})

	if s.Phase != PhaseReady {
		t.Fatalf("Phase = %v, want ready", s.Phase)
	}
	if len(s.CountryList()) != 0 {
		t.Errorf("CountryList() = %+v, want empty", s.CountryList())
	}
	if s.Notice == "" {
		t.Error("Notice is empty for an empty summary")
	}
}

func TestReduce_HistoryLoaded(t *testing.T) {
	points, err := countrystats.BuildChart(worldHistory()["turkey"])
	if err != nil {
		t.Fatal(err)
	}
	s := mustReduce(t, initial("turkey"), Started{Epoch: 1, Selection: models.CountryOption{Value: "turkey"}})
	s = mustReduce(t, s, SummaryLoaded{Epoch: 1, Stats: worldStats()})
	s = mustReduce(t, s, HistoryLoaded{Epoch: 1, Points: points})

	if s.ChartPending {
		t.Error("ChartPending = true after history")
	}
	want := []models.ChartDatum{{Label: "11 - 2", Value: 1}, {Label: "12 - 2", Value: 5}}
	got := s.ChartSeries()
	if len(got) != len(want) {
		t.Fatalf("ChartSeries() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ChartSeries()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReduce_HistoryFailure(t *testing.T) {
	s := mustReduce(t, initial("turkey"), Started{Epoch: 1, Selection: models.CountryOption{Value: "turkey"}})
	s = mustReduce(t, s, SummaryLoaded{Epoch: 1, Stats: worldStats()})
	s = mustReduce(t, s, HistoryLoaded{Epoch: 1, Err: fmt.Errorf("%w: 502", covidapi.ErrStatus)})

	if s.Phase != PhaseReady {
		t.Errorf("Phase = %v, want ready", s.Phase)
	}
	if s.ChartError == "" {
		t.Error("ChartError is empty")
	}
	if got := s.TotalConfirmed(); got != "100,000" {
		t.Errorf("TotalConfirmed() = %q, counters should survive a chart failure", got)
	}
	if !s.View().CanRetry {
		t.Error("View().CanRetry = false after chart failure")
	}
}

func TestReduce_StaleEvents(t *testing.T) {
	s := mustReduce(t, initial("turkey"), Started{Epoch: 1, Selection: models.CountryOption{Value: "turkey"}})
	s = mustReduce(t, s, Started{Epoch: 2, Selection: models.CountryOption{Value: "united-states"}})

	cases := []struct {
		name string
		ev   Event
	}{
		{"old summary", SummaryLoaded{Epoch: 1, Stats: worldStats()}},
		{"old start", Started{Epoch: 1}},
		{"same start", Started{Epoch: 2}},
		{"history before summary", HistoryLoaded{Epoch: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, applied := Reduce(s, tc.ev)
			if applied {
				t.Fatal("stale event applied")
			}
			if next.Epoch != s.Epoch || next.Phase != s.Phase || next.Slug != s.Slug {
				t.Errorf("snapshot changed: %+v", next)
			}
		})
	}
}

func TestReduce_DoesNotModifyInput(t *testing.T) {
	s := mustReduce(t, initial("turkey"), Started{Epoch: 1, Selection: models.CountryOption{Value: "turkey"}})
	ready := mustReduce(t, s, SummaryLoaded{Epoch: 1, Stats: worldStats()})

	_ = mustReduce(t, ready, Started{Epoch: 2, Selection: models.CountryOption{Value: "united-states"}})

	if ready.Phase != PhaseReady || ready.Country == nil || ready.Slug != "turkey" {
		t.Errorf("input snapshot was modified: %+v", ready)
	}
	if s.Phase != PhaseLoading {
		t.Errorf("earlier snapshot was modified: %+v", s)
	}
}

func TestSnapshot_PlaceholdersWhileLoading(t *testing.T) {
	s := initial("turkey")
	c := worldStats()[0]
	s.Country = &c // a record alone is not enough while loading

	if got := s.TotalConfirmed(); got != countrystats.Placeholder {
		t.Errorf("TotalConfirmed() = %q, want placeholder", got)
	}
	if s.CountryList() != nil || s.ChartPoints() != nil {
		t.Error("derived lists should be empty while loading")
	}
	if v := s.View(); v.Country != nil || len(v.Countries) != 0 {
		t.Errorf("View() exposes data while loading: %+v", v)
	}
}

func TestPhase_String(t *testing.T) {
	for p, want := range map[Phase]string{
		PhaseUninitialized: "uninitialized",
		PhaseLoading:       "loading",
		PhaseReady:         "ready",
		PhaseError:         "error",
		Phase(42):          "unknown",
	} {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, got, want)
		}
	}
}

func TestReduce_UnknownEvent(t *testing.T) {
	type other struct{ Started }
	s := initial("turkey")
	if _, applied := Reduce(s, other{Started{Epoch: 9}}); applied {
		t.Error("unknown event type applied")
	}
}
