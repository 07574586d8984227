package dashboardapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/covidapi"
	"github.com/dalemusser/stratacovid/internal/app/system/dashstate"
	"github.com/dalemusser/stratacovid/internal/app/system/viewer"
	"github.com/dalemusser/stratacovid/internal/domain/models"
	"github.com/dalemusser/stratacovid/internal/testutil"
	"go.uber.org/zap"
)

type fixture struct {
	fetcher  *testutil.StubFetcher
	registry *dashstate.Registry
	router   http.Handler
	session  http.Handler // router behind the viewer session middleware
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	viewers, err := viewer.NewManager("xK8nP2mQ9rT5vW7yB3cF6hJ0lN4sU1wZ", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{fetcher: testutil.NewStubFetcher()}
	f.registry = testutil.NewRegistry(f.fetcher)
	t.Cleanup(f.registry.Close)
	f.router = Routes(NewHandler(f.registry, viewers, nil, 5*time.Second, zap.NewNop()))
	f.session = viewers.Middleware(f.router)
	return f
}

// sessionCookie returns the last session cookie set on rec.
func sessionCookie(t *testing.T, rec *testutil.ResponseRecorder) *http.Cookie {
	t.Helper()
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = c
		}
	}
	if found == nil {
		t.Fatal("no session cookie set")
	}
	return found
}

func (f *fixture) do(t *testing.T, req *http.Request, out any) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (body %q)", req.URL, err, rec.Body.String())
		}
	}
	return rec
}

func TestState_Wait(t *testing.T) {
	f := newFixture(t)
	v := testutil.TestViewer()

	var view dashstate.View
	rec := f.do(t, testutil.NewViewerRequest(http.MethodGet, "/?wait=1", nil, v), &view)
	rec.AssertStatus(t, http.StatusOK)

	if view.Phase != "ready" || view.Loading {
		t.Fatalf("phase = %q loading = %v", view.Phase, view.Loading)
	}
	if view.Selected != (models.CountryOption{Value: "turkey", Label: "Turkey"}) {
		t.Errorf("selected = %+v", view.Selected)
	}
	if view.Counters.TotalConfirmed != "100,000" || view.Counters.NewDeaths != "40" {
		t.Errorf("counters = %+v", view.Counters)
	}
	if len(view.Countries) != 2 || len(view.Chart) != 3 {
		t.Errorf("countries = %d, chart = %d", len(view.Countries), len(view.Chart))
	}
}

func TestChartAndCountries(t *testing.T) {
	f := newFixture(t)
	v := testutil.TestViewer()

	var chart []models.ChartDatum
	f.do(t, testutil.NewViewerRequest(http.MethodGet, "/chart?wait=1", nil, v), &chart).AssertStatus(t, http.StatusOK)
	want := []models.ChartDatum{{Label: "11 - 2", Value: 1}, {Label: "12 - 2", Value: 5}, {Label: "13 - 2", Value: 6}}
	if fmt.Sprint(chart) != fmt.Sprint(want) {
		t.Errorf("chart = %+v, want %+v", chart, want)
	}

	var countries []models.CountryOption
	f.do(t, testutil.NewViewerRequest(http.MethodGet, "/countries", nil, v), &countries).AssertStatus(t, http.StatusOK)
	if len(countries) != 2 || countries[1] != (models.CountryOption{Value: "united-states", Label: "United States of America"}) {
		t.Errorf("countries = %+v", countries)
	}
}

func TestSelect(t *testing.T) {
	f := newFixture(t)
	v := testutil.TestViewer()

	var view dashstate.View
	rec := f.do(t, testutil.NewJSONRequest("/select?wait=1", `{"value":"united-states","label":"USA"}`, v), &view)
	rec.AssertStatus(t, http.StatusOK)

	if view.Slug != "united-states" || view.Selected.Label != "USA" {
		t.Errorf("selection = %q / %+v", view.Slug, view.Selected)
	}
	if view.Counters.TotalConfirmed != "1,234,567" {
		t.Errorf("TotalConfirmed = %q", view.Counters.TotalConfirmed)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("selection was not stored in the viewer session")
	}
	if n := f.fetcher.SummaryCalls(); n != 1 {
		t.Errorf("summary fetched %d times, want 1 (no default-country cycle)", n)
	}
}

func TestSelect_UnknownCountry(t *testing.T) {
	f := newFixture(t)
	v := testutil.TestViewer()

	var view dashstate.View
	f.do(t, testutil.NewJSONRequest("/select?wait=1", `{"value":"atlantis"}`, v), &view)

	if view.Phase != "ready" || view.Country != nil || view.Notice == "" {
		t.Errorf("view = %+v", view)
	}
	if view.Counters.TotalDeaths != "..." {
		t.Errorf("TotalDeaths = %q, want placeholder", view.Counters.TotalDeaths)
	}
}

func TestSelect_BadRequests(t *testing.T) {
	f := newFixture(t)
	v := testutil.TestViewer()

	for _, body := range []string{``, `{"value":""}`, `{"value":`, `{"slug":"turkey"}`, `{"value":"../summary"}`} {
		var resp map[string]string
		rec := f.do(t, testutil.NewJSONRequest("/select", body, v), &resp)
		if rec.Code != http.StatusBadRequest || resp["error"] == "" {
			t.Errorf("body %q: status %d, response %v", body, rec.Code, resp)
		}
	}
	if f.registry.Len() != 0 || f.fetcher.SummaryCalls() != 0 {
		t.Errorf("rejected selections registered %d viewers and fetched %d times", f.registry.Len(), f.fetcher.SummaryCalls())
	}
}

func TestSelect_RequiresJSON(t *testing.T) {
	f := newFixture(t)
	v := testutil.TestViewer()

	req := testutil.NewViewerRequest(http.MethodPost, "/select", strings.NewReader(`{"value":"united-states"}`), v)
	req.Header.Set("Content-Type", "text/plain")
	var resp map[string]string
	rec := f.do(t, req, &resp)
	rec.AssertStatus(t, http.StatusUnsupportedMediaType)
	if resp["error"] == "" {
		t.Error("missing error message")
	}
	if f.registry.Len() != 0 {
		t.Errorf("Len() = %d, want 0", f.registry.Len())
	}
}

func TestNewViewer_PlaceholdersUntilCookieReturns(t *testing.T) {
	f := newFixture(t)

	var first *testutil.ResponseRecorder
	for i := 0; i < 20; i++ {
		var view dashstate.View
		rec := testutil.NewRecorder()
		f.session.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/?wait=1"))
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatal(err)
		}
		rec.AssertStatus(t, http.StatusAccepted)
		if !view.Loading || view.Counters.TotalConfirmed != "..." {
			t.Fatalf("new viewer view = %+v", view)
		}
		if first == nil {
			first = rec
		}
	}
	if f.registry.Len() != 0 || f.fetcher.SummaryCalls() != 0 {
		t.Fatalf("cookieless requests registered %d viewers and fetched %d times", f.registry.Len(), f.fetcher.SummaryCalls())
	}

	req := testutil.NewRequest(http.MethodGet, "/?wait=1")
	req.AddCookie(sessionCookie(t, first))
	rec := testutil.NewRecorder()
	f.session.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	if f.registry.Len() != 1 {
		t.Errorf("Len() = %d after the cookie came back, want 1", f.registry.Len())
	}
}

func TestNewViewer_SelectionStartsOnReturn(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/select", strings.NewReader(`{"value":"united-states"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := testutil.NewRecorder()
	f.session.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusAccepted)
	if f.registry.Len() != 0 || f.fetcher.SummaryCalls() != 0 {
		t.Fatalf("new viewer selection registered %d viewers and fetched %d times", f.registry.Len(), f.fetcher.SummaryCalls())
	}

	next := testutil.NewRequest(http.MethodGet, "/?wait=1")
	next.AddCookie(sessionCookie(t, rec))
	rec = testutil.NewRecorder()
	f.session.ServeHTTP(rec, next)
	rec.AssertStatus(t, http.StatusOK)

	var view dashstate.View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.Slug != "united-states" || view.Counters.TotalConfirmed != "1,234,567" {
		t.Errorf("view = %q / %+v", view.Slug, view.Counters)
	}
	if n := f.fetcher.SummaryCalls(); n != 1 {
		t.Errorf("summary fetched %d times, want 1", n)
	}
}

func TestRetry(t *testing.T) {
	f := newFixture(t)
	f.fetcher.SetSummaryErr(fmt.Errorf("%w: 503", covidapi.ErrStatus))
	v := testutil.TestViewer()

	var view dashstate.View
	f.do(t, testutil.NewViewerRequest(http.MethodGet, "/?wait=1", nil, v), &view)
	if view.Phase != "error" || !view.CanRetry || view.Error == "" {
		t.Fatalf("view = %+v, want error with retry", view)
	}

	f.fetcher.SetSummaryErr(nil)
	var after dashstate.View
	f.do(t, testutil.NewViewerRequest(http.MethodPost, "/retry?wait=1", nil, v), &after).AssertStatus(t, http.StatusOK)
	if after.Phase != "ready" || after.Error != "" || after.CanRetry {
		t.Errorf("after retry view = %+v", after)
	}
}

func TestMissingViewer(t *testing.T) {
	f := newFixture(t)

	var resp map[string]string
	rec := f.do(t, testutil.NewRequest(http.MethodGet, "/"), &resp)
	if rec.Code != http.StatusInternalServerError || resp["error"] == "" {
		t.Errorf("status %d, response %v", rec.Code, resp)
	}
}
