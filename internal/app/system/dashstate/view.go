package dashstate

import (
	"time"

	"github.com/dalemusser/stratacovid/internal/domain/models"
)

// Counters are the six display strings shown on the dashboard.
type Counters struct {
	NewConfirmed   string `json:"new_confirmed"`
	NewRecovered   string `json:"new_recovered"`
	NewDeaths      string `json:"new_deaths"`
	TotalConfirmed string `json:"total_confirmed"`
	TotalRecovered string `json:"total_recovered"`
	TotalDeaths    string `json:"total_deaths"`
}

// View is the presentation form of a Snapshot, shared by templates and the
// JSON API.
type View struct {
	Phase        string                 `json:"phase"`
	Loading      bool                   `json:"loading"`
	Epoch        uint64                 `json:"epoch"`
	Slug         string                 `json:"slug"`
	Selected     models.CountryOption   `json:"selected"`
	Countries    []models.CountryOption `json:"countries"`
	Country      *models.CountrySummary `json:"country,omitempty"`
	Counters     Counters               `json:"counters"`
	Chart        []models.ChartDatum    `json:"chart"`
	ChartPending bool                   `json:"chart_pending"`
	ChartError   string                 `json:"chart_error,omitempty"`
	MultiYear    bool                   `json:"multi_year,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Notice       string                 `json:"notice,omitempty"`
	CanRetry     bool                   `json:"can_retry"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// View builds the presentation form of s.
func (s Snapshot) View() View {
	v := View{
		Phase:        s.Phase.String(),
		Loading:      s.Loading(),
		Epoch:        s.Epoch,
		Slug:         s.Slug,
		Selected:     models.CountryOption{Value: s.Slug, Label: s.SelectedLabel()},
		Countries:    s.CountryList(),
		Chart:        s.ChartSeries(),
		ChartPending: s.ChartPending,
		ChartError:   s.ChartError,
		MultiYear:    s.MultiYear,
		Error:        s.Error,
		Notice:       s.Notice,
		CanRetry:     s.Phase == PhaseError || s.ChartError != "",
		UpdatedAt:    s.UpdatedAt,
		Counters: Counters{
			NewConfirmed:   s.NewConfirmed(),
			NewRecovered:   s.NewRecovered(),
			NewDeaths:      s.NewDeaths(),
			TotalConfirmed: s.TotalConfirmed(),
			TotalRecovered: s.TotalRecovered(),
			TotalDeaths:    s.TotalDeaths(),
		},
	}
	if v.Countries == nil {
		v.Countries = []models.CountryOption{}
	}
	if !s.Loading() && s.Country != nil {
		c := *s.Country
		v.Country = &c
	}
	return v
}
