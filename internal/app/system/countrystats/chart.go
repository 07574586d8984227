package countrystats

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratacovid/internal/domain/models"
)

// dateLayouts are tried in order when parsing upstream dates.
// RFC3339Nano also accepts timestamps without fractional seconds.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses an upstream ISO date and returns it in UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// RelabelChartDate turns an ISO date into the chart's axis label
// "{dayOfMonth} - {monthIndex}", where monthIndex is zero-based
// (January = 0). The label drops the year.
func RelabelChartDate(raw string) (string, error) {
	t, err := ParseDate(raw)
	if err != nil {
		return "", err
	}
	return label(t), nil
}

func label(t time.Time) string {
	return fmt.Sprintf("%d - %d", t.Day(), int(t.Month())-1)
}

// BuildChart relabels every history record, keeping source order.
// A record with an unparsable date fails the whole series.
func BuildChart(days []models.DayCase) ([]models.ChartPoint, error) {
	points := make([]models.ChartPoint, 0, len(days))
	for i, d := range days {
		t, err := ParseDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("history record %d: %w", i, err)
		}
		points = append(points, models.ChartPoint{
			Date:  label(t),
			Cases: d.Cases,
			Day:   t,
		})
	}
	return points, nil
}

// SpansMultipleYears reports whether the series covers more than one
// calendar year, in which case axis labels can collide.
func SpansMultipleYears(points []models.ChartPoint) bool {
	if len(points) < 2 {
		return false
	}
	first := points[0].Day.Year()
	for _, p := range points[1:] {
		if p.Day.Year() != first {
			return true
		}
	}
	return false
}

// Series converts chart points into the {label, value} pairs the chart
// surface consumes.
func Series(points []models.ChartPoint) []models.ChartDatum {
	out := make([]models.ChartDatum, len(points))
	for i, p := range points {
		out[i] = models.ChartDatum{Label: p.Date, Value: p.Cases}
	}
	return out
}
