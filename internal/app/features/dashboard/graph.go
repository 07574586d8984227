package dashboard

import (
	"fmt"
	"strings"

	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/domain/models"
)

// Chart viewport in SVG user units. The plot area sits inside the padding;
// the left and bottom padding hold the axis labels.
const (
	graphWidth  = 800.0
	graphHeight = 260.0

	padLeft   = 64.0
	padRight  = 12.0
	padTop    = 10.0
	padBottom = 28.0

	gridLines = 4 // horizontal lines above the baseline
	maxXTicks = 6
)

// Point is one day of the series in viewport coordinates.
type Point struct {
	X, Y  float64
	Label string
	Value string
}

// GridLine is a horizontal rule with its y-axis label.
type GridLine struct {
	Y     float64
	Label string
}

// Tick is an x-axis label.
type Tick struct {
	X     float64
	Label string
}

// Graph is the server-rendered area chart.
type Graph struct {
	Width, Height float64
	Left, Right   float64 // plot area bounds
	Top, Bottom   float64
	LabelX        float64 // right edge of the y-axis labels
	LabelY        float64 // baseline of the x-axis labels

	Points []Point
	Line   string // polyline points attribute
	Area   string // closed path under the line
	Grid   []GridLine
	XTicks []Tick

	Max         string
	First, Last string
	Empty       bool
}

// buildGraph lays out series as an area chart scaled to the largest value,
// with evenly spaced gridlines and up to maxXTicks date labels.
func buildGraph(series []models.ChartDatum, format *countrystats.Formatter) Graph {
	g := Graph{
		Width:  graphWidth,
		Height: graphHeight,
		Left:   padLeft,
		Right:  graphWidth - padRight,
		Top:    padTop,
		Bottom: graphHeight - padBottom,
		LabelX: padLeft - 6,
		LabelY: graphHeight - 8,
		Empty:  len(series) == 0,
	}
	if g.Empty {
		return g
	}

	var max int64
	for _, d := range series {
		if d.Value > max {
			max = d.Value
		}
	}
	g.Max = format.Count(max)
	g.First = series[0].Label
	g.Last = series[len(series)-1].Label

	plotW := g.Right - g.Left
	plotH := g.Bottom - g.Top

	g.Points = make([]Point, len(series))
	for i, d := range series {
		x := g.Left + plotW/2
		if len(series) > 1 {
			x = g.Left + plotW*float64(i)/float64(len(series)-1)
		}
		y := g.Bottom
		if max > 0 && d.Value > 0 {
			y = g.Bottom - plotH*float64(d.Value)/float64(max)
		}
		g.Points[i] = Point{X: x, Y: y, Label: d.Label, Value: format.Count(d.Value)}
	}

	var line, area strings.Builder
	fmt.Fprintf(&area, "M%.2f,%.2f", g.Points[0].X, g.Bottom)
	for i, p := range g.Points {
		if i > 0 {
			line.WriteByte(' ')
		}
		fmt.Fprintf(&line, "%.2f,%.2f", p.X, p.Y)
		fmt.Fprintf(&area, " L%.2f,%.2f", p.X, p.Y)
	}
	fmt.Fprintf(&area, " L%.2f,%.2f Z", g.Points[len(g.Points)-1].X, g.Bottom)
	g.Line = line.String()
	g.Area = area.String()

	g.Grid = make([]GridLine, 0, gridLines+1)
	for k := 0; k <= gridLines; k++ {
		g.Grid = append(g.Grid, GridLine{
			Y:     g.Bottom - plotH*float64(k)/gridLines,
			Label: format.Count(max * int64(k) / gridLines),
		})
	}

	g.XTicks = xTicks(g.Points)
	return g
}

// xTicks picks up to maxXTicks evenly spaced points, always including the
// first and last.
func xTicks(points []Point) []Tick {
	n := len(points)
	if n <= maxXTicks {
		ticks := make([]Tick, n)
		for i, p := range points {
			ticks[i] = Tick{X: p.X, Label: p.Label}
		}
		return ticks
	}
	ticks := make([]Tick, 0, maxXTicks)
	for k := 0; k < maxXTicks; k++ {
		p := points[k*(n-1)/(maxXTicks-1)]
		ticks = append(ticks, Tick{X: p.X, Label: p.Label})
	}
	return ticks
}
