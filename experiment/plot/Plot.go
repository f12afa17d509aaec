// Package plot renders the results of an experiment as interactive
// HTML charts
package plot

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/samuelfneumann/tilesarsa/agent/linear/discrete/policy"
	"github.com/samuelfneumann/tilesarsa/utils/floatutils"
	"github.com/samuelfneumann/tilesarsa/utils/matutils"
	"gonum.org/v1/gonum/mat"
)

// Series is a named sequence of per-episode measurements, such as the
// episodic return or episode length. If Window > 1, a trailing moving
// average over Window episodes is drawn alongside the raw data.
type Series struct {
	Name   string
	Data   []float64
	Window int
}

// LearningCurve writes an HTML page to w with one line chart per
// series, indexed by episode
func LearningCurve(w io.Writer, series ...Series) error {
	if len(series) == 0 {
		return fmt.Errorf("learningCurve: no series to plot")
	}

	page := components.NewPage()
	page.SetPageTitle("Learning Curves")

	for _, s := range series {
		if len(s.Data) == 0 {
			return fmt.Errorf("learningCurve: series %q is empty", s.Name)
		}

		episodes := make([]string, len(s.Data))
		for i := range episodes {
			episodes[i] = fmt.Sprint(i + 1)
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: s.Name}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true),
				Trigger: "axis"}),
			charts.WithXAxisOpts(opts.XAxis{Name: "Episode"}),
			charts.WithYAxisOpts(opts.YAxis{Name: s.Name, Scale: opts.Bool(true)}),
		)
		line.SetXAxis(episodes).AddSeries(s.Name, lineData(s.Data))

		if s.Window > 1 {
			avg := floatutils.MovingAverage(s.Data, s.Window)
			name := fmt.Sprintf("%s (%d episode average)", s.Name, s.Window)
			line.AddSeries(name, lineData(avg))
		}
		page.AddCharts(line)
	}

	return page.Render(w)
}

func lineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}
	return data
}

// PolicyHeatmap writes an HTML page to w with two heat maps over a
// two-dimensional observation space: the greedy action and the
// cost-to-go, -max_a Q(s, a), of each cell. The space [low, high] is
// split into resolution cells along each dimension, and each cell is
// evaluated at its centre.
//
// Querying a tile-coded agent may add codewords to its tile coder, so
// a heat map should be drawn after learning is finished.
func PolicyHeatmap(w io.Writer, values policy.ActionValuer, low,
	high []float64, resolution int) error {
	if len(low) != 2 || len(high) != 2 {
		return fmt.Errorf("policyHeatmap: only two dimensional observations "+
			"can be plotted (dimensions = %d, %d)", len(low), len(high))
	}
	if resolution < 1 {
		return fmt.Errorf("policyHeatmap: resolution must be positive "+
			"(resolution = %d)", resolution)
	}
	for i := range low {
		if !(high[i] > low[i]) {
			return fmt.Errorf("policyHeatmap: dimension %d has empty range "+
				"[%v, %v]", i, low[i], high[i])
		}
	}

	xs := centres(low[0], high[0], resolution)
	ys := centres(low[1], high[1], resolution)

	actions := make([]opts.HeatMapData, 0, resolution*resolution)
	costs := make([]opts.HeatMapData, 0, resolution*resolution)
	minAction, maxAction := math.Inf(1), math.Inf(-1)
	minCost, maxCost := math.Inf(1), math.Inf(-1)

	obs := mat.NewVecDense(2, nil)
	for i, x := range xs {
		for j, y := range ys {
			obs.SetVec(0, x)
			obs.SetVec(1, y)

			q := values.ActionValues(obs)
			greedy := matutils.MaxVec(q)
			cost := -q.AtVec(greedy)

			actions = append(actions, opts.HeatMapData{
				Value: [3]interface{}{i, j, greedy},
			})
			costs = append(costs, opts.HeatMapData{
				Value: [3]interface{}{i, j, cost},
			})

			minAction = math.Min(minAction, float64(greedy))
			maxAction = math.Max(maxAction, float64(greedy))
			minCost = math.Min(minCost, cost)
			maxCost = math.Max(maxCost, cost)
		}
	}

	xLabels, yLabels := labels(xs), labels(ys)

	page := components.NewPage()
	page.SetPageTitle("Policy")
	page.AddCharts(
		heatmap("Greedy Action", xLabels, yLabels, actions, minAction,
			maxAction),
		heatmap("Cost-to-go", xLabels, yLabels, costs, minCost, maxCost),
	)
	return page.Render(w)
}

func heatmap(title string, xLabels, yLabels []string,
	data []opts.HeatMapData, min, max float64) *charts.HeatMap {
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Position",
			Type: "category",
			Data: xLabels,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Velocity",
			Type: "category",
			Data: yLabels,
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(min),
			Max:        float32(max),
			InRange: &opts.VisualMapInRange{
				Color: []string{"#313695", "#ffffbf", "#a50026"},
			},
		}),
	)
	hm.SetXAxis(xLabels).AddSeries(title, data)
	return hm
}

// centres returns the centres of n equal-width cells over [low, high]
func centres(low, high float64, n int) []float64 {
	width := (high - low) / float64(n)
	c := make([]float64, n)
	for i := range c {
		c[i] = low + width*(float64(i)+0.5)
	}
	return c
}

func labels(values []float64) []string {
	l := make([]string, len(values))
	for i, v := range values {
		l[i] = fmt.Sprintf("%.3f", v)
	}
	return l
}
