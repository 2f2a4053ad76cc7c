package telemetry

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Plot dimensions in pixels.
const (
	plotWidth  = 1200
	plotHeight = 500
)

// Series colors, one per species.
var (
	hostColor     = drawing.Color{R: 46, G: 139, B: 87, A: 255}
	enemyColor    = chart.ColorRed
	symbiontColor = drawing.Color{R: 255, G: 165, B: 0, A: 255}
)

// PlotTrajectories renders mean H, P and M density per snapshot on the left
// axis and the coexistence fraction on the right axis as a PNG at path.
// At least two summaries are needed.
func PlotTrajectories(path string, summaries []Summary) error {
	if len(summaries) < 2 {
		return errors.New("need at least two snapshots to plot")
	}

	n := len(summaries)
	ticks := make([]float64, n)
	host := make([]float64, n)
	enemy := make([]float64, n)
	symbiont := make([]float64, n)
	coexist := make([]float64, n)

	yMax := 0.0
	for i, s := range summaries {
		ticks[i] = float64(s.Tick)
		host[i], enemy[i], symbiont[i] = s.HostMean, s.EnemyMean, s.SymbiontMean
		coexist[i] = s.Coexistence

		for _, v := range [...]float64{s.HostMean, s.EnemyMean, s.SymbiontMean} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("non-finite density at tick %d", s.Tick)
			}
			yMax = max(yMax, v)
		}
	}
	if yMax <= 0 {
		yMax = 1
	}

	graph := chart.Chart{
		Width:  plotWidth,
		Height: plotHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name: "t",
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "mean density",
			Range: &chart.ContinuousRange{Min: 0, Max: yMax * 1.05},
		},
		YAxisSecondary: chart.YAxis{
			Name:  "coexistence",
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "host",
				XValues: ticks,
				YValues: host,
				Style:   chart.Style{StrokeColor: hostColor, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "enemy",
				XValues: ticks,
				YValues: enemy,
				Style:   chart.Style{StrokeColor: enemyColor, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "symbiont",
				XValues: ticks,
				YValues: symbiont,
				Style:   chart.Style{StrokeColor: symbiontColor, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "coexistence",
				YAxis:   chart.YAxisSecondary,
				XValues: ticks,
				YValues: coexist,
				Style: chart.Style{
					StrokeColor:     drawing.ColorBlack,
					StrokeWidth:     1,
					StrokeDashArray: []float64{5, 3},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.LegendThin(&graph)}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating plot: %w", err)
	}
	if err := graph.Render(chart.PNG, f); err != nil {
		f.Close()
		return fmt.Errorf("rendering plot: %w", err)
	}
	return f.Close()
}
