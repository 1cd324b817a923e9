// Package render draws report charts as PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/okian/dedidash/internal/domain/types"
)

// ErrRender is returned when a chart cannot be drawn.
var ErrRender = errors.New("render chart")

// Chart geometry.
const (
	defaultWidth    = 8 * vg.Inch
	defaultHeight   = 4 * vg.Inch
	barWidth        = vg.Length(18)
	maxLeaderboard  = 15
	noDataTitleTail = " (no data)"
)

var (
	barColour     = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	topBarColour  = color.RGBA{R: 0xe3, G: 0xa0, B: 0x08, A: 0xff}
	unrankedColor = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
)

// bar is one labelled value.
type bar struct {
	label string
	value float64
}

// LeaderboardChart draws the score of the top roster players.
func LeaderboardChart(lb types.Leaderboard) ([]byte, error) {
	rows := lb.Rows
	if len(rows) > maxLeaderboard {
		rows = rows[:maxLeaderboard]
	}
	bars := make([]bar, len(rows))
	for i, row := range rows {
		bars[i] = bar{label: row.Player, value: row.Score}
	}
	return barChart("Leaderboard "+lb.Window.String(), "Score", bars, func(i int) color.Color {
		if i == 0 {
			return topBarColour
		}
		return barColour
	})
}

// RankHistogramChart draws how a player's records spread over ranks.
func RankHistogramChart(pa types.PlayerAnalytics) ([]byte, error) {
	bars := make([]bar, len(pa.RankHistogram))
	for i, b := range pa.RankHistogram {
		bars[i] = bar{label: b.Label, value: float64(b.Count)}
	}
	if pa.Empty {
		bars = nil
	}
	return barChart(pa.Player+" ranks", "Records", bars, func(i int) color.Color {
		if pa.RankHistogram[i].Min == 0 && pa.RankHistogram[i].Max == 0 {
			return unrankedColor
		}
		return barColour
	})
}

// EnvironmentChart draws a player's records per environment.
func EnvironmentChart(pa types.PlayerAnalytics) ([]byte, error) {
	bars := make([]bar, 0, len(pa.Environments))
	for _, e := range pa.Environments {
		bars = append(bars, bar{label: e.Environment, value: float64(e.Count)})
	}
	if pa.Empty {
		bars = nil
	}
	return barChart(pa.Player+" environments", "Records", bars, func(int) color.Color { return barColour })
}

// barChart renders bars as a PNG. No bars yields an empty, titled chart.
func barChart(title, yLabel string, bars []bar, colour func(i int) color.Color) ([]byte, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	p.Y.Min = 0

	if len(bars) == 0 {
		p.Title.Text += noDataTitleTail
		p.HideX()
		p.Y.Max = 1
		return encode(p)
	}

	labels := make([]string, len(bars))
	for i, b := range bars {
		labels[i] = b.label
		// One chart per bar keeps a colour per bar.
		values := make(plotter.Values, len(bars))
		values[i] = b.value
		chart, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRender, title, err)
		}
		chart.Color = colour(i)
		chart.LineStyle.Width = 0
		p.Add(chart)
	}
	p.NominalX(labels...)
	return encode(p)
}

func encode(p *plot.Plot) ([]byte, error) {
	w, err := p.WriterTo(defaultWidth, defaultHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: write png: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}
