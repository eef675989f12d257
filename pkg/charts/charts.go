// Package charts rend les graphiques du tableau de bord en PNG (gonum/plot).
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"time"

	"retail-dashboard/pkg/models"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNoData: rien à tracer pour la sélection courante.
var ErrNoData = errors.New(models.NoDataMessage)

var (
	blue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	orange = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	band   = color.RGBA{R: 255, G: 165, B: 0, A: 60}
)

const (
	width  = 10 * vg.Inch
	height = 5 * vg.Inch
)

// MonthlySales → courbe du chiffre d'affaires mensuel.
func MonthlySales(series []models.MonthlySales) ([]byte, error) {
	if len(series) == 0 {
		return nil, ErrNoData
	}
	p := newPlot("Monthly Sales Trend", "Date", "Sales (€)")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	pts := make(plotter.XYs, len(series))
	for i, m := range series {
		pts[i].X = unix(m.Month)
		pts[i].Y = m.Revenue
	}
	line, scatter, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.Color = blue
	scatter.GlyphStyle.Color = blue
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(line, scatter)

	return render(p, width, height)
}

// Ranked → barres horizontales (top produits, top pays), le premier en haut.
func Ranked(title, valueLabel string, rows []models.Ranked) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	// NominalY place l'index 0 en bas: on inverse l'ordre.
	for i, r := range rows {
		j := len(rows) - 1 - i
		values[j] = r.Value
		labels[j] = r.Label
	}
	p := newPlot(title, valueLabel, "")
	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = blue
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalY(labels...)

	return render(p, width, vg.Length(len(rows))*0.5*vg.Inch+1.5*vg.Inch)
}

// Counts → barres verticales par segment ou cluster, avec l'effectif au-dessus.
func Counts(title, category string, rows []models.CategoryCount) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	var max float64
	for i, r := range rows {
		values[i] = float64(r.Count)
		labels[i] = r.Label
		if values[i] > max {
			max = values[i]
		}
	}
	p := newPlot(title, category, "Number of Customers")
	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, err
	}
	bars.Color = blue
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	p.Y.Min = 0
	p.Y.Max = max * 1.15

	xys := make(plotter.XYs, len(rows))
	texts := make([]string, len(rows))
	for i, v := range values {
		xys[i] = plotter.XY{X: float64(i), Y: v + max*0.02}
		texts[i] = fmt.Sprintf("%d", rows[i].Count)
	}
	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	p.Add(lbl)

	return render(p, width, height)
}

// Churn → taux de churn par groupe; percent choisit l'échelle [0,100] au lieu de [0,1].
func Churn(title string, rows []models.ChurnRate, percent bool) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.Rate
		if percent {
			values[i] = r.Percent
		}
		labels[i] = r.Group
	}
	yLabel := "Churn rate"
	if percent {
		yLabel = "Churn rate (%)"
	}
	p := newPlot(title, "", yLabel)
	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, err
	}
	bars.Color = blue
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	p.Y.Min = 0
	p.Y.Max = 1
	if percent {
		p.Y.Max = 100
	}

	return render(p, width, height)
}

// Forecast → historique, prévision et intervalle de confiance.
func Forecast(view models.ForecastView) ([]byte, error) {
	if !view.OK() {
		if view.Error != "" && view.Error != models.NoDataMessage {
			return nil, errors.New(view.Error)
		}
		return nil, ErrNoData
	}
	p := newPlot("Monthly Sales Forecast", "Date", "Sales (£)")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	// bande yhat_lower → yhat_upper
	n := len(view.Points)
	area := make(plotter.XYs, 0, 2*n)
	for _, pt := range view.Points {
		area = append(area, plotter.XY{X: unix(pt.DS), Y: pt.YHatUpper})
	}
	for i := n - 1; i >= 0; i-- {
		pt := view.Points[i]
		area = append(area, plotter.XY{X: unix(pt.DS), Y: pt.YHatLower})
	}
	poly, err := plotter.NewPolygon(area)
	if err != nil {
		return nil, err
	}
	poly.Color = band
	poly.LineStyle.Width = 0
	p.Add(poly)

	yhat := make(plotter.XYs, n)
	for i, pt := range view.Points {
		yhat[i] = plotter.XY{X: unix(pt.DS), Y: pt.YHat}
	}
	fl, err := plotter.NewLine(yhat)
	if err != nil {
		return nil, err
	}
	fl.Color = orange
	p.Add(fl)

	if len(view.History) > 0 {
		hist := make(plotter.XYs, len(view.History))
		for i, m := range view.History {
			hist[i] = plotter.XY{X: unix(m.Month), Y: m.Revenue}
		}
		hl, hs, err := plotter.NewLinePoints(hist)
		if err != nil {
			return nil, err
		}
		hl.Color = blue
		hs.GlyphStyle.Color = blue
		hs.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(hl, hs)
		p.Legend.Add("Historical Sales", hl, hs)
	}
	p.Legend.Add("Forecast", fl)
	p.Legend.Add("Confidence Interval", poly)
	p.Legend.Top = true

	return render(p, width, height)
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Add(plotter.NewGrid())
	return p
}

func render(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unix(t time.Time) float64 { return float64(t.Unix()) }
