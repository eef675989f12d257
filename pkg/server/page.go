package server

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"retail-dashboard/pkg/calculator"
	"retail-dashboard/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templates embed.FS

// sampleRows: taille des extraits "Sales Data Sample" / "Forecast Sample".
const sampleRows = 5

var pageFuncs = template.FuncMap{
	"money": func(v float64) string {
		return decimal.NewFromFloat(v).StringFixed(2)
	},
	"money0": func(v float64) string {
		return decimal.NewFromFloat(v).StringFixed(0)
	},
	"month": calculator.FormatMonth,
	"day": func(t time.Time) string {
		return t.Format(dateLayout)
	},
	"chart": chartURL,
}

type countryOption struct {
	Name     string
	Selected bool
}

type page struct {
	*models.Dashboard
	Start, End     string
	MinDate        string
	MaxDate        string
	Countries      []countryOption
	Query          template.URL
	SalesSample    []models.MonthlySales
	ForecastSample []models.ForecastPoint
	NoDataMessage  string
}

func (s *Server) index(c *gin.Context) {
	d, ok := s.compute(c)
	if !ok {
		return
	}
	ds, _ := s.loader.Dataset()
	opts := calculator.Options(ds.Transactions, d.Filter)

	selected := make(map[string]bool, len(d.Filter.Countries))
	for _, name := range d.Filter.Countries {
		selected[name] = true
	}
	p := page{
		Dashboard:     d,
		NoDataMessage: models.NoDataMessage,
		Query:         template.URL(c.Request.URL.RawQuery),
	}
	if !opts.MinDate.IsZero() {
		p.MinDate, p.MaxDate = opts.MinDate.Format(dateLayout), opts.MaxDate.Format(dateLayout)
	}
	p.Start, p.End = p.MinDate, p.MaxDate
	if len(d.Filter.Dates) == 2 {
		p.Start, p.End = d.Filter.Dates[0].Format(dateLayout), d.Filter.Dates[1].Format(dateLayout)
	}
	for _, name := range opts.Countries {
		// sans sélection, tous les pays sont cochés
		p.Countries = append(p.Countries, countryOption{Name: name, Selected: len(selected) == 0 || selected[name]})
	}
	p.SalesSample = head(d.Forecast.History, sampleRows)
	p.ForecastSample = head(d.Forecast.Points, sampleRows)

	c.HTML(http.StatusOK, "dashboard.html", p)
}

func head[T any](xs []T, n int) []T {
	if len(xs) < n {
		return xs
	}
	return xs[:n]
}

// chartURL est utilisé par le gabarit pour garder le filtre dans les URLs d'images.
func chartURL(name string, query template.URL) template.URL {
	u := url.URL{Path: "/v1/charts/" + name + ".png", RawQuery: string(query)}
	return template.URL(u.String())
}
