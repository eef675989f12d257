package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"retail-dashboard/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubLoader struct {
	ds  *models.Dataset
	err error
}

func (l stubLoader) Dataset() (*models.Dataset, error) { return l.ds, l.err }

func dataset() *models.Dataset {
	var txs []models.Transaction
	start := time.Date(2010, 12, 1, 10, 0, 0, 0, time.UTC)
	countries := []string{"United Kingdom", "France"}
	for i := 0; i < 13; i++ {
		amount := decimal.NewFromInt(int64(100 + 10*i))
		txs = append(txs, models.Transaction{
			InvoiceNo:   "INV" + string(rune('A'+i)),
			InvoiceDate: start.AddDate(0, i, 2),
			Description: "MUG",
			Quantity:    2,
			UnitPrice:   amount.Div(decimal.NewFromInt(2)),
			Amount:      amount,
			CustomerID:  "1",
			Country:     countries[i%2],
		})
	}
	return &models.Dataset{
		Transactions: txs,
		Segments: []models.CustomerSegment{
			{CustomerID: "1", Segment: "Loyal", Cluster: 0, Churned: false},
			{CustomerID: "2", Segment: "Lost", Cluster: 1, Churned: true},
		},
	}
}

func newTestServer(t *testing.T, l Loader) http.Handler {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s, err := New(l, Options{}, logger)
	require.NoError(t, err)
	return s.Handler()
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestNew_RejectsNilLoader(t *testing.T) {
	_, err := New(nil, Options{}, nil)
	assert.Error(t, err)
}

func TestHealthz_UpEvenWhenLoadFails(t *testing.T) {
	h := newTestServer(t, stubLoader{err: errors.New("transactions: no such file")})

	w := get(h, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(h, "/v1/dashboard")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "no such file")

	w = get(h, "/")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDashboard_JSON(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})

	w := get(h, "/v1/dashboard")
	require.Equal(t, http.StatusOK, w.Code)

	var d models.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 13, d.Rows)
	assert.False(t, d.NoData)
	assert.Len(t, d.Overview.MonthlySales, 13)
	assert.Len(t, d.Forecast.Points, 13+6)
	assert.Equal(t, 13, d.KPIs.Orders)
}

func TestDashboard_Filters(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})

	w := get(h, "/v1/kpis?country=France")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Rows int               `json:"rows"`
		KPIs models.KPISummary `json:"kpis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 6, body.Rows)

	w = get(h, "/v1/kpis?date=2011-01-01&date=2011-03-31")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Rows)

	// a single date does not filter
	w = get(h, "/v1/kpis?date=2011-01-01")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 13, body.Rows)
}

func TestDashboard_InvalidDateIsBadRequest(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})
	for _, target := range []string{"/v1/dashboard?date=01/02/2011", "/v1/filters?date=tomorrow", "/v1/charts/monthly.png?date=x"} {
		w := get(h, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestOverview_NoDataWarning(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})
	w := get(h, "/v1/overview?country=Atlantis")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.NoDataMessage)
}

func TestFilters(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})
	w := get(h, "/v1/filters")
	require.Equal(t, http.StatusOK, w.Code)

	var opts models.FilterOptions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opts))
	assert.Equal(t, []string{"United Kingdom", "France"}, opts.Countries)
	assert.Equal(t, time.Date(2010, 12, 3, 10, 0, 0, 0, time.UTC), opts.MinDate)
}

func TestCharts(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})

	for _, name := range []string{"monthly", "products", "countries", "segments", "clusters", "churn-segment", "churn-cluster", "forecast"} {
		w := get(h, "/v1/charts/"+name+".png")
		require.Equal(t, http.StatusOK, w.Code, name)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"), name)
		assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"), name)
	}
}

func TestCharts_UnknownAndEmpty(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})

	assert.Equal(t, http.StatusNotFound, get(h, "/v1/charts/pie.png").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/v1/charts/monthly.svg").Code)

	for _, name := range []string{"monthly", "products", "forecast"} {
		w := get(h, "/v1/charts/"+name+".png?country=Atlantis")
		assert.Equal(t, http.StatusNotFound, w.Code, name)
		assert.JSONEq(t, `{"warning": "`+models.NoDataMessage+`"}`, w.Body.String())
	}
}

func TestCharts_ForecastErrorIsReported(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})
	// one month only: not enough observations to fit
	w := get(h, "/v1/charts/forecast.png?date=2011-01-01&date=2011-01-31")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Error in forecasting")

	w = get(h, "/v1/forecast?date=2011-01-01&date=2011-01-31")
	require.Equal(t, http.StatusOK, w.Code)
	var view models.ForecastView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Contains(t, view.Error, "Error in forecasting")
	assert.Len(t, view.History, 1)
}

func TestExport(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})
	w := get(h, "/v1/export.xlsx?country=France")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "retail-dashboard.xlsx")
	// xlsx is a zip archive
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))
}

func TestIndex(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})

	w := get(h, "/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Online Retail II dashboard")
	assert.Contains(t, body, "/v1/charts/monthly.png")
	assert.Contains(t, body, "Forecast Sample:")
	assert.Contains(t, body, `value="2010-12-03"`)

	w = get(h, "/?country=Atlantis")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.NoDataMessage)
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})

	w := get(h, "/healthz")
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(headerRequestID))
}

func TestMetrics(t *testing.T) {
	h := newTestServer(t, stubLoader{ds: dataset()})
	get(h, "/v1/dashboard")
	get(h, "/v1/dashboard?country=Atlantis")

	w := get(h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `retail_dashboard_http_requests_total{method="GET",route="/v1/dashboard",status="200"} 2`)
	assert.Contains(t, body, `retail_dashboard_pipeline_runs_total{outcome="ok"} 1`)
	assert.Contains(t, body, `retail_dashboard_pipeline_runs_total{outcome="no_data"} 1`)
}
