package server

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"retail-dashboard/pkg/calculator"
	"retail-dashboard/pkg/charts"
	"retail-dashboard/pkg/export"
	"retail-dashboard/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// dataset renvoie le jeu de données ou répond 500.
func (s *Server) dataset(c *gin.Context) (*models.Dataset, bool) {
	ds, err := s.loader.Dataset()
	if err != nil {
		s.metrics.DatasetLoadErrors.Inc()
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return ds, true
}

// compute lit le filtre, charge les données et calcule tout le tableau de bord.
// En cas d'échec la réponse est déjà écrite.
func (s *Server) compute(c *gin.Context) (*models.Dashboard, bool) {
	f, err := parseFilter(c)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	ds, ok := s.dataset(c)
	if !ok {
		return nil, false
	}

	started := time.Now()
	d, err := calculator.Run(c.Request.Context(), ds, models.Config{
		Filter:          f,
		ForecastPeriods: s.opts.ForecastPeriods,
		TopN:            s.opts.TopN,
		Verbose:         s.opts.Verbose,
	}, s.logger)
	s.metrics.PipelineDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		s.metrics.PipelineRuns.WithLabelValues("error").Inc()
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}

	s.metrics.FilteredRows.Observe(float64(d.Rows))
	switch {
	case d.NoData:
		s.metrics.PipelineRuns.WithLabelValues("no_data").Inc()
	case !d.Forecast.OK():
		s.metrics.ForecastFailures.Inc()
		s.metrics.PipelineRuns.WithLabelValues("forecast_error").Inc()
	default:
		s.metrics.PipelineRuns.WithLabelValues("ok").Inc()
	}
	return d, true
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getFilters(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ds, ok := s.dataset(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, calculator.Options(ds.Transactions, f))
}

func (s *Server) getDashboard(c *gin.Context) {
	if d, ok := s.compute(c); ok {
		c.JSON(http.StatusOK, d)
	}
}

func (s *Server) getKPIs(c *gin.Context) {
	if d, ok := s.compute(c); ok {
		c.JSON(http.StatusOK, gin.H{"no_data": d.NoData, "rows": d.Rows, "kpis": d.KPIs})
	}
}

func (s *Server) getOverview(c *gin.Context) {
	if d, ok := s.compute(c); ok {
		body := gin.H{"no_data": d.NoData, "overview": d.Overview}
		if d.NoData {
			body["warning"] = models.NoDataMessage
		}
		c.JSON(http.StatusOK, body)
	}
}

func (s *Server) getSegmentation(c *gin.Context) {
	if d, ok := s.compute(c); ok {
		c.JSON(http.StatusOK, d.Segmentation)
	}
}

func (s *Server) getChurn(c *gin.Context) {
	if d, ok := s.compute(c); ok {
		c.JSON(http.StatusOK, d.Churn)
	}
}

func (s *Server) getForecast(c *gin.Context) {
	if d, ok := s.compute(c); ok {
		c.JSON(http.StatusOK, d.Forecast)
	}
}

// chartNames → rendu de chaque graphique à partir du tableau de bord calculé.
var chartNames = map[string]func(d *models.Dashboard) ([]byte, error){
	"monthly": func(d *models.Dashboard) ([]byte, error) {
		return charts.MonthlySales(d.Overview.MonthlySales)
	},
	"products": func(d *models.Dashboard) ([]byte, error) {
		return charts.Ranked("Top 10 Products", "Quantity Sold", d.Overview.TopProducts)
	},
	"countries": func(d *models.Dashboard) ([]byte, error) {
		return charts.Ranked("Top Countries by Revenue", "Revenue (€)", d.Overview.TopCountries)
	},
	"segments": func(d *models.Dashboard) ([]byte, error) {
		return charts.Counts("Customer Segments (Sorted)", "Segment", d.Segmentation.Segments)
	},
	"clusters": func(d *models.Dashboard) ([]byte, error) {
		return charts.Counts("Cluster Distribution", "Cluster", d.Segmentation.Clusters)
	},
	"churn-segment": func(d *models.Dashboard) ([]byte, error) {
		return charts.Churn("Churn Rate by Segment", d.Churn.BySegment, false)
	},
	"churn-cluster": func(d *models.Dashboard) ([]byte, error) {
		return charts.Churn("Churn Rate by Cluster", d.Churn.ByCluster, true)
	},
	"forecast": func(d *models.Dashboard) ([]byte, error) {
		return charts.Forecast(d.Forecast)
	},
}

func (s *Server) getChart(c *gin.Context) {
	file := c.Param("file")
	name, isPNG := strings.CutSuffix(file, ".png")
	draw, known := chartNames[name]
	if !isPNG || !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown chart " + file})
		return
	}
	d, ok := s.compute(c)
	if !ok {
		return
	}

	png, err := draw(d)
	switch {
	case errors.Is(err, charts.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"warning": models.NoDataMessage})
	case err != nil && name == "forecast":
		// échec du modèle: erreur affichable, pas une panne du serveur
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case err != nil:
		s.logger.WithFields(logrus.Fields{"chart": name, "error": err}).Error("render chart")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Data(http.StatusOK, "image/png", png)
	}
}

func (s *Server) getExport(c *gin.Context) {
	d, ok := s.compute(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, d); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="retail-dashboard.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
