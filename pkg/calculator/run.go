package calculator

import (
	"context"
	"fmt"
	"time"

	"retail-dashboard/pkg/models"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

const (
	defaultForecastPeriods = 6
	defaultTopN            = 10
)

type stage struct {
	name string
	run  func(d *models.Dashboard)
}

// Run exécute tout le pipeline (filtre → agrégats → prévision) pour une interaction.
// ds est partagé et n'est jamais modifié.
func Run(ctx context.Context, ds *models.Dataset, cfg models.Config, logger *logrus.Logger) (*models.Dashboard, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset absent")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	periods := cfg.ForecastPeriods
	if periods <= 0 {
		periods = defaultForecastPeriods
	}
	topN := cfg.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	var filtered []models.Transaction
	stages := []stage{
		{"filter", func(d *models.Dashboard) {
			filtered = ApplyFilter(ds.Transactions, cfg.Filter)
			d.Rows = len(filtered)
			d.NoData = len(filtered) == 0
		}},
		{"kpis", func(d *models.Dashboard) {
			d.KPIs = KPIs(filtered)
		}},
		{"overview", func(d *models.Dashboard) {
			d.Overview = models.Overview{
				MonthlySales: MonthlyTrend(filtered),
				TopProducts:  TopProducts(filtered, topN),
				TopCountries: TopCountries(filtered, topN),
			}
		}},
		{"segmentation", func(d *models.Dashboard) {
			d.Segmentation = models.Segmentation{
				Segments: SegmentCounts(ds.Segments),
				Clusters: ClusterCounts(ds.Segments),
			}
		}},
		{"churn", func(d *models.Dashboard) {
			d.Churn = models.Churn{
				BySegment: ChurnBySegment(ds.Segments),
				ByCluster: ChurnByCluster(ds.Segments),
			}
		}},
		{"forecast", func(d *models.Dashboard) {
			view, model := Forecast(d.Overview.MonthlySales, periods)
			d.Forecast = view
			if model != nil && cfg.Verbose {
				logger.WithFields(logrus.Fields{
					"changepoints": model.Changepoints(),
					"seasonal":     model.Seasonal(),
					"sigma":        model.Sigma(),
				}).Info("forecast fitted")
			}
			if view.Error != "" && !d.NoData {
				logger.WithField("error", view.Error).Warn("forecast failed")
			}
		}},
	}

	var bar *progressbar.ProgressBar
	if cfg.Progress {
		bar = progressbar.Default(int64(len(stages)), "dashboard")
	}

	d := &models.Dashboard{Filter: cfg.Filter}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		started := time.Now()
		s.run(d)

		if bar != nil {
			_ = bar.Add(1)
		}
		if cfg.Verbose {
			logger.WithFields(logrus.Fields{
				"stage":   s.name,
				"rows":    d.Rows,
				"elapsed": time.Since(started),
			}).Info("stage done")
		}
	}
	return d, nil
}
