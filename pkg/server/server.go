// Package server expose le tableau de bord en HTTP (gin): page HTML, JSON par onglet,
// graphiques PNG, export xlsx et métriques Prometheus.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"retail-dashboard/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Loader fournit le jeu de données partagé (database.Cache en production).
type Loader interface {
	Dataset() (*models.Dataset, error)
}

// Options règle les calculs faits pour chaque requête.
type Options struct {
	ForecastPeriods int
	TopN            int
	Verbose         bool
}

type Server struct {
	loader   Loader
	opts     Options
	logger   *logrus.Logger
	registry *prometheus.Registry
	metrics  *Metrics
	engine   *gin.Engine
}

// New construit le serveur et ses routes. Chaque serveur a son propre registre Prometheus.
func New(loader Loader, opts Options, logger *logrus.Logger) (*Server, error) {
	if loader == nil {
		return nil, errors.New("server: loader is nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tmpl, err := template.New("").Funcs(pageFuncs).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		loader:   loader,
		opts:     opts,
		logger:   logger,
		registry: reg,
		metrics:  NewMetrics(reg),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(logger), instrument(s.metrics))
	r.SetHTMLTemplate(tmpl)
	s.routes(r)
	s.engine = r
	return s, nil
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.index)
	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group("/v1")
	{
		api.GET("/filters", s.getFilters)
		api.GET("/dashboard", s.getDashboard)
		api.GET("/kpis", s.getKPIs)
		api.GET("/overview", s.getOverview)
		api.GET("/segmentation", s.getSegmentation)
		api.GET("/churn", s.getChurn)
		api.GET("/forecast", s.getForecast)
		api.GET("/charts/:file", s.getChart)
		api.GET("/export.xlsx", s.getExport)
	}
}

// Handler renvoie le routeur, utilisé tel quel par les tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run écoute sur addr jusqu'à l'annulation de ctx, puis arrête proprement le serveur.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("dashboard listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
