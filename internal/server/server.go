// Package server exposes the dashboard over HTTP.
//
// Every request re-runs the pipeline; repeated source queries are served
// from the loader's cache until POST /api/refresh drops it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"card-market-lab/internal/config"
	"card-market-lab/internal/domain"
	"card-market-lab/internal/loader"
	"card-market-lab/internal/logger"
	"card-market-lab/internal/observability"
	"card-market-lab/internal/pipeline"
	"card-market-lab/internal/processing"
	"card-market-lab/internal/reporting"
)

// Server serves dashboard reports.
type Server struct {
	pipeline *pipeline.Pipeline
	cfg      config.ServerConfig
	metrics  *observability.Metrics
	log      *logrus.Entry
}

// New creates a server over p.
func New(p *pipeline.Pipeline, cfg config.ServerConfig) *Server {
	return &Server{
		pipeline: p,
		cfg:      cfg,
		log:      logger.Discard().WithComponent("server"),
	}
}

// WithMetrics enables /metrics and per-route request metrics.
func (s *Server) WithMetrics(m *observability.Metrics) *Server {
	s.metrics = m
	return s
}

// WithLogger sets the request log entry.
func (s *Server) WithLogger(log *logrus.Entry) *Server {
	s.log = log
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.With(s.instrument).Get("/report.md", s.handleMarkdown)
	r.With(s.instrument).Get("/export.xlsx", s.handleXLSX)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(s.instrument)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/movers", s.handleMovers)
		r.Get("/summary", s.handleSummary)
		r.Get("/cohorts", s.handleCohorts)
		r.Get("/card-types", s.handleCardTypes)
		r.Post("/refresh", s.handleRefresh)
	})

	return r
}

// Run listens on cfg.Addr until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Error      string `json:"error"`
}

// Render implements render.Renderer.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// MoversResponse is returned by /api/movers.
type MoversResponse struct {
	Window int            `json:"window"`
	Count  int            `json:"count"`
	Movers []domain.Mover `json:"movers"`
}

// SummaryResponse is returned by /api/summary.
type SummaryResponse struct {
	DataSummary reporting.DataSummary  `json:"data_summary"`
	Columns     []domain.ColumnSummary `json:"columns"`
	FlagShares  []domain.FlagShare     `json:"flag_shares"`
}

// CohortsResponse is returned by /api/cohorts.
type CohortsResponse struct {
	Cohorts []domain.Cohort   `json:"cohorts"`
	Charts  []reporting.Chart `json:"charts"`
}

// CardTypesResponse is returned by /api/card-types.
type CardTypesResponse struct {
	CardTypes []domain.CardTypeCount `json:"card_types"`
	Bins      []domain.HistogramBin  `json:"bins"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{Status: "ok", Time: time.Now().UTC()})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	report, ok := s.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, report)
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	filter, err := s.moverFilter(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	report, ok := s.run(w, r)
	if !ok {
		return
	}
	movers := processing.TopMovers(report.Movers, filter)
	render.JSON(w, r, MoversResponse{
		Window: report.MoverWindow,
		Count:  len(movers),
		Movers: movers,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := s.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, SummaryResponse{
		DataSummary: report.DataSummary,
		Columns:     report.Summary,
		FlagShares:  report.FlagShares,
	})
}

func (s *Server) handleCohorts(w http.ResponseWriter, r *http.Request) {
	report, ok := s.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, CohortsResponse{Cohorts: report.Cohorts, Charts: report.Charts})
}

func (s *Server) handleCardTypes(w http.ResponseWriter, r *http.Request) {
	report, ok := s.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, CardTypesResponse{CardTypes: report.CardTypes, Bins: report.CardTypeBins})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Refresh()
	s.log.Info("query cache refreshed")
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "refreshed"})
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	report, ok := s.run(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(reporting.RenderMarkdown(report)))
	s.metrics.RecordReport("markdown")
}

func (s *Server) handleXLSX(w http.ResponseWriter, r *http.Request) {
	report, ok := s.run(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+reporting.FileDashboard+`"`)
	if err := reporting.WriteXLSX(w, report); err != nil {
		// Headers are gone by now; log only.
		s.log.WithError(err).Error("write xlsx")
		return
	}
	s.metrics.RecordReport("xlsx")
}

// run executes the pipeline and writes the error response on failure.
func (s *Server) run(w http.ResponseWriter, r *http.Request) (*reporting.Report, bool) {
	report, err := s.pipeline.Run(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, loader.ErrDataAccess) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, r, status, err)
		return nil, false
	}
	return report, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.log.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"status": status,
	}).WithError(err).Warn("request failed")
	_ = render.Render(w, r, &ErrorResponse{StatusCode: status, Error: err.Error()})
}

// moverFilter parses set, grade, min_price and limit. Absent parameters fall
// back to the configured top-movers view.
func (s *Server) moverFilter(r *http.Request) (processing.MoverFilter, error) {
	f := s.pipeline.Settings().MoverFilter
	q := r.URL.Query()

	f.SetName = q.Get("set")
	f.Grade = q.Get("grade")

	if v := q.Get("min_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p < 0 {
			return f, fmt.Errorf("invalid min_price %q", v)
		}
		f.MinLatestPrice = p
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = n
	}
	return f, nil
}

// instrument records request count and latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.RecordHTTPRequest(route, statusOf(ww), time.Since(start))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      statusOf(ww),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("request served")
	})
}

// statusOf treats a handler that never called WriteHeader as 200.
func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
