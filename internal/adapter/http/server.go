// Package http exposes the service's operational endpoints and a thin JSON
// transport for the dataset-retrieval and aggregation contracts. Rendering
// (HTML pages, charts, CSV export) belongs to external consumers.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/crime-data-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DatasetService is the core contract the HTTP layer consumes.
type DatasetService interface {
	GetDataset(ctx context.Context, postcode string, kind domain.RecordKind, startYear int) (*domain.Dataset, error)
	Invalidate(postcode string, kind domain.RecordKind)
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and dataset query routes.
type Server struct {
	httpServer *http.Server
	service    DatasetService
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, service DatasetService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Minute, // first acquisition for a location spans many paced batches
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/{kind}/{postcode}", s.handleDataset)
	mux.HandleFunc("GET /v1/{kind}/{postcode}/counts", s.handleCounts)
	mux.HandleFunc("DELETE /v1/{kind}/{postcode}", s.handleInvalidate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleDataset serves GET /v1/{kind}/{postcode}?start_year=&from=&to=
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, datasetResponse{
		Kind:     dataset.Kind,
		Location: dataset.LocationKey,
		From:     dataset.From,
		To:       dataset.To,
		Count:    dataset.Len(),
		Dataset:  dataset,
	})
}

// handleCounts serves GET /v1/{kind}/{postcode}/counts?by=a,b&sort=count
func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	byParam := r.URL.Query().Get("by")
	if byParam == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: by")
		return
	}
	fields := strings.Split(byParam, ",")

	dataset, ok := s.loadDataset(w, r)
	if !ok {
		return
	}

	groups, err := domain.CountBy(dataset, fields)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if r.URL.Query().Get("sort") == "count" {
		domain.SortByCount(groups)
	}

	writeJSON(w, http.StatusOK, countsResponse{
		Kind:     dataset.Kind,
		Location: dataset.LocationKey,
		Fields:   fields,
		Total:    dataset.Len(),
		Groups:   groups,
	})
}

// handleInvalidate serves DELETE /v1/{kind}/{postcode}
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseRecordKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.service.Invalidate(r.PathValue("postcode"), kind)
	w.WriteHeader(http.StatusNoContent)
}

// loadDataset parses the shared path/query parameters, retrieves the
// dataset, and applies the optional date-range filter. On failure it writes
// the error response and returns ok=false.
func (s *Server) loadDataset(w http.ResponseWriter, r *http.Request) (*domain.Dataset, bool) {
	kind, err := domain.ParseRecordKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	startYear := 0
	if v := r.URL.Query().Get("start_year"); v != "" {
		if startYear, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_year")
			return nil, false
		}
	}

	dataset, err := s.service.GetDataset(r.Context(), r.PathValue("postcode"), kind, startYear)
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}

	from, to, filtered, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if filtered {
		dataset = domain.FilterByDateRange(dataset, from, to)
	}
	return dataset, true
}

// parseDateRange reads the optional from/to query parameters. A missing
// bound defaults to the open end of the range.
func parseDateRange(r *http.Request) (from, to domain.MonthWindow, filtered bool, err error) {
	fromParam := r.URL.Query().Get("from")
	toParam := r.URL.Query().Get("to")
	if fromParam == "" && toParam == "" {
		return from, to, false, nil
	}

	from = domain.MonthWindow{Year: 0, Month: 1}
	to = domain.MonthWindow{Year: 9999, Month: 12}
	if fromParam != "" {
		if from, err = domain.ParseMonth(fromParam); err != nil {
			return from, to, false, err
		}
	}
	if toParam != "" {
		if to, err = domain.ParseMonth(toParam); err != nil {
			return from, to, false, err
		}
	}
	return from, to, true, nil
}

// writeServiceError maps core error values onto HTTP statuses: bad input
// stays 4xx, upstream acquisition faults surface as 502.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var unresolvable *domain.UnresolvableLocationError
	var unknownCategory *domain.UnknownCategoryError
	var partial *domain.PartialWindowError

	switch {
	case errors.As(err, &unresolvable):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &unknownCategory):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &partial):
		s.logger.Error("acquisition incomplete", "path", r.URL.Path, "missing_windows", len(partial.Failed), "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("dataset retrieval failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

type datasetResponse struct {
	Kind     domain.RecordKind  `json:"kind"`
	Location string             `json:"location"`
	From     domain.MonthWindow `json:"from"`
	To       domain.MonthWindow `json:"to"`
	Count    int                `json:"count"`
	Dataset  *domain.Dataset    `json:"dataset"`
}

type countsResponse struct {
	Kind     domain.RecordKind   `json:"kind"`
	Location string              `json:"location"`
	Fields   []string            `json:"fields"`
	Total    int                 `json:"total"`
	Groups   []domain.GroupCount `json:"groups"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
