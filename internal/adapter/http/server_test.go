package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/crime-data-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService returns canned responses for the dataset contract.
type stubService struct {
	dataset      *domain.Dataset
	err          error
	readyErr     error
	invalidated  []string
	lastPostcode string
	lastKind     domain.RecordKind
	lastYear     int
}

func (s *stubService) GetDataset(_ context.Context, postcode string, kind domain.RecordKind, startYear int) (*domain.Dataset, error) {
	s.lastPostcode = postcode
	s.lastKind = kind
	s.lastYear = startYear
	if s.err != nil {
		return nil, s.err
	}
	return s.dataset, nil
}

func (s *stubService) Invalidate(postcode string, kind domain.RecordKind) {
	s.invalidated = append(s.invalidated, string(kind)+"/"+postcode)
}

func (s *stubService) CheckReadiness(_ context.Context) error {
	return s.readyErr
}

func testDataset() *domain.Dataset {
	jan := domain.MonthWindow{Year: 2023, Month: 1}
	feb := domain.MonthWindow{Year: 2023, Month: 2}
	return &domain.Dataset{
		Kind:        domain.KindIncident,
		LocationKey: "nw51tu",
		From:        jan,
		To:          feb,
		FetchedAt:   time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		Incidents: []domain.IncidentRecord{
			{Category: "drugs", Street: "High Street", Outcome: domain.OutcomeUnknown, Date: jan},
			{Category: "drugs", Street: "Park Road", Outcome: "Arrest", Date: feb},
			{Category: "burglary", Street: "High Street", Outcome: domain.OutcomeUnknown, Date: feb},
		},
	}
}

func newTestServer(svc DatasetService) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", svc, logger)
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubService{}), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{}), http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{readyErr: errors.New("warming up")}), http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "warming up")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubService{}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDatasetEndpoint(t *testing.T) {
	t.Run("returns the dataset", func(t *testing.T) {
		svc := &stubService{dataset: testDataset()}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/v1/incident/NW5%201TU")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "NW5 1TU", svc.lastPostcode)
		assert.Equal(t, domain.KindIncident, svc.lastKind)
		assert.Zero(t, svc.lastYear)

		var body struct {
			Kind     string `json:"kind"`
			Location string `json:"location"`
			Count    int    `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "incident", body.Kind)
		assert.Equal(t, "nw51tu", body.Location)
		assert.Equal(t, 3, body.Count)
	})

	t.Run("start_year passes through", func(t *testing.T) {
		svc := &stubService{dataset: testDataset()}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/v1/incident/NW51TU?start_year=2023")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2023, svc.lastYear)
	})

	t.Run("invalid start_year", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{dataset: testDataset()}), http.MethodGet, "/v1/incident/NW51TU?start_year=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{}), http.MethodGet, "/v1/arson/NW51TU")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("date range filter applies", func(t *testing.T) {
		svc := &stubService{dataset: testDataset()}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/v1/incident/NW51TU?from=2023-02&to=2023-02")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Count)
	})

	t.Run("open-ended range bound", func(t *testing.T) {
		svc := &stubService{dataset: testDataset()}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/v1/incident/NW51TU?from=2023-02")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Count)
	})

	t.Run("malformed range bound", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{dataset: testDataset()}), http.MethodGet, "/v1/incident/NW51TU?from=febuary")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCountsEndpoint(t *testing.T) {
	t.Run("groups by requested fields", func(t *testing.T) {
		svc := &stubService{dataset: testDataset()}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/v1/incident/NW51TU/counts?by=category")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Fields []string `json:"fields"`
			Total  int      `json:"total"`
			Groups []struct {
				Values []string `json:"values"`
				Count  int      `json:"count"`
			} `json:"groups"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []string{"category"}, body.Fields)
		assert.Equal(t, 3, body.Total)
		require.Len(t, body.Groups, 2)
		assert.Equal(t, []string{"drugs"}, body.Groups[0].Values)
		assert.Equal(t, 2, body.Groups[0].Count)
	})

	t.Run("sort=count orders by descending count", func(t *testing.T) {
		svc := &stubService{dataset: testDataset()}
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/v1/incident/NW51TU/counts?by=street&sort=count")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Groups []struct {
				Values []string `json:"values"`
				Count  int      `json:"count"`
			} `json:"groups"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Groups, 2)
		assert.Equal(t, []string{"High Street"}, body.Groups[0].Values)
		assert.Equal(t, 2, body.Groups[0].Count)
	})

	t.Run("missing by parameter", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{dataset: testDataset()}), http.MethodGet, "/v1/incident/NW51TU/counts")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "by")
	})

	t.Run("unknown field is a client error", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{dataset: testDataset()}), http.MethodGet, "/v1/incident/NW51TU/counts?by=severity")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestInvalidateEndpoint(t *testing.T) {
	svc := &stubService{}
	rec := doRequest(t, newTestServer(svc), http.MethodDelete, "/v1/incident/NW51TU")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"incident/NW51TU"}, svc.invalidated)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			"unresolvable postcode",
			&domain.UnresolvableLocationError{Postcode: "ZZ9 9ZZ", StatusCode: 404},
			http.StatusNotFound,
		},
		{
			"partial acquisition",
			&domain.PartialWindowError{Failed: []domain.MonthWindow{{Year: 2023, Month: 1}}, Err: errors.New("boom")},
			http.StatusBadGateway,
		},
		{
			"unexpected failure",
			errors.New("boom"),
			http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, newTestServer(&stubService{err: tt.err}), http.MethodGet, "/v1/incident/NW51TU")
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}
