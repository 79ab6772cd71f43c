// Package service orchestrates dataset retrieval: resolve the postcode,
// consult the cache, and on a miss run the full acquisition pipeline.
package service

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/crime-data-service/internal/cache"
	"github.com/couchcryptid/crime-data-service/internal/domain"
	"github.com/couchcryptid/crime-data-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// LocationResolver converts a postcode to coordinates.
type LocationResolver interface {
	Resolve(ctx context.Context, postcode string) (domain.Coordinates, error)
}

// WindowFetcher fetches every enumerated window and merges the raw records.
type WindowFetcher interface {
	FetchAll(ctx context.Context, coords domain.Coordinates, windows []domain.MonthWindow, kind domain.RecordKind) ([]domain.RawRecord, error)
}

// RecordPublisher pushes a freshly built dataset to downstream consumers.
type RecordPublisher interface {
	PublishDataset(ctx context.Context, dataset *domain.Dataset) error
}

// Service implements the dataset-retrieval contract.
type Service struct {
	resolver  LocationResolver
	fetcher   WindowFetcher
	cache     *cache.Cache
	publisher RecordPublisher // nil disables publishing

	defaultStartYear int
	clock            clockwork.Clock
	logger           *slog.Logger
	metrics          *observability.Metrics
}

// New creates a Service. Pass a nil publisher to disable the record sink.
func New(resolver LocationResolver, fetcher WindowFetcher, c *cache.Cache, publisher RecordPublisher, defaultStartYear int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		resolver:         resolver,
		fetcher:          fetcher,
		cache:            c,
		publisher:        publisher,
		defaultStartYear: defaultStartYear,
		clock:            clock,
		logger:           logger,
		metrics:          metrics,
	}
}

// GetDataset returns the dataset for a postcode and record kind, serving
// from cache when a live entry exists and acquiring from the upstream APIs
// otherwise. A startYear of 0 selects the configured default.
func (s *Service) GetDataset(ctx context.Context, postcode string, kind domain.RecordKind, startYear int) (*domain.Dataset, error) {
	if startYear == 0 {
		startYear = s.defaultStartYear
	}
	key := cache.NewKey(postcode, kind)

	if dataset, ok := s.cache.Get(key); ok {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		s.metrics.DatasetsServed.WithLabelValues(string(kind)).Inc()
		return dataset, nil
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()

	dataset, err := s.acquire(ctx, postcode, key.Location, kind, startYear)
	if err != nil {
		return nil, err
	}

	s.cache.Put(key, dataset)
	s.publish(ctx, dataset)

	s.metrics.DatasetsServed.WithLabelValues(string(kind)).Inc()
	return dataset, nil
}

// Invalidate drops the cached dataset for a postcode and kind, forcing the
// next lookup to refetch.
func (s *Service) Invalidate(postcode string, kind domain.RecordKind) {
	s.cache.Invalidate(cache.NewKey(postcode, kind))
}

// CheckReadiness reports whether the service can serve traffic. The service
// is request-driven with no warm-up phase, so readiness follows from
// construction.
func (s *Service) CheckReadiness(_ context.Context) error {
	return nil
}

// acquire runs the full resolve-enumerate-fetch-normalize pipeline.
func (s *Service) acquire(ctx context.Context, postcode, locationKey string, kind domain.RecordKind, startYear int) (*domain.Dataset, error) {
	start := s.clock.Now()

	coords, err := s.resolver.Resolve(ctx, postcode)
	if err != nil {
		return nil, err
	}

	windows := domain.EnumerateWindows(startYear, s.clock.Now())
	s.logger.Info("acquiring dataset",
		"location", locationKey,
		"kind", kind,
		"start_year", startYear,
		"windows", len(windows),
	)

	raws, err := s.fetcher.FetchAll(ctx, coords, windows, kind)
	if err != nil {
		return nil, err
	}

	dataset, dropped, err := domain.BuildDataset(locationKey, kind, windows, raws, s.clock.Now(), s.logger)
	if dropped > 0 {
		s.metrics.MalformedRecords.WithLabelValues(string(kind)).Add(float64(dropped))
	}
	if err != nil {
		return nil, err
	}
	s.metrics.RecordsNormalized.WithLabelValues(string(kind)).Add(float64(dataset.Len()))
	s.metrics.AcquisitionDuration.Observe(s.clock.Since(start).Seconds())

	s.logger.Info("dataset acquired",
		"location", locationKey,
		"kind", kind,
		"records", dataset.Len(),
		"dropped", dropped,
		"elapsed", s.clock.Since(start),
	)
	return dataset, nil
}

// publish sends the dataset to the record sink, best-effort: a publish
// failure is logged and counted but never fails the retrieval.
func (s *Service) publish(ctx context.Context, dataset *domain.Dataset) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDataset(ctx, dataset); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Warn("publish dataset failed",
			"location", dataset.LocationKey,
			"kind", dataset.Kind,
			"error", err,
		)
		return
	}
	s.metrics.RecordsPublished.Add(float64(dataset.Len()))
}
