package timeline

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/medicore/clinic-platform/internal/observability/metrics"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// RecordStore is the narrow query contract the aggregator needs from the
// relational record store. No transactional guarantees are assumed across
// categories.
type RecordStore interface {
	Consultations(ctx context.Context, patientID string) ([]ConsultationRow, error)
	LabResults(ctx context.Context, patientID string) ([]LabResultRow, error)
	Prescriptions(ctx context.Context, patientID string) ([]PrescriptionRow, error)
}

// Service aggregates the three record categories into one chronologically
// ordered timeline.
type Service struct {
	store   RecordStore
	cache   *Cache
	metrics *metrics.TimelineMetrics
	logger  *logging.Logger
}

// ServiceOption customizes the aggregator.
type ServiceOption func(*Service)

// WithCache wires a Redis-backed timeline cache.
func WithCache(cache *Cache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithMetrics wires Prometheus instrumentation.
func WithMetrics(m *metrics.TimelineMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService builds a timeline aggregator over the provided record store.
func NewService(store RecordStore, logger *logging.Logger, opts ...ServiceOption) *Service {
	if store == nil {
		panic("timeline: record store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	svc := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// PatientTimeline fetches all categories concurrently, normalizes and merges
// them, sorted most recent first. A failed category is logged and contributes
// zero records; the aggregate never fails on partial store errors.
func (s *Service) PatientTimeline(ctx context.Context, patientID string) ([]Item, error) {
	if s.cache != nil {
		if items, ok := s.cache.Get(ctx, patientID); ok {
			s.observe("cache", "hit")
			return items, nil
		}
	}

	var (
		wg            sync.WaitGroup
		degraded      atomic.Bool
		consultations []ConsultationRow
		labResults    []LabResultRow
		prescriptions []PrescriptionRow
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		rows, err := s.store.Consultations(ctx, patientID)
		if err != nil {
			s.degrade("consultations", patientID, err)
			degraded.Store(true)
			return
		}
		s.observe("consultations", "ok")
		consultations = rows
	}()
	go func() {
		defer wg.Done()
		rows, err := s.store.LabResults(ctx, patientID)
		if err != nil {
			s.degrade("lab_results", patientID, err)
			degraded.Store(true)
			return
		}
		s.observe("lab_results", "ok")
		labResults = rows
	}()
	go func() {
		defer wg.Done()
		rows, err := s.store.Prescriptions(ctx, patientID)
		if err != nil {
			s.degrade("prescriptions", patientID, err)
			degraded.Store(true)
			return
		}
		s.observe("prescriptions", "ok")
		prescriptions = rows
	}()
	wg.Wait()

	items := make([]Item, 0, len(consultations)+len(labResults)+len(prescriptions))
	for _, row := range consultations {
		items = append(items, NormalizeConsultation(row))
	}
	for _, row := range labResults {
		items = append(items, NormalizeLabResult(row))
	}
	for _, row := range prescriptions {
		items = append(items, NormalizePrescription(row))
	}

	// Stable keeps fetch order for equal dates, so identical input always
	// yields identical output.
	sort.SliceStable(items, func(i, j int) bool {
		return sortKey(items[i].Date).After(sortKey(items[j].Date))
	})

	// A degraded aggregate must not outlive the failure: caching it would
	// keep a whole category missing for the full TTL after the store
	// recovers.
	if s.cache != nil && !degraded.Load() {
		s.cache.Set(ctx, patientID, items)
	}

	return items, nil
}

func (s *Service) degrade(category, patientID string, err error) {
	s.logger.Error("timeline category fetch failed, degrading to empty",
		"category", category,
		"patient_id", patientID,
		"error", err,
	)
	s.observe(category, "error")
}

func (s *Service) observe(category, status string) {
	if s.metrics != nil {
		s.metrics.ObserveFetch(category, status)
	}
}
