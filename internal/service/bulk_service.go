package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rrraaa1/hospital-bulk-processing/internal/directory"
	"github.com/rrraaa1/hospital-bulk-processing/internal/domain"
	"github.com/rrraaa1/hospital-bulk-processing/internal/observability"
	"github.com/rrraaa1/hospital-bulk-processing/internal/repository"
)

// BulkService drives the per-record creation loop, aggregates outcomes, and
// decides on batch activation.
type BulkService struct {
	store   repository.BatchStore
	client  directory.Client
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// BulkResult is the synchronous outcome of one bulk submission.
// ProcessedHospitals counts successful creations; the store's progress
// counter tracks attempted items.
type BulkResult struct {
	BatchID               string                  `json:"batchId"`
	TotalHospitals        int                     `json:"totalHospitals"`
	ProcessedHospitals    int                     `json:"processedHospitals"`
	FailedHospitals       int                     `json:"failedHospitals"`
	ProcessingTimeSeconds float64                 `json:"processingTimeSeconds"`
	BatchActivated        bool                    `json:"batchActivated"`
	Hospitals             []domain.HospitalResult `json:"hospitals"`
}

func NewBulkService(
	store repository.BatchStore,
	client directory.Client,
	logger *zap.Logger,
) (*BulkService, error) {
	if store == nil {
		return nil, fmt.Errorf("batch store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("directory client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BulkService{
		store:  store,
		client: client,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *BulkService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// ProcessBulk creates every record through the directory service, one call
// per row in input order, then attempts batch activation when no row
// failed. Per-row failures are captured as data and never abort the loop;
// the batch always reaches completion.
func (s *BulkService) ProcessBulk(ctx context.Context, records []domain.HospitalRecord) (*BulkResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: at least one hospital record is required", domain.ErrValidation)
	}

	batchID := s.store.CreateBatch(len(records))
	ctx = observability.WithBatchID(ctx, batchID)
	logger := observability.WithContextLogger(s.logger, ctx)

	if s.metrics != nil {
		s.metrics.IncBatchInFlight()
		defer s.metrics.DecBatchInFlight()
	}

	start := s.now()
	results := make([]domain.HospitalResult, 0, len(records))
	failedCount := 0

	for i, record := range records {
		row := i + 1

		callStart := s.now()
		hospital, err := s.client.CreateHospital(ctx, record, batchID)
		if s.metrics != nil {
			s.metrics.ObserveDirectoryCallDuration("create", s.now().Sub(callStart))
		}

		if err != nil {
			failedCount++
			message := err.Error()
			results = append(results, domain.HospitalResult{
				Row:    row,
				Name:   record.Name,
				Status: domain.ResultStatusFailed,
				Error:  &message,
			})
			if s.metrics != nil {
				s.metrics.IncHospitalFailed()
			}
			logger.Error("failed to create hospital",
				zap.Int("row", row),
				zap.String("name", record.Name),
				zap.Error(err),
			)
		} else {
			hospitalID := hospital.ID
			results = append(results, domain.HospitalResult{
				Row:        row,
				HospitalID: &hospitalID,
				Name:       record.Name,
				Status:     domain.ResultStatusCreated,
			})
			if s.metrics != nil {
				s.metrics.IncHospitalCreated()
			}
			logger.Info("created hospital",
				zap.Int("row", row),
				zap.Int("total", len(records)),
				zap.String("name", record.Name),
			)
		}

		// Progress must be visible to status readers before the next
		// item starts.
		s.store.UpdateProgress(batchID, row)
	}

	activated := s.activateIfClean(ctx, logger, batchID, failedCount, results)

	elapsed := s.now().Sub(start)
	processingTime := roundSeconds(elapsed)
	s.store.CompleteBatch(batchID, results, processingTime, activated)
	if s.metrics != nil {
		s.metrics.ObserveBatchProcessingDuration(elapsed)
		s.metrics.IncBatchActivation(activated)
	}

	logger.Info("bulk processing completed",
		zap.Int("processed", len(records)-failedCount),
		zap.Int("failed", failedCount),
		zap.Int("total", len(records)),
		zap.Float64("processingTimeSeconds", processingTime),
		zap.Bool("activated", activated),
	)

	return &BulkResult{
		BatchID:               batchID,
		TotalHospitals:        len(records),
		ProcessedHospitals:    len(records) - failedCount,
		FailedHospitals:       failedCount,
		ProcessingTimeSeconds: processingTime,
		BatchActivated:        activated,
		Hospitals:             results,
	}, nil
}

// activateIfClean performs the all-or-nothing activation decision: only a
// batch with zero failed rows is activated, and only a successful
// activation upgrades the created rows. Failed rows are never touched.
func (s *BulkService) activateIfClean(
	ctx context.Context,
	logger *zap.Logger,
	batchID string,
	failedCount int,
	results []domain.HospitalResult,
) bool {
	if failedCount > 0 {
		logger.Warn("batch not activated due to failures", zap.Int("failed", failedCount))
		return false
	}

	callStart := s.now()
	err := s.client.ActivateBatch(ctx, batchID)
	if s.metrics != nil {
		s.metrics.ObserveDirectoryCallDuration("activate", s.now().Sub(callStart))
	}
	if err != nil {
		logger.Error("failed to activate batch", zap.Error(err))
		return false
	}

	for i := range results {
		if results[i].Status == domain.ResultStatusCreated {
			results[i].Status = domain.ResultStatusCreatedAndActivated
		}
	}

	logger.Info("batch activated")
	return true
}

// GetBatchStatus returns the lifecycle projection for a batch.
func (s *BulkService) GetBatchStatus(ctx context.Context, batchID string) (*domain.Batch, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	status, ok := s.store.GetStatus(strings.TrimSpace(batchID))
	if !ok {
		return nil, fmt.Errorf("%w: batch %s", domain.ErrNotFound, batchID)
	}
	return status, nil
}

// GetBatchResults returns the full result projection, or the processing
// sentinel while the batch is still in flight.
func (s *BulkService) GetBatchResults(ctx context.Context, batchID string) (*repository.BatchResults, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	results, ok := s.store.GetResults(strings.TrimSpace(batchID))
	if !ok {
		return nil, fmt.Errorf("%w: batch %s", domain.ErrNotFound, batchID)
	}
	return results, nil
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
