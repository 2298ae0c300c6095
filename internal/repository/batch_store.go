package repository

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rrraaa1/hospital-bulk-processing/internal/domain"
)

// BatchStore holds the authoritative lifecycle record of every batch and
// serves consistent snapshots to concurrent readers.
type BatchStore interface {
	CreateBatch(totalHospitals int) string
	UpdateProgress(batchID string, processedCount int)
	CompleteBatch(batchID string, results []domain.HospitalResult, processingTimeSeconds float64, activated bool)
	GetStatus(batchID string) (*domain.Batch, bool)
	GetResults(batchID string) (*BatchResults, bool)
	Sweep(maxAge time.Duration) int
}

// BatchResults is the full projection of a batch served once it completes.
// While the batch is still processing, Status carries the sentinel and the
// Hospitals slice stays nil.
type BatchResults struct {
	BatchID               string                  `json:"batchId"`
	Status                domain.BatchStatus      `json:"status"`
	TotalHospitals        int                     `json:"totalHospitals"`
	ProcessedHospitals    int                     `json:"processedHospitals"`
	FailedHospitals       int                     `json:"failedHospitals"`
	ProcessingTimeSeconds float64                 `json:"processingTimeSeconds"`
	Activated             bool                    `json:"batchActivated"`
	CreatedAt             time.Time               `json:"createdAt"`
	CompletedAt           *time.Time              `json:"completedAt,omitempty"`
	Hospitals             []domain.HospitalResult `json:"hospitals,omitempty"`
}

var _ BatchStore = (*MemoryBatchStore)(nil)

// MemoryBatchStore keeps batch state in process memory. Each batch has a
// single writer (the orchestration goroutine that owns it); the mutex makes
// every write atomic with respect to status and results readers.
type MemoryBatchStore struct {
	mu      sync.RWMutex
	batches map[string]*domain.Batch
	logger  *zap.Logger
	now     func() time.Time
}

func NewMemoryBatchStore(logger *zap.Logger) *MemoryBatchStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryBatchStore{
		batches: make(map[string]*domain.Batch),
		logger:  logger,
		now:     time.Now,
	}
}

// CreateBatch allocates a fresh batch in the processing state and returns
// its id. Ids are never reused.
func (s *MemoryBatchStore) CreateBatch(totalHospitals int) string {
	batchID := uuid.NewString()

	s.mu.Lock()
	s.batches[batchID] = &domain.Batch{
		ID:             batchID,
		Status:         domain.BatchStatusProcessing,
		TotalHospitals: totalHospitals,
		CreatedAt:      s.now().UTC(),
	}
	s.mu.Unlock()

	s.logger.Info("created batch",
		zap.String("batchId", batchID),
		zap.Int("totalHospitals", totalHospitals),
	)
	return batchID
}

// UpdateProgress records how many items have been attempted so far. The
// count never decreases and never exceeds the declared total. Unknown ids
// are a logged no-op.
func (s *MemoryBatchStore) UpdateProgress(batchID string, processedCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[batchID]
	if !ok {
		s.logger.Warn("batch not found for progress update", zap.String("batchId", batchID))
		return
	}
	if batch.Status == domain.BatchStatusCompleted {
		s.logger.Warn("progress update on completed batch ignored", zap.String("batchId", batchID))
		return
	}

	if processedCount < batch.ProcessedHospitals {
		processedCount = batch.ProcessedHospitals
	}
	if processedCount > batch.TotalHospitals {
		processedCount = batch.TotalHospitals
	}

	batch.ProcessedHospitals = processedCount
	if batch.TotalHospitals > 0 {
		batch.ProgressPercentage = roundPercentage(float64(processedCount) / float64(batch.TotalHospitals) * 100)
	}
}

// CompleteBatch performs the single terminal write. Unknown ids and repeat
// completions are logged no-ops.
func (s *MemoryBatchStore) CompleteBatch(
	batchID string,
	results []domain.HospitalResult,
	processingTimeSeconds float64,
	activated bool,
) {
	s.mu.Lock()

	batch, ok := s.batches[batchID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("batch not found for completion", zap.String("batchId", batchID))
		return
	}
	if batch.Status == domain.BatchStatusCompleted {
		s.mu.Unlock()
		s.logger.Warn("batch already completed", zap.String("batchId", batchID))
		return
	}

	completedAt := s.now().UTC()
	batch.Status = domain.BatchStatusCompleted
	batch.CompletedAt = &completedAt
	batch.Results = append([]domain.HospitalResult(nil), results...)
	batch.ProcessingTimeSeconds = processingTimeSeconds
	batch.Activated = activated
	batch.ProgressPercentage = 100.0

	processed := batch.ProcessedHospitals
	total := batch.TotalHospitals
	s.mu.Unlock()

	s.logger.Info("batch completed",
		zap.String("batchId", batchID),
		zap.Int("processed", processed),
		zap.Int("total", total),
		zap.Float64("processingTimeSeconds", processingTimeSeconds),
		zap.Bool("activated", activated),
	)
}

// GetStatus returns the lightweight lifecycle projection without item
// results, or false for an unknown id.
func (s *MemoryBatchStore) GetStatus(batchID string) (*domain.Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch, ok := s.batches[batchID]
	if !ok {
		return nil, false
	}

	snapshot := *batch
	snapshot.Results = nil
	return &snapshot, true
}

// GetResults returns the full result projection once the batch has
// completed. While still processing it returns the processing sentinel,
// which is distinct from an unknown id. The failed count is recomputed from
// the stored results rather than trusted from a counter.
func (s *MemoryBatchStore) GetResults(batchID string) (*BatchResults, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch, ok := s.batches[batchID]
	if !ok {
		return nil, false
	}

	if batch.Status != domain.BatchStatusCompleted {
		return &BatchResults{
			BatchID: batch.ID,
			Status:  batch.Status,
		}, true
	}

	failed := 0
	for _, result := range batch.Results {
		if result.Status == domain.ResultStatusFailed {
			failed++
		}
	}

	return &BatchResults{
		BatchID:               batch.ID,
		Status:                batch.Status,
		TotalHospitals:        batch.TotalHospitals,
		ProcessedHospitals:    batch.ProcessedHospitals,
		FailedHospitals:       failed,
		ProcessingTimeSeconds: batch.ProcessingTimeSeconds,
		Activated:             batch.Activated,
		CreatedAt:             batch.CreatedAt,
		CompletedAt:           batch.CompletedAt,
		Hospitals:             append([]domain.HospitalResult(nil), batch.Results...),
	}, true
}

// Sweep discards every batch older than maxAge, in-flight ones included,
// and returns the number removed.
func (s *MemoryBatchStore) Sweep(maxAge time.Duration) int {
	cutoff := s.now().UTC().Add(-maxAge)

	s.mu.Lock()
	var removed []string
	for batchID, batch := range s.batches {
		if batch.CreatedAt.Before(cutoff) {
			delete(s.batches, batchID)
			removed = append(removed, batchID)
		}
	}
	s.mu.Unlock()

	for _, batchID := range removed {
		s.logger.Info("swept expired batch", zap.String("batchId", batchID))
	}
	return len(removed)
}

func roundPercentage(value float64) float64 {
	return math.Round(value*100) / 100
}
