package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/rrraaa1/hospital-bulk-processing/internal/domain"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestMemoryBatchStoreCreateBatch(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	batchID := store.CreateBatch(10)

	if batchID == "" {
		t.Fatal("batch id should not be empty")
	}

	status, ok := store.GetStatus(batchID)
	if !ok {
		t.Fatal("batch should exist")
	}
	if status.Status != domain.BatchStatusProcessing {
		t.Fatalf("status = %s, want processing", status.Status)
	}
	if status.TotalHospitals != 10 {
		t.Fatalf("total = %d, want 10", status.TotalHospitals)
	}
	if status.ProcessedHospitals != 0 || status.ProgressPercentage != 0.0 {
		t.Fatalf("fresh batch should have zero progress, got %d / %.2f%%", status.ProcessedHospitals, status.ProgressPercentage)
	}
	if status.CompletedAt != nil {
		t.Fatal("fresh batch should not have a completion time")
	}
	if status.Activated {
		t.Fatal("fresh batch should not be activated")
	}

	if other := store.CreateBatch(5); other == batchID {
		t.Fatal("batch ids must be unique")
	}
}

func TestMemoryBatchStoreUpdateProgress(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	batchID := store.CreateBatch(10)

	store.UpdateProgress(batchID, 5)

	status, _ := store.GetStatus(batchID)
	if status.ProcessedHospitals != 5 {
		t.Fatalf("processed = %d, want 5", status.ProcessedHospitals)
	}
	if status.ProgressPercentage != 50.0 {
		t.Fatalf("progress = %.2f, want 50.0", status.ProgressPercentage)
	}

	store.UpdateProgress(batchID, 10)
	status, _ = store.GetStatus(batchID)
	if status.ProcessedHospitals != 10 || status.ProgressPercentage != 100.0 {
		t.Fatalf("progress = %d / %.2f%%, want 10 / 100%%", status.ProcessedHospitals, status.ProgressPercentage)
	}
}

func TestMemoryBatchStoreProgressIsMonotone(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	batchID := store.CreateBatch(10)

	store.UpdateProgress(batchID, 7)
	store.UpdateProgress(batchID, 3)

	status, _ := store.GetStatus(batchID)
	if status.ProcessedHospitals != 7 {
		t.Fatalf("processed = %d, want 7 (count never decreases)", status.ProcessedHospitals)
	}

	store.UpdateProgress(batchID, 99)
	status, _ = store.GetStatus(batchID)
	if status.ProcessedHospitals != 10 {
		t.Fatalf("processed = %d, want clamped to total 10", status.ProcessedHospitals)
	}
}

func TestMemoryBatchStoreProgressRounding(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	batchID := store.CreateBatch(3)

	store.UpdateProgress(batchID, 1)

	status, _ := store.GetStatus(batchID)
	if status.ProgressPercentage != 33.33 {
		t.Fatalf("progress = %v, want 33.33", status.ProgressPercentage)
	}
}

func TestMemoryBatchStoreUpdateProgressUnknownBatch(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	// Must not panic or create state.
	store.UpdateProgress("missing", 5)

	if _, ok := store.GetStatus("missing"); ok {
		t.Fatal("unknown batch should stay unknown")
	}
}

func TestMemoryBatchStoreCompleteBatch(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	batchID := store.CreateBatch(2)
	store.UpdateProgress(batchID, 2)

	results := []domain.HospitalResult{
		{Row: 1, HospitalID: int64Ptr(11), Name: "A", Status: domain.ResultStatusCreatedAndActivated},
		{Row: 2, HospitalID: int64Ptr(12), Name: "B", Status: domain.ResultStatusCreatedAndActivated},
	}
	store.CompleteBatch(batchID, results, 2.5, true)

	status, _ := store.GetStatus(batchID)
	if status.Status != domain.BatchStatusCompleted {
		t.Fatalf("status = %s, want completed", status.Status)
	}
	if status.CompletedAt == nil {
		t.Fatal("completed batch should carry a completion time")
	}
	if status.ProcessingTimeSeconds != 2.5 {
		t.Fatalf("processing time = %v, want 2.5", status.ProcessingTimeSeconds)
	}
	if !status.Activated {
		t.Fatal("batch should be activated")
	}
	if status.ProgressPercentage != 100.0 {
		t.Fatalf("progress = %v, want 100.0", status.ProgressPercentage)
	}

	projection, ok := store.GetResults(batchID)
	if !ok {
		t.Fatal("results should exist")
	}
	if len(projection.Hospitals) != 2 {
		t.Fatalf("len(Hospitals) = %d, want total 2", len(projection.Hospitals))
	}
	if projection.FailedHospitals != 0 {
		t.Fatalf("failed = %d, want 0", projection.FailedHospitals)
	}
}

func TestMemoryBatchStoreCompletionIsFinal(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	batchID := store.CreateBatch(1)

	first := []domain.HospitalResult{{Row: 1, Name: "A", Status: domain.ResultStatusCreated}}
	store.CompleteBatch(batchID, first, 1.0, false)

	// A second completion and further progress writes must not alter state.
	second := []domain.HospitalResult{{Row: 1, Name: "B", Status: domain.ResultStatusFailed, Error: strPtr("boom")}}
	store.CompleteBatch(batchID, second, 9.0, true)
	store.UpdateProgress(batchID, 0)

	projection, _ := store.GetResults(batchID)
	if projection.Hospitals[0].Name != "A" {
		t.Fatalf("results were overwritten: %+v", projection.Hospitals)
	}
	if projection.ProcessingTimeSeconds != 1.0 || projection.Activated {
		t.Fatal("completion fields were overwritten")
	}
}

func TestMemoryBatchStoreGetResultsWhileProcessing(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	batchID := store.CreateBatch(3)
	store.UpdateProgress(batchID, 1)

	projection, ok := store.GetResults(batchID)
	if !ok {
		t.Fatal("in-flight batch must be distinguishable from not-found")
	}
	if projection.Status != domain.BatchStatusProcessing {
		t.Fatalf("status = %s, want processing sentinel", projection.Status)
	}
	if projection.Hospitals != nil {
		t.Fatalf("Hospitals = %v, want nil while processing (never partial)", projection.Hospitals)
	}
}

func TestMemoryBatchStoreGetResultsRecomputesFailedCount(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	batchID := store.CreateBatch(3)

	results := []domain.HospitalResult{
		{Row: 1, HospitalID: int64Ptr(1), Name: "A", Status: domain.ResultStatusCreated},
		{Row: 2, Name: "B", Status: domain.ResultStatusFailed, Error: strPtr("timeout")},
		{Row: 3, Name: "C", Status: domain.ResultStatusFailed, Error: strPtr("network error")},
	}
	store.CompleteBatch(batchID, results, 3.0, false)

	projection, _ := store.GetResults(batchID)
	if projection.FailedHospitals != 2 {
		t.Fatalf("failed = %d, want 2 (scanned from results)", projection.FailedHospitals)
	}
}

func TestMemoryBatchStoreGetResultsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	batchID := store.CreateBatch(1)
	store.CompleteBatch(batchID, []domain.HospitalResult{{Row: 1, Name: "A", Status: domain.ResultStatusCreated}}, 1.0, false)

	first, _ := store.GetResults(batchID)
	second, _ := store.GetResults(batchID)

	if first.BatchID != second.BatchID || first.FailedHospitals != second.FailedHospitals ||
		len(first.Hospitals) != len(second.Hospitals) || first.Activated != second.Activated {
		t.Fatalf("repeated reads differ: %+v vs %+v", first, second)
	}

	// Mutating a returned snapshot must not leak into the store.
	first.Hospitals[0].Name = "mutated"
	third, _ := store.GetResults(batchID)
	if third.Hospitals[0].Name != "A" {
		t.Fatal("snapshot mutation leaked into the store")
	}
}

func TestMemoryBatchStoreUnknownBatchLookups(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)

	if _, ok := store.GetStatus("missing"); ok {
		t.Fatal("GetStatus should report not found")
	}
	if _, ok := store.GetResults("missing"); ok {
		t.Fatal("GetResults should report not found")
	}
}

func TestMemoryBatchStoreSweep(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)

	base := time.Now()
	store.now = func() time.Time { return base.Add(-48 * time.Hour) }
	oldBatch := store.CreateBatch(1)
	inFlightOld := store.CreateBatch(2)

	store.now = func() time.Time { return base }
	freshBatch := store.CreateBatch(3)

	removed := store.Sweep(24 * time.Hour)
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	if _, ok := store.GetStatus(oldBatch); ok {
		t.Fatal("old completed batch should be swept")
	}
	if _, ok := store.GetStatus(inFlightOld); ok {
		t.Fatal("old in-flight batch is swept too")
	}
	if _, ok := store.GetStatus(freshBatch); !ok {
		t.Fatal("fresh batch should survive the sweep")
	}
}

func TestMemoryBatchStoreConcurrentReadersSeeConsistentSnapshots(t *testing.T) {
	t.Parallel()

	store := NewMemoryBatchStore(nil)
	batchID := store.CreateBatch(100)

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 100; i++ {
			store.UpdateProgress(batchID, i)
		}
		results := make([]domain.HospitalResult, 100)
		for i := range results {
			results[i] = domain.HospitalResult{Row: i + 1, Name: "H", Status: domain.ResultStatusCreated}
		}
		store.CompleteBatch(batchID, results, 1.0, false)
		close(done)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				status, ok := store.GetStatus(batchID)
				if !ok {
					t.Error("batch disappeared mid-flight")
					return
				}
				if status.ProcessedHospitals > status.TotalHospitals {
					t.Errorf("processed %d exceeds total %d", status.ProcessedHospitals, status.TotalHospitals)
					return
				}

				projection, ok := store.GetResults(batchID)
				if !ok {
					t.Error("results lookup failed for known batch")
					return
				}
				if projection.Status == domain.BatchStatusProcessing && projection.Hospitals != nil {
					t.Error("partial results observed while processing")
					return
				}
				if projection.Status == domain.BatchStatusCompleted && len(projection.Hospitals) != 100 {
					t.Errorf("completed batch has %d results, want 100", len(projection.Hospitals))
					return
				}

				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	wg.Wait()

	status, _ := store.GetStatus(batchID)
	if status.ProcessedHospitals != status.TotalHospitals {
		t.Fatalf("processed = %d, want total %d at completion", status.ProcessedHospitals, status.TotalHospitals)
	}
}
