package domain

import "time"

// BatchStatus represents the processing state of a batch.
type BatchStatus string

const (
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusProcessing, BatchStatusCompleted:
		return true
	}
	return false
}

// Batch tracks one bulk submission across its lifetime. A batch always ends
// in the completed state; an all-failed batch still completes, and the only
// batch-level failure signal is Activated == false.
type Batch struct {
	ID                    string
	Status                BatchStatus
	TotalHospitals        int
	ProcessedHospitals    int
	ProgressPercentage    float64
	CreatedAt             time.Time
	CompletedAt           *time.Time
	Activated             bool
	ProcessingTimeSeconds float64

	// Results is nil while the batch is processing and holds exactly
	// TotalHospitals entries once completed.
	Results []HospitalResult
}
