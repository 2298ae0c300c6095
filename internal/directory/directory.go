package directory

import (
	"context"

	"github.com/rrraaa1/hospital-bulk-processing/internal/domain"
)

// Client is the outbound port to the hospital directory service, the
// external system of record that actually persists hospitals.
type Client interface {
	HealthCheck(ctx context.Context) bool
	CreateHospital(ctx context.Context, record domain.HospitalRecord, batchID string) (*Hospital, error)
	ActivateBatch(ctx context.Context, batchID string) error
	ListBatchHospitals(ctx context.Context, batchID string) ([]Hospital, error)
	DeleteBatch(ctx context.Context, batchID string) bool
}

// Hospital is the directory service's representation of a created entity.
type Hospital struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Address         string `json:"address"`
	Phone           string `json:"phone,omitempty"`
	CreationBatchID string `json:"creation_batch_id,omitempty"`
	Active          bool   `json:"active"`
	CreatedAt       string `json:"created_at,omitempty"`
}
