package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rrraaa1/hospital-bulk-processing/internal/csvproc"
	"github.com/rrraaa1/hospital-bulk-processing/internal/domain"
	"github.com/rrraaa1/hospital-bulk-processing/internal/repository"
	"github.com/rrraaa1/hospital-bulk-processing/internal/service"
)

const (
	defaultMaxHospitalsPerBatch = 20
	defaultMaxFileSizeMB        = 5
)

type BulkService interface {
	ProcessBulk(ctx context.Context, records []domain.HospitalRecord) (*service.BulkResult, error)
	GetBatchStatus(ctx context.Context, batchID string) (*domain.Batch, error)
	GetBatchResults(ctx context.Context, batchID string) (*repository.BatchResults, error)
}

type CSVProcessor interface {
	Validate(content []byte) csvproc.ValidationResult
	Parse(content []byte) ([]domain.HospitalRecord, error)
}

type HospitalHandler struct {
	service      BulkService
	csv          CSVProcessor
	maxPerBatch  int
	maxFileBytes int64
}

type HospitalHandlerOptions struct {
	MaxHospitalsPerBatch int
	MaxFileSizeMB        int
}

func NewHospitalHandler(service BulkService, csv CSVProcessor, opts HospitalHandlerOptions) (*HospitalHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("bulk service is required")
	}
	if csv == nil {
		return nil, fmt.Errorf("csv processor is required")
	}
	if opts.MaxHospitalsPerBatch <= 0 {
		opts.MaxHospitalsPerBatch = defaultMaxHospitalsPerBatch
	}
	if opts.MaxFileSizeMB <= 0 {
		opts.MaxFileSizeMB = defaultMaxFileSizeMB
	}

	return &HospitalHandler{
		service:      service,
		csv:          csv,
		maxPerBatch:  opts.MaxHospitalsPerBatch,
		maxFileBytes: int64(opts.MaxFileSizeMB) << 20,
	}, nil
}

func RegisterHospitalRoutes(router fiber.Router, service BulkService, csv CSVProcessor, opts HospitalHandlerOptions) error {
	h, err := NewHospitalHandler(service, csv, opts)
	if err != nil {
		return err
	}

	hospitals := router.Group("/hospitals")
	hospitals.Post("/validate", h.ValidateCSV)
	hospitals.Post("/bulk", h.BulkCreate)
	hospitals.Get("/batch/:batchId/status", h.GetBatchStatus)
	hospitals.Get("/batch/:batchId/results", h.GetBatchResults)

	return nil
}

type batchStatusResponse struct {
	BatchID            string     `json:"batchId"`
	Status             string     `json:"status"`
	TotalHospitals     int        `json:"totalHospitals"`
	ProcessedHospitals int        `json:"processedHospitals"`
	ProgressPercentage float64    `json:"progressPercentage"`
	CreatedAt          time.Time  `json:"createdAt"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

type processingSentinelResponse struct {
	BatchID string `json:"batchId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ValidateCSV checks an uploaded CSV without touching the directory service.
func (h *HospitalHandler) ValidateCSV(c *fiber.Ctx) error {
	content, err := h.readUploadedFile(c)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(h.csv.Validate(content))
}

// BulkCreate validates, parses, and processes an uploaded CSV synchronously.
// Structural problems reject the request before any directory call; per-row
// directory failures come back as data in the result list.
func (h *HospitalHandler) BulkCreate(c *fiber.Ctx) error {
	fileName, content, err := h.readNamedUploadedFile(c)
	if err != nil {
		return err
	}

	if !strings.HasSuffix(strings.ToLower(fileName), ".csv") {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid file type. Only CSV files are accepted.")
	}

	validation := h.csv.Validate(content)
	if !validation.Valid {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("CSV validation failed: %s", strings.Join(validation.Errors, ", ")))
	}

	// Admission check: the ceiling is enforced before the orchestrator runs.
	if validation.TotalRows > h.maxPerBatch {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("CSV contains %d hospitals. Maximum allowed is %d.", validation.TotalRows, h.maxPerBatch))
	}

	records, err := h.csv.Parse(content)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.service.ProcessBulk(c.Context(), records)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *HospitalHandler) GetBatchStatus(c *fiber.Ctx) error {
	batchID := strings.TrimSpace(c.Params("batchId"))

	status, err := h.service.GetBatchStatus(c.Context(), batchID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(batchStatusResponse{
		BatchID:            status.ID,
		Status:             status.Status.String(),
		TotalHospitals:     status.TotalHospitals,
		ProcessedHospitals: status.ProcessedHospitals,
		ProgressPercentage: status.ProgressPercentage,
		CreatedAt:          status.CreatedAt,
		CompletedAt:        status.CompletedAt,
	})
}

func (h *HospitalHandler) GetBatchResults(c *fiber.Ctx) error {
	batchID := strings.TrimSpace(c.Params("batchId"))

	results, err := h.service.GetBatchResults(c.Context(), batchID)
	if err != nil {
		return toHTTPError(err)
	}

	if results.Status == domain.BatchStatusProcessing {
		return c.Status(fiber.StatusOK).JSON(processingSentinelResponse{
			BatchID: results.BatchID,
			Status:  results.Status.String(),
			Message: "Batch processing is not yet completed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(results)
}

func (h *HospitalHandler) readUploadedFile(c *fiber.Ctx) ([]byte, error) {
	_, content, err := h.readNamedUploadedFile(c)
	return content, err
}

func (h *HospitalHandler) readNamedUploadedFile(c *fiber.Ctx) (string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	if fileHeader.Size > h.maxFileBytes {
		return "", nil, fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the maximum size of %d MB", h.maxFileBytes>>20))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "failed to open uploaded file")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxFileBytes+1))
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "failed to read uploaded file")
	}
	if int64(len(content)) > h.maxFileBytes {
		return "", nil, fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the maximum size of %d MB", h.maxFileBytes>>20))
	}

	return fileHeader.Filename, content, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
