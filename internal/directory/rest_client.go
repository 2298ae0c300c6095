package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rrraaa1/hospital-bulk-processing/internal/domain"
	"github.com/rrraaa1/hospital-bulk-processing/internal/ratelimit"
)

const (
	defaultAPITimeout  = 30 * time.Second
	healthCheckTimeout = 5 * time.Second
)

type createHospitalRequest struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	Phone           string `json:"phone,omitempty"`
	CreationBatchID string `json:"creation_batch_id"`
}

var _ Client = (*RestClient)(nil)

// RestClient talks to the hospital directory API over HTTP.
type RestClient struct {
	client  *resty.Client
	baseURL string
	policy  RetryPolicy
	limiter ratelimit.RateLimiter
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewRestClient(
	baseURL string,
	timeout time.Duration,
	policy RetryPolicy,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*RestClient, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewRestClientWithClient(baseURL, client, policy, limiter, logger)
}

func NewRestClientWithClient(
	baseURL string,
	client *resty.Client,
	policy RetryPolicy,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*RestClient, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedURL == "" {
		return nil, fmt.Errorf("directory base URL is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid directory base URL: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultAPITimeout)
	}
	client.SetRetryCount(0)
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RestClient{
		client:  client,
		baseURL: trimmedURL,
		policy:  policy.normalized(),
		limiter: limiter,
		logger:  logger,
		sleep:   sleepWithContext,
	}, nil
}

// HealthCheck probes the directory listing endpoint. An empty directory
// responds 404, which still counts as healthy.
func (c *RestClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	response, err := c.client.R().
		SetContext(ctx).
		Get(c.baseURL + "/hospitals/")
	if err != nil {
		c.logger.Error("directory health check failed", zap.Error(err))
		return false
	}

	status := response.StatusCode()
	return status == http.StatusOK || status == http.StatusNotFound
}

// CreateHospital performs one create, retrying transient failures per the
// client's retry policy. Callers observe a single outcome per invocation.
func (c *RestClient) CreateHospital(ctx context.Context, record domain.HospitalRecord, batchID string) (*Hospital, error) {
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		hospital, err := c.createOnce(ctx, record, batchID)
		if err == nil {
			return hospital, nil
		}
		lastErr = err

		if !IsTransient(err) {
			break
		}
		c.logger.Warn("transient error creating hospital",
			zap.String("name", record.Name),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", c.policy.MaxAttempts),
			zap.Error(err),
		)

		if attempt == c.policy.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, c.policy.Delay(attempt)); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed to create hospital %q after %d attempts: %w", record.Name, c.policy.MaxAttempts, lastErr)
}

func (c *RestClient) createOnce(ctx context.Context, record domain.HospitalRecord, batchID string) (*Hospital, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "create"); err != nil {
			return nil, err
		}
	}

	var created Hospital
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(createHospitalRequest{
			Name:            record.Name,
			Address:         record.Address,
			Phone:           record.Phone,
			CreationBatchID: batchID,
		}).
		SetResult(&created).
		Post(c.baseURL + "/hospitals/")
	if err != nil {
		return nil, &DirectoryError{
			Message:   "create request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	status := response.StatusCode()
	if status == http.StatusOK || status == http.StatusCreated {
		return &created, nil
	}

	return nil, &DirectoryError{
		StatusCode: status,
		Message:    statusErrorMessage("create returned status", status, response.String()),
		Transient:  isTransientHTTPStatus(status),
	}
}

// ActivateBatch flips every hospital created under the batch to active.
// Activation is a single attempt; a failed activation leaves the batch
// unactivated rather than half-visible.
func (c *RestClient) ActivateBatch(ctx context.Context, batchID string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "activate"); err != nil {
			return err
		}
	}

	response, err := c.client.R().
		SetContext(ctx).
		Patch(c.baseURL + "/hospitals/batch/" + batchID + "/activate")
	if err != nil {
		return &DirectoryError{
			Message:   "activate request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	status := response.StatusCode()
	if status == http.StatusOK || status == http.StatusNoContent {
		return nil
	}

	return &DirectoryError{
		StatusCode: status,
		Message:    statusErrorMessage("activate returned status", status, response.String()),
		Transient:  isTransientHTTPStatus(status),
	}
}

func (c *RestClient) ListBatchHospitals(ctx context.Context, batchID string) ([]Hospital, error) {
	var hospitals []Hospital
	response, err := c.client.R().
		SetContext(ctx).
		SetResult(&hospitals).
		Get(c.baseURL + "/hospitals/batch/" + batchID)
	if err != nil {
		return nil, &DirectoryError{
			Message:   "list request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	if response.StatusCode() != http.StatusOK {
		c.logger.Warn("could not retrieve batch hospitals",
			zap.String("batchId", batchID),
			zap.Int("status", response.StatusCode()),
		)
		return []Hospital{}, nil
	}

	return hospitals, nil
}

func (c *RestClient) DeleteBatch(ctx context.Context, batchID string) bool {
	response, err := c.client.R().
		SetContext(ctx).
		Delete(c.baseURL + "/hospitals/batch/" + batchID)
	if err != nil {
		c.logger.Error("error deleting batch",
			zap.String("batchId", batchID),
			zap.Error(err),
		)
		return false
	}

	status := response.StatusCode()
	if status == http.StatusOK || status == http.StatusNoContent {
		return true
	}

	c.logger.Warn("failed to delete batch",
		zap.String("batchId", batchID),
		zap.Int("status", status),
	)
	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func statusErrorMessage(prefix string, statusCode int, body string) string {
	base := fmt.Sprintf("%s %d", prefix, statusCode)
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, trimmed)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
