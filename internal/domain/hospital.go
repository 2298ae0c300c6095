package domain

import (
	"fmt"
	"strings"
)

// Field limits for hospital records (in characters).
const (
	MaxNameLength    = 200
	MaxAddressLength = 500
	MaxPhoneLength   = 20
)

// HospitalRecord is one parsed CSV row ready for submission to the
// directory service. Phone is optional and empty when absent.
type HospitalRecord struct {
	Name    string
	Address string
	Phone   string
}

func (r *HospitalRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrValidation)
	}

	if n := len([]rune(r.Name)); n > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters (got %d)", ErrValidation, MaxNameLength, n)
	}
	if n := len([]rune(r.Address)); n > MaxAddressLength {
		return fmt.Errorf("%w: address exceeds %d characters (got %d)", ErrValidation, MaxAddressLength, n)
	}
	if n := len([]rune(r.Phone)); n > MaxPhoneLength {
		return fmt.Errorf("%w: phone exceeds %d characters (got %d)", ErrValidation, MaxPhoneLength, n)
	}

	return nil
}

// ResultStatus is the per-row outcome of one creation attempt.
type ResultStatus string

const (
	ResultStatusCreated             ResultStatus = "created"
	ResultStatusCreatedAndActivated ResultStatus = "created_and_activated"
	ResultStatusFailed              ResultStatus = "failed"
)

func (s ResultStatus) String() string { return string(s) }

// HospitalResult records the outcome for one input row. Row numbering is
// 1-based and follows the original CSV order.
type HospitalResult struct {
	Row        int          `json:"row"`
	HospitalID *int64       `json:"hospitalId"`
	Name       string       `json:"name"`
	Status     ResultStatus `json:"status"`
	Error      *string      `json:"error,omitempty"`
}
