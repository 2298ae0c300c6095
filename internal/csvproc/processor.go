package csvproc

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rrraaa1/hospital-bulk-processing/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row-level problems beyond this count are collapsed into one summary line.
// All rows are still scanned; only the reported list is capped.
const maxReportedRowErrors = 10

var (
	requiredColumns = []string{"name", "address"}
	optionalColumns = []string{"phone"}
)

// ValidationResult is the outcome of validating an uploaded CSV payload.
type ValidationResult struct {
	Valid     bool     `json:"isValid"`
	TotalRows int      `json:"totalRows"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
}

// Processor validates and parses hospital CSV uploads.
type Processor struct{}

func NewProcessor() *Processor {
	return &Processor{}
}

// Validate checks structural and semantic validity of the raw CSV bytes
// before any directory call is attempted.
func (p *Processor) Validate(content []byte) ValidationResult {
	result := ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	text, ok := decodeUTF8(content)
	if !ok {
		result.Errors = append(result.Errors, "Invalid file encoding. Please use UTF-8 encoding.")
		return result
	}

	reader := newCSVReader(text)

	headers, err := readHeaders(reader)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	if len(headers) == 0 {
		result.Errors = append(result.Errors, "CSV file is empty or has no headers")
		return result
	}

	if missing := missingRequiredColumns(headers); len(missing) != 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Missing required columns: %s", strings.Join(missing, ", ")))
	}
	if unknown := unknownColumns(headers); len(unknown) != 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Unknown columns will be ignored: %s", strings.Join(unknown, ", ")))
	}

	var rowErrors []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("CSV parsing error: %s", err))
			return result
		}

		result.TotalRows++
		rowErrors = append(rowErrors, validateRow(result.TotalRows, headers, record)...)
	}

	if len(rowErrors) > maxReportedRowErrors {
		result.Errors = append(result.Errors, rowErrors[:maxReportedRowErrors]...)
		result.Errors = append(result.Errors, fmt.Sprintf("... and %d more row errors", len(rowErrors)-maxReportedRowErrors))
	} else {
		result.Errors = append(result.Errors, rowErrors...)
	}

	if result.TotalRows == 0 {
		result.Errors = append(result.Errors, "CSV file contains no data rows")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// Parse converts the raw CSV bytes into hospital records. Callers are
// expected to have validated the content first; Parse only fails on
// undecodable or syntactically broken input.
func (p *Processor) Parse(content []byte) ([]domain.HospitalRecord, error) {
	text, ok := decodeUTF8(content)
	if !ok {
		return nil, fmt.Errorf("%w: invalid file encoding", domain.ErrValidation)
	}

	reader := newCSVReader(text)

	headers, err := readHeaders(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	var records []domain.HospitalRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse CSV: %s", domain.ErrValidation, err)
		}

		records = append(records, domain.HospitalRecord{
			Name:    fieldValue(headers, row, "name"),
			Address: fieldValue(headers, row, "address"),
			Phone:   fieldValue(headers, row, "phone"),
		})
	}

	return records, nil
}

func decodeUTF8(content []byte) (string, bool) {
	trimmed := bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(trimmed) {
		return "", false
	}
	return string(trimmed), true
}

func newCSVReader(text string) *csv.Reader {
	reader := csv.NewReader(strings.NewReader(text))
	// Rows with a deviating field count are handled per column lookup
	// rather than rejected wholesale.
	reader.FieldsPerRecord = -1
	return reader
}

func readHeaders(reader *csv.Reader) ([]string, error) {
	record, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("CSV file is empty or has no headers")
	}
	if err != nil {
		return nil, fmt.Errorf("CSV parsing error: %s", err)
	}

	headers := make([]string, len(record))
	for i, h := range record {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return headers, nil
}

func missingRequiredColumns(headers []string) []string {
	var missing []string
	for _, col := range requiredColumns {
		if !containsColumn(headers, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

func unknownColumns(headers []string) []string {
	var unknown []string
	for _, h := range headers {
		if !containsColumn(requiredColumns, h) && !containsColumn(optionalColumns, h) {
			unknown = append(unknown, h)
		}
	}
	return unknown
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

func validateRow(rowNumber int, headers []string, record []string) []string {
	var rowErrors []string

	name := fieldValue(headers, record, "name")
	address := fieldValue(headers, record, "address")
	phone := fieldValue(headers, record, "phone")

	if name == "" {
		rowErrors = append(rowErrors, fmt.Sprintf("Row %d: Missing or empty 'name' field", rowNumber))
	}
	if address == "" {
		rowErrors = append(rowErrors, fmt.Sprintf("Row %d: Missing or empty 'address' field", rowNumber))
	}

	if name != "" && len([]rune(name)) > domain.MaxNameLength {
		rowErrors = append(rowErrors, fmt.Sprintf("Row %d: Hospital name exceeds %d characters", rowNumber, domain.MaxNameLength))
	}
	if address != "" && len([]rune(address)) > domain.MaxAddressLength {
		rowErrors = append(rowErrors, fmt.Sprintf("Row %d: Address exceeds %d characters", rowNumber, domain.MaxAddressLength))
	}
	if phone != "" && len([]rune(phone)) > domain.MaxPhoneLength {
		rowErrors = append(rowErrors, fmt.Sprintf("Row %d: Phone number exceeds %d characters", rowNumber, domain.MaxPhoneLength))
	}

	return rowErrors
}

func fieldValue(headers []string, record []string, column string) string {
	for i, h := range headers {
		if h != column {
			continue
		}
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return ""
}
