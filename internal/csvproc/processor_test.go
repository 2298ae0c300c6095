package csvproc

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rrraaa1/hospital-bulk-processing/internal/domain"
)

func TestValidate_WellFormedCSV(t *testing.T) {
	t.Parallel()

	content := []byte("name,address,phone\nGeneral Hospital,1 Main St,+15550001111\nCity Clinic,2 Elm St,\n")

	result := NewProcessor().Validate(content)

	if !result.Valid {
		t.Fatalf("Valid = false, errors = %v", result.Errors)
	}
	if result.TotalRows != 2 {
		t.Fatalf("TotalRows = %d, want 2", result.TotalRows)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("Errors = %v, want none", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("Warnings = %v, want none", result.Warnings)
	}
}

func TestValidate_BOMTolerated(t *testing.T) {
	t.Parallel()

	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,address\nA,Addr1\n")...)

	result := NewProcessor().Validate(content)
	if !result.Valid {
		t.Fatalf("Valid = false, errors = %v", result.Errors)
	}
	if result.TotalRows != 1 {
		t.Fatalf("TotalRows = %d, want 1", result.TotalRows)
	}
}

func TestValidate_InvalidEncoding(t *testing.T) {
	t.Parallel()

	content := []byte{0xFF, 0xFE, 0x00, 0x6E}

	result := NewProcessor().Validate(content)
	if result.Valid {
		t.Fatal("Valid = true, want false")
	}
	if result.TotalRows != 0 {
		t.Fatalf("TotalRows = %d, want 0", result.TotalRows)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "encoding") {
		t.Fatalf("Errors = %v, want single encoding error", result.Errors)
	}
}

func TestValidate_MissingRequiredColumn(t *testing.T) {
	t.Parallel()

	content := []byte("name,phone\nGeneral Hospital,+15550001111\n")

	result := NewProcessor().Validate(content)
	if result.Valid {
		t.Fatal("Valid = true, want false")
	}

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "Missing required columns") && strings.Contains(e, "address") {
			found = true
		}
	}
	if !found {
		t.Fatalf("Errors = %v, want missing-columns error mentioning address", result.Errors)
	}
}

func TestValidate_UnknownColumnsWarnOnly(t *testing.T) {
	t.Parallel()

	content := []byte("name,address,website\nGeneral Hospital,1 Main St,example.com\n")

	result := NewProcessor().Validate(content)
	if !result.Valid {
		t.Fatalf("Valid = false, errors = %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "website") {
		t.Fatalf("Warnings = %v, want unknown-column warning for website", result.Warnings)
	}
}

func TestValidate_HeaderNormalization(t *testing.T) {
	t.Parallel()

	content := []byte(" Name , ADDRESS \nGeneral Hospital,1 Main St\n")

	result := NewProcessor().Validate(content)
	if !result.Valid {
		t.Fatalf("Valid = false, errors = %v", result.Errors)
	}
}

func TestValidate_EmptyInput(t *testing.T) {
	t.Parallel()

	result := NewProcessor().Validate([]byte(""))
	if result.Valid {
		t.Fatal("Valid = true, want false")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "empty") {
		t.Fatalf("Errors = %v, want single empty-file error", result.Errors)
	}
}

func TestValidate_HeaderOnlyNoDataRows(t *testing.T) {
	t.Parallel()

	result := NewProcessor().Validate([]byte("name,address\n"))
	if result.Valid {
		t.Fatal("Valid = true, want false")
	}

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "no data rows") {
			found = true
		}
	}
	if !found {
		t.Fatalf("Errors = %v, want no-data-rows error", result.Errors)
	}
}

func TestValidate_RowFieldErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		row      string
		wantPart string
	}{
		{name: "empty name", row: ",1 Main St,", wantPart: "Row 1: Missing or empty 'name' field"},
		{name: "empty address", row: "General Hospital,,", wantPart: "Row 1: Missing or empty 'address' field"},
		{name: "name too long", row: strings.Repeat("a", 201) + ",1 Main St,", wantPart: "Row 1: Hospital name exceeds 200 characters"},
		{name: "address too long", row: "General Hospital," + strings.Repeat("a", 501) + ",", wantPart: "Row 1: Address exceeds 500 characters"},
		{name: "phone too long", row: "General Hospital,1 Main St," + strings.Repeat("1", 21), wantPart: "Row 1: Phone number exceeds 20 characters"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			content := []byte("name,address,phone\n" + tc.row + "\n")
			result := NewProcessor().Validate(content)

			if result.Valid {
				t.Fatal("Valid = true, want false")
			}
			found := false
			for _, e := range result.Errors {
				if strings.Contains(e, tc.wantPart) {
					found = true
				}
			}
			if !found {
				t.Fatalf("Errors = %v, want one containing %q", result.Errors, tc.wantPart)
			}
		})
	}
}

func TestValidate_RowErrorCapAtTen(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("name,address\n")
	for i := 0; i < 15; i++ {
		sb.WriteString(",\n") // each bad row yields two errors
	}

	result := NewProcessor().Validate([]byte(sb.String()))
	if result.Valid {
		t.Fatal("Valid = true, want false")
	}
	if result.TotalRows != 15 {
		t.Fatalf("TotalRows = %d, want 15: all rows are scanned despite the cap", result.TotalRows)
	}

	// 10 reported row errors plus the summary line.
	if len(result.Errors) != 11 {
		t.Fatalf("len(Errors) = %d, want 11", len(result.Errors))
	}
	last := result.Errors[len(result.Errors)-1]
	if want := fmt.Sprintf("... and %d more row errors", 30-10); last != want {
		t.Fatalf("summary = %q, want %q", last, want)
	}
}

func TestParse_TrimsAndOmitsEmptyPhone(t *testing.T) {
	t.Parallel()

	content := []byte("name,address,phone\n General Hospital , 1 Main St ,\nCity Clinic,2 Elm St, +15550002222 \n")

	records, err := NewProcessor().Parse(content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	want := []domain.HospitalRecord{
		{Name: "General Hospital", Address: "1 Main St"},
		{Name: "City Clinic", Address: "2 Elm St", Phone: "+15550002222"},
	}
	for i := range want {
		if records[i] != want[i] {
			t.Fatalf("records[%d] = %+v, want %+v", i, records[i], want[i])
		}
	}
}

func TestParse_InvalidEncoding(t *testing.T) {
	t.Parallel()

	_, err := NewProcessor().Parse([]byte{0xFF, 0xFE})
	if err == nil {
		t.Fatal("expected error for invalid encoding")
	}
}

func TestValidateThenParse_RoundTrip(t *testing.T) {
	t.Parallel()

	content := []byte("name,address\nA,Addr1\nB,Addr2\nC,Addr3\n")
	p := NewProcessor()

	result := p.Validate(content)
	if !result.Valid || result.TotalRows != 3 {
		t.Fatalf("Validate() = %+v, want valid with 3 rows", result)
	}

	records, err := p.Parse(content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != result.TotalRows {
		t.Fatalf("len(records) = %d, want %d", len(records), result.TotalRows)
	}
}
