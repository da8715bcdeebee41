package extract

import (
	"strings"
	"testing"
	"time"

	"billsync/pkg/apperr"
)

func TestParseRecordJSON(t *testing.T) {
	content := `{
		"provider": "Octopus Energy",
		"bill_period_start": "2025-11-01",
		"bill_period_end": "2025-11-30",
		"amount": 83.50,
		"currency": "GBP",
		"due_date": null,
		"usage_kwh": 245
	}`

	fields, err := parseRecordJSON(content, billFields)
	if err != nil {
		t.Fatalf("parseRecordJSON() error = %v", err)
	}

	if got := fields.str("provider"); got == nil || *got != "Octopus Energy" {
		t.Errorf("provider = %v", got)
	}
	if got := fields.num("amount"); got == nil || *got != 83.50 {
		t.Errorf("amount = %v", got)
	}
	if got := fields.num("usage_kwh"); got == nil || *got != 245 {
		t.Errorf("usage_kwh = %v", got)
	}
	if got := fields.str("due_date"); got != nil {
		t.Errorf("due_date = %q, want nil for explicit null", *got)
	}
}

func TestParseRecordJSONMissingKeysMapToNil(t *testing.T) {
	fields, err := parseRecordJSON(`{"merchant_name": "Acme"}`, paymentFields)
	if err != nil {
		t.Fatalf("parseRecordJSON() error = %v", err)
	}
	if got := fields.str("merchant_name"); got == nil || *got != "Acme" {
		t.Errorf("merchant_name = %v", got)
	}
	if fields.num("amount_gbp") != nil {
		t.Error("amount_gbp should be nil when absent")
	}
	if fields.str("payment_date") != nil {
		t.Error("payment_date should be nil when absent")
	}
}

func TestParseRecordJSONRejectsNonObject(t *testing.T) {
	for _, content := range []string{"not json at all", `"just a string"`, `[1,2,3]`} {
		_, err := parseRecordJSON(content, paymentFields)
		if err == nil {
			t.Errorf("parseRecordJSON(%q) expected error", content)
			continue
		}
		if !apperr.IsCode(err, apperr.CodeExtractionMalformed) {
			t.Errorf("parseRecordJSON(%q) error code = %v, want EXTRACTION_MALFORMED", content, err)
		}
	}
}

func TestParseRecordJSONQuotedNumber(t *testing.T) {
	fields, err := parseRecordJSON(`{"amount_gbp": "45.00"}`, paymentFields)
	if err != nil {
		t.Fatalf("parseRecordJSON() error = %v", err)
	}
	if got := fields.num("amount_gbp"); got == nil || *got != 45.00 {
		t.Errorf("amount_gbp = %v, want 45.00", got)
	}
}

func TestParseRecordJSONNullSafety(t *testing.T) {
	// An empty string is not a value; it must map to nil, never "".
	fields, err := parseRecordJSON(`{"merchant_name": ""}`, paymentFields)
	if err != nil {
		t.Fatalf("parseRecordJSON() error = %v", err)
	}
	if fields.str("merchant_name") != nil {
		t.Error("empty string should map to nil")
	}
}

func TestTruncate(t *testing.T) {
	e := NewLLMExtractor(LLMConfig{APIKey: "test", MaxBodyChars: 10})
	long := strings.Repeat("x", 50)
	if got := e.truncate(long); len(got) != 10 {
		t.Errorf("truncate() len = %d, want 10", len(got))
	}
	short := "short"
	if got := e.truncate(short); got != short {
		t.Errorf("truncate() = %q, want unchanged", got)
	}
}

func TestBillPromptContainsContract(t *testing.T) {
	p := billPrompt("body text here")
	for _, key := range billFields {
		if !strings.Contains(p, key) {
			t.Errorf("bill prompt missing key %q", key)
		}
	}
	if !strings.Contains(p, "body text here") {
		t.Error("bill prompt missing email body")
	}
}

func TestHTTPConfigTimeout(t *testing.T) {
	tests := []struct {
		name       string
		timeoutSec int
		want       time.Duration
	}{
		{"configured timeout wins", 45, 45 * time.Second},
		{"zero keeps preset default", 0, 120 * time.Second},
		{"negative keeps preset default", -1, 120 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := httpConfig(tt.timeoutSec)
			if cfg.ResponseTimeout != tt.want {
				t.Errorf("ResponseTimeout = %v, want %v", cfg.ResponseTimeout, tt.want)
			}
		})
	}
}
