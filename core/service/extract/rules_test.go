package extract

import (
	"testing"

	"billsync/core/port/out"
)

func TestMerchantFromSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
		wantNil bool
	}{
		{"paid to", "Direct Debit paid to Acme Energy Ltd", "Acme Energy Ltd", false},
		{"payment to", "Your payment to Thames Water", "Thames Water", false},
		{"case insensitive", "PAID TO octopus", "octopus", false},
		{"trailing space trimmed", "paid to Acme  ", "Acme", false},
		{"no match", "Your statement is ready", "", true},
		{"empty subject", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MerchantFromSubject(tt.subject)
			if tt.wantNil {
				if got != nil {
					t.Errorf("MerchantFromSubject(%q) = %q, want nil", tt.subject, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("MerchantFromSubject(%q) = %v, want %q", tt.subject, got, tt.want)
			}
		})
	}
}

func TestAmountGBP(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    float64
		wantNil bool
	}{
		{"pound symbol", "Amount due: £83.50", 83.50, false},
		{"symbol with space", "Total £ 12.00 this month", 12.00, false},
		{"thousands separator", "charged £1,234.56 today", 1234.56, false},
		{"code prefix", "You paid GBP 50.00", 50.00, false},
		{"code suffix", "Total: 99.99 GBP", 99.99, false},
		{"no amount", "Thanks for being with us", 0, true},
		{"bare number ignored", "order 12345 confirmed", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountGBP(tt.text)
			if tt.wantNil {
				if got != nil {
					t.Errorf("AmountGBP(%q) = %v, want nil", tt.text, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("AmountGBP(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAmountGBPSymbolWinsOverCode(t *testing.T) {
	text := "Summary: £45.00 charged, previously GBP 50.00"
	got := AmountGBP(text)
	if got == nil || *got != 45.00 {
		t.Errorf("AmountGBP(%q) = %v, want 45.00", text, got)
	}
}

func TestDateFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantNil bool
	}{
		{"rfc5322", "Mon, 02 Jan 2006 15:04:05 -0700", "2006-01-02", false},
		{"crosses midnight utc", "Tue, 03 Jan 2006 23:30:00 -0500", "2006-01-04", false},
		{"absent", "", "", true},
		{"garbage", "not a date", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DateFromHeader(tt.header)
			if tt.wantNil {
				if got != nil {
					t.Errorf("DateFromHeader(%q) = %q, want nil", tt.header, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("DateFromHeader(%q) = %v, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestExtractPayment(t *testing.T) {
	env := &out.MessageEnvelope{
		ID: "msg-1",
		Headers: []out.Header{
			{Name: "Subject", Value: "Direct Debit paid to Acme Energy Ltd"},
			{Name: "From", Value: "noreply@wise.com"},
			{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 +0000"},
		},
		Snippet: "Your Direct Debit payment...",
	}

	rec := NewRuleExtractor().ExtractPayment("Your Direct Debit payment of £45.00 was sent", env)

	if rec.EmailID != "msg-1" {
		t.Errorf("EmailID = %q", rec.EmailID)
	}
	if rec.MerchantName == nil || *rec.MerchantName != "Acme Energy Ltd" {
		t.Errorf("MerchantName = %v", rec.MerchantName)
	}
	if rec.AmountGBP == nil || *rec.AmountGBP != 45.00 {
		t.Errorf("AmountGBP = %v", rec.AmountGBP)
	}
	if rec.PaymentDate == nil || *rec.PaymentDate != "2006-01-02" {
		t.Errorf("PaymentDate = %v", rec.PaymentDate)
	}
	if rec.ParseFailed() {
		t.Error("ParseFailed() = true for a fully parsed record")
	}
	if rec.Provenance.Subject != "Direct Debit paid to Acme Energy Ltd" {
		t.Errorf("Provenance.Subject = %q", rec.Provenance.Subject)
	}
}

func TestExtractPaymentPartial(t *testing.T) {
	env := &out.MessageEnvelope{
		ID: "msg-2",
		Headers: []out.Header{
			{Name: "Subject", Value: "Receipt"},
		},
	}

	rec := NewRuleExtractor().ExtractPayment("no amounts here", env)

	if rec.MerchantName != nil || rec.AmountGBP != nil || rec.PaymentDate != nil {
		t.Errorf("expected all nil fields, got %+v", rec)
	}
	if !rec.ParseFailed() {
		t.Error("ParseFailed() = false for an empty record")
	}
}
