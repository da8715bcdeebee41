// Package extract turns decoded email text into structured records. Two
// interchangeable strategies share the same contract: deterministic pattern
// rules, and a hosted LLM with a strict JSON schema.
package extract

import (
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"billsync/core/domain"
	"billsync/core/port/out"
)

var (
	merchantRe = regexp.MustCompile(`(?i)(?:payment|paid)\s+to\s+(.+)$`)

	// Amount patterns in priority order: symbol-prefixed wins over
	// code-prefixed wins over code-suffixed.
	amountSymbolRe     = regexp.MustCompile(`£\s*([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{2})?)`)
	amountCodePrefixRe = regexp.MustCompile(`(?i)\bGBP\s*([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{2})?)\b`)
	amountCodeSuffixRe = regexp.MustCompile(`(?i)\b([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{2})?)\s*GBP\b`)
)

// RuleExtractor extracts payment records with deterministic pattern rules.
// It is pure and never calls an external service.
type RuleExtractor struct{}

func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

// ExtractPayment builds a payment record from the decoded body and the
// envelope's header hints. Every field is independently best-effort.
func (e *RuleExtractor) ExtractPayment(body string, env *out.MessageEnvelope) *domain.PaymentRecord {
	subject := env.Header("Subject")
	dateHeader := env.Header("Date")

	return &domain.PaymentRecord{
		EmailID:      env.ID,
		MerchantName: MerchantFromSubject(subject),
		PaymentDate:  DateFromHeader(dateHeader),
		AmountGBP:    AmountGBP(body),
		Provenance: domain.Provenance{
			Subject: subject,
			From:    env.Header("From"),
			Date:    dateHeader,
			Snippet: env.Snippet,
		},
	}
}

// MerchantFromSubject returns the trimmed text after "payment to"/"paid to"
// in the subject line, or nil when the pattern does not match.
func MerchantFromSubject(subject string) *string {
	m := merchantRe.FindStringSubmatch(subject)
	if m == nil {
		return nil
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return nil
	}
	return &name
}

// AmountGBP returns the first GBP amount found in text, trying the symbol
// form first, then the currency-code prefix, then the suffix form.
func AmountGBP(text string) *float64 {
	for _, re := range []*regexp.Regexp{amountSymbolRe, amountCodePrefixRe, amountCodeSuffixRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
				return nil
			}
			return &n
		}
	}
	return nil
}

// DateFromHeader normalizes an RFC 5322 Date header to a UTC YYYY-MM-DD
// string, or nil when the header is absent or unparsable.
func DateFromHeader(header string) *string {
	if header == "" {
		return nil
	}
	t, err := mail.ParseDate(strings.TrimSpace(header))
	if err != nil {
		// Some senders emit RFC 3339 dates instead.
		t, err = time.Parse(time.RFC3339, strings.TrimSpace(header))
		if err != nil {
			return nil
		}
	}
	s := t.UTC().Format("2006-01-02")
	return &s
}
