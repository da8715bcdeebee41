package domain

// RecordKind selects the extraction target: a utility bill or a direct-debit
// payment confirmation. It picks both the prompt template and the schema the
// extraction response is validated against.
type RecordKind string

const (
	KindBill    RecordKind = "bill"
	KindPayment RecordKind = "payment"
)

// Provenance carries the raw message context a record was extracted from,
// copied verbatim from the envelope for audit and debugging.
type Provenance struct {
	Subject string `json:"raw_subject"`
	From    string `json:"raw_from"`
	Date    string `json:"raw_date"`
	Snippet string `json:"raw_snippet"`
}

// BillRecord is the structured form of a utility bill email. Extraction is
// best effort: every field is independently nullable and an absent field
// never invalidates the record.
type BillRecord struct {
	EmailID string `json:"email_id"`

	Provider        *string  `json:"provider"`
	BillPeriodStart *string  `json:"bill_period_start"` // YYYY-MM-DD
	BillPeriodEnd   *string  `json:"bill_period_end"`   // YYYY-MM-DD
	Amount          *float64 `json:"amount"`
	Currency        *string  `json:"currency"`
	DueDate         *string  `json:"due_date"` // YYYY-MM-DD
	UsageKWH        *float64 `json:"usage_kwh"`

	Provenance Provenance `json:"provenance"`
}

// ParseFailed reports whether the record is missing a semantically required
// field (provider or amount).
func (r *BillRecord) ParseFailed() bool {
	return r.Provider == nil || r.Amount == nil
}

// PaymentRecord is the structured form of a direct-debit payment
// confirmation email.
type PaymentRecord struct {
	EmailID string `json:"email_id"`

	MerchantName *string  `json:"merchant_name"`
	PaymentDate  *string  `json:"payment_date"` // YYYY-MM-DD
	AmountGBP    *float64 `json:"amount_gbp"`

	Provenance Provenance `json:"provenance"`
}

// ParseFailed reports whether the record is missing a semantically required
// field (merchant, amount or payment date).
func (r *PaymentRecord) ParseFailed() bool {
	return r.MerchantName == nil || r.AmountGBP == nil || r.PaymentDate == nil
}
