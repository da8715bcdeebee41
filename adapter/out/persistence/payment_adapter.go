// Package persistence implements the record store ports on Postgres via sqlx.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"billsync/core/domain"
	"billsync/core/port/out"

	"github.com/jmoiron/sqlx"
)

// PaymentAdapter implements out.PaymentRepository.
type PaymentAdapter struct {
	db *sqlx.DB
}

// NewPaymentAdapter creates a new PaymentAdapter.
func NewPaymentAdapter(db *sqlx.DB) *PaymentAdapter {
	return &PaymentAdapter{db: db}
}

var _ out.PaymentRepository = (*PaymentAdapter)(nil)

type paymentRow struct {
	EmailID      string          `db:"email_id"`
	MerchantName sql.NullString  `db:"merchant_name"`
	PaymentDate  sql.NullString  `db:"payment_date"`
	AmountGBP    sql.NullFloat64 `db:"amount_gbp"`
	RawSubject   sql.NullString  `db:"raw_subject"`
	RawFrom      sql.NullString  `db:"raw_from"`
	RawDate      sql.NullString  `db:"raw_date"`
	RawSnippet   sql.NullString  `db:"raw_snippet"`
}

// Insert writes the record unless a row with the same email id already
// exists. The conflict path is the normal outcome on overlapping sync
// windows and reports (false, nil).
func (r *PaymentAdapter) Insert(ctx context.Context, rec *domain.PaymentRecord) (bool, error) {
	if rec == nil || rec.EmailID == "" {
		return false, ErrInvalidInput
	}

	query := `
		INSERT INTO wise_payments (
			email_id, merchant_name, payment_date, amount_gbp,
			raw_subject, raw_from, raw_date, raw_snippet
		) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)
		ON CONFLICT (email_id) DO NOTHING
		RETURNING email_id`

	var inserted string
	err := r.db.QueryRowxContext(ctx, query,
		rec.EmailID,
		rec.MerchantName,
		rec.PaymentDate,
		rec.AmountGBP,
		rec.Provenance.Subject,
		rec.Provenance.From,
		rec.Provenance.Date,
		rec.Provenance.Snippet,
	).Scan(&inserted)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert payment: %w", err)
	}
	return true, nil
}

// LatestPaymentDate returns MAX(payment_date), or nil when no dated rows
// exist. Rows persisted with a null date never move the watermark.
func (r *PaymentAdapter) LatestPaymentDate(ctx context.Context) (*time.Time, error) {
	query := `SELECT MAX(payment_date) FROM wise_payments`

	var latest sql.NullTime
	if err := r.db.QueryRowxContext(ctx, query).Scan(&latest); err != nil {
		return nil, fmt.Errorf("latest payment date: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time
	return &t, nil
}

// List returns up to limit payment records, newest payment date first,
// undated rows last.
func (r *PaymentAdapter) List(ctx context.Context, limit int) ([]*domain.PaymentRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT email_id, merchant_name, payment_date::text AS payment_date,
		       amount_gbp, raw_subject, raw_from, raw_date, raw_snippet
		FROM wise_payments
		ORDER BY payment_date DESC NULLS LAST, email_id
		LIMIT $1`

	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	recs := make([]*domain.PaymentRecord, len(rows))
	for i, row := range rows {
		recs[i] = row.toDomain()
	}
	return recs, nil
}

func (row *paymentRow) toDomain() *domain.PaymentRecord {
	rec := &domain.PaymentRecord{
		EmailID: row.EmailID,
		Provenance: domain.Provenance{
			Subject: row.RawSubject.String,
			From:    row.RawFrom.String,
			Date:    row.RawDate.String,
			Snippet: row.RawSnippet.String,
		},
	}
	if row.MerchantName.Valid {
		rec.MerchantName = &row.MerchantName.String
	}
	if row.PaymentDate.Valid {
		rec.PaymentDate = &row.PaymentDate.String
	}
	if row.AmountGBP.Valid {
		rec.AmountGBP = &row.AmountGBP.Float64
	}
	return rec
}
