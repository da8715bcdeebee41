package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"billsync/core/domain"
	"billsync/core/port/out"

	"github.com/jmoiron/sqlx"
)

// BillAdapter implements out.BillRepository.
type BillAdapter struct {
	db *sqlx.DB
}

// NewBillAdapter creates a new BillAdapter.
func NewBillAdapter(db *sqlx.DB) *BillAdapter {
	return &BillAdapter{db: db}
}

var _ out.BillRepository = (*BillAdapter)(nil)

type billRow struct {
	EmailID         string          `db:"email_id"`
	Provider        sql.NullString  `db:"provider"`
	BillPeriodStart sql.NullString  `db:"bill_period_start"`
	BillPeriodEnd   sql.NullString  `db:"bill_period_end"`
	Amount          sql.NullFloat64 `db:"amount"`
	Currency        sql.NullString  `db:"currency"`
	DueDate         sql.NullString  `db:"due_date"`
	UsageKWH        sql.NullFloat64 `db:"usage_kwh"`
	RawSubject      sql.NullString  `db:"raw_subject"`
	RawFrom         sql.NullString  `db:"raw_from"`
	RawDate         sql.NullString  `db:"raw_date"`
	RawSnippet      sql.NullString  `db:"raw_snippet"`
}

// Insert writes the record unless a row with the same email id already
// exists, reporting (false, nil) on the conflict path.
func (r *BillAdapter) Insert(ctx context.Context, rec *domain.BillRecord) (bool, error) {
	if rec == nil || rec.EmailID == "" {
		return false, ErrInvalidInput
	}

	query := `
		INSERT INTO bills (
			email_id, provider, bill_period_start, bill_period_end,
			amount, currency, due_date, usage_kwh,
			raw_subject, raw_from, raw_date, raw_snippet
		) VALUES ($1, $2, $3::date, $4::date, $5, $6, $7::date, $8, $9, $10, $11, $12)
		ON CONFLICT (email_id) DO NOTHING
		RETURNING email_id`

	var inserted string
	err := r.db.QueryRowxContext(ctx, query,
		rec.EmailID,
		rec.Provider,
		rec.BillPeriodStart,
		rec.BillPeriodEnd,
		rec.Amount,
		rec.Currency,
		rec.DueDate,
		rec.UsageKWH,
		rec.Provenance.Subject,
		rec.Provenance.From,
		rec.Provenance.Date,
		rec.Provenance.Snippet,
	).Scan(&inserted)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert bill: %w", err)
	}
	return true, nil
}

// List returns up to limit bill records, newest due date first.
func (r *BillAdapter) List(ctx context.Context, limit int) ([]*domain.BillRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT email_id, provider,
		       bill_period_start::text AS bill_period_start,
		       bill_period_end::text AS bill_period_end,
		       amount, currency, due_date::text AS due_date, usage_kwh,
		       raw_subject, raw_from, raw_date, raw_snippet
		FROM bills
		ORDER BY due_date DESC NULLS LAST, email_id
		LIMIT $1`

	var rows []billRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	recs := make([]*domain.BillRecord, len(rows))
	for i, row := range rows {
		recs[i] = row.toDomain()
	}
	return recs, nil
}

func (row *billRow) toDomain() *domain.BillRecord {
	rec := &domain.BillRecord{
		EmailID: row.EmailID,
		Provenance: domain.Provenance{
			Subject: row.RawSubject.String,
			From:    row.RawFrom.String,
			Date:    row.RawDate.String,
			Snippet: row.RawSnippet.String,
		},
	}
	if row.Provider.Valid {
		rec.Provider = &row.Provider.String
	}
	if row.BillPeriodStart.Valid {
		rec.BillPeriodStart = &row.BillPeriodStart.String
	}
	if row.BillPeriodEnd.Valid {
		rec.BillPeriodEnd = &row.BillPeriodEnd.String
	}
	if row.Amount.Valid {
		rec.Amount = &row.Amount.Float64
	}
	if row.Currency.Valid {
		rec.Currency = &row.Currency.String
	}
	if row.DueDate.Valid {
		rec.DueDate = &row.DueDate.String
	}
	if row.UsageKWH.Valid {
		rec.UsageKWH = &row.UsageKWH.Float64
	}
	return rec
}
