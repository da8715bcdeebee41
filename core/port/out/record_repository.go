package out

import (
	"context"
	"time"

	"billsync/core/domain"
)

// PaymentRepository is the outbound port for the payment record store.
type PaymentRepository interface {
	// Insert writes the record if no row with the same email id exists.
	// It returns true when a new row was written, false when the store
	// already had this identity. The second case is the normal outcome on
	// re-runs inside the watermark window, not an error.
	Insert(ctx context.Context, rec *domain.PaymentRecord) (bool, error)

	// LatestPaymentDate returns the maximum payment date already persisted,
	// or nil when the table is empty.
	LatestPaymentDate(ctx context.Context) (*time.Time, error)
}

// BillRepository is the outbound port for the bill record store.
type BillRepository interface {
	Insert(ctx context.Context, rec *domain.BillRecord) (bool, error)
}

// BodyArchive optionally stores decoded plain-text bodies for audit. Archive
// failures must never fail a sync run.
type BodyArchive interface {
	Store(ctx context.Context, emailID, body string) error
}
