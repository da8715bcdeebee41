// Package sync orchestrates the email-to-record pipeline: candidate search,
// body decoding, field extraction and idempotent persistence.
package sync

import (
	"context"
	"fmt"
	"time"

	"billsync/core/domain"
	"billsync/core/port/out"
	"billsync/core/service/extract"
	"billsync/core/service/mailparse"
	"billsync/pkg/apperr"
	"billsync/pkg/logger"
)

// ServiceExtractor is the service-backed extraction strategy. Bills always
// go through it; payments fall back to it only when the deterministic rules
// come up empty. It is an interface so the backend can be swapped without
// touching the engine.
type ServiceExtractor interface {
	ExtractBill(ctx context.Context, body string, env *out.MessageEnvelope) (*domain.BillRecord, error)
	ExtractPayment(ctx context.Context, body string, env *out.MessageEnvelope) (*domain.PaymentRecord, error)
}

// Config holds the engine's search filters and limits.
type Config struct {
	PaymentSender  string // e.g. "noreply@wise.com"
	PaymentSubject string // e.g. "Direct Debit paid to"
	BillSubject    string // e.g. "bill OR statement OR invoice OR energy"

	DefaultLimit int
	MaxLimit     int
	CallTimeout  time.Duration // per external call; prevents one hung request stalling the run
}

func (c *Config) normalize() {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 200
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
}

// Engine drives one sync run at a time. It holds no state across runs; the
// watermark is re-read from the store at the start of every run. Iteration is
// strictly sequential: the provider and the extraction service are
// rate-limited upstream, and the watermark may only advance once a run has
// covered the full candidate set for its resolved query.
type Engine struct {
	provider out.MailProvider
	payments out.PaymentRepository
	bills    out.BillRepository
	archive  out.BodyArchive // optional

	rules *extract.RuleExtractor
	llm   ServiceExtractor

	cfg Config
}

// NewEngine creates a sync engine. archive may be nil.
func NewEngine(
	provider out.MailProvider,
	payments out.PaymentRepository,
	bills out.BillRepository,
	archive out.BodyArchive,
	llm ServiceExtractor,
	cfg Config,
) *Engine {
	cfg.normalize()
	return &Engine{
		provider: provider,
		payments: payments,
		bills:    bills,
		archive:  archive,
		rules:    extract.NewRuleExtractor(),
		llm:      llm,
		cfg:      cfg,
	}
}

// SyncPayments runs one incremental (or backfill) payment sync. The run
// always returns a report, even on partial failure; it fails hard only when
// the candidate set cannot be established or the store is unreachable for
// the watermark read.
func (e *Engine) SyncPayments(ctx context.Context, opts domain.SyncOptions) (*domain.SyncReport, error) {
	report := &domain.SyncReport{DryRun: opts.DryRun}

	// Resolve the search query, bounded by the stored watermark unless
	// this is a backfill.
	query := fmt.Sprintf("from:%s subject:%s", e.cfg.PaymentSender, e.cfg.PaymentSubject)
	if !opts.Backfill {
		last, err := e.latestPaymentDate(ctx)
		if err != nil {
			return nil, apperr.DatabaseError("read watermark", err)
		}
		if last != nil {
			watermark := last.UTC().Format("2006-01-02")
			report.Watermark = watermark
			// Day granularity: "after:" includes the watermark day
			// itself, so same-day messages are reprocessed. Safe
			// because persistence is keyed and conflict-safe.
			query += " after:" + dateToQueryForm(watermark)
		}
	}
	report.Query = query

	limit := e.clampLimit(opts.Limit)
	refs, err := e.search(ctx, query, limit)
	if err != nil {
		return nil, apperr.SourceUnavailable(err)
	}
	report.TotalFound = len(refs)

	if len(refs) > limit {
		refs = refs[:limit]
	}

	log := logger.WithField("query", query)
	for _, ref := range refs {
		report.Processed++
		e.processPayment(ctx, ref.ID, opts.DryRun, report, log)
	}

	return report, nil
}

// processPayment handles one candidate end to end. Any failure is counted
// and logged; it never aborts the run.
func (e *Engine) processPayment(ctx context.Context, id string, dryRun bool, report *domain.SyncReport, log *logger.Logger) {
	env, err := e.fetch(ctx, id)
	if err != nil {
		report.FetchFailed++
		log.WithError(err).Warn("message fetch failed, skipping: %s", id)
		return
	}

	body := mailparse.Decode(env.Body)
	e.archiveBody(ctx, id, body, log)

	rec := e.rules.ExtractPayment(body, env)
	if rec.ParseFailed() {
		rec = e.extractPaymentFallback(ctx, body, env, rec, report, log)
	}
	if rec.ParseFailed() {
		// Partial records are still persisted with whatever fields
		// were recovered; the counter flags them for review.
		report.ParseFailed++
	}

	if dryRun {
		report.Skipped++
		return
	}

	inserted, err := e.insertPayment(ctx, rec)
	if err != nil {
		report.StoreFailed++
		log.WithError(err).Error("payment insert failed: %s", id)
		return
	}
	if inserted {
		report.Inserted++
	} else {
		report.Skipped++
	}
}

// extractPaymentFallback re-extracts through the service when the rules left
// required fields empty. Service fields fill only the gaps; rule-extracted
// values always win. A service failure is counted and the rule result stands.
func (e *Engine) extractPaymentFallback(ctx context.Context, body string, env *out.MessageEnvelope, rec *domain.PaymentRecord, report *domain.SyncReport, log *logger.Logger) *domain.PaymentRecord {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	svcRec, err := e.llm.ExtractPayment(callCtx, body, env)
	cancel()
	if err != nil {
		report.ExtractFailed++
		log.WithError(err).Warn("payment extraction fallback failed: %s", rec.EmailID)
		return rec
	}

	if rec.MerchantName == nil {
		rec.MerchantName = svcRec.MerchantName
	}
	if rec.PaymentDate == nil {
		rec.PaymentDate = svcRec.PaymentDate
	}
	if rec.AmountGBP == nil {
		rec.AmountGBP = svcRec.AmountGBP
	}
	return rec
}

// SyncLatestBill fetches the newest candidate bill email, extracts a bill
// record through the service-backed strategy and persists it.
func (e *Engine) SyncLatestBill(ctx context.Context, dryRun bool) (*domain.BillRecord, bool, error) {
	query := "subject:(" + e.cfg.BillSubject + ")"

	refs, err := e.search(ctx, query, 1)
	if err != nil {
		return nil, false, apperr.SourceUnavailable(err)
	}
	if len(refs) == 0 {
		return nil, false, apperr.NotFound("bill email")
	}

	env, err := e.fetch(ctx, refs[0].ID)
	if err != nil {
		return nil, false, apperr.FetchFailed(refs[0].ID, err)
	}

	body := mailparse.Decode(env.Body)
	e.archiveBody(ctx, env.ID, body, logger.Default())

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	rec, err := e.llm.ExtractBill(callCtx, body, env)
	cancel()
	if err != nil {
		return nil, false, err
	}

	if dryRun {
		return rec, false, nil
	}

	callCtx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
	inserted, err := e.bills.Insert(callCtx, rec)
	cancel()
	if err != nil {
		return nil, false, apperr.DatabaseError("insert bill", err)
	}
	return rec, inserted, nil
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		return e.cfg.MaxLimit
	}
	return limit
}

func (e *Engine) latestPaymentDate(ctx context.Context) (*time.Time, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.payments.LatestPaymentDate(callCtx)
}

func (e *Engine) search(ctx context.Context, query string, max int) ([]out.MessageRef, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.provider.Search(callCtx, query, max)
}

func (e *Engine) fetch(ctx context.Context, id string) (*out.MessageEnvelope, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.provider.Fetch(callCtx, id)
}

func (e *Engine) insertPayment(ctx context.Context, rec *domain.PaymentRecord) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.payments.Insert(callCtx, rec)
}

// archiveBody stores the decoded body when an archive is configured.
// Archive failures are logged and otherwise ignored.
func (e *Engine) archiveBody(ctx context.Context, id, body string, log *logger.Logger) {
	if e.archive == nil || body == "" {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	if err := e.archive.Store(callCtx, id, body); err != nil {
		log.WithError(err).Warn("body archive failed: %s", id)
	}
}

// dateToQueryForm converts YYYY-MM-DD to the provider's YYYY/MM/DD form.
func dateToQueryForm(date string) string {
	b := []byte(date)
	for i := range b {
		if b[i] == '-' {
			b[i] = '/'
		}
	}
	return string(b)
}
