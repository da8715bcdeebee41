// Package http contains the inbound HTTP handlers.
package http

import (
	"billsync/core/domain"
	"billsync/core/service/sync"
	"billsync/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// SyncHandler exposes the sync runs over HTTP.
type SyncHandler struct {
	engine *sync.Engine
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(engine *sync.Engine) *SyncHandler {
	return &SyncHandler{engine: engine}
}

// Register registers sync routes.
func (h *SyncHandler) Register(router fiber.Router) {
	syncGroup := router.Group("/sync")

	syncGroup.Post("/payments", h.SyncPayments)
	syncGroup.Post("/payments/backfill", h.BackfillPayments)
	syncGroup.Post("/bills/latest", h.SyncLatestBill)
}

// SyncPayments runs one incremental payment sync.
func (h *SyncHandler) SyncPayments(c *fiber.Ctx) error {
	opts := domain.SyncOptions{
		Limit:  c.QueryInt("limit", 0),
		DryRun: c.QueryBool("dry_run", false),
	}

	report, err := h.engine.SyncPayments(c.Context(), opts)
	if err != nil {
		return err
	}
	return response.OK(c, report)
}

// BackfillPayments runs a payment sync without the watermark bound.
func (h *SyncHandler) BackfillPayments(c *fiber.Ctx) error {
	opts := domain.SyncOptions{
		Limit:    c.QueryInt("limit", 0),
		DryRun:   c.QueryBool("dry_run", false),
		Backfill: true,
	}

	report, err := h.engine.SyncPayments(c.Context(), opts)
	if err != nil {
		return err
	}
	return response.OK(c, report)
}

// SyncLatestBill ingests the newest candidate bill email.
func (h *SyncHandler) SyncLatestBill(c *fiber.Ctx) error {
	dryRun := c.QueryBool("dry_run", false)

	rec, inserted, err := h.engine.SyncLatestBill(c.Context(), dryRun)
	if err != nil {
		return err
	}

	payload := fiber.Map{
		"record":   rec,
		"inserted": inserted,
		"dry_run":  dryRun,
	}
	if inserted {
		return response.Created(c, payload)
	}
	return response.OK(c, payload)
}
