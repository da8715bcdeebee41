package bootstrap

import (
	"billsync/core/service/mailparse"
	"billsync/infra/database"
	"billsync/pkg/logger"
	"billsync/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RegisterDevRoutes registers development-only probe routes.
// WARNING: never enable in production; these expose raw mailbox content.
func RegisterDevRoutes(app *fiber.App, deps *Dependencies) {
	dev := app.Group("/dev")

	// Raw mailbox search probe
	dev.Get("/mailbox", func(c *fiber.Ctx) error {
		query := c.Query("query")
		if query == "" {
			return response.BadRequest(c, "query required")
		}
		limit := c.QueryInt("limit", 10)

		logger.Debug("[Dev] mailbox search: %s", query)

		refs, err := deps.MailProvider.Search(c.Context(), query, limit)
		if err != nil {
			return err
		}
		return response.OK(c, fiber.Map{
			"query": query,
			"refs":  refs,
			"total": len(refs),
		})
	})

	// Message parse probe: fetch, decode and run the deterministic rules
	// without persisting anything.
	dev.Get("/messages/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")

		env, err := deps.MailProvider.Fetch(c.Context(), id)
		if err != nil {
			return err
		}

		body := mailparse.Decode(env.Body)
		preview := body
		if len(preview) > 2000 {
			preview = preview[:2000]
		}

		return response.OK(c, fiber.Map{
			"id":           env.ID,
			"subject":      env.Header("Subject"),
			"from":         env.Header("From"),
			"date":         env.Header("Date"),
			"snippet":      env.Snippet,
			"body_preview": preview,
			"body_len":     len(body),
		})
	})

	// Service-backed bill extraction probe, never persisted.
	dev.Post("/messages/:id/extract", func(c *fiber.Ctx) error {
		id := c.Params("id")

		env, err := deps.MailProvider.Fetch(c.Context(), id)
		if err != nil {
			return err
		}

		body := mailparse.Decode(env.Body)
		rec, err := deps.LLMExtractor.ExtractBill(c.Context(), body, env)
		if err != nil {
			return err
		}
		return response.OK(c, rec)
	})

	// Archived decoded body for one message, when the archive is configured.
	dev.Get("/messages/:id/body", func(c *fiber.Ctx) error {
		if deps.BodyArchive == nil {
			return response.Error(c, fiber.StatusServiceUnavailable, "NOT_CONFIGURED", "body archive not configured")
		}

		body, err := deps.BodyArchive.Get(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		if body == "" {
			return response.NotFound(c, "archived body")
		}
		return response.OK(c, fiber.Map{
			"id":       c.Params("id"),
			"body":     body,
			"body_len": len(body),
		})
	})

	// Connection pool statistics
	dev.Get("/stats", func(c *fiber.Ctx) error {
		return response.OK(c, fiber.Map{
			"postgres": database.GetPoolStats(deps.DB),
		})
	})

	// Recently persisted records
	dev.Get("/payments", func(c *fiber.Ctx) error {
		recs, err := deps.PaymentRepo.List(c.Context(), c.QueryInt("limit", 50))
		if err != nil {
			return err
		}
		return response.OK(c, fiber.Map{"payments": recs, "total": len(recs)})
	})

	dev.Get("/bills", func(c *fiber.Ctx) error {
		recs, err := deps.BillRepo.List(c.Context(), c.QueryInt("limit", 50))
		if err != nil {
			return err
		}
		return response.OK(c, fiber.Map{"bills": recs, "total": len(recs)})
	})
}
