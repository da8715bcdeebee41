package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
)

// CircuitReporter exposes the mail provider's fail-fast state.
type CircuitReporter interface {
	IsCircuitOpen() bool
}

type HealthHandler struct {
	db      *pgxpool.Pool
	mongo   *mongo.Client
	circuit CircuitReporter
}

func NewHealthHandler(db *pgxpool.Pool, mongoClient *mongo.Client, circuit CircuitReporter) *HealthHandler {
	return &HealthHandler{
		db:      db,
		mongo:   mongoClient,
		circuit: circuit,
	}
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			checks["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["postgres"] = "healthy"
		}
	} else {
		checks["postgres"] = "not configured"
	}

	if h.mongo != nil {
		if err := h.mongo.Ping(ctx, nil); err != nil {
			checks["mongodb"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["mongodb"] = "healthy"
		}
	} else {
		checks["mongodb"] = "not configured"
	}

	// Upstream state, reported but not gating readiness: an open circuit
	// means Gmail calls fail fast, not that this service is down.
	if h.circuit != nil {
		if h.circuit.IsCircuitOpen() {
			checks["gmail_circuit"] = "open"
		} else {
			checks["gmail_circuit"] = "closed"
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
