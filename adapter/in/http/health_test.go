package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type fakeCircuit struct {
	open bool
}

func (f *fakeCircuit) IsCircuitOpen() bool { return f.open }

func testApp(circuit CircuitReporter) *fiber.App {
	app := fiber.New()
	NewHealthHandler(nil, nil, circuit).Register(app)
	return app
}

func TestHealth(t *testing.T) {
	app := testApp(nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestReadyReportsCircuitState(t *testing.T) {
	tests := []struct {
		name string
		open bool
		want string
	}{
		{"circuit closed", false, "closed"},
		{"circuit open", true, "open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApp(&fakeCircuit{open: tt.open})

			resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil))
			if err != nil {
				t.Fatalf("Test() error = %v", err)
			}
			// An open circuit is upstream state; readiness stays OK.
			if resp.StatusCode != fiber.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}

			raw, _ := io.ReadAll(resp.Body)
			var body struct {
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Checks["gmail_circuit"] != tt.want {
				t.Errorf("gmail_circuit = %q, want %q", body.Checks["gmail_circuit"], tt.want)
			}
			if body.Checks["postgres"] != "not configured" {
				t.Errorf("postgres = %q", body.Checks["postgres"])
			}
		})
	}
}
