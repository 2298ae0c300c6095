package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rrraaa1/hospital-bulk-processing/internal/directory"
)

// RegisterHealthRoutes wires liveness and dependency health probes.
func RegisterHealthRoutes(app fiber.Router, client directory.Client) {
	app.Get("/livez", LivezHandler())
	app.Get("/health", HealthHandler(client))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

// HealthHandler reports degraded rather than failing outright when the
// directory service is unreachable: the service itself is still up.
func HealthHandler(client directory.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiHealthy := false
		if client != nil {
			apiHealthy = client.HealthCheck(c.Context())
		}

		status := "healthy"
		hospitalAPI := "connected"
		if !apiHealthy {
			status = "degraded"
			hospitalAPI = "disconnected"
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":      status,
			"hospitalApi": hospitalAPI,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// RegisterRootRoute serves the service information document.
func RegisterRootRoute(app fiber.Router) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"service": "Hospital Bulk Processing API",
			"version": "1.0.0",
			"status":  "operational",
			"endpoints": fiber.Map{
				"bulkUpload":   "/hospitals/bulk",
				"batchStatus":  "/hospitals/batch/{batchId}/status",
				"batchResults": "/hospitals/batch/{batchId}/results",
				"validateCsv":  "/hospitals/validate",
			},
		})
	})
}
