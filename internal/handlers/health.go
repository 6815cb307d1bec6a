package handlers

import "github.com/gofiber/fiber/v2"

// Health handles GET /healthz, mounted before domain routes — the
// reference backend's wiring always mounts a liveness route first.
func Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
