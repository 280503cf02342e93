package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

func healthHandler(service string, ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": service, "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": service})
	}
}
