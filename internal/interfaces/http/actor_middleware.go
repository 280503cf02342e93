package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// HeaderActorID cabecera con el usuario que ejecuta la operación (lo resuelve el gateway).
const HeaderActorID = "X-Actor-ID"

// LocalActorID clave de c.Locals con el actor.
const LocalActorID = "actor_id"

// ActorMiddleware copia X-Actor-ID a c.Locals. No autentica: el ledger confía en el gateway.
func ActorMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if actor := strings.TrimSpace(c.Get(HeaderActorID)); actor != "" {
			c.Locals(LocalActorID, actor)
		}
		return c.Next()
	}
}

// GetActorID devuelve el actor del contexto o "".
func GetActorID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalActorID).(string)
	return s
}
