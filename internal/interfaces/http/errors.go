package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", "datos inválidos"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "ítem o ubicación no encontrado"},
	{domain.ErrLotNotFound, fiber.StatusNotFound, "LOT_NOT_FOUND", "lote no encontrado"},
	{domain.ErrAlertNotFound, fiber.StatusNotFound, "ALERT_NOT_FOUND", "alerta no encontrada"},
	{domain.ErrItemInactive, fiber.StatusUnprocessableEntity, "INACTIVE", "ítem o ubicación inactivo"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente"},
	{domain.ErrInvalidAdjustment, fiber.StatusUnprocessableEntity, "INVALID_ADJUSTMENT", "el ajuste dejaría el saldo negativo"},
	{domain.ErrDuplicateLotNumber, fiber.StatusConflict, "DUPLICATE_LOT_NUMBER", "número de lote duplicado"},
	{domain.ErrLotDepleted, fiber.StatusConflict, "LOT_DEPLETED", "lote agotado"},
	{domain.ErrLotBlocked, fiber.StatusConflict, "LOT_BLOCKED", "lote bloqueado"},
	{domain.ErrBalanceViolation, fiber.StatusConflict, "RETRYABLE_CONFLICT", "conflicto de concurrencia, reintente"},
	{domain.ErrConflict, fiber.StatusConflict, "RETRYABLE_CONFLICT", "conflicto de concurrencia, reintente"},
}

// writeError traduce errores de dominio a status + dto.ErrorResponse. Los errores no
// mapeados se registran y responden 500 sin exponer el detalle.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			msg := m.message
			if m.status == fiber.StatusBadRequest {
				msg = err.Error()
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: msg})
		}
	}
	log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func badParam(c *fiber.Ctx, name string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_PARAM", Message: name + " inválido"})
}
