package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/alerts"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// AlertHandler consulta y marca alertas de stock.
type AlertHandler struct {
	engine *alerts.Engine
	log    *logger.Logger
}

// NewAlertHandler construye el handler.
func NewAlertHandler(engine *alerts.Engine, log *logger.Logger) *AlertHandler {
	return &AlertHandler{engine: engine, log: log}
}

// ListActive godoc
// @Summary      Alertas activas
// @Tags         alerts
// @Produce      json
// @Success      200  {array}  dto.AlertResponse
// @Router       /api/alerts/active [get]
func (h *AlertHandler) ListActive(c *fiber.Ctx) error {
	list, err := h.engine.ListActiveAlerts(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewAlertList(list))
}

// ListByItem historial de alertas de un ítem.
func (h *AlertHandler) ListByItem(c *fiber.Ctx) error {
	list, err := h.engine.ListAlertsByItem(c.Context(), c.Params("itemId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewAlertList(list))
}

// MarkRead godoc
// @Summary      Marcar alerta como leída
// @Tags         alerts
// @Param        id   path  int  true  "ID de la alerta"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/alerts/{id}/read [post]
func (h *AlertHandler) MarkRead(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badParam(c, "id")
	}
	if err := h.engine.MarkRead(c.Context(), int64(id), GetActorID(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
