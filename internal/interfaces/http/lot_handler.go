package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/lots"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LotHandler maneja el ciclo de vida de lotes.
type LotHandler struct {
	tracker *lots.Tracker
	log     *logger.Logger
}

// NewLotHandler construye el handler.
func NewLotHandler(tracker *lots.Tracker, log *logger.Logger) *LotHandler {
	return &LotHandler{tracker: tracker, log: log}
}

// Create godoc
// @Summary      Registrar lote
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateLotRequest  true  "lot_number, item_id, location_id, cantidades iniciales"
// @Success      201   {object}  dto.LotResponse
// @Failure      409   {object}  dto.ErrorResponse  "DUPLICATE_LOT_NUMBER"
// @Router       /api/lots [post]
func (h *LotHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateLotRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	id, err := h.tracker.CreateLot(c.Context(), lots.CreateLotRequest{
		LotNumber:     in.LotNumber,
		StockItemID:   in.ItemID,
		SupplierID:    in.SupplierID,
		LocationID:    in.LocationID,
		InitialWeight: in.InitialWeight,
		InitialLength: in.InitialLength,
		ExpiresAt:     in.ExpiresAt,
		ActorID:       GetActorID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	lot, err := h.tracker.GetLot(c.Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewLotResponse(lot))
}

// Get godoc
// @Summary      Obtener lote
// @Tags         lots
// @Produce      json
// @Param        id   path  int  true  "ID del lote"
// @Success      200  {object}  dto.LotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id} [get]
func (h *LotHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badParam(c, "id")
	}
	lot, err := h.tracker.GetLot(c.Context(), int64(id))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLotResponse(lot))
}

// ListAvailable lotes consumibles de un ítem (no bloqueados, no consumidos).
func (h *LotHandler) ListAvailable(c *fiber.Ctx) error {
	list, err := h.tracker.GetAvailableLots(c.Context(), c.Params("itemId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLotList(list))
}

// Consume godoc
// @Summary      Consumir peso/longitud de un lote
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        id    path  int                    true  "ID del lote"
// @Param        body  body  dto.ConsumeLotRequest  true  "weight, length"
// @Success      200   {object}  dto.LotResponse
// @Failure      409   {object}  dto.ErrorResponse  "LOT_BLOCKED, LOT_DEPLETED"
// @Router       /api/lots/{id}/consume [post]
func (h *LotHandler) Consume(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badParam(c, "id")
	}
	var in dto.ConsumeLotRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lot, err := h.tracker.ConsumeLot(c.Context(), int64(id), in.Weight, in.Length)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLotResponse(lot))
}

// Block bloquea un lote por calidad.
func (h *LotHandler) Block(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badParam(c, "id")
	}
	var in dto.BlockLotRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lot, err := h.tracker.BlockLot(c.Context(), int64(id), in.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLotResponse(lot))
}

// Unblock desbloquea un lote. Idempotente.
func (h *LotHandler) Unblock(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badParam(c, "id")
	}
	lot, err := h.tracker.UnblockLot(c.Context(), int64(id))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLotResponse(lot))
}

// Correct godoc
// @Summary      Corregir cantidades actuales de un lote (reconteo)
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        id    path  int                    true  "ID del lote"
// @Param        body  body  dto.CorrectLotRequest  true  "weight, length, reason"
// @Success      200   {object}  dto.LotResponse
// @Router       /api/lots/{id}/correct [post]
func (h *LotHandler) Correct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badParam(c, "id")
	}
	var in dto.CorrectLotRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lot, err := h.tracker.CorrectLot(c.Context(), int64(id), in.Weight, in.Length, in.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLotResponse(lot))
}
