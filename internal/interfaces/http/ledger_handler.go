package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LedgerHandler maneja movimientos, saldos y reservas.
type LedgerHandler struct {
	engine *inventory.MovementEngine
	ledger *inventory.BalanceLedger
	log    *logger.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(engine *inventory.MovementEngine, ledger *inventory.BalanceLedger, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{engine: engine, ledger: ledger, log: log}
}

// RecordIn godoc
// @Summary      Registrar entrada de stock
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockInRequest  true  "item_id, location_id, quantity, unit_price"
// @Success      201   {object}  dto.MovementCreatedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/ledger/movements/in [post]
func (h *LedgerHandler) RecordIn(c *fiber.Ctx) error {
	var in dto.StockInRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	id, err := h.engine.RecordIn(c.Context(), inventory.InRequest{
		ItemID:          in.ItemID,
		LocationID:      in.LocationID,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		LotID:           in.LotID,
		ReferenceType:   in.ReferenceType,
		ReferenceNumber: in.ReferenceNumber,
		ActorID:         GetActorID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementCreatedResponse{MovementID: id})
}

// RecordOut godoc
// @Summary      Registrar salida de stock
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockOutRequest  true  "item_id, location_id, quantity, lot_id opcional"
// @Success      201   {object}  dto.MovementCreatedResponse
// @Failure      409   {object}  dto.ErrorResponse  "INSUFFICIENT_STOCK, LOT_BLOCKED, LOT_DEPLETED"
// @Router       /api/ledger/movements/out [post]
func (h *LedgerHandler) RecordOut(c *fiber.Ctx) error {
	var in dto.StockOutRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	id, err := h.engine.RecordOut(c.Context(), inventory.OutRequest{
		ItemID:          in.ItemID,
		LocationID:      in.LocationID,
		Quantity:        in.Quantity,
		LotID:           in.LotID,
		LotWeight:       in.LotWeight,
		LotLength:       in.LotLength,
		ReferenceType:   in.ReferenceType,
		ReferenceNumber: in.ReferenceNumber,
		ActorID:         GetActorID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementCreatedResponse{MovementID: id})
}

// RecordTransfer godoc
// @Summary      Trasladar stock entre ubicaciones (atómico)
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "item_id, from_location_id, to_location_id, quantity"
// @Success      201   {object}  dto.TransferCreatedResponse
// @Router       /api/ledger/movements/transfer [post]
func (h *LedgerHandler) RecordTransfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	outID, inID, err := h.engine.RecordTransfer(c.Context(), inventory.TransferRequest{
		ItemID:          in.ItemID,
		FromLocationID:  in.FromLocationID,
		ToLocationID:    in.ToLocationID,
		Quantity:        in.Quantity,
		ReferenceType:   in.ReferenceType,
		ReferenceNumber: in.ReferenceNumber,
		ActorID:         GetActorID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferCreatedResponse{OutMovementID: outID, InMovementID: inID})
}

// RecordAdjustment godoc
// @Summary      Ajuste de inventario con signo
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "quantity con signo y reason obligatorio"
// @Success      201   {object}  dto.MovementCreatedResponse
// @Failure      422   {object}  dto.ErrorResponse  "INVALID_ADJUSTMENT"
// @Router       /api/ledger/movements/adjustment [post]
func (h *LedgerHandler) RecordAdjustment(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	id, err := h.engine.RecordAdjustment(c.Context(), inventory.AdjustmentRequest{
		ItemID:     in.ItemID,
		LocationID: in.LocationID,
		Quantity:   in.Quantity,
		UnitPrice:  in.UnitPrice,
		Reason:     in.Reason,
		ActorID:    GetActorID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementCreatedResponse{MovementID: id})
}

// ListMovements godoc
// @Summary      Historial de movimientos
// @Tags         ledger
// @Produce      json
// @Param        item_id      query  string  false  "Ítem"
// @Param        location_id  query  string  false  "Ubicación"
// @Param        from         query  string  false  "RFC3339"
// @Param        to           query  string  false  "RFC3339"
// @Param        limit        query  int     false  "Máximo 1000"
// @Param        offset       query  int     false  "Desplazamiento"
// @Router       /api/ledger/movements [get]
func (h *LedgerHandler) ListMovements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badParam(c, "paginación")
	}
	page.DefaultPage()
	filter := entity.MovementFilter{
		StockItemID: c.Query("item_id"),
		LocationID:  c.Query("location_id"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	var err error
	if filter.From, err = queryTime(c, "from"); err != nil {
		return badParam(c, "from")
	}
	if filter.To, err = queryTime(c, "to"); err != nil {
		return badParam(c, "to")
	}
	list, err := h.engine.ListMovements(c.Context(), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"movements": dto.NewMovementList(list),
		"page":      dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(list)},
	})
}

// GetMovementsByReference godoc
// @Summary      Movimientos de un documento de referencia
// @Tags         ledger
// @Produce      json
// @Param        ref  path  string  true  "Número de referencia"
// @Router       /api/ledger/movements/reference/{ref} [get]
func (h *LedgerHandler) GetMovementsByReference(c *fiber.Ctx) error {
	list, err := h.engine.GetMovementsByReference(c.Context(), c.Params("ref"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewMovementList(list))
}

// GetBalance godoc
// @Summary      Saldo de un ítem en una ubicación
// @Tags         ledger
// @Produce      json
// @Success      200  {object}  dto.BalanceResponse
// @Router       /api/ledger/balances/{itemId}/{locationId} [get]
func (h *LedgerHandler) GetBalance(c *fiber.Ctx) error {
	bal, err := h.ledger.GetBalance(c.Context(), c.Params("itemId"), c.Params("locationId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewBalanceResponse(bal))
}

// Reconcile godoc
// @Summary      Compara el saldo con la suma del log de movimientos
// @Tags         ledger
// @Produce      json
// @Success      200  {object}  dto.ReconciliationResponse
// @Router       /api/ledger/balances/{itemId}/{locationId}/reconcile [get]
func (h *LedgerHandler) Reconcile(c *fiber.Ctx) error {
	rec, err := h.engine.Reconcile(c.Context(), c.Params("itemId"), c.Params("locationId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ReconciliationResponse{
		ItemID:           rec.StockItemID,
		LocationID:       rec.LocationID,
		StoredQuantity:   rec.StoredQuantity,
		ReplayedQuantity: rec.ReplayedQuantity,
		Variance:         rec.Variance,
		Matched:          rec.Matched,
	})
}

// GetTotal godoc
// @Summary      Total de un ítem en todas las ubicaciones
// @Tags         ledger
// @Produce      json
// @Success      200  {object}  dto.TotalResponse
// @Router       /api/ledger/items/{itemId}/total [get]
func (h *LedgerHandler) GetTotal(c *fiber.Ctx) error {
	itemID := c.Params("itemId")
	total, err := h.ledger.GetTotal(c.Context(), itemID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.TotalResponse{ItemID: itemID, Total: total})
}

// GetItemBalances saldos de un ítem por ubicación.
func (h *LedgerHandler) GetItemBalances(c *fiber.Ctx) error {
	list, err := h.ledger.GetByItem(c.Context(), c.Params("itemId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewBalanceList(list))
}

// GetLocationBalances saldos de una ubicación.
func (h *LedgerHandler) GetLocationBalances(c *fiber.Ctx) error {
	list, err := h.ledger.GetByLocation(c.Context(), c.Params("locationId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewBalanceList(list))
}

// Reserve godoc
// @Summary      Reservar stock disponible
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReservationRequest  true  "item_id, location_id, quantity"
// @Success      200   {object}  dto.BalanceResponse
// @Router       /api/ledger/reservations [post]
func (h *LedgerHandler) Reserve(c *fiber.Ctx) error {
	var in dto.ReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	bal, err := h.ledger.Reserve(c.Context(), in.ItemID, in.LocationID, in.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewBalanceResponse(bal))
}

// ReleaseReservation libera stock reservado.
func (h *LedgerHandler) ReleaseReservation(c *fiber.Ctx) error {
	var in dto.ReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	bal, err := h.ledger.ReleaseReservation(c.Context(), in.ItemID, in.LocationID, in.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewBalanceResponse(bal))
}

// queryTime lee un parámetro RFC3339 opcional.
func queryTime(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
