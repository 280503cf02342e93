package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockInRequest body para POST /api/ledger/movements/in.
type StockInRequest struct {
	ItemID          string          `json:"item_id"`
	LocationID      string          `json:"location_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LotID           *int64          `json:"lot_id,omitempty"`
	ReferenceType   string          `json:"reference_type,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
}

// StockOutRequest body para POST /api/ledger/movements/out.
// lot_weight / lot_length fijan el consumo del lote; si faltan se deriva de quantity.
type StockOutRequest struct {
	ItemID          string           `json:"item_id"`
	LocationID      string           `json:"location_id"`
	Quantity        decimal.Decimal  `json:"quantity"`
	LotID           *int64           `json:"lot_id,omitempty"`
	LotWeight       *decimal.Decimal `json:"lot_weight,omitempty"`
	LotLength       *decimal.Decimal `json:"lot_length,omitempty"`
	ReferenceType   string           `json:"reference_type,omitempty"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
}

// TransferRequest body para POST /api/ledger/movements/transfer.
type TransferRequest struct {
	ItemID          string          `json:"item_id"`
	FromLocationID  string          `json:"from_location_id"`
	ToLocationID    string          `json:"to_location_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	ReferenceType   string          `json:"reference_type,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
}

// AdjustmentRequest body para POST /api/ledger/movements/adjustment. quantity lleva signo.
type AdjustmentRequest struct {
	ItemID     string           `json:"item_id"`
	LocationID string           `json:"location_id"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
	Reason     string           `json:"reason"`
}

// ReservationRequest body para reservar o liberar stock.
type ReservationRequest struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// MovementCreatedResponse respuesta de un movimiento registrado.
type MovementCreatedResponse struct {
	MovementID int64 `json:"movement_id"`
}

// TransferCreatedResponse respuesta de un traslado: una fila por pata.
type TransferCreatedResponse struct {
	OutMovementID int64 `json:"out_movement_id"`
	InMovementID  int64 `json:"in_movement_id"`
}

// MovementResponse movimiento del log.
type MovementResponse struct {
	ID              int64           `json:"id"`
	TransactionID   string          `json:"transaction_id"`
	ItemID          string          `json:"item_id"`
	LocationID      string          `json:"location_id"`
	MovementType    string          `json:"movement_type"`
	Direction       string          `json:"direction"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	LotID           *int64          `json:"lot_id,omitempty"`
	ReferenceType   string          `json:"reference_type,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	MovementDate    time.Time       `json:"movement_date"`
	CreatedBy       string          `json:"created_by,omitempty"`
}

// BalanceResponse saldo con el disponible calculado.
type BalanceResponse struct {
	ItemID      string          `json:"item_id"`
	LocationID  string          `json:"location_id"`
	Current     decimal.Decimal `json:"current"`
	Reserved    decimal.Decimal `json:"reserved"`
	Available   decimal.Decimal `json:"available"`
	AverageCost decimal.Decimal `json:"average_cost"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// TotalResponse total de un ítem en todas las ubicaciones.
type TotalResponse struct {
	ItemID string          `json:"item_id"`
	Total  decimal.Decimal `json:"total"`
}

// ReconciliationResponse comparación saldo vs log de movimientos.
type ReconciliationResponse struct {
	ItemID           string          `json:"item_id"`
	LocationID       string          `json:"location_id"`
	StoredQuantity   decimal.Decimal `json:"stored_quantity"`
	ReplayedQuantity decimal.Decimal `json:"replayed_quantity"`
	Variance         decimal.Decimal `json:"variance"`
	Matched          bool            `json:"matched"`
}

// NewMovementResponse mapea la entidad.
func NewMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:              m.ID,
		TransactionID:   m.TransactionID,
		ItemID:          m.StockItemID,
		LocationID:      m.LocationID,
		MovementType:    m.MovementType,
		Direction:       m.Direction,
		Quantity:        m.Quantity,
		UnitPrice:       m.UnitPrice,
		TotalAmount:     m.TotalAmount,
		LotID:           m.StockLotID,
		ReferenceType:   m.ReferenceType,
		ReferenceNumber: m.ReferenceNumber,
		Reason:          m.Reason,
		MovementDate:    m.MovementDate,
		CreatedBy:       m.CreatedBy,
	}
}

// NewMovementList mapea una lista de movimientos.
func NewMovementList(list []*entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, NewMovementResponse(m))
	}
	return out
}

// NewBalanceResponse mapea el saldo; Available se calcula aquí, no se almacena.
func NewBalanceResponse(b *entity.StockBalance) BalanceResponse {
	resp := BalanceResponse{
		ItemID:      b.StockItemID,
		LocationID:  b.LocationID,
		Current:     b.CurrentQuantity,
		Reserved:    b.ReservedQuantity,
		Available:   b.Available(),
		AverageCost: b.AverageCost,
	}
	if !b.UpdatedAt.IsZero() {
		t := b.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

// NewBalanceList mapea una lista de saldos.
func NewBalanceList(list []*entity.StockBalance) []BalanceResponse {
	out := make([]BalanceResponse, 0, len(list))
	for _, b := range list {
		out = append(out, NewBalanceResponse(b))
	}
	return out
}
