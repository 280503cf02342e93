package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementTypeIN         = "IN"         // entrada
	MovementTypeOUT        = "OUT"        // salida
	MovementTypeTRANSFER   = "TRANSFER"   // traslado entre ubicaciones (dos filas)
	MovementTypeADJUSTMENT = "ADJUSTMENT" // ajuste por conteo físico o corrección
)

// Dirección del cambio de cantidad.
const (
	DirectionIN  = "IN"
	DirectionOUT = "OUT"
)

// StockMovement es un registro inmutable del log de eventos del ledger.
// Quantity siempre es la magnitud (>= 0); el signo lo da Direction.
// Un TRANSFER son dos filas (OUT en origen, IN en destino) con el mismo
// TransactionID y ReferenceNumber.
type StockMovement struct {
	ID              int64
	TransactionID   string
	StockItemID     string
	LocationID      string
	MovementType    string
	Direction       string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	TotalAmount     decimal.Decimal
	StockLotID      *int64
	ReferenceType   string
	ReferenceNumber string
	Reason          string
	MovementDate    time.Time
	CreatedBy       string
}

// SignedQuantity devuelve la cantidad con signo según la dirección.
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	if m.Direction == DirectionOUT {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// MovementFilter filtros para el historial de movimientos.
type MovementFilter struct {
	StockItemID string
	LocationID  string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}
