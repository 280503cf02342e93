package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un lote.
const (
	LotStatusActive   = "ACTIVE"
	LotStatusConsumed = "CONSUMED"
	LotStatusBlocked  = "BLOCKED"
)

// StockLot es un lote físico trazable con peso y largo consumibles.
// Initial* son inmutables; Current* solo bajan por consumo (o por corrección explícita).
// El bloqueo es independiente del estado: Status guarda ACTIVE/CONSUMED y IsBlocked el flag.
type StockLot struct {
	ID            int64
	LotNumber     string
	StockItemID   string
	SupplierID    string
	LocationID    string
	InitialWeight decimal.Decimal
	InitialLength decimal.Decimal
	CurrentWeight decimal.Decimal
	CurrentLength decimal.Decimal
	Status        string
	IsBlocked     bool
	BlockReason   string
	ExpiresAt     *time.Time
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EffectiveStatus devuelve BLOCKED si el lote está bloqueado y no consumido.
func (l *StockLot) EffectiveStatus() string {
	if l.IsBlocked && l.Status != LotStatusConsumed {
		return LotStatusBlocked
	}
	return l.Status
}

// IsAvailable indica si el lote puede elegirse para una salida.
func (l *StockLot) IsAvailable() bool {
	return l.Status == LotStatusActive && !l.IsBlocked &&
		l.CurrentWeight.IsPositive() && l.CurrentLength.IsPositive()
}

// IsExpired indica si el lote venció respecto a now.
func (l *StockLot) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// PrimaryQuantity devuelve la cantidad actual en la dimensión con que se controla el ítem.
func (l *StockLot) PrimaryQuantity(dimension string) decimal.Decimal {
	if dimension == LotDimensionLength {
		return l.CurrentLength
	}
	return l.CurrentWeight
}
