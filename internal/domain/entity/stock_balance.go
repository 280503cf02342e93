package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockBalance es el saldo materializado por (ítem, ubicación).
// Available no se almacena: se calcula siempre desde Current y Reserved.
type StockBalance struct {
	StockItemID      string
	LocationID       string
	CurrentQuantity  decimal.Decimal
	ReservedQuantity decimal.Decimal
	AverageCost      decimal.Decimal // costo promedio ponderado
	Version          int64
	UpdatedAt        time.Time
}

// NewStockBalance crea un saldo vacío para el par indicado.
func NewStockBalance(itemID, locationID string) *StockBalance {
	return &StockBalance{
		StockItemID:      itemID,
		LocationID:       locationID,
		CurrentQuantity:  decimal.Zero,
		ReservedQuantity: decimal.Zero,
		AverageCost:      decimal.Zero,
	}
}

// Available = Current - Reserved.
func (b *StockBalance) Available() decimal.Decimal {
	return b.CurrentQuantity.Sub(b.ReservedQuantity)
}

// Valid verifica los invariantes del saldo: current >= 0 y 0 <= reserved <= current.
func (b *StockBalance) Valid() bool {
	return !b.CurrentQuantity.IsNegative() &&
		!b.ReservedQuantity.IsNegative() &&
		b.ReservedQuantity.LessThanOrEqual(b.CurrentQuantity)
}
