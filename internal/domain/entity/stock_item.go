package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dimensiones de consumo de un lote.
const (
	LotDimensionWeight = "WEIGHT"
	LotDimensionLength = "LENGTH"
)

// StockItem representa un ítem del registro maestro (externo al ledger).
// El ledger solo lo lee: umbrales, unidad y si se controla por lotes.
// Se asume ReorderLevel <= MinimumStock <= MaximumStock; MaximumStock <= 0 significa sin tope.
type StockItem struct {
	ID           string
	Code         string
	Name         string
	Unit         string
	MinimumStock decimal.Decimal
	MaximumStock decimal.Decimal
	ReorderLevel decimal.Decimal
	LotTracked   bool
	LotDimension string // WEIGHT | LENGTH
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Thresholds devuelve los umbrales de alerta del ítem.
func (i *StockItem) Thresholds() Thresholds {
	return Thresholds{
		ReorderLevel: i.ReorderLevel,
		MinimumStock: i.MinimumStock,
		MaximumStock: i.MaximumStock,
	}
}

// Thresholds agrupa los umbrales que usa el motor de alertas.
type Thresholds struct {
	ReorderLevel decimal.Decimal
	MinimumStock decimal.Decimal
	MaximumStock decimal.Decimal
}
