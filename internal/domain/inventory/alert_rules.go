package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockCondition condición de stock que debe tener una alerta activa.
type StockCondition struct {
	AlertType  string
	AlertLevel string
	Threshold  decimal.Decimal
}

// ClassifyStock aplica las reglas de umbral sobre la cantidad actual. Función pura:
// los umbrales llegan como parámetro, leídos del registro en cada evaluación.
//
//	current < reorder           → LOW_STOCK / CRITICAL
//	current < minimum           → LOW_STOCK / WARNING
//	max > 0 && current > max    → OVERSTOCK / WARNING
//	otro caso                   → nil (sin alerta de stock)
func ClassifyStock(current decimal.Decimal, t entity.Thresholds) *StockCondition {
	switch {
	case current.LessThan(t.ReorderLevel):
		return &StockCondition{AlertType: entity.AlertTypeLowStock, AlertLevel: entity.AlertLevelCritical, Threshold: t.ReorderLevel}
	case current.LessThan(t.MinimumStock):
		return &StockCondition{AlertType: entity.AlertTypeLowStock, AlertLevel: entity.AlertLevelWarning, Threshold: t.MinimumStock}
	case t.MaximumStock.IsPositive() && current.GreaterThan(t.MaximumStock):
		return &StockCondition{AlertType: entity.AlertTypeOverstock, AlertLevel: entity.AlertLevelWarning, Threshold: t.MaximumStock}
	}
	return nil
}

// StockAlertTypes tipos de alerta que gobierna ClassifyStock.
var StockAlertTypes = []string{entity.AlertTypeLowStock, entity.AlertTypeOverstock}
