package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ConsumeLot descuenta peso y largo del lote (sin bajar de cero). Si alguna dimensión
// llega a cero el lote pasa a CONSUMED. Devuelve true solo en la transición a CONSUMED.
func ConsumeLot(lot *entity.StockLot, weightDelta, lengthDelta decimal.Decimal, now time.Time) (bool, error) {
	if weightDelta.IsNegative() || lengthDelta.IsNegative() {
		return false, domain.ErrInvalidInput
	}
	if weightDelta.IsZero() && lengthDelta.IsZero() {
		return false, domain.ErrInvalidInput
	}
	if lot.Status == entity.LotStatusConsumed {
		return false, domain.ErrLotDepleted
	}
	lot.CurrentWeight = floorZero(lot.CurrentWeight.Sub(weightDelta))
	lot.CurrentLength = floorZero(lot.CurrentLength.Sub(lengthDelta))
	lot.UpdatedAt = now
	if lot.CurrentWeight.IsZero() || lot.CurrentLength.IsZero() {
		lot.Status = entity.LotStatusConsumed
		return true, nil
	}
	return false, nil
}

// CorrectLot fija las cantidades actuales por corrección explícita (único camino hacia arriba).
// Los valores deben estar entre 0 y los iniciales; el estado se recalcula.
func CorrectLot(lot *entity.StockLot, weight, length decimal.Decimal, now time.Time) error {
	if weight.IsNegative() || length.IsNegative() ||
		weight.GreaterThan(lot.InitialWeight) || length.GreaterThan(lot.InitialLength) {
		return domain.ErrInvalidInput
	}
	lot.CurrentWeight = weight
	lot.CurrentLength = length
	lot.UpdatedAt = now
	if weight.IsZero() || length.IsZero() {
		lot.Status = entity.LotStatusConsumed
	} else {
		lot.Status = entity.LotStatusActive
	}
	return nil
}

// LotDeltasForQuantity traduce una cantidad de salida a deltas de peso y largo.
// La cantidad se consume en la dimensión del ítem y la otra baja en proporción,
// así ambas llegan a cero juntas.
func LotDeltasForQuantity(lot *entity.StockLot, dimension string, qty decimal.Decimal) (weight, length decimal.Decimal) {
	primary, other := lot.PrimaryQuantity(dimension), lot.CurrentLength
	if dimension == entity.LotDimensionLength {
		other = lot.CurrentWeight
	}
	otherDelta := other
	if primary.IsPositive() && qty.LessThan(primary) {
		otherDelta = other.Mul(qty).Div(primary).Round(QuantityScale)
	}
	if dimension == entity.LotDimensionLength {
		return otherDelta, qty
	}
	return qty, otherDelta
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
