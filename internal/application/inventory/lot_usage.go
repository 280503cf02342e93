package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// lotForPair obtiene el lote y verifica que pertenezca al ítem y la ubicación.
func (e *MovementEngine) lotForPair(ctx context.Context, repos repository.Repositories, lotID int64, itemID, locationID string, forUpdate bool) (*entity.StockLot, error) {
	var lot *entity.StockLot
	var err error
	if forUpdate {
		lot, err = repos.Lots.GetForUpdate(ctx, lotID)
	} else {
		lot, err = repos.Lots.GetByID(ctx, lotID)
	}
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrLotNotFound
	}
	if lot.StockItemID != itemID || lot.LocationID != locationID {
		return nil, fmt.Errorf("%w: el lote %s no corresponde al ítem y ubicación", domain.ErrInvalidInput, lot.LotNumber)
	}
	return lot, nil
}

// consumeSelected reparte una salida sin lote explícito entre los lotes que elige la
// política, en orden, hasta cubrir la cantidad. Devuelve el primer lote usado (queda en
// el movimiento) y si alguno pasó a CONSUMED. Sin política, ítem sin control por lote o
// sin lotes disponibles, el resto sale sin lote.
func (e *MovementEngine) consumeSelected(ctx context.Context, repos repository.Repositories, item *entity.StockItem, req OutRequest, now time.Time) (*int64, bool, error) {
	if e.selector == nil || !item.LotTracked {
		return nil, false, nil
	}
	var first *int64
	var anyConsumed bool
	used := make(map[int64]bool)
	remaining := req.Quantity
	for remaining.IsPositive() {
		lot, err := e.selectLot(ctx, repos, item, req.LocationID, remaining, used)
		if err != nil {
			return nil, false, err
		}
		if lot == nil {
			break
		}
		used[lot.ID] = true
		if first == nil {
			id := lot.ID
			first = &id
		}
		take := decimal.Min(remaining, lot.PrimaryQuantity(item.LotDimension))
		weight, length := inventory.LotDeltasForQuantity(lot, item.LotDimension, take)
		consumed, err := e.applyLotDeltas(ctx, repos, lot, weight, length, now)
		if err != nil {
			return nil, false, err
		}
		anyConsumed = anyConsumed || consumed
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		e.log.Debug().
			Str("item_id", item.ID).
			Str("location_id", req.LocationID).
			Str("sin_lote", remaining.String()).
			Msg("lotes insuficientes; el resto de la salida queda sin lote")
	}
	return first, anyConsumed, nil
}

// selectLot aplica la política sobre los lotes disponibles de la ubicación que aún no
// se usaron en esta salida y devuelve el elegido bloqueado para actualizar.
func (e *MovementEngine) selectLot(ctx context.Context, repos repository.Repositories, item *entity.StockItem, locationID string, qty decimal.Decimal, used map[int64]bool) (*entity.StockLot, error) {
	lots, err := repos.Lots.ListAvailable(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	here := make([]*entity.StockLot, 0, len(lots))
	for _, l := range lots {
		if l.LocationID == locationID && !used[l.ID] {
			here = append(here, l)
		}
	}
	chosen := e.selector(here, qty)
	if chosen == nil {
		return nil, nil
	}
	lot, err := e.lotForPair(ctx, repos, chosen.ID, item.ID, locationID, true)
	if err != nil {
		return nil, err
	}
	if lot.Status == entity.LotStatusConsumed {
		return nil, domain.ErrLotDepleted
	}
	if lot.IsBlocked {
		return nil, domain.ErrLotBlocked
	}
	return lot, nil
}

// consumeLot descuenta la salida del lote indicado. Devuelve true si el lote quedó CONSUMED.
func (e *MovementEngine) consumeLot(ctx context.Context, repos repository.Repositories, item *entity.StockItem, lotID int64, req OutRequest, now time.Time) (bool, error) {
	lot, err := e.lotForPair(ctx, repos, lotID, req.ItemID, req.LocationID, true)
	if err != nil {
		return false, err
	}
	if lot.Status == entity.LotStatusConsumed {
		return false, domain.ErrLotDepleted
	}
	if lot.IsBlocked {
		return false, domain.ErrLotBlocked
	}

	var weight, length decimal.Decimal
	if req.LotWeight != nil || req.LotLength != nil {
		weight, length = decimal.Zero, decimal.Zero
		if req.LotWeight != nil {
			weight = *req.LotWeight
		}
		if req.LotLength != nil {
			length = *req.LotLength
		}
	} else {
		weight, length = inventory.LotDeltasForQuantity(lot, item.LotDimension, req.Quantity)
	}
	return e.applyLotDeltas(ctx, repos, lot, weight, length, now)
}

func (e *MovementEngine) applyLotDeltas(ctx context.Context, repos repository.Repositories, lot *entity.StockLot, weight, length decimal.Decimal, now time.Time) (bool, error) {
	consumed, err := inventory.ConsumeLot(lot, weight, length, now)
	if err != nil {
		return false, err
	}
	if err := repos.Lots.Update(ctx, lot); err != nil {
		return false, err
	}
	if consumed {
		e.log.Info().Int64("lot_id", lot.ID).Str("lot_number", lot.LotNumber).Msg("lote consumido")
	}
	return consumed, nil
}
