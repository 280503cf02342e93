package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	defaultMovementLimit = 100
	maxMovementLimit     = 1000
)

// ListMovements consulta el log de movimientos con filtros y paginación.
func (e *MovementEngine) ListMovements(ctx context.Context, filter entity.MovementFilter) ([]*entity.StockMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultMovementLimit
	}
	if filter.Limit > maxMovementLimit {
		filter.Limit = maxMovementLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, domain.ErrInvalidInput
	}
	list, err := e.reads.Movements.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	return list, nil
}

// GetMovementsByReference devuelve los movimientos con ese número de referencia
// (las dos patas de un traslado comparten la referencia).
func (e *MovementEngine) GetMovementsByReference(ctx context.Context, referenceNumber string) ([]*entity.StockMovement, error) {
	if referenceNumber == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := e.reads.Movements.ListByReference(ctx, referenceNumber)
	if err != nil {
		return nil, fmt.Errorf("movimientos por referencia: %w", err)
	}
	return list, nil
}

// Reconciliation resultado de comparar el saldo guardado con el log de movimientos.
type Reconciliation struct {
	StockItemID      string
	LocationID       string
	StoredQuantity   decimal.Decimal
	ReplayedQuantity decimal.Decimal
	Variance         decimal.Decimal // stored - replayed
	Matched          bool
}

// Reconcile reproduce la suma con signo de los movimientos del par y la compara con
// la cantidad actual guardada. Se lee bajo el lock del saldo para no ver una operación a medias.
func (e *MovementEngine) Reconcile(ctx context.Context, itemID, locationID string) (*Reconciliation, error) {
	if itemID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	var rec *Reconciliation
	err := e.uow.run(ctx, []string{ports.BalanceKey(itemID, locationID)}, func(repos repository.Repositories) error {
		bal, err := repos.Balances.Get(ctx, itemID, locationID)
		if err != nil {
			return err
		}
		replayed, err := repos.Movements.SumSigned(ctx, itemID, locationID)
		if err != nil {
			return err
		}
		variance := bal.CurrentQuantity.Sub(replayed)
		rec = &Reconciliation{
			StockItemID:      itemID,
			LocationID:       locationID,
			StoredQuantity:   bal.CurrentQuantity,
			ReplayedQuantity: replayed,
			Variance:         variance,
			Matched:          variance.IsZero(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !rec.Matched {
		e.log.Warn().
			Str("item_id", itemID).
			Str("location_id", locationID).
			Str("variance", rec.Variance.String()).
			Msg("saldo descuadrado respecto al log de movimientos")
	}
	return rec, nil
}
