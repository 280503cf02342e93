package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// BalanceLedger mantiene el saldo materializado por (ítem, ubicación).
// Solo el motor de movimientos modifica current (vía ApplyDelta); las reservas
// se gestionan aquí sin generar movimientos.
type BalanceLedger struct {
	uow      *unitOfWork
	balances repository.BalanceRepository
	log      *logger.Logger
}

// NewBalanceLedger construye el ledger. balances es el repositorio de lectura (fuera de tx).
func NewBalanceLedger(
	txRunner repository.TxRunner,
	balances repository.BalanceRepository,
	locker ports.Locker,
	policy RetryPolicy,
	log *logger.Logger,
) *BalanceLedger {
	return &BalanceLedger{
		uow:      &unitOfWork{tx: txRunner, locker: locker, retry: policy},
		balances: balances,
		log:      log.Component("balance_ledger"),
	}
}

// ApplyDelta aplica un delta con signo al saldo dentro de la transacción del llamador.
// Si el resultado fuera negativo devuelve domain.ErrBalanceViolation: indica una
// carrera que el chequeo previo no detectó, por eso se registra como error.
func (l *BalanceLedger) ApplyDelta(
	ctx context.Context,
	repos repository.Repositories,
	itemID, locationID string,
	delta decimal.Decimal,
	movementType string,
	averageCost decimal.Decimal,
) (*entity.StockBalance, error) {
	bal, err := repos.Balances.ApplyDelta(ctx, itemID, locationID, delta, averageCost)
	if err != nil {
		if errors.Is(err, domain.ErrBalanceViolation) {
			l.log.Error().
				Str("item_id", itemID).
				Str("location_id", locationID).
				Str("movement_type", movementType).
				Str("delta", delta.String()).
				Msg("violación de saldo: la cantidad actual quedaría negativa")
		}
		return nil, err
	}
	return bal, nil
}

// GetBalance devuelve el saldo del par; si no existe devuelve uno en cero.
func (l *BalanceLedger) GetBalance(ctx context.Context, itemID, locationID string) (*entity.StockBalance, error) {
	if itemID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	bal, err := l.balances.Get(ctx, itemID, locationID)
	if err != nil {
		return nil, fmt.Errorf("obtener saldo: %w", err)
	}
	return bal, nil
}

// GetAvailable devuelve current - reserved del par.
func (l *BalanceLedger) GetAvailable(ctx context.Context, itemID, locationID string) (decimal.Decimal, error) {
	bal, err := l.GetBalance(ctx, itemID, locationID)
	if err != nil {
		return decimal.Zero, err
	}
	return bal.Available(), nil
}

// GetTotal suma la cantidad actual del ítem en todas las ubicaciones.
func (l *BalanceLedger) GetTotal(ctx context.Context, itemID string) (decimal.Decimal, error) {
	if itemID == "" {
		return decimal.Zero, domain.ErrInvalidInput
	}
	total, err := l.balances.SumByItem(ctx, itemID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total por ítem: %w", err)
	}
	return total, nil
}

// GetByLocation lista los saldos de una ubicación.
func (l *BalanceLedger) GetByLocation(ctx context.Context, locationID string) ([]*entity.StockBalance, error) {
	if locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := l.balances.ListByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("saldos por ubicación: %w", err)
	}
	return list, nil
}

// GetByItem lista los saldos de un ítem en todas sus ubicaciones.
func (l *BalanceLedger) GetByItem(ctx context.Context, itemID string) ([]*entity.StockBalance, error) {
	if itemID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := l.balances.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("saldos por ítem: %w", err)
	}
	return list, nil
}

// Reserve aparta qty del disponible. Requiere available >= qty.
func (l *BalanceLedger) Reserve(ctx context.Context, itemID, locationID string, qty decimal.Decimal) (*entity.StockBalance, error) {
	if itemID == "" || locationID == "" || !qty.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	if !inventory.WithinScale(qty) {
		return nil, errScale
	}
	var out *entity.StockBalance
	err := l.uow.run(ctx, []string{ports.BalanceKey(itemID, locationID)}, func(repos repository.Repositories) error {
		bal, err := repos.Balances.GetForUpdate(ctx, itemID, locationID)
		if err != nil {
			return err
		}
		if bal.Available().LessThan(qty) {
			return domain.ErrInsufficientStock
		}
		bal.ReservedQuantity = bal.ReservedQuantity.Add(qty)
		if err := repos.Balances.SetReserved(ctx, itemID, locationID, bal.ReservedQuantity); err != nil {
			return err
		}
		out = bal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseReservation libera qty de lo reservado. Requiere reserved >= qty.
func (l *BalanceLedger) ReleaseReservation(ctx context.Context, itemID, locationID string, qty decimal.Decimal) (*entity.StockBalance, error) {
	if itemID == "" || locationID == "" || !qty.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	if !inventory.WithinScale(qty) {
		return nil, errScale
	}
	var out *entity.StockBalance
	err := l.uow.run(ctx, []string{ports.BalanceKey(itemID, locationID)}, func(repos repository.Repositories) error {
		bal, err := repos.Balances.GetForUpdate(ctx, itemID, locationID)
		if err != nil {
			return err
		}
		if bal.ReservedQuantity.LessThan(qty) {
			return fmt.Errorf("%w: reservado %s menor que %s", domain.ErrInvalidInput, bal.ReservedQuantity, qty)
		}
		bal.ReservedQuantity = bal.ReservedQuantity.Sub(qty)
		if err := repos.Balances.SetReserved(ctx, itemID, locationID, bal.ReservedQuantity); err != nil {
			return err
		}
		out = bal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
