package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo saldos materializados sobre PostgreSQL (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

const balanceColumns = `stock_item_id, location_id, current_quantity, reserved_quantity, average_cost, version, updated_at`

func scanBalance(row pgx.Row) (*entity.StockBalance, error) {
	var b entity.StockBalance
	err := row.Scan(&b.StockItemID, &b.LocationID, &b.CurrentQuantity, &b.ReservedQuantity,
		&b.AverageCost, &b.Version, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Get obtiene el saldo del par; si no hay fila devuelve uno en cero.
func (r *BalanceRepo) Get(ctx context.Context, itemID, locationID string) (*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM stock_balances WHERE stock_item_id = $1 AND location_id = $2`
	b, err := scanBalance(r.q.QueryRow(ctx, query, itemID, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.NewStockBalance(itemID, locationID), nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetForUpdate crea la fila si falta y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, itemID, locationID string) (*entity.StockBalance, error) {
	insert := `
		INSERT INTO stock_balances (stock_item_id, location_id)
		VALUES ($1, $2)
		ON CONFLICT (stock_item_id, location_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, itemID, locationID); err != nil {
		return nil, fmt.Errorf("ensure balance row: %w", err)
	}
	query := `SELECT ` + balanceColumns + ` FROM stock_balances
		WHERE stock_item_id = $1 AND location_id = $2
		FOR UPDATE`
	b, err := scanBalance(r.q.QueryRow(ctx, query, itemID, locationID))
	if err != nil {
		return nil, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// ApplyDelta actualización condicional: solo aplica si current + delta >= 0.
// Si la fila no cumple la condición devuelve domain.ErrBalanceViolation.
func (r *BalanceRepo) ApplyDelta(ctx context.Context, itemID, locationID string, delta, averageCost decimal.Decimal) (*entity.StockBalance, error) {
	insert := `
		INSERT INTO stock_balances (stock_item_id, location_id)
		VALUES ($1, $2)
		ON CONFLICT (stock_item_id, location_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, itemID, locationID); err != nil {
		return nil, fmt.Errorf("ensure balance row: %w", err)
	}
	query := `
		UPDATE stock_balances
		SET current_quantity  = current_quantity + $3,
		    reserved_quantity = LEAST(reserved_quantity, current_quantity + $3),
		    average_cost      = $4,
		    version           = version + 1,
		    updated_at        = now()
		WHERE stock_item_id = $1 AND location_id = $2
		  AND current_quantity + $3 >= 0
		RETURNING ` + balanceColumns
	b, err := scanBalance(r.q.QueryRow(ctx, query, itemID, locationID, delta, averageCost))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isCheckViolation(err) {
			return nil, domain.ErrBalanceViolation
		}
		return nil, fmt.Errorf("apply balance delta: %w", err)
	}
	return b, nil
}

// SetReserved fija la cantidad reservada; el CHECK de la tabla rechaza reserved > current.
func (r *BalanceRepo) SetReserved(ctx context.Context, itemID, locationID string, reserved decimal.Decimal) error {
	query := `
		UPDATE stock_balances
		SET reserved_quantity = $3, version = version + 1, updated_at = now()
		WHERE stock_item_id = $1 AND location_id = $2`
	tag, err := r.q.Exec(ctx, query, itemID, locationID, reserved)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrBalanceViolation
		}
		return fmt.Errorf("set reserved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByItem lista los saldos de un ítem.
func (r *BalanceRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM stock_balances WHERE stock_item_id = $1 ORDER BY location_id`
	return r.list(ctx, query, itemID)
}

// ListByLocation lista los saldos de una ubicación.
func (r *BalanceRepo) ListByLocation(ctx context.Context, locationID string) ([]*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM stock_balances WHERE location_id = $1 ORDER BY stock_item_id`
	return r.list(ctx, query, locationID)
}

// SumByItem suma current_quantity del ítem en todas las ubicaciones.
func (r *BalanceRepo) SumByItem(ctx context.Context, itemID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(current_quantity), 0) FROM stock_balances WHERE stock_item_id = $1`
	if err := r.q.QueryRow(ctx, query, itemID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum balances: %w", err)
	}
	return sum, nil
}

func (r *BalanceRepo) list(ctx context.Context, query string, arg string) ([]*entity.StockBalance, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()
	list := []*entity.StockBalance{}
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
