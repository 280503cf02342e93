package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.RegistryRepository = (*RegistryRepo)(nil)

// RegistryRepo lectura del registro maestro (stock_items, stock_locations).
// El ledger no escribe estas tablas.
type RegistryRepo struct {
	q Querier
}

// NewRegistryRepository construye el adaptador.
func NewRegistryRepository(q Querier) *RegistryRepo {
	return &RegistryRepo{q: q}
}

// GetItem obtiene un ítem; (nil, nil) si no existe.
func (r *RegistryRepo) GetItem(ctx context.Context, id string) (*entity.StockItem, error) {
	query := `
		SELECT id, code, name, unit, minimum_stock, maximum_stock, reorder_level, lot_tracked,
		       lot_dimension, is_active, created_at, updated_at
		FROM stock_items WHERE id = $1`
	var it entity.StockItem
	err := r.q.QueryRow(ctx, query, id).Scan(&it.ID, &it.Code, &it.Name, &it.Unit, &it.MinimumStock,
		&it.MaximumStock, &it.ReorderLevel, &it.LotTracked, &it.LotDimension, &it.IsActive,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock item: %w", err)
	}
	return &it, nil
}

// GetLocation obtiene una ubicación; (nil, nil) si no existe.
func (r *RegistryRepo) GetLocation(ctx context.Context, id string) (*entity.StockLocation, error) {
	query := `
		SELECT id, code, name, capacity, is_active, created_at, updated_at
		FROM stock_locations WHERE id = $1`
	var l entity.StockLocation
	err := r.q.QueryRow(ctx, query, id).Scan(&l.ID, &l.Code, &l.Name, &l.Capacity, &l.IsActive,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock location: %w", err)
	}
	return &l, nil
}
