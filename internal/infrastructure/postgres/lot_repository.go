package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo lotes sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, lot_number, stock_item_id, supplier_id, location_id, initial_weight, initial_length,
	current_weight, current_length, status, is_blocked, block_reason, expires_at, created_by, created_at, updated_at`

func scanLot(row pgx.Row) (*entity.StockLot, error) {
	var l entity.StockLot
	var supplier, reason, createdBy *string
	err := row.Scan(&l.ID, &l.LotNumber, &l.StockItemID, &supplier, &l.LocationID, &l.InitialWeight,
		&l.InitialLength, &l.CurrentWeight, &l.CurrentLength, &l.Status, &l.IsBlocked, &reason,
		&l.ExpiresAt, &createdBy, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.SupplierID = deref(supplier)
	l.BlockReason = deref(reason)
	l.CreatedBy = deref(createdBy)
	return &l, nil
}

// Create inserta el lote; número repetido devuelve domain.ErrDuplicateLotNumber.
func (r *LotRepo) Create(ctx context.Context, l *entity.StockLot) error {
	query := `
		INSERT INTO stock_lots (lot_number, stock_item_id, supplier_id, location_id, initial_weight, initial_length,
			current_weight, current_length, status, is_blocked, block_reason, expires_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		l.LotNumber, l.StockItemID, nullString(l.SupplierID), l.LocationID, l.InitialWeight, l.InitialLength,
		l.CurrentWeight, l.CurrentLength, l.Status, l.IsBlocked, nullString(l.BlockReason), l.ExpiresAt,
		nullString(l.CreatedBy), l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateLotNumber
		}
		return fmt.Errorf("create lot: %w", err)
	}
	return nil
}

// GetByID obtiene un lote; (nil, nil) si no existe.
func (r *LotRepo) GetByID(ctx context.Context, id int64) (*entity.StockLot, error) {
	return r.get(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE id = $1`, id)
}

// GetForUpdate obtiene el lote y bloquea la fila (SELECT FOR UPDATE).
func (r *LotRepo) GetForUpdate(ctx context.Context, id int64) (*entity.StockLot, error) {
	return r.get(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE id = $1 FOR UPDATE`, id)
}

func (r *LotRepo) get(ctx context.Context, query string, id int64) (*entity.StockLot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return l, nil
}

// Update guarda cantidades actuales, estado y bloqueo. Las iniciales no cambian.
func (r *LotRepo) Update(ctx context.Context, l *entity.StockLot) error {
	query := `
		UPDATE stock_lots
		SET current_weight = $2, current_length = $3, status = $4, is_blocked = $5,
		    block_reason = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, l.ID, l.CurrentWeight, l.CurrentLength, l.Status, l.IsBlocked,
		nullString(l.BlockReason), l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLotNotFound
	}
	return nil
}

// ListAvailable lotes ACTIVE, sin bloqueo y con peso y largo > 0, en orden FIFO.
func (r *LotRepo) ListAvailable(ctx context.Context, itemID string) ([]*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots
		WHERE stock_item_id = $1 AND status = 'ACTIVE' AND NOT is_blocked
		  AND current_weight > 0 AND current_length > 0
		ORDER BY created_at, id`
	return r.list(ctx, query, itemID)
}

// ListOpenByItem lotes no consumidos del ítem.
func (r *LotRepo) ListOpenByItem(ctx context.Context, itemID string) ([]*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots
		WHERE stock_item_id = $1 AND status <> 'CONSUMED'
		ORDER BY created_at, id`
	return r.list(ctx, query, itemID)
}

// ListItemsWithExpiredLots ítems con lotes abiertos vencidos a asOf.
func (r *LotRepo) ListItemsWithExpiredLots(ctx context.Context, asOf time.Time) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT stock_item_id FROM stock_lots
		WHERE status <> 'CONSUMED' AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY stock_item_id`, asOf)
	if err != nil {
		return nil, fmt.Errorf("list expired lot items: %w", err)
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired lot item: %w", err)
		}
		items = append(items, id)
	}
	return items, rows.Err()
}

func (r *LotRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockLot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	list := []*entity.StockLot{}
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
