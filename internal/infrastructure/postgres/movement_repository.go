package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo log de movimientos sobre PostgreSQL (usable con pool o tx). Solo inserta.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, transaction_id, stock_item_id, location_id, movement_type, direction,
	quantity, unit_price, total_amount, stock_lot_id, reference_type, reference_number,
	reason, movement_date, created_by`

// Create persiste un movimiento y asigna su ID.
func (r *MovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (transaction_id, stock_item_id, location_id, movement_type, direction,
			quantity, unit_price, total_amount, stock_lot_id, reference_type, reference_number,
			reason, movement_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.TransactionID, m.StockItemID, m.LocationID, m.MovementType, m.Direction,
		m.Quantity, m.UnitPrice, m.TotalAmount, m.StockLotID, nullString(m.ReferenceType),
		nullString(m.ReferenceNumber), nullString(m.Reason), m.MovementDate, nullString(m.CreatedBy),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// List lista movimientos con filtros, más recientes primero.
func (r *MovementRepo) List(ctx context.Context, f entity.MovementFilter) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE 1=1`
	args := []any{}
	pos := 1
	if f.StockItemID != "" {
		query += fmt.Sprintf(" AND stock_item_id = $%d", pos)
		args = append(args, f.StockItemID)
		pos++
	}
	if f.LocationID != "" {
		query += fmt.Sprintf(" AND location_id = $%d", pos)
		args = append(args, f.LocationID)
		pos++
	}
	if f.From != nil {
		query += fmt.Sprintf(" AND movement_date >= $%d", pos)
		args = append(args, *f.From)
		pos++
	}
	if f.To != nil {
		query += fmt.Sprintf(" AND movement_date <= $%d", pos)
		args = append(args, *f.To)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY movement_date DESC, id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return scanMovements(rows)
}

// ListByReference lista los movimientos de un documento de referencia.
func (r *MovementRepo) ListByReference(ctx context.Context, ref string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE reference_number = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, ref)
	if err != nil {
		return nil, fmt.Errorf("list movements by reference: %w", err)
	}
	return scanMovements(rows)
}

// SumSigned suma las cantidades con signo del par.
func (r *MovementRepo) SumSigned(ctx context.Context, itemID, locationID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN direction = 'OUT' THEN -quantity ELSE quantity END), 0)
		FROM stock_movements WHERE stock_item_id = $1 AND location_id = $2`
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, itemID, locationID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum signed movements: %w", err)
	}
	return sum, nil
}

func scanMovements(rows pgx.Rows) ([]*entity.StockMovement, error) {
	defer rows.Close()
	list := []*entity.StockMovement{}
	for rows.Next() {
		var m entity.StockMovement
		var refType, refNumber, reason, createdBy *string
		if err := rows.Scan(&m.ID, &m.TransactionID, &m.StockItemID, &m.LocationID, &m.MovementType,
			&m.Direction, &m.Quantity, &m.UnitPrice, &m.TotalAmount, &m.StockLotID, &refType,
			&refNumber, &reason, &m.MovementDate, &createdBy); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.ReferenceType = deref(refType)
		m.ReferenceNumber = deref(refNumber)
		m.Reason = deref(reason)
		m.CreatedBy = deref(createdBy)
		list = append(list, &m)
	}
	return list, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
