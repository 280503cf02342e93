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

var _ repository.AlertRepository = (*AlertRepo)(nil)

// AlertRepo alertas sobre PostgreSQL. El índice único parcial ux_stock_alerts_active
// impide dos alertas activas del mismo tipo para el mismo par.
type AlertRepo struct {
	q Querier
}

// NewAlertRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAlertRepository(q Querier) *AlertRepo {
	return &AlertRepo{q: q}
}

const alertColumns = `id, stock_item_id, location_id, alert_type, alert_level, message, current_quantity,
	threshold, is_active, is_read, read_by, read_at, created_at, updated_at, closed_at`

func scanAlert(row pgx.Row) (*entity.StockAlert, error) {
	var a entity.StockAlert
	var readBy *string
	err := row.Scan(&a.ID, &a.StockItemID, &a.LocationID, &a.AlertType, &a.AlertLevel, &a.Message,
		&a.CurrentQuantity, &a.Threshold, &a.IsActive, &a.IsRead, &readBy, &a.ReadAt,
		&a.CreatedAt, &a.UpdatedAt, &a.ClosedAt)
	if err != nil {
		return nil, err
	}
	a.ReadBy = deref(readBy)
	return &a, nil
}

// Create inserta la alerta; si ya hay una activa igual devuelve domain.ErrConflict.
func (r *AlertRepo) Create(ctx context.Context, a *entity.StockAlert) error {
	query := `
		INSERT INTO stock_alerts (stock_item_id, location_id, alert_type, alert_level, message,
			current_quantity, threshold, is_active, is_read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $10)
		RETURNING id`
	err := r.q.QueryRow(ctx, query, a.StockItemID, a.LocationID, a.AlertType, a.AlertLevel, a.Message,
		a.CurrentQuantity, a.Threshold, a.IsActive, a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// Update guarda nivel, snapshot y estado activo.
func (r *AlertRepo) Update(ctx context.Context, a *entity.StockAlert) error {
	query := `
		UPDATE stock_alerts
		SET alert_level = $2, message = $3, current_quantity = $4, threshold = $5,
		    is_active = $6, updated_at = $7, closed_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, a.ID, a.AlertLevel, a.Message, a.CurrentQuantity, a.Threshold,
		a.IsActive, a.UpdatedAt, a.ClosedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

// GetByID obtiene una alerta; (nil, nil) si no existe.
func (r *AlertRepo) GetByID(ctx context.Context, id int64) (*entity.StockAlert, error) {
	a, err := scanAlert(r.q.QueryRow(ctx, `SELECT `+alertColumns+` FROM stock_alerts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

// ListActiveByPair alertas activas del par.
func (r *AlertRepo) ListActiveByPair(ctx context.Context, itemID, locationID string) ([]*entity.StockAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM stock_alerts
		WHERE stock_item_id = $1 AND location_id = $2 AND is_active
		ORDER BY id DESC`
	return r.list(ctx, query, itemID, locationID)
}

// ListActive todas las alertas activas, más recientes primero.
func (r *AlertRepo) ListActive(ctx context.Context) ([]*entity.StockAlert, error) {
	return r.list(ctx, `SELECT `+alertColumns+` FROM stock_alerts WHERE is_active ORDER BY id DESC`)
}

// ListByItem historial de alertas del ítem.
func (r *AlertRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.StockAlert, error) {
	return r.list(ctx, `SELECT `+alertColumns+` FROM stock_alerts WHERE stock_item_id = $1 ORDER BY id DESC`, itemID)
}

// MarkRead marca la alerta como leída.
func (r *AlertRepo) MarkRead(ctx context.Context, id int64, userID string, at time.Time) error {
	query := `
		UPDATE stock_alerts SET is_read = true, read_by = $2, read_at = $3, updated_at = $3
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, nullString(userID), at)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockAlert, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	list := []*entity.StockAlert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
