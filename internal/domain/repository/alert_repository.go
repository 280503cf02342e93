package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AlertRepository puerto de persistencia de alertas derivadas.
type AlertRepository interface {
	// Create inserta una alerta activa; domain.ErrConflict si ya existe una activa
	// del mismo tipo para el mismo (ítem, ubicación).
	Create(ctx context.Context, alert *entity.StockAlert) error
	Update(ctx context.Context, alert *entity.StockAlert) error
	GetByID(ctx context.Context, id int64) (*entity.StockAlert, error)
	ListActiveByPair(ctx context.Context, itemID, locationID string) ([]*entity.StockAlert, error)
	ListActive(ctx context.Context) ([]*entity.StockAlert, error)
	ListByItem(ctx context.Context, itemID string) ([]*entity.StockAlert, error)
	// MarkRead marca la alerta como leída; domain.ErrAlertNotFound si no existe.
	MarkRead(ctx context.Context, id int64, userID string, at time.Time) error
}
