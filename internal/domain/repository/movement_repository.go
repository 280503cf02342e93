package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementRepository puerto del log de movimientos (append-only: no hay Update ni Delete).
type MovementRepository interface {
	// Create inserta el movimiento y asigna su ID autoincremental.
	Create(ctx context.Context, movement *entity.StockMovement) error
	List(ctx context.Context, filter entity.MovementFilter) ([]*entity.StockMovement, error)
	ListByReference(ctx context.Context, referenceNumber string) ([]*entity.StockMovement, error)
	// SumSigned suma las cantidades con signo del par (ítem, ubicación).
	SumSigned(ctx context.Context, itemID, locationID string) (decimal.Decimal, error)
}
