package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// BalanceRepository puerto del saldo materializado por (ítem, ubicación).
type BalanceRepository interface {
	// Get devuelve el saldo o uno en cero si la fila no existe.
	Get(ctx context.Context, itemID, locationID string) (*entity.StockBalance, error)
	// GetForUpdate crea la fila si falta y la bloquea hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, itemID, locationID string) (*entity.StockBalance, error)
	// ApplyDelta suma delta a current de forma condicional (solo si el resultado es >= 0),
	// recorta reserved a current y guarda averageCost. Devuelve domain.ErrBalanceViolation
	// si el resultado sería negativo.
	ApplyDelta(ctx context.Context, itemID, locationID string, delta, averageCost decimal.Decimal) (*entity.StockBalance, error)
	// SetReserved fija la cantidad reservada (0 <= reserved <= current, validado por el llamador).
	SetReserved(ctx context.Context, itemID, locationID string, reserved decimal.Decimal) error
	ListByItem(ctx context.Context, itemID string) ([]*entity.StockBalance, error)
	ListByLocation(ctx context.Context, locationID string) ([]*entity.StockBalance, error)
	SumByItem(ctx context.Context, itemID string) (decimal.Decimal, error)
}
