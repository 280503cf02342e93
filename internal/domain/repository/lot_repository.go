package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LotRepository puerto de persistencia de lotes.
type LotRepository interface {
	// Create inserta el lote; domain.ErrDuplicateLotNumber si el número ya existe.
	Create(ctx context.Context, lot *entity.StockLot) error
	GetByID(ctx context.Context, id int64) (*entity.StockLot, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.StockLot, error)
	Update(ctx context.Context, lot *entity.StockLot) error
	// ListAvailable devuelve lotes ACTIVE, no bloqueados y con peso y largo > 0, más antiguos primero.
	ListAvailable(ctx context.Context, itemID string) ([]*entity.StockLot, error)
	// ListOpenByItem devuelve los lotes no consumidos del ítem.
	ListOpenByItem(ctx context.Context, itemID string) ([]*entity.StockLot, error)
	// ListItemsWithExpiredLots devuelve los ítems con algún lote no consumido vencido a asOf.
	ListItemsWithExpiredLots(ctx context.Context, asOf time.Time) ([]string, error)
}
