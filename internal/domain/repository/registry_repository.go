package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RegistryRepository puerto de lectura del registro maestro de ítems y ubicaciones.
// El ledger no es dueño de estos datos. Devuelve (nil, nil) si no existe.
type RegistryRepository interface {
	GetItem(ctx context.Context, id string) (*entity.StockItem, error)
	GetLocation(ctx context.Context, id string) (*entity.StockLocation, error)
}
