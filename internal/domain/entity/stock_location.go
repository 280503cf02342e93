package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLocation representa una bodega o ubicación del registro maestro.
// Capacity es informativa; el ledger no la hace cumplir.
type StockLocation struct {
	ID        string
	Code      string
	Name      string
	Capacity  decimal.Decimal
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
