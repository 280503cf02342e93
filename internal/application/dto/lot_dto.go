package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CreateLotRequest body para POST /api/lots.
type CreateLotRequest struct {
	LotNumber     string          `json:"lot_number"`
	ItemID        string          `json:"item_id"`
	SupplierID    string          `json:"supplier_id,omitempty"`
	LocationID    string          `json:"location_id"`
	InitialWeight decimal.Decimal `json:"initial_weight"`
	InitialLength decimal.Decimal `json:"initial_length"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
}

// ConsumeLotRequest body para POST /api/lots/:id/consume.
type ConsumeLotRequest struct {
	Weight decimal.Decimal `json:"weight"`
	Length decimal.Decimal `json:"length"`
}

// BlockLotRequest body para POST /api/lots/:id/block.
type BlockLotRequest struct {
	Reason string `json:"reason"`
}

// CorrectLotRequest body para POST /api/lots/:id/correct.
type CorrectLotRequest struct {
	Weight decimal.Decimal `json:"weight"`
	Length decimal.Decimal `json:"length"`
	Reason string          `json:"reason"`
}

// LotResponse lote con su estado efectivo (BLOCKED si está bloqueado y no consumido).
type LotResponse struct {
	ID            int64           `json:"id"`
	LotNumber     string          `json:"lot_number"`
	ItemID        string          `json:"item_id"`
	SupplierID    string          `json:"supplier_id,omitempty"`
	LocationID    string          `json:"location_id"`
	InitialWeight decimal.Decimal `json:"initial_weight"`
	InitialLength decimal.Decimal `json:"initial_length"`
	CurrentWeight decimal.Decimal `json:"current_weight"`
	CurrentLength decimal.Decimal `json:"current_length"`
	Status        string          `json:"status"`
	IsBlocked     bool            `json:"is_blocked"`
	BlockReason   string          `json:"block_reason,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewLotResponse mapea la entidad.
func NewLotResponse(l *entity.StockLot) LotResponse {
	return LotResponse{
		ID:            l.ID,
		LotNumber:     l.LotNumber,
		ItemID:        l.StockItemID,
		SupplierID:    l.SupplierID,
		LocationID:    l.LocationID,
		InitialWeight: l.InitialWeight,
		InitialLength: l.InitialLength,
		CurrentWeight: l.CurrentWeight,
		CurrentLength: l.CurrentLength,
		Status:        l.EffectiveStatus(),
		IsBlocked:     l.IsBlocked,
		BlockReason:   l.BlockReason,
		ExpiresAt:     l.ExpiresAt,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

// NewLotList mapea una lista de lotes.
func NewLotList(list []*entity.StockLot) []LotResponse {
	out := make([]LotResponse, 0, len(list))
	for _, l := range list {
		out = append(out, NewLotResponse(l))
	}
	return out
}
