package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AlertResponse alerta derivada.
type AlertResponse struct {
	ID              int64           `json:"id"`
	ItemID          string          `json:"item_id"`
	LocationID      string          `json:"location_id,omitempty"`
	AlertType       string          `json:"alert_type"`
	AlertLevel      string          `json:"alert_level"`
	Message         string          `json:"message"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	Threshold       decimal.Decimal `json:"threshold"`
	IsActive        bool            `json:"is_active"`
	IsRead          bool            `json:"is_read"`
	ReadBy          string          `json:"read_by,omitempty"`
	ReadAt          *time.Time      `json:"read_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
}

// NewAlertList mapea una lista de alertas.
func NewAlertList(list []*entity.StockAlert) []AlertResponse {
	out := make([]AlertResponse, 0, len(list))
	for _, a := range list {
		out = append(out, AlertResponse{
			ID:              a.ID,
			ItemID:          a.StockItemID,
			LocationID:      a.LocationID,
			AlertType:       a.AlertType,
			AlertLevel:      a.AlertLevel,
			Message:         a.Message,
			CurrentQuantity: a.CurrentQuantity,
			Threshold:       a.Threshold,
			IsActive:        a.IsActive,
			IsRead:          a.IsRead,
			ReadBy:          a.ReadBy,
			ReadAt:          a.ReadAt,
			CreatedAt:       a.CreatedAt,
			ClosedAt:        a.ClosedAt,
		})
	}
	return out
}
