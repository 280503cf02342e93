package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de alerta.
const (
	AlertTypeLowStock     = "LOW_STOCK"
	AlertTypeOverstock    = "OVERSTOCK"
	AlertTypeExpired      = "EXPIRED"
	AlertTypeQualityIssue = "QUALITY_ISSUE"
)

// Niveles de alerta.
const (
	AlertLevelInfo     = "INFO"
	AlertLevelWarning  = "WARNING"
	AlertLevelCritical = "CRITICAL"
)

// StockAlert es una señal derivada; la crea solo el motor de alertas.
// Nunca hay dos alertas activas del mismo tipo para el mismo (ítem, ubicación).
type StockAlert struct {
	ID              int64
	StockItemID     string
	LocationID      string
	AlertType       string
	AlertLevel      string
	Message         string
	CurrentQuantity decimal.Decimal
	Threshold       decimal.Decimal
	IsActive        bool
	IsRead          bool
	ReadBy          string
	ReadAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
}
