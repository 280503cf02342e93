package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AlertTrigger puerto por el que el motor de movimientos pide reevaluar alertas.
// Un error aquí nunca revierte el movimiento: el llamador lo registra y sigue.
type AlertTrigger interface {
	// Trigger reevalúa las alertas de stock del par (ítem, ubicación).
	Trigger(ctx context.Context, itemID, locationID string) error
	// TriggerLots reevalúa las alertas derivadas de los lotes del ítem.
	TriggerLots(ctx context.Context, itemID string) error
}

// Tipos de evento del ciclo de vida de una alerta.
const (
	AlertEventOpened  = "ALERT_OPENED"
	AlertEventChanged = "ALERT_CHANGED"
	AlertEventClosed  = "ALERT_CLOSED"
)

// AlertEvent evento publicado cuando una alerta se abre, cambia de nivel o se cierra.
type AlertEvent struct {
	Event           string          `json:"event"`
	AlertID         int64           `json:"alert_id"`
	StockItemID     string          `json:"stock_item_id"`
	LocationID      string          `json:"location_id"`
	AlertType       string          `json:"alert_type"`
	AlertLevel      string          `json:"alert_level"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	Threshold       decimal.Decimal `json:"threshold"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// EventPublisher puerto de salida para notificar eventos de alertas a otros sistemas.
type EventPublisher interface {
	Publish(ctx context.Context, events ...AlertEvent) error
}

// NopPublisher descarta los eventos. Se usa cuando no hay broker configurado.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...AlertEvent) error { return nil }
