// Package kafka publica los eventos del ciclo de vida de las alertas en un tópico Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

var _ ports.EventPublisher = (*AlertPublisher)(nil)

// MessageWriter lo que el publisher necesita de *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// AlertPublisher serializa cada evento como JSON con clave ítem:ubicación, de modo que
// los eventos de un mismo par caen en la misma partición y conservan su orden.
type AlertPublisher struct {
	w MessageWriter
}

// NewWriter crea el writer de kafka-go para el tópico de alertas.
func NewWriter(cfg config.KafkaConfig) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.AlertsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// NewAlertPublisher construye el publisher sobre un writer.
func NewAlertPublisher(w MessageWriter) *AlertPublisher {
	return &AlertPublisher{w: w}
}

// Publish envía los eventos en un solo lote.
func (p *AlertPublisher) Publish(ctx context.Context, events ...ports.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(events))
	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("serializar evento de alerta: %w", err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(ev.StockItemID + ":" + ev.LocationID),
			Value: body,
			Time:  ev.OccurredAt,
			Headers: []kafkago.Header{
				{Key: "event", Value: []byte(ev.Event)},
			},
		})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publicar eventos de alerta: %w", err)
	}
	return nil
}

// Close cierra el writer.
func (p *AlertPublisher) Close() error {
	return p.w.Close()
}
