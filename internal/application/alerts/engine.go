package alerts

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var _ ports.AlertTrigger = (*Engine)(nil)

// lotAlertTypes tipos de alerta que gobierna EvaluateLots.
var lotAlertTypes = []string{entity.AlertTypeExpired, entity.AlertTypeQualityIssue}

// Engine deriva alertas a partir de saldos y lotes. Es la única vía de creación de
// alertas y garantiza a lo sumo una activa por (ítem, ubicación, tipo).
type Engine struct {
	registry  repository.RegistryRepository
	balances  repository.BalanceRepository
	lots      repository.LotRepository
	alerts    repository.AlertRepository
	locker    ports.Locker
	publisher ports.EventPublisher
	recorder  ports.AlertRecorder
	log       *logger.Logger
	now       func() time.Time
}

// NewEngine construye el motor de alertas. publisher y recorder pueden ser nil.
func NewEngine(
	registry repository.RegistryRepository,
	balances repository.BalanceRepository,
	lots repository.LotRepository,
	alerts repository.AlertRepository,
	locker ports.Locker,
	publisher ports.EventPublisher,
	recorder ports.AlertRecorder,
	log *logger.Logger,
) *Engine {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	return &Engine{
		registry:  registry,
		balances:  balances,
		lots:      lots,
		alerts:    alerts,
		locker:    locker,
		publisher: publisher,
		recorder:  recorder,
		log:       log.Component("alert_engine"),
		now:       time.Now,
	}
}

// SetClock reemplaza el reloj (tests).
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Trigger implementa ports.AlertTrigger de forma síncrona.
func (e *Engine) Trigger(ctx context.Context, itemID, locationID string) error {
	return e.Evaluate(ctx, itemID, locationID)
}

// TriggerLots implementa ports.AlertTrigger de forma síncrona.
func (e *Engine) TriggerLots(ctx context.Context, itemID string) error {
	return e.EvaluateLots(ctx, itemID)
}

// desired alerta que debería estar activa tras una evaluación.
type desired struct {
	level     string
	message   string
	quantity  decimal.Decimal
	threshold decimal.Decimal
}

// Evaluate clasifica el saldo actual del par contra los umbrales del ítem y deja las
// alertas LOW_STOCK/OVERSTOCK activas acordes: crea las que faltan, cambia el nivel
// en el lugar y cierra las que ya no aplican. Es idempotente.
func (e *Engine) Evaluate(ctx context.Context, itemID, locationID string) error {
	if itemID == "" || locationID == "" {
		return domain.ErrInvalidInput
	}
	item, err := e.registry.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("obtener ítem: %w", err)
	}
	if item == nil {
		return domain.ErrNotFound
	}

	unlock, err := e.locker.Lock(ctx, "alerts:"+itemID+":"+locationID)
	if err != nil {
		return err
	}
	defer unlock()

	bal, err := e.balances.Get(ctx, itemID, locationID)
	if err != nil {
		return fmt.Errorf("obtener saldo: %w", err)
	}
	want := map[string]desired{}
	if cond := inventory.ClassifyStock(bal.CurrentQuantity, item.Thresholds()); cond != nil {
		want[cond.AlertType] = desired{
			level:     cond.AlertLevel,
			message:   stockMessage(item, locationID, cond, bal.CurrentQuantity),
			quantity:  bal.CurrentQuantity,
			threshold: cond.Threshold,
		}
	}
	return e.reconcile(ctx, itemID, locationID, inventory.StockAlertTypes, want)
}

// EvaluateLots revisa los lotes abiertos del ítem por ubicación: EXPIRED/CRITICAL si
// alguno venció y QUALITY_ISSUE/WARNING si alguno está bloqueado.
func (e *Engine) EvaluateLots(ctx context.Context, itemID string) error {
	if itemID == "" {
		return domain.ErrInvalidInput
	}
	open, err := e.lots.ListOpenByItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("lotes abiertos: %w", err)
	}
	current, err := e.alerts.ListByItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("alertas del ítem: %w", err)
	}

	now := e.now()
	expired := map[string]int64{}
	blocked := map[string]int64{}
	locations := map[string]struct{}{}
	for _, l := range open {
		if l.Status == entity.LotStatusConsumed {
			continue
		}
		locations[l.LocationID] = struct{}{}
		if l.IsExpired(now) {
			expired[l.LocationID]++
		}
		if l.IsBlocked {
			blocked[l.LocationID]++
		}
	}
	for _, a := range current {
		if a.IsActive && isLotType(a.AlertType) {
			locations[a.LocationID] = struct{}{}
		}
	}

	for loc := range locations {
		want := map[string]desired{}
		if n := expired[loc]; n > 0 {
			want[entity.AlertTypeExpired] = desired{
				level:    entity.AlertLevelCritical,
				message:  fmt.Sprintf("%d lote(s) vencido(s) del ítem %s en %s", n, itemID, loc),
				quantity: decimal.NewFromInt(n),
			}
		}
		if n := blocked[loc]; n > 0 {
			want[entity.AlertTypeQualityIssue] = desired{
				level:    entity.AlertLevelWarning,
				message:  fmt.Sprintf("%d lote(s) bloqueado(s) del ítem %s en %s", n, itemID, loc),
				quantity: decimal.NewFromInt(n),
			}
		}
		if err := e.evaluateLotPair(ctx, itemID, loc, want); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) evaluateLotPair(ctx context.Context, itemID, locationID string, want map[string]desired) error {
	unlock, err := e.locker.Lock(ctx, "alerts:"+itemID+":"+locationID)
	if err != nil {
		return err
	}
	defer unlock()
	return e.reconcile(ctx, itemID, locationID, lotAlertTypes, want)
}

// reconcile lleva las alertas activas de los tipos indicados al estado deseado.
func (e *Engine) reconcile(ctx context.Context, itemID, locationID string, types []string, want map[string]desired) error {
	active, err := e.alerts.ListActiveByPair(ctx, itemID, locationID)
	if err != nil {
		return fmt.Errorf("alertas activas: %w", err)
	}
	now := e.now()
	var events []ports.AlertEvent

	for _, a := range active {
		if !slices.Contains(types, a.AlertType) {
			continue
		}
		d, ok := want[a.AlertType]
		if !ok {
			a.IsActive = false
			a.ClosedAt = &now
			a.UpdatedAt = now
			if err := e.alerts.Update(ctx, a); err != nil {
				return fmt.Errorf("cerrar alerta: %w", err)
			}
			e.recorder.AlertClosed(a.AlertType, a.AlertLevel)
			events = append(events, eventFor(ports.AlertEventClosed, a, now))
			continue
		}
		delete(want, a.AlertType)
		if a.AlertLevel == d.level && a.CurrentQuantity.Equal(d.quantity) {
			continue
		}
		levelChanged := a.AlertLevel != d.level
		if levelChanged {
			e.recorder.AlertClosed(a.AlertType, a.AlertLevel)
			e.recorder.AlertOpened(a.AlertType, d.level)
		}
		a.AlertLevel = d.level
		a.Message = d.message
		a.CurrentQuantity = d.quantity
		a.Threshold = d.threshold
		a.UpdatedAt = now
		if err := e.alerts.Update(ctx, a); err != nil {
			return fmt.Errorf("actualizar alerta: %w", err)
		}
		if levelChanged {
			events = append(events, eventFor(ports.AlertEventChanged, a, now))
		}
	}

	for _, t := range types {
		d, ok := want[t]
		if !ok {
			continue
		}
		a := &entity.StockAlert{
			StockItemID:     itemID,
			LocationID:      locationID,
			AlertType:       t,
			AlertLevel:      d.level,
			Message:         d.message,
			CurrentQuantity: d.quantity,
			Threshold:       d.threshold,
			IsActive:        true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := e.alerts.Create(ctx, a); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// otra evaluación ya la creó
				e.log.Debug().Str("item_id", itemID).Str("location_id", locationID).Str("type", t).Msg("alerta ya activa")
				continue
			}
			return fmt.Errorf("crear alerta: %w", err)
		}
		e.recorder.AlertOpened(a.AlertType, a.AlertLevel)
		events = append(events, eventFor(ports.AlertEventOpened, a, now))
	}

	if len(events) > 0 {
		if err := e.publisher.Publish(ctx, events...); err != nil {
			e.log.Error().Err(err).Int("events", len(events)).Msg("no se pudieron publicar eventos de alertas")
		}
	}
	return nil
}

// ListActiveAlerts devuelve todas las alertas activas.
func (e *Engine) ListActiveAlerts(ctx context.Context) ([]*entity.StockAlert, error) {
	list, err := e.alerts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("alertas activas: %w", err)
	}
	return list, nil
}

// ListAlertsByItem devuelve el historial de alertas del ítem (activas y cerradas).
func (e *Engine) ListAlertsByItem(ctx context.Context, itemID string) ([]*entity.StockAlert, error) {
	if itemID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := e.alerts.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("alertas del ítem: %w", err)
	}
	return list, nil
}

// MarkRead marca la alerta como leída por actorID. No altera su estado activo.
func (e *Engine) MarkRead(ctx context.Context, alertID int64, actorID string) error {
	if alertID <= 0 {
		return domain.ErrInvalidInput
	}
	return e.alerts.MarkRead(ctx, alertID, actorID, e.now())
}

func stockMessage(item *entity.StockItem, locationID string, cond *inventory.StockCondition, current decimal.Decimal) string {
	switch cond.AlertType {
	case entity.AlertTypeOverstock:
		return fmt.Sprintf("Sobre stock de %s en %s: %s %s (máximo %s)", item.Code, locationID, current, item.Unit, cond.Threshold)
	default:
		return fmt.Sprintf("Stock bajo de %s en %s: %s %s (umbral %s)", item.Code, locationID, current, item.Unit, cond.Threshold)
	}
}

func eventFor(kind string, a *entity.StockAlert, at time.Time) ports.AlertEvent {
	return ports.AlertEvent{
		Event:           kind,
		AlertID:         a.ID,
		StockItemID:     a.StockItemID,
		LocationID:      a.LocationID,
		AlertType:       a.AlertType,
		AlertLevel:      a.AlertLevel,
		CurrentQuantity: a.CurrentQuantity,
		Threshold:       a.Threshold,
		OccurredAt:      at,
	}
}

func isLotType(t string) bool { return slices.Contains(lotAlertTypes, t) }
