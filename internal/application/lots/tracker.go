package lots

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var errScale = fmt.Errorf("%w: máximo %d decimales", domain.ErrInvalidInput, inventory.QuantityScale)

// Tracker gestiona el ciclo de vida de los lotes: creación, consumo, bloqueo y corrección.
type Tracker struct {
	tx       repository.TxRunner
	lots     repository.LotRepository
	registry repository.RegistryRepository
	alerts   ports.AlertTrigger
	recorder ports.LedgerRecorder
	log      *logger.Logger
	now      func() time.Time

	maxRetries uint64
	retryBase  time.Duration
}

// NewTracker construye el tracker. lots es el repositorio de lectura (fuera de tx);
// alerts puede ser nil.
func NewTracker(
	txRunner repository.TxRunner,
	lots repository.LotRepository,
	registry repository.RegistryRepository,
	alerts ports.AlertTrigger,
	recorder ports.LedgerRecorder,
	log *logger.Logger,
) *Tracker {
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	return &Tracker{
		tx:       txRunner,
		lots:     lots,
		registry: registry,
		alerts:   alerts,
		recorder: recorder,
		log:      log.Component("lot_tracker"),
		now:      time.Now,

		maxRetries: 3,
		retryBase:  20 * time.Millisecond,
	}
}

// SetClock reemplaza el reloj (tests).
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// SetRetry ajusta los reintentos ante conflictos transitorios sobre la fila del lote.
func (t *Tracker) SetRetry(maxRetries uint64, base time.Duration) {
	t.maxRetries = maxRetries
	t.retryBase = base
}

// CreateLotRequest datos para registrar un lote.
type CreateLotRequest struct {
	LotNumber     string
	StockItemID   string
	SupplierID    string
	LocationID    string
	InitialWeight decimal.Decimal
	InitialLength decimal.Decimal
	ExpiresAt     *time.Time
	ActorID       string
}

// CreateLot registra un lote ACTIVE con las cantidades actuales iguales a las iniciales.
func (t *Tracker) CreateLot(ctx context.Context, req CreateLotRequest) (int64, error) {
	req.LotNumber = strings.TrimSpace(req.LotNumber)
	if req.LotNumber == "" || req.StockItemID == "" || req.LocationID == "" {
		return 0, domain.ErrInvalidInput
	}
	if !req.InitialWeight.IsPositive() || !req.InitialLength.IsPositive() {
		return 0, domain.ErrInvalidInput
	}
	if !inventory.WithinScale(req.InitialWeight, req.InitialLength) {
		return 0, errScale
	}
	item, err := t.registry.GetItem(ctx, req.StockItemID)
	if err != nil {
		return 0, fmt.Errorf("obtener ítem: %w", err)
	}
	if item == nil {
		return 0, domain.ErrNotFound
	}
	if !item.LotTracked {
		return 0, fmt.Errorf("%w: el ítem %s no se controla por lote", domain.ErrInvalidInput, item.Code)
	}
	loc, err := t.registry.GetLocation(ctx, req.LocationID)
	if err != nil {
		return 0, fmt.Errorf("obtener ubicación: %w", err)
	}
	if loc == nil {
		return 0, domain.ErrNotFound
	}

	now := t.now()
	lot := &entity.StockLot{
		LotNumber:     req.LotNumber,
		StockItemID:   req.StockItemID,
		SupplierID:    req.SupplierID,
		LocationID:    req.LocationID,
		InitialWeight: req.InitialWeight,
		InitialLength: req.InitialLength,
		CurrentWeight: req.InitialWeight,
		CurrentLength: req.InitialLength,
		Status:        entity.LotStatusActive,
		ExpiresAt:     req.ExpiresAt,
		CreatedBy:     req.ActorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := t.lots.Create(ctx, lot); err != nil {
		return 0, err
	}
	t.log.Info().Int64("lot_id", lot.ID).Str("lot_number", lot.LotNumber).Msg("lote creado")
	if lot.IsExpired(now) {
		t.triggerLots(ctx, lot.StockItemID)
	}
	return lot.ID, nil
}

// ConsumeLot descuenta peso y largo del lote. La transición a CONSUMED ocurre una sola vez;
// consumir un lote CONSUMED devuelve domain.ErrLotDepleted.
func (t *Tracker) ConsumeLot(ctx context.Context, lotID int64, weightDelta, lengthDelta decimal.Decimal) (*entity.StockLot, error) {
	if !inventory.WithinScale(weightDelta, lengthDelta) {
		return nil, errScale
	}
	var consumed bool
	lot, err := t.mutate(ctx, lotID, func(lot *entity.StockLot) error {
		var err error
		consumed, err = inventory.ConsumeLot(lot, weightDelta, lengthDelta, t.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if consumed {
		t.recorder.LotConsumed()
		t.log.Info().Int64("lot_id", lot.ID).Str("lot_number", lot.LotNumber).Msg("lote consumido")
		t.triggerLots(ctx, lot.StockItemID)
	}
	return lot, nil
}

// BlockLot marca el lote como bloqueado. Idempotente; no cambia el estado guardado.
func (t *Tracker) BlockLot(ctx context.Context, lotID int64, reason string) (*entity.StockLot, error) {
	lot, err := t.mutate(ctx, lotID, func(lot *entity.StockLot) error {
		lot.IsBlocked = true
		lot.BlockReason = reason
		lot.UpdatedAt = t.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.log.Info().Int64("lot_id", lotID).Str("reason", reason).Msg("lote bloqueado")
	t.triggerLots(ctx, lot.StockItemID)
	return lot, nil
}

// UnblockLot quita el bloqueo. Idempotente.
func (t *Tracker) UnblockLot(ctx context.Context, lotID int64) (*entity.StockLot, error) {
	lot, err := t.mutate(ctx, lotID, func(lot *entity.StockLot) error {
		lot.IsBlocked = false
		lot.BlockReason = ""
		lot.UpdatedAt = t.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.log.Info().Int64("lot_id", lotID).Msg("lote desbloqueado")
	t.triggerLots(ctx, lot.StockItemID)
	return lot, nil
}

// CorrectLot fija peso y largo actuales por corrección explícita (conteo o error de captura).
func (t *Tracker) CorrectLot(ctx context.Context, lotID int64, weight, length decimal.Decimal, reason string) (*entity.StockLot, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, domain.ErrInvalidInput
	}
	if !inventory.WithinScale(weight, length) {
		return nil, errScale
	}
	lot, err := t.mutate(ctx, lotID, func(lot *entity.StockLot) error {
		return inventory.CorrectLot(lot, weight, length, t.now())
	})
	if err != nil {
		return nil, err
	}
	t.log.Warn().
		Int64("lot_id", lotID).
		Str("weight", weight.String()).
		Str("length", length.String()).
		Str("reason", reason).
		Msg("lote corregido")
	t.triggerLots(ctx, lot.StockItemID)
	return lot, nil
}

// GetLot devuelve el lote o domain.ErrLotNotFound.
func (t *Tracker) GetLot(ctx context.Context, lotID int64) (*entity.StockLot, error) {
	lot, err := t.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("obtener lote: %w", err)
	}
	if lot == nil {
		return nil, domain.ErrLotNotFound
	}
	return lot, nil
}

// GetAvailableLots lista los lotes ACTIVE, sin bloqueo y con peso y largo > 0, en orden FIFO.
func (t *Tracker) GetAvailableLots(ctx context.Context, itemID string) ([]*entity.StockLot, error) {
	if itemID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := t.lots.ListAvailable(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("lotes disponibles: %w", err)
	}
	out := list[:0]
	for _, l := range list {
		if l.IsAvailable() {
			out = append(out, l)
		}
	}
	inventory.SortFIFO(out)
	return out, nil
}

// mutate bloquea el lote en una transacción, aplica fn y lo guarda. Los conflictos
// transitorios se reintentan con backoff exponencial; fn debe tolerar repetirse.
func (t *Tracker) mutate(ctx context.Context, lotID int64, fn func(lot *entity.StockLot) error) (*entity.StockLot, error) {
	var out *entity.StockLot
	backoff := retry.WithMaxRetries(t.maxRetries, retry.NewExponential(t.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := t.tx.Run(ctx, func(repos repository.Repositories) error {
			lot, err := repos.Lots.GetForUpdate(ctx, lotID)
			if err != nil {
				return err
			}
			if lot == nil {
				return domain.ErrLotNotFound
			}
			if err := fn(lot); err != nil {
				return err
			}
			if err := repos.Lots.Update(ctx, lot); err != nil {
				return err
			}
			out = lot
			return nil
		})
		if domain.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tracker) triggerLots(ctx context.Context, itemID string) {
	if t.alerts == nil {
		return
	}
	if err := t.alerts.TriggerLots(ctx, itemID); err != nil {
		t.log.Error().Err(err).Str("item_id", itemID).Msg("evaluación de alertas de lotes fallida")
	}
}
