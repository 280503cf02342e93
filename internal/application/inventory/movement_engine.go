package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// errScale rechaza valores con más decimales de los que se persisten.
var errScale = fmt.Errorf("%w: máximo %d decimales", domain.ErrInvalidInput, inventory.QuantityScale)

// MovementEngine registra movimientos de inventario (IN, OUT, TRANSFER, ADJUSTMENT).
// Cada operación valida antes de escribir, toma el lock de los saldos afectados,
// bloquea las filas (SELECT FOR UPDATE) y hace Commit o Rollback como una unidad.
// Al terminar pide la reevaluación de alertas de cada par afectado.
type MovementEngine struct {
	uow      *unitOfWork
	ledger   *BalanceLedger
	registry repository.RegistryRepository
	reads    repository.Repositories
	alerts   ports.AlertTrigger
	selector inventory.LotSelector
	recorder ports.LedgerRecorder
	log      *logger.Logger
	now      func() time.Time
}

// EngineOption configura dependencias opcionales del motor.
type EngineOption func(*MovementEngine)

// WithAlertTrigger conecta el motor de alertas.
func WithAlertTrigger(t ports.AlertTrigger) EngineOption {
	return func(e *MovementEngine) { e.alerts = t }
}

// WithLotSelector fija la política para elegir lote en salidas de ítems por lote sin lote explícito.
func WithLotSelector(s inventory.LotSelector) EngineOption {
	return func(e *MovementEngine) { e.selector = s }
}

// WithRecorder conecta las métricas.
func WithRecorder(r ports.LedgerRecorder) EngineOption {
	return func(e *MovementEngine) { e.recorder = r }
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *MovementEngine) { e.now = now }
}

// NewMovementEngine construye el motor sobre el ledger de saldos.
// reads son los repositorios de lectura (fuera de transacción).
func NewMovementEngine(
	ledger *BalanceLedger,
	registry repository.RegistryRepository,
	reads repository.Repositories,
	log *logger.Logger,
	opts ...EngineOption,
) *MovementEngine {
	e := &MovementEngine{
		uow:      ledger.uow,
		ledger:   ledger,
		registry: registry,
		reads:    reads,
		recorder: ports.NopRecorder{},
		log:      log.Component("movement_engine"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InRequest entrada de stock.
type InRequest struct {
	ItemID          string
	LocationID      string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	LotID           *int64
	ReferenceType   string
	ReferenceNumber string
	ActorID         string
}

// OutRequest salida de stock. Si LotID está presente se consume del lote: por defecto
// la cantidad en la dimensión del ítem y la otra en proporción; LotWeight/LotLength
// fijan los deltas explícitamente.
type OutRequest struct {
	ItemID          string
	LocationID      string
	Quantity        decimal.Decimal
	LotID           *int64
	LotWeight       *decimal.Decimal
	LotLength       *decimal.Decimal
	ReferenceType   string
	ReferenceNumber string
	ActorID         string
}

// TransferRequest traslado entre ubicaciones.
type TransferRequest struct {
	ItemID          string
	FromLocationID  string
	ToLocationID    string
	Quantity        decimal.Decimal
	ReferenceType   string
	ReferenceNumber string
	ActorID         string
}

// AdjustmentRequest ajuste con signo por conteo físico o corrección.
// UnitPrice (opcional) valora un ajuste positivo; si falta se usa el costo promedio.
type AdjustmentRequest struct {
	ItemID     string
	LocationID string
	Quantity   decimal.Decimal
	UnitPrice  *decimal.Decimal
	Reason     string
	ActorID    string
}

// RecordIn registra una entrada: suma al saldo y recalcula el costo promedio ponderado.
func (e *MovementEngine) RecordIn(ctx context.Context, req InRequest) (int64, error) {
	if !req.Quantity.IsPositive() || req.UnitPrice.IsNegative() {
		return 0, domain.ErrInvalidInput
	}
	if !inventory.WithinScale(req.Quantity, req.UnitPrice) {
		return 0, errScale
	}
	if _, err := e.checkPair(ctx, req.ItemID, req.LocationID); err != nil {
		return 0, err
	}

	now := e.now()
	txID := uuid.New().String()
	var movementID int64
	err := e.uow.run(ctx, []string{ports.BalanceKey(req.ItemID, req.LocationID)}, func(repos repository.Repositories) error {
		if req.LotID != nil {
			if _, err := e.lotForPair(ctx, repos, *req.LotID, req.ItemID, req.LocationID, false); err != nil {
				return err
			}
		}
		bal, err := repos.Balances.GetForUpdate(ctx, req.ItemID, req.LocationID)
		if err != nil {
			return err
		}
		newCost := inventory.WeightedAverageCost(bal.CurrentQuantity, bal.AverageCost, req.Quantity, req.UnitPrice)
		if _, err := e.ledger.ApplyDelta(ctx, repos, req.ItemID, req.LocationID, req.Quantity, entity.MovementTypeIN, newCost); err != nil {
			return err
		}
		mov := &entity.StockMovement{
			TransactionID:   txID,
			StockItemID:     req.ItemID,
			LocationID:      req.LocationID,
			MovementType:    entity.MovementTypeIN,
			Direction:       entity.DirectionIN,
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			TotalAmount:     req.Quantity.Mul(req.UnitPrice),
			StockLotID:      req.LotID,
			ReferenceType:   req.ReferenceType,
			ReferenceNumber: req.ReferenceNumber,
			MovementDate:    now,
			CreatedBy:       req.ActorID,
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return err
		}
		movementID = mov.ID
		return nil
	})
	if err != nil {
		e.recorder.MovementFailed(entity.MovementTypeIN, err)
		return 0, err
	}
	e.recorder.MovementRecorded(entity.MovementTypeIN, time.Since(now))
	e.triggerStock(ctx, req.ItemID, req.LocationID)
	return movementID, nil
}

// RecordOut registra una salida. El chequeo available >= qty se hace dentro de la
// misma unidad bloqueada que aplica el delta. Se valora al costo promedio vigente.
func (e *MovementEngine) RecordOut(ctx context.Context, req OutRequest) (int64, error) {
	if !req.Quantity.IsPositive() {
		return 0, domain.ErrInvalidInput
	}
	if (req.LotWeight != nil && req.LotWeight.IsNegative()) || (req.LotLength != nil && req.LotLength.IsNegative()) {
		return 0, domain.ErrInvalidInput
	}
	if !inventory.WithinScale(req.Quantity) ||
		(req.LotWeight != nil && !inventory.WithinScale(*req.LotWeight)) ||
		(req.LotLength != nil && !inventory.WithinScale(*req.LotLength)) {
		return 0, errScale
	}
	item, err := e.checkPair(ctx, req.ItemID, req.LocationID)
	if err != nil {
		return 0, err
	}

	now := e.now()
	txID := uuid.New().String()
	var movementID int64
	var lotConsumed bool
	err = e.uow.run(ctx, []string{ports.BalanceKey(req.ItemID, req.LocationID)}, func(repos repository.Repositories) error {
		lotConsumed = false
		bal, err := repos.Balances.GetForUpdate(ctx, req.ItemID, req.LocationID)
		if err != nil {
			return err
		}
		if bal.Available().LessThan(req.Quantity) {
			return domain.ErrInsufficientStock
		}

		lotID := req.LotID
		if lotID != nil {
			lotConsumed, err = e.consumeLot(ctx, repos, item, *lotID, req, now)
		} else {
			lotID, lotConsumed, err = e.consumeSelected(ctx, repos, item, req, now)
		}
		if err != nil {
			return err
		}

		if _, err := e.ledger.ApplyDelta(ctx, repos, req.ItemID, req.LocationID, req.Quantity.Neg(), entity.MovementTypeOUT, bal.AverageCost); err != nil {
			return err
		}
		mov := &entity.StockMovement{
			TransactionID:   txID,
			StockItemID:     req.ItemID,
			LocationID:      req.LocationID,
			MovementType:    entity.MovementTypeOUT,
			Direction:       entity.DirectionOUT,
			Quantity:        req.Quantity,
			UnitPrice:       bal.AverageCost,
			TotalAmount:     req.Quantity.Mul(bal.AverageCost),
			StockLotID:      lotID,
			ReferenceType:   req.ReferenceType,
			ReferenceNumber: req.ReferenceNumber,
			MovementDate:    now,
			CreatedBy:       req.ActorID,
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return err
		}
		movementID = mov.ID
		return nil
	})
	if err != nil {
		e.recorder.MovementFailed(entity.MovementTypeOUT, err)
		return 0, err
	}
	e.recorder.MovementRecorded(entity.MovementTypeOUT, time.Since(now))
	e.triggerStock(ctx, req.ItemID, req.LocationID)
	if lotConsumed {
		e.recorder.LotConsumed()
		e.triggerLots(ctx, req.ItemID)
	}
	return movementID, nil
}

// RecordTransfer mueve qty de una ubicación a otra: dos movimientos (OUT en origen,
// IN en destino) con el mismo TransactionID y ambos saldos en una sola transacción.
// El destino mezcla su costo promedio con el costo del origen.
func (e *MovementEngine) RecordTransfer(ctx context.Context, req TransferRequest) (outID, inID int64, err error) {
	if !req.Quantity.IsPositive() || req.FromLocationID == req.ToLocationID {
		return 0, 0, domain.ErrInvalidInput
	}
	if !inventory.WithinScale(req.Quantity) {
		return 0, 0, errScale
	}
	if _, err := e.checkPair(ctx, req.ItemID, req.FromLocationID); err != nil {
		return 0, 0, err
	}
	if err := e.checkLocation(ctx, req.ToLocationID); err != nil {
		return 0, 0, err
	}

	now := e.now()
	txID := uuid.New().String()
	keys := []string{
		ports.BalanceKey(req.ItemID, req.FromLocationID),
		ports.BalanceKey(req.ItemID, req.ToLocationID),
	}
	err = e.uow.run(ctx, keys, func(repos repository.Repositories) error {
		src, dst, err := lockPair(ctx, repos, req.ItemID, req.FromLocationID, req.ToLocationID)
		if err != nil {
			return err
		}
		if src.Available().LessThan(req.Quantity) {
			return domain.ErrInsufficientStock
		}
		unitCost := src.AverageCost
		if _, err := e.ledger.ApplyDelta(ctx, repos, req.ItemID, req.FromLocationID, req.Quantity.Neg(), entity.MovementTypeTRANSFER, unitCost); err != nil {
			return err
		}
		dstCost := inventory.WeightedAverageCost(dst.CurrentQuantity, dst.AverageCost, req.Quantity, unitCost)
		if _, err := e.ledger.ApplyDelta(ctx, repos, req.ItemID, req.ToLocationID, req.Quantity, entity.MovementTypeTRANSFER, dstCost); err != nil {
			return err
		}

		outMov := &entity.StockMovement{
			TransactionID:   txID,
			StockItemID:     req.ItemID,
			LocationID:      req.FromLocationID,
			MovementType:    entity.MovementTypeTRANSFER,
			Direction:       entity.DirectionOUT,
			Quantity:        req.Quantity,
			UnitPrice:       unitCost,
			TotalAmount:     req.Quantity.Mul(unitCost),
			ReferenceType:   req.ReferenceType,
			ReferenceNumber: req.ReferenceNumber,
			MovementDate:    now,
			CreatedBy:       req.ActorID,
		}
		if err := repos.Movements.Create(ctx, outMov); err != nil {
			return err
		}
		inMov := *outMov
		inMov.ID = 0
		inMov.LocationID = req.ToLocationID
		inMov.Direction = entity.DirectionIN
		if err := repos.Movements.Create(ctx, &inMov); err != nil {
			return err
		}
		outID, inID = outMov.ID, inMov.ID
		return nil
	})
	if err != nil {
		e.recorder.MovementFailed(entity.MovementTypeTRANSFER, err)
		return 0, 0, err
	}
	e.recorder.MovementRecorded(entity.MovementTypeTRANSFER, time.Since(now))
	e.triggerStock(ctx, req.ItemID, req.FromLocationID)
	e.triggerStock(ctx, req.ItemID, req.ToLocationID)
	return outID, inID, nil
}

// RecordAdjustment aplica un ajuste con signo sin chequeo de disponible. Si el saldo
// quedaría negativo devuelve domain.ErrInvalidAdjustment. Si la nueva cantidad queda
// por debajo de lo reservado, la reserva se libera hasta la nueva cantidad.
func (e *MovementEngine) RecordAdjustment(ctx context.Context, req AdjustmentRequest) (int64, error) {
	if req.Quantity.IsZero() || req.Reason == "" {
		return 0, domain.ErrInvalidInput
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return 0, domain.ErrInvalidInput
	}
	if !inventory.WithinScale(req.Quantity) || (req.UnitPrice != nil && !inventory.WithinScale(*req.UnitPrice)) {
		return 0, errScale
	}
	if _, err := e.checkPair(ctx, req.ItemID, req.LocationID); err != nil {
		return 0, err
	}

	now := e.now()
	txID := uuid.New().String()
	var movementID int64
	err := e.uow.run(ctx, []string{ports.BalanceKey(req.ItemID, req.LocationID)}, func(repos repository.Repositories) error {
		bal, err := repos.Balances.GetForUpdate(ctx, req.ItemID, req.LocationID)
		if err != nil {
			return err
		}
		newQty := bal.CurrentQuantity.Add(req.Quantity)
		if newQty.IsNegative() {
			return domain.ErrInvalidAdjustment
		}
		if newQty.LessThan(bal.ReservedQuantity) {
			e.log.Warn().
				Str("item_id", req.ItemID).
				Str("location_id", req.LocationID).
				Str("reserved", bal.ReservedQuantity.String()).
				Str("new_quantity", newQty.String()).
				Msg("ajuste deja el saldo bajo lo reservado; se libera la reserva excedente")
		}

		unitPrice := bal.AverageCost
		newCost := bal.AverageCost
		direction := entity.DirectionOUT
		if req.Quantity.IsPositive() {
			direction = entity.DirectionIN
			if req.UnitPrice != nil {
				unitPrice = *req.UnitPrice
				newCost = inventory.WeightedAverageCost(bal.CurrentQuantity, bal.AverageCost, req.Quantity, unitPrice)
			}
		}
		if _, err := e.ledger.ApplyDelta(ctx, repos, req.ItemID, req.LocationID, req.Quantity, entity.MovementTypeADJUSTMENT, newCost); err != nil {
			return err
		}
		qty := req.Quantity.Abs()
		mov := &entity.StockMovement{
			TransactionID: txID,
			StockItemID:   req.ItemID,
			LocationID:    req.LocationID,
			MovementType:  entity.MovementTypeADJUSTMENT,
			Direction:     direction,
			Quantity:      qty,
			UnitPrice:     unitPrice,
			TotalAmount:   qty.Mul(unitPrice),
			ReferenceType: "ADJUSTMENT",
			Reason:        req.Reason,
			MovementDate:  now,
			CreatedBy:     req.ActorID,
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return err
		}
		movementID = mov.ID
		return nil
	})
	if err != nil {
		e.recorder.MovementFailed(entity.MovementTypeADJUSTMENT, err)
		return 0, err
	}
	e.recorder.MovementRecorded(entity.MovementTypeADJUSTMENT, time.Since(now))
	e.triggerStock(ctx, req.ItemID, req.LocationID)
	return movementID, nil
}

// checkPair valida que ítem y ubicación existan y estén activos. Devuelve el ítem.
func (e *MovementEngine) checkPair(ctx context.Context, itemID, locationID string) (*entity.StockItem, error) {
	if itemID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	item, err := e.registry.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("obtener ítem: %w", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if !item.IsActive {
		return nil, domain.ErrItemInactive
	}
	if err := e.checkLocation(ctx, locationID); err != nil {
		return nil, err
	}
	return item, nil
}

func (e *MovementEngine) checkLocation(ctx context.Context, locationID string) error {
	if locationID == "" {
		return domain.ErrInvalidInput
	}
	loc, err := e.registry.GetLocation(ctx, locationID)
	if err != nil {
		return fmt.Errorf("obtener ubicación: %w", err)
	}
	if loc == nil {
		return domain.ErrNotFound
	}
	if !loc.IsActive {
		return domain.ErrItemInactive
	}
	return nil
}

// lockPair bloquea los dos saldos de un traslado en orden de ubicación.
func lockPair(ctx context.Context, repos repository.Repositories, itemID, from, to string) (src, dst *entity.StockBalance, err error) {
	first, second := from, to
	if to < from {
		first, second = to, from
	}
	a, err := repos.Balances.GetForUpdate(ctx, itemID, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := repos.Balances.GetForUpdate(ctx, itemID, second)
	if err != nil {
		return nil, nil, err
	}
	if first == from {
		return a, b, nil
	}
	return b, a, nil
}

func (e *MovementEngine) triggerStock(ctx context.Context, itemID, locationID string) {
	if e.alerts == nil {
		return
	}
	if err := e.alerts.Trigger(ctx, itemID, locationID); err != nil {
		e.log.Error().Err(err).
			Str("item_id", itemID).
			Str("location_id", locationID).
			Msg("evaluación de alertas fallida; el movimiento queda registrado")
	}
}

func (e *MovementEngine) triggerLots(ctx context.Context, itemID string) {
	if e.alerts == nil {
		return
	}
	if err := e.alerts.TriggerLots(ctx, itemID); err != nil {
		e.log.Error().Err(err).Str("item_id", itemID).Msg("evaluación de alertas de lotes fallida")
	}
}
