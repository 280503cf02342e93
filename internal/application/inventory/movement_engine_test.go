package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

func TestThresholdScenario(t *testing.T) {
	f := newFixture(t)

	f.in(t, bodegaA, "20", "1000")
	assert.Empty(t, f.activeAlerts(t))

	require.NoError(t, f.out(bodegaA, "12"))
	alertsNow := f.activeAlerts(t)
	require.Len(t, alertsNow, 1)
	assert.Equal(t, entity.AlertTypeLowStock, alertsNow[0].AlertType)
	assert.Equal(t, entity.AlertLevelWarning, alertsNow[0].AlertLevel)
	warningID := alertsNow[0].ID

	require.NoError(t, f.out(bodegaA, "4"))
	alertsNow = f.activeAlerts(t)
	require.Len(t, alertsNow, 1)
	assert.Equal(t, entity.AlertLevelCritical, alertsNow[0].AlertLevel)
	assert.Equal(t, warningID, alertsNow[0].ID, "el nivel cambia sobre la misma alerta")

	err := f.out(bodegaA, "10")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, f.balance(t, itemID, bodegaA).CurrentQuantity.Equal(d("4")))
	assert.Len(t, f.activeAlerts(t), 1)
}

func TestRecordIn_WeightedAverageCost(t *testing.T) {
	f := newFixture(t)
	f.in(t, bodegaA, "10", "100")
	f.in(t, bodegaA, "30", "200")

	bal := f.balance(t, itemID, bodegaA)
	assert.True(t, bal.CurrentQuantity.Equal(d("40")))
	assert.True(t, bal.AverageCost.Equal(d("175")), "costo promedio %s", bal.AverageCost)
}

func TestRecordIn_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []struct {
		name string
		req  inventory.InRequest
		want error
	}{
		{"cantidad cero", inventory.InRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("0")}, domain.ErrInvalidInput},
		{"precio negativo", inventory.InRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("1"), UnitPrice: d("-1")}, domain.ErrInvalidInput},
		{"ítem inexistente", inventory.InRequest{ItemID: "NOPE", LocationID: bodegaA, Quantity: d("1")}, domain.ErrNotFound},
		{"ubicación inexistente", inventory.InRequest{ItemID: itemID, LocationID: "NOPE", Quantity: d("1")}, domain.ErrNotFound},
		{"ítem inactivo", inventory.InRequest{ItemID: "OLD-01", LocationID: bodegaA, Quantity: d("1")}, domain.ErrItemInactive},
		{"ubicación inactiva", inventory.InRequest{ItemID: itemID, LocationID: inactive, Quantity: d("1")}, domain.ErrItemInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.RecordIn(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestReplayMatchesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.in(t, bodegaA, "50", "10")
	require.NoError(t, f.out(bodegaA, "7.5"))
	_, _, err := f.engine.RecordTransfer(ctx, inventory.TransferRequest{ItemID: itemID, FromLocationID: bodegaA, ToLocationID: bodegaB, Quantity: d("12")})
	require.NoError(t, err)
	_, err = f.engine.RecordAdjustment(ctx, inventory.AdjustmentRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("-0.5"), Reason: "conteo"})
	require.NoError(t, err)
	_, err = f.engine.RecordAdjustment(ctx, inventory.AdjustmentRequest{ItemID: itemID, LocationID: bodegaB, Quantity: d("3"), Reason: "hallazgo"})
	require.NoError(t, err)

	for _, loc := range []string{bodegaA, bodegaB} {
		rec, err := f.engine.Reconcile(ctx, itemID, loc)
		require.NoError(t, err)
		assert.True(t, rec.Matched, "ubicación %s: guardado %s, log %s", loc, rec.StoredQuantity, rec.ReplayedQuantity)
	}
	assert.True(t, f.balance(t, itemID, bodegaA).CurrentQuantity.Equal(d("30")))
	assert.True(t, f.balance(t, itemID, bodegaB).CurrentQuantity.Equal(d("15")))

	total, err := f.ledger.GetTotal(ctx, itemID)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("45")))
}

func TestRecordTransfer_ConservesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.in(t, bodegaA, "30", "100")
	f.in(t, bodegaB, "10", "200")

	outID, inID, err := f.engine.RecordTransfer(ctx, inventory.TransferRequest{
		ItemID: itemID, FromLocationID: bodegaA, ToLocationID: bodegaB, Quantity: d("10"), ReferenceNumber: "TR-9",
	})
	require.NoError(t, err)
	assert.NotEqual(t, outID, inID)

	total, err := f.ledger.GetTotal(ctx, itemID)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("40")))

	dst := f.balance(t, itemID, bodegaB)
	assert.True(t, dst.AverageCost.Equal(d("150")), "destino mezcla costos: %s", dst.AverageCost)

	legs, err := f.engine.GetMovementsByReference(ctx, "TR-9")
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, legs[0].TransactionID, legs[1].TransactionID)
	dirs := []string{legs[0].Direction, legs[1].Direction}
	assert.ElementsMatch(t, []string{entity.DirectionOUT, entity.DirectionIN}, dirs)
}

func TestRecordTransfer_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.in(t, bodegaA, "5", "1")

	_, _, err := f.engine.RecordTransfer(ctx, inventory.TransferRequest{ItemID: itemID, FromLocationID: bodegaA, ToLocationID: bodegaA, Quantity: d("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = f.engine.RecordTransfer(ctx, inventory.TransferRequest{ItemID: itemID, FromLocationID: bodegaA, ToLocationID: bodegaB, Quantity: d("6")})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, _, err = f.engine.RecordTransfer(ctx, inventory.TransferRequest{ItemID: itemID, FromLocationID: bodegaA, ToLocationID: inactive, Quantity: d("1")})
	assert.ErrorIs(t, err, domain.ErrItemInactive)

	assert.True(t, f.balance(t, itemID, bodegaA).CurrentQuantity.Equal(d("5")))
	assert.True(t, f.balance(t, itemID, bodegaB).CurrentQuantity.IsZero())
}

// failingTx corre sobre el store pero falla al escribir la pata IN de un traslado.
type failingTx struct {
	inner repository.TxRunner
}

var errBoom = errors.New("disco lleno")

type failingMovements struct {
	repository.MovementRepository
}

func (m failingMovements) Create(ctx context.Context, mov *entity.StockMovement) error {
	if mov.MovementType == entity.MovementTypeTRANSFER && mov.Direction == entity.DirectionIN {
		return errBoom
	}
	return m.MovementRepository.Create(ctx, mov)
}

func (f failingTx) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return f.inner.Run(ctx, func(repos repository.Repositories) error {
		repos.Movements = failingMovements{repos.Movements}
		return fn(repos)
	})
}

func TestRecordTransfer_IsAtomic(t *testing.T) {
	base := newFixture(t)
	base.in(t, bodegaA, "20", "10")

	f := wire(t, base.store, failingTx{inner: base.store})
	_, _, err := f.engine.RecordTransfer(context.Background(), inventory.TransferRequest{
		ItemID: itemID, FromLocationID: bodegaA, ToLocationID: bodegaB, Quantity: d("5"),
	})
	require.ErrorIs(t, err, errBoom)

	assert.True(t, f.balance(t, itemID, bodegaA).CurrentQuantity.Equal(d("20")))
	assert.True(t, f.balance(t, itemID, bodegaB).CurrentQuantity.IsZero())
	list, err := f.engine.ListMovements(context.Background(), entity.MovementFilter{StockItemID: itemID})
	require.NoError(t, err)
	assert.Len(t, list, 1, "solo queda la entrada inicial")
}

func TestConcurrentOuts_ExhaustExactly(t *testing.T) {
	f := newFixture(t)
	f.in(t, bodegaA, "10", "1")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, short int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.out(bodegaA, "1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				short++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 15, short)
	assert.True(t, f.balance(t, itemID, bodegaA).CurrentQuantity.IsZero())
	assert.Zero(t, f.locker.Held())
}

func TestRecordAdjustment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.in(t, bodegaA, "10", "100")

	_, err := f.engine.RecordAdjustment(ctx, inventory.AdjustmentRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("-11"), Reason: "conteo"})
	assert.ErrorIs(t, err, domain.ErrInvalidAdjustment)

	_, err = f.engine.RecordAdjustment(ctx, inventory.AdjustmentRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("2")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "el motivo es obligatorio")

	id, err := f.engine.RecordAdjustment(ctx, inventory.AdjustmentRequest{
		ItemID: itemID, LocationID: bodegaA, Quantity: d("10"), UnitPrice: dp("200"), Reason: "sobrante",
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	bal := f.balance(t, itemID, bodegaA)
	assert.True(t, bal.CurrentQuantity.Equal(d("20")))
	assert.True(t, bal.AverageCost.Equal(d("150")))

	list, err := f.engine.ListMovements(ctx, entity.MovementFilter{StockItemID: itemID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.MovementTypeADJUSTMENT, list[0].MovementType)
	assert.Equal(t, "sobrante", list[0].Reason)
}

func TestRecordAdjustment_BelowReservedReleasesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.in(t, bodegaA, "10", "1")
	_, err := f.ledger.Reserve(ctx, itemID, bodegaA, d("8"))
	require.NoError(t, err)

	_, err = f.engine.RecordAdjustment(ctx, inventory.AdjustmentRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("-5"), Reason: "merma"})
	require.NoError(t, err)

	bal := f.balance(t, itemID, bodegaA)
	assert.True(t, bal.CurrentQuantity.Equal(d("5")))
	assert.True(t, bal.ReservedQuantity.Equal(d("5")))
	assert.True(t, bal.Available().IsZero())
}

func TestReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.in(t, bodegaA, "10", "1")

	bal, err := f.ledger.Reserve(ctx, itemID, bodegaA, d("6"))
	require.NoError(t, err)
	assert.True(t, bal.Available().Equal(d("4")))

	_, err = f.ledger.Reserve(ctx, itemID, bodegaA, d("5"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// la salida respeta lo reservado
	assert.ErrorIs(t, f.out(bodegaA, "5"), domain.ErrInsufficientStock)
	require.NoError(t, f.out(bodegaA, "4"))

	_, err = f.ledger.ReleaseReservation(ctx, itemID, bodegaA, d("7"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	bal, err = f.ledger.ReleaseReservation(ctx, itemID, bodegaA, d("6"))
	require.NoError(t, err)
	assert.True(t, bal.ReservedQuantity.IsZero())

	avail, err := f.ledger.GetAvailable(ctx, itemID, bodegaA)
	require.NoError(t, err)
	assert.True(t, avail.Equal(d("6")))
}

func TestTriggersAfterCommitOnly(t *testing.T) {
	rec := &recordingTrigger{}
	f := newFixture(t, inventory.WithAlertTrigger(rec))

	f.in(t, bodegaA, "3", "1")
	assert.ErrorIs(t, f.out(bodegaA, "4"), domain.ErrInsufficientStock)
	require.NoError(t, f.out(bodegaA, "1"))

	assert.Equal(t, []string{itemID + "@" + bodegaA, itemID + "@" + bodegaA}, rec.pairs)
}

func TestAlertFailureDoesNotFailMovement(t *testing.T) {
	trig := &failingTrigger{}
	f := newFixture(t, inventory.WithAlertTrigger(trig))
	ctx := context.Background()

	f.in(t, bodegaA, "5", "10")
	require.NoError(t, f.out(bodegaA, "2"))
	_, _, err := f.engine.RecordTransfer(ctx, inventory.TransferRequest{ItemID: itemID, FromLocationID: bodegaA, ToLocationID: bodegaB, Quantity: d("1")})
	require.NoError(t, err)
	_, err = f.engine.RecordAdjustment(ctx, inventory.AdjustmentRequest{ItemID: itemID, LocationID: bodegaB, Quantity: d("4"), Reason: "conteo"})
	require.NoError(t, err)

	assert.True(t, f.balance(t, itemID, bodegaA).CurrentQuantity.Equal(d("2")))
	assert.True(t, f.balance(t, itemID, bodegaB).CurrentQuantity.Equal(d("5")))
	assert.Equal(t, 5, trig.calls, "IN, OUT, dos por el traslado y el ajuste")
	assert.Empty(t, f.activeAlerts(t))

	list, err := f.engine.ListMovements(ctx, entity.MovementFilter{StockItemID: itemID})
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestRejectsValuesBeyondStoredScale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.in(t, bodegaA, "10", "1")

	_, err := f.engine.RecordIn(ctx, inventory.InRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("0.00004"), UnitPrice: d("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.engine.RecordIn(ctx, inventory.InRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("1"), UnitPrice: d("1.00001")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.engine.RecordOut(ctx, inventory.OutRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("1.12345")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, _, err = f.engine.RecordTransfer(ctx, inventory.TransferRequest{ItemID: itemID, FromLocationID: bodegaA, ToLocationID: bodegaB, Quantity: d("0.00001")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.engine.RecordAdjustment(ctx, inventory.AdjustmentRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("-0.00005"), Reason: "conteo"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.ledger.Reserve(ctx, itemID, bodegaA, d("0.12345"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.engine.RecordOut(ctx, inventory.OutRequest{ItemID: itemID, LocationID: bodegaA, Quantity: d("1.1234")})
	require.NoError(t, err, "cuatro decimales se aceptan")
	assert.True(t, f.balance(t, itemID, bodegaA).CurrentQuantity.Equal(d("8.8766")))
}

func TestListMovements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.in(t, bodegaA, "1", "1")
	second := f.in(t, bodegaA, "1", "1")
	f.in(t, bodegaB, "1", "1")

	list, err := f.engine.ListMovements(ctx, entity.MovementFilter{StockItemID: itemID, LocationID: bodegaA})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID, "más recientes primero")
	assert.Equal(t, first, list[1].ID)

	list, err = f.engine.ListMovements(ctx, entity.MovementFilter{StockItemID: itemID, Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second, list[0].ID)
}
