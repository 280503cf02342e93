package lots_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/lots"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

type lotTriggers struct{ items []string }

func (l *lotTriggers) Trigger(context.Context, string, string) error { return nil }
func (l *lotTriggers) TriggerLots(_ context.Context, item string) error {
	l.items = append(l.items, item)
	return nil
}

type consumedCounter struct{ n int }

func (c *consumedCounter) MovementRecorded(string, time.Duration) {}
func (c *consumedCounter) MovementFailed(string, error)           {}
func (c *consumedCounter) LotConsumed()                           { c.n++ }

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newStore() *memory.Store {
	store := memory.NewStore()
	store.PutItem(entity.StockItem{ID: "CUERO", Code: "C", LotTracked: true, LotDimension: entity.LotDimensionWeight, IsActive: true})
	store.PutItem(entity.StockItem{ID: "TORNILLO", Code: "T", IsActive: true})
	store.PutLocation(entity.StockLocation{ID: "A", Code: "A", IsActive: true})
	return store
}

func newTracker(t *testing.T) (*lots.Tracker, *lotTriggers, *consumedCounter) {
	t.Helper()
	store := newStore()
	trig := &lotTriggers{}
	counter := &consumedCounter{}
	tr := lots.NewTracker(store, store.Repositories().Lots, store, trig, counter, logger.Nop())
	tr.SetClock(func() time.Time { return now })
	return tr, trig, counter
}

func create(t *testing.T, tr *lots.Tracker, number string) int64 {
	t.Helper()
	id, err := tr.CreateLot(context.Background(), lots.CreateLotRequest{
		LotNumber: number, StockItemID: "CUERO", LocationID: "A",
		InitialWeight: d("10"), InitialLength: d("4"),
	})
	require.NoError(t, err)
	return id
}

func TestCreateLot(t *testing.T) {
	tr, trig, _ := newTracker(t)
	ctx := context.Background()

	id := create(t, tr, "L-1")
	lot, err := tr.GetLot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.LotStatusActive, lot.Status)
	assert.True(t, lot.CurrentWeight.Equal(lot.InitialWeight))
	assert.True(t, lot.CurrentLength.Equal(lot.InitialLength))
	assert.Empty(t, trig.items)

	_, err = tr.CreateLot(ctx, lots.CreateLotRequest{LotNumber: "L-1", StockItemID: "CUERO", LocationID: "A", InitialWeight: d("1"), InitialLength: d("1")})
	assert.ErrorIs(t, err, domain.ErrDuplicateLotNumber)

	_, err = tr.CreateLot(ctx, lots.CreateLotRequest{LotNumber: "L-2", StockItemID: "TORNILLO", LocationID: "A", InitialWeight: d("1"), InitialLength: d("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "el ítem no se controla por lote")

	_, err = tr.CreateLot(ctx, lots.CreateLotRequest{LotNumber: "L-3", StockItemID: "CUERO", LocationID: "A", InitialWeight: d("0"), InitialLength: d("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = tr.CreateLot(ctx, lots.CreateLotRequest{LotNumber: "L-4", StockItemID: "CUERO", LocationID: "Z", InitialWeight: d("1"), InitialLength: d("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	past := now.Add(-time.Hour)
	_, err = tr.CreateLot(ctx, lots.CreateLotRequest{LotNumber: "L-5", StockItemID: "CUERO", LocationID: "A", InitialWeight: d("1"), InitialLength: d("1"), ExpiresAt: &past})
	require.NoError(t, err)
	assert.Equal(t, []string{"CUERO"}, trig.items, "un lote ya vencido dispara la evaluación")
}

func TestConsumeLot_TransitionsOnce(t *testing.T) {
	tr, trig, counter := newTracker(t)
	ctx := context.Background()
	id := create(t, tr, "L-1")

	lot, err := tr.ConsumeLot(ctx, id, d("5"), d("2"))
	require.NoError(t, err)
	assert.Equal(t, entity.LotStatusActive, lot.Status)

	lot, err = tr.ConsumeLot(ctx, id, d("8"), d("1"))
	require.NoError(t, err)
	assert.Equal(t, entity.LotStatusConsumed, lot.Status)
	assert.True(t, lot.CurrentWeight.IsZero(), "no baja de cero")
	assert.Equal(t, 1, counter.n)
	assert.Equal(t, []string{"CUERO"}, trig.items)

	_, err = tr.ConsumeLot(ctx, id, d("1"), d("0"))
	assert.ErrorIs(t, err, domain.ErrLotDepleted)
	assert.Equal(t, 1, counter.n)

	_, err = tr.ConsumeLot(ctx, 404, d("1"), d("0"))
	assert.ErrorIs(t, err, domain.ErrLotNotFound)
}

func TestConsumeLot_InvalidDeltas(t *testing.T) {
	tr, _, _ := newTracker(t)
	id := create(t, tr, "L-1")

	_, err := tr.ConsumeLot(context.Background(), id, d("-1"), d("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = tr.ConsumeLot(context.Background(), id, d("0"), d("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	lot, err := tr.GetLot(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, lot.CurrentWeight.Equal(d("10")))
}

func TestBlockAndUnblock(t *testing.T) {
	tr, trig, _ := newTracker(t)
	ctx := context.Background()
	id := create(t, tr, "L-1")

	lot, err := tr.BlockLot(ctx, id, "contaminado")
	require.NoError(t, err)
	assert.Equal(t, entity.LotStatusBlocked, lot.EffectiveStatus())
	assert.Equal(t, entity.LotStatusActive, lot.Status)

	avail, err := tr.GetAvailableLots(ctx, "CUERO")
	require.NoError(t, err)
	assert.Empty(t, avail)

	_, err = tr.UnblockLot(ctx, id)
	require.NoError(t, err)
	lot, err = tr.UnblockLot(ctx, id)
	require.NoError(t, err, "desbloquear dos veces no falla")
	assert.False(t, lot.IsBlocked)
	assert.Empty(t, lot.BlockReason)
	assert.Len(t, trig.items, 3)

	avail, err = tr.GetAvailableLots(ctx, "CUERO")
	require.NoError(t, err)
	assert.Len(t, avail, 1)
}

func TestCorrectLot(t *testing.T) {
	tr, _, _ := newTracker(t)
	ctx := context.Background()
	id := create(t, tr, "L-1")

	_, err := tr.ConsumeLot(ctx, id, d("10"), d("0"))
	require.NoError(t, err)

	_, err = tr.CorrectLot(ctx, id, d("3"), d("4"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "requiere motivo")

	_, err = tr.CorrectLot(ctx, id, d("11"), d("4"), "reconteo")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "no supera lo inicial")

	lot, err := tr.CorrectLot(ctx, id, d("3"), d("4"), "reconteo")
	require.NoError(t, err)
	assert.Equal(t, entity.LotStatusActive, lot.Status, "la corrección reabre el lote")
	assert.True(t, lot.CurrentWeight.Equal(d("3")))
}

func TestGetAvailableLots_FIFO(t *testing.T) {
	tr, _, _ := newTracker(t)
	ctx := context.Background()
	tick := now
	tr.SetClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})
	first := create(t, tr, "L-B")
	second := create(t, tr, "L-A")

	avail, err := tr.GetAvailableLots(ctx, "CUERO")
	require.NoError(t, err)
	require.Len(t, avail, 2)
	assert.Equal(t, first, avail[0].ID)
	assert.Equal(t, second, avail[1].ID)

	_, err = tr.GetAvailableLots(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

type failingTriggers struct{ calls int }

func (f *failingTriggers) Trigger(context.Context, string, string) error {
	f.calls++
	return errors.New("evaluador caído")
}

func (f *failingTriggers) TriggerLots(context.Context, string) error {
	f.calls++
	return errors.New("evaluador caído")
}

func TestTracker_AlertFailureDoesNotFailLotOperation(t *testing.T) {
	store := newStore()
	trig := &failingTriggers{}
	tr := lots.NewTracker(store, store.Repositories().Lots, store, trig, nil, logger.Nop())
	tr.SetClock(func() time.Time { return now })
	ctx := context.Background()

	past := now.Add(-time.Hour)
	id, err := tr.CreateLot(ctx, lots.CreateLotRequest{
		LotNumber: "L-1", StockItemID: "CUERO", LocationID: "A",
		InitialWeight: d("10"), InitialLength: d("4"), ExpiresAt: &past,
	})
	require.NoError(t, err)

	_, err = tr.BlockLot(ctx, id, "humedad")
	require.NoError(t, err)
	_, err = tr.UnblockLot(ctx, id)
	require.NoError(t, err)
	_, err = tr.CorrectLot(ctx, id, d("9"), d("4"), "reconteo")
	require.NoError(t, err)
	lot, err := tr.ConsumeLot(ctx, id, d("9"), d("0"))
	require.NoError(t, err)

	assert.Equal(t, entity.LotStatusConsumed, lot.Status)
	assert.Equal(t, 5, trig.calls)
}

// conflictingTx devuelve ErrConflict en los primeros intentos y luego delega.
type conflictingTx struct {
	inner    repository.TxRunner
	failures int
	calls    int
}

func (c *conflictingTx) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	c.calls++
	if c.calls <= c.failures {
		return fmt.Errorf("%w: serialization failure", domain.ErrConflict)
	}
	return c.inner.Run(ctx, fn)
}

func TestTracker_RetriesTransientConflicts(t *testing.T) {
	store := newStore()
	seed := lots.NewTracker(store, store.Repositories().Lots, store, nil, nil, logger.Nop())
	id := create(t, seed, "L-1")

	tx := &conflictingTx{inner: store, failures: 2}
	tr := lots.NewTracker(tx, store.Repositories().Lots, store, nil, nil, logger.Nop())
	tr.SetRetry(3, time.Millisecond)

	lot, err := tr.BlockLot(context.Background(), id, "inspección")
	require.NoError(t, err)
	assert.True(t, lot.IsBlocked)
	assert.Equal(t, 3, tx.calls)
}

func TestTracker_GivesUpAfterMaxRetries(t *testing.T) {
	store := newStore()
	seed := lots.NewTracker(store, store.Repositories().Lots, store, nil, nil, logger.Nop())
	id := create(t, seed, "L-1")

	tx := &conflictingTx{inner: store, failures: 100}
	tr := lots.NewTracker(tx, store.Repositories().Lots, store, nil, nil, logger.Nop())
	tr.SetRetry(2, time.Millisecond)

	_, err := tr.ConsumeLot(context.Background(), id, d("1"), d("0"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 3, tx.calls)

	lot, err := tr.GetLot(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, lot.CurrentWeight.Equal(d("10")))
}

func TestTracker_RejectsValuesBeyondStoredScale(t *testing.T) {
	tr, _, _ := newTracker(t)
	ctx := context.Background()

	_, err := tr.CreateLot(ctx, lots.CreateLotRequest{LotNumber: "L-9", StockItemID: "CUERO", LocationID: "A", InitialWeight: d("1.00001"), InitialLength: d("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	id := create(t, tr, "L-1")
	_, err = tr.ConsumeLot(ctx, id, d("0.00004"), d("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = tr.CorrectLot(ctx, id, d("9.99999"), d("4"), "reconteo")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	lot, err := tr.GetLot(ctx, id)
	require.NoError(t, err)
	assert.True(t, lot.CurrentWeight.Equal(d("10")))
}
