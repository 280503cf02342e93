package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/alerts"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const (
	itemID   = "TELA-01"
	lotItem  = "CUERO-01"
	bodegaA  = "BOD-A"
	bodegaB  = "BOD-B"
	inactive = "BOD-X"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type fixture struct {
	store  *memory.Store
	locker *lock.LocalLocker
	ledger *inventory.BalanceLedger
	engine *inventory.MovementEngine
	alerts *alerts.Engine
}

// newFixture arma el motor sobre el store en memoria con alertas síncronas.
func newFixture(t *testing.T, opts ...inventory.EngineOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutItem(entity.StockItem{
		ID: itemID, Code: "T01", Name: "Tela", Unit: "MT",
		ReorderLevel: d("5"), MinimumStock: d("10"), MaximumStock: d("100"),
		LotDimension: entity.LotDimensionWeight, IsActive: true,
	})
	store.PutItem(entity.StockItem{
		ID: lotItem, Code: "C01", Name: "Cuero", Unit: "KG",
		LotTracked: true, LotDimension: entity.LotDimensionWeight, IsActive: true,
	})
	store.PutItem(entity.StockItem{ID: "OLD-01", Code: "O01", Name: "Descontinuado", IsActive: false})
	store.PutLocation(entity.StockLocation{ID: bodegaA, Code: "A", Name: "Bodega A", IsActive: true})
	store.PutLocation(entity.StockLocation{ID: bodegaB, Code: "B", Name: "Bodega B", IsActive: true})
	store.PutLocation(entity.StockLocation{ID: inactive, Code: "X", Name: "Cerrada", IsActive: false})

	return wire(t, store, store, opts...)
}

func wire(t *testing.T, store *memory.Store, tx repository.TxRunner, opts ...inventory.EngineOption) *fixture {
	t.Helper()
	log := logger.Nop()
	locker := lock.NewLocalLocker(2 * time.Second)
	reads := store.Repositories()
	alertEngine := alerts.NewEngine(store, reads.Balances, reads.Lots, reads.Alerts, locker, nil, nil, log)
	ledger := inventory.NewBalanceLedger(tx, reads.Balances, locker, inventory.DefaultRetryPolicy, log)
	opts = append([]inventory.EngineOption{inventory.WithAlertTrigger(alertEngine)}, opts...)
	engine := inventory.NewMovementEngine(ledger, store, reads, log, opts...)
	return &fixture{store: store, locker: locker, ledger: ledger, engine: engine, alerts: alertEngine}
}

func (f *fixture) in(t *testing.T, loc, qty, price string) int64 {
	t.Helper()
	id, err := f.engine.RecordIn(context.Background(), inventory.InRequest{
		ItemID: itemID, LocationID: loc, Quantity: d(qty), UnitPrice: d(price), ReferenceNumber: "OC-1",
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) out(loc, qty string) error {
	_, err := f.engine.RecordOut(context.Background(), inventory.OutRequest{
		ItemID: itemID, LocationID: loc, Quantity: d(qty),
	})
	return err
}

func (f *fixture) balance(t *testing.T, item, loc string) *entity.StockBalance {
	t.Helper()
	bal, err := f.ledger.GetBalance(context.Background(), item, loc)
	require.NoError(t, err)
	return bal
}

func (f *fixture) activeAlerts(t *testing.T) []*entity.StockAlert {
	t.Helper()
	list, err := f.alerts.ListActiveAlerts(context.Background())
	require.NoError(t, err)
	return list
}

// recordingTrigger registra los disparos de alertas.
type recordingTrigger struct {
	mu    sync.Mutex
	pairs []string
	lots  []string
}

func (r *recordingTrigger) Trigger(_ context.Context, item, loc string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = append(r.pairs, item+"@"+loc)
	return nil
}

func (r *recordingTrigger) TriggerLots(_ context.Context, item string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lots = append(r.lots, item)
	return nil
}

// failingTrigger simula un evaluador de alertas caído.
type failingTrigger struct {
	mu    sync.Mutex
	calls int
}

func (f *failingTrigger) Trigger(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("evaluador caído")
}

func (f *failingTrigger) TriggerLots(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("evaluador caído")
}
