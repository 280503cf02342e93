package http

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/alerts"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/lots"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	store.PutItem(entity.StockItem{
		ID: "TELA", Code: "T", Unit: "MT", ReorderLevel: decimalOf("5"), MinimumStock: decimalOf("10"),
		LotTracked: true, LotDimension: entity.LotDimensionLength, IsActive: true,
	})
	store.PutLocation(entity.StockLocation{ID: "A", Code: "A", IsActive: true})
	store.PutLocation(entity.StockLocation{ID: "B", Code: "B", IsActive: true})

	log := logger.Nop()
	locker := lock.NewLocalLocker(time.Second)
	reads := store.Repositories()
	rec := metrics.New()
	alertEngine := alerts.NewEngine(store, reads.Balances, reads.Lots, reads.Alerts, locker, nil, rec, log)
	ledger := inventory.NewBalanceLedger(store, reads.Balances, locker, inventory.DefaultRetryPolicy, log)
	engine := inventory.NewMovementEngine(ledger, store, reads, log,
		inventory.WithAlertTrigger(alertEngine),
		inventory.WithLotSelector(domaininv.FIFOLotSelector),
		inventory.WithRecorder(rec),
	)
	tracker := lots.NewTracker(store, reads.Lots, store, alertEngine, rec, log)

	app := fiber.New()
	Router(app, RouterDeps{
		Engine:         engine,
		Ledger:         ledger,
		Lots:           tracker,
		Alerts:         alertEngine,
		Log:            log,
		Service:        "stock-ledger",
		MetricsHandler: rec.Handler(),
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (*nethttp.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderActorID, "bodeguero-1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestLedgerFlow(t *testing.T) {
	app := newTestApp(t)

	resp, body := do(t, app, fiber.MethodPost, "/api/ledger/movements/in", map[string]any{
		"item_id": "TELA", "location_id": "A", "quantity": "20", "unit_price": "1500", "reference_number": "OC-7",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var created dto.MovementCreatedResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Positive(t, created.MovementID)

	resp, body = do(t, app, fiber.MethodPost, "/api/ledger/movements/out", map[string]any{
		"item_id": "TELA", "location_id": "A", "quantity": "12",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	resp, body = do(t, app, fiber.MethodPost, "/api/ledger/movements/out", map[string]any{
		"item_id": "TELA", "location_id": "A", "quantity": "100",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var apiErr dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "INSUFFICIENT_STOCK", apiErr.Code)

	resp, body = do(t, app, fiber.MethodPost, "/api/ledger/movements/transfer", map[string]any{
		"item_id": "TELA", "from_location_id": "A", "to_location_id": "B", "quantity": "3",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var tr dto.TransferCreatedResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	assert.NotEqual(t, tr.OutMovementID, tr.InMovementID)

	resp, body = do(t, app, fiber.MethodGet, "/api/ledger/balances/TELA/A", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var bal dto.BalanceResponse
	require.NoError(t, json.Unmarshal(body, &bal))
	assert.True(t, bal.Current.Equal(decimalOf("5")))
	assert.True(t, bal.Available.Equal(decimalOf("5")))

	resp, body = do(t, app, fiber.MethodGet, "/api/ledger/items/TELA/total", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var total dto.TotalResponse
	require.NoError(t, json.Unmarshal(body, &total))
	assert.True(t, total.Total.Equal(decimalOf("8")))

	resp, body = do(t, app, fiber.MethodGet, "/api/ledger/balances/TELA/A/reconcile", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var rec dto.ReconciliationResponse
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.True(t, rec.Matched)

	resp, body = do(t, app, fiber.MethodGet, "/api/ledger/movements?item_id=TELA&location_id=A&limit=10", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var page struct {
		Movements []dto.MovementResponse `json:"movements"`
	}
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Movements, 3)
	assert.Equal(t, "bodeguero-1", page.Movements[0].CreatedBy)

	resp, body = do(t, app, fiber.MethodGet, "/api/ledger/movements/reference/OC-7", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var byRef []dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &byRef))
	assert.Len(t, byRef, 1)

	resp, _ = do(t, app, fiber.MethodGet, "/api/ledger/locations/B/balances", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// A quedó en 5 (bajo el mínimo) y B en 3 (bajo el punto de reorden)
	resp, body = do(t, app, fiber.MethodGet, "/api/alerts/active", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var active []dto.AlertResponse
	require.NoError(t, json.Unmarshal(body, &active))
	levels := map[string]string{}
	for _, a := range active {
		levels[a.LocationID] = a.AlertLevel
	}
	assert.Equal(t, map[string]string{"A": entity.AlertLevelWarning, "B": entity.AlertLevelCritical}, levels)

	resp, _ = do(t, app, fiber.MethodPost, "/api/alerts/"+itoa(active[0].ID)+"/read", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, app, fiber.MethodPost, "/api/alerts/9999/read", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdjustmentAndReservationErrors(t *testing.T) {
	app := newTestApp(t)
	do(t, app, fiber.MethodPost, "/api/ledger/movements/in", map[string]any{
		"item_id": "TELA", "location_id": "A", "quantity": "4", "unit_price": "1",
	})

	resp, body := do(t, app, fiber.MethodPost, "/api/ledger/movements/adjustment", map[string]any{
		"item_id": "TELA", "location_id": "A", "quantity": "-5", "reason": "conteo",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode, string(body))

	resp, _ = do(t, app, fiber.MethodPost, "/api/ledger/reservations", map[string]any{
		"item_id": "TELA", "location_id": "A", "quantity": "3",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = do(t, app, fiber.MethodPost, "/api/ledger/reservations/release", map[string]any{
		"item_id": "TELA", "location_id": "A", "quantity": "4",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, fiber.MethodPost, "/api/ledger/movements/in", map[string]any{
		"item_id": "NADA", "location_id": "A", "quantity": "1", "unit_price": "1",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	req := httptest.NewRequest(fiber.MethodPost, "/api/ledger/movements/in", strings.NewReader("{no es json"))
	req.Header.Set("Content-Type", "application/json")
	raw, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, raw.StatusCode)

	resp, _ = do(t, app, fiber.MethodGet, "/api/ledger/movements?from=ayer", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLotRoutes(t *testing.T) {
	app := newTestApp(t)

	resp, body := do(t, app, fiber.MethodPost, "/api/lots", map[string]any{
		"lot_number": "ROLLO-1", "item_id": "TELA", "location_id": "A",
		"initial_weight": "12", "initial_length": "50",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var lot dto.LotResponse
	require.NoError(t, json.Unmarshal(body, &lot))
	assert.Equal(t, entity.LotStatusActive, lot.Status)
	id := itoa(lot.ID)

	resp, _ = do(t, app, fiber.MethodPost, "/api/lots", map[string]any{
		"lot_number": "ROLLO-1", "item_id": "TELA", "location_id": "A",
		"initial_weight": "1", "initial_length": "1",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body = do(t, app, fiber.MethodPost, "/api/lots/"+id+"/block", map[string]any{"reason": "mancha"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &lot))
	assert.Equal(t, entity.LotStatusBlocked, lot.Status)

	resp, body = do(t, app, fiber.MethodPost, "/api/lots/"+id+"/consume", map[string]any{"weight": "1", "length": "1"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, app, fiber.MethodGet, "/api/items/TELA/alerts", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var itemAlerts []dto.AlertResponse
	require.NoError(t, json.Unmarshal(body, &itemAlerts))
	require.Len(t, itemAlerts, 1)
	assert.Equal(t, entity.AlertTypeQualityIssue, itemAlerts[0].AlertType)

	resp, _ = do(t, app, fiber.MethodPost, "/api/lots/"+id+"/unblock", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = do(t, app, fiber.MethodGet, "/api/items/TELA/lots/available", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var available []dto.LotResponse
	require.NoError(t, json.Unmarshal(body, &available))
	assert.Len(t, available, 1)

	resp, body = do(t, app, fiber.MethodPost, "/api/lots/"+id+"/correct", map[string]any{"weight": "12", "length": "50", "reason": "reconteo"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &lot))
	assert.True(t, lot.CurrentWeight.Equal(decimalOf("12")))

	resp, _ = do(t, app, fiber.MethodGet, "/api/lots/9999", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, app, fiber.MethodGet, "/api/lots/abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	resp, body := do(t, app, fiber.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	do(t, app, fiber.MethodPost, "/api/ledger/movements/in", map[string]any{
		"item_id": "TELA", "location_id": "A", "quantity": "1", "unit_price": "1",
	})
	resp, body = do(t, app, fiber.MethodGet, "/metrics", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `stock_ledger_movements_total{type="IN"} 1`)
}
