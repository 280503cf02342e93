package http

import (
	"context"
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/stock-ledger/internal/application/alerts"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/lots"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine  *inventory.MovementEngine
	Ledger  *inventory.BalanceLedger
	Lots    *lots.Tracker
	Alerts  *alerts.Engine
	Log     *logger.Logger
	Service string
	// Ping comprueba el almacenamiento en /health. nil = siempre ok.
	Ping func(ctx context.Context) error
	// MetricsHandler se monta en MetricsPath (por defecto /metrics) si no es nil.
	MetricsHandler nethttp.Handler
	MetricsPath    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	app.Get("/health", healthHandler(deps.Service, deps.Ping))
	if deps.MetricsHandler != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(deps.MetricsHandler))
	}

	api := app.Group("/api", ActorMiddleware())

	// Ledger: movimientos, saldos y reservas
	ledger := api.Group("/ledger")
	ledgerHandler := NewLedgerHandler(deps.Engine, deps.Ledger, log.Component("http.ledger"))
	ledger.Post("/movements/in", ledgerHandler.RecordIn)
	ledger.Post("/movements/out", ledgerHandler.RecordOut)
	ledger.Post("/movements/transfer", ledgerHandler.RecordTransfer)
	ledger.Post("/movements/adjustment", ledgerHandler.RecordAdjustment)
	ledger.Get("/movements", ledgerHandler.ListMovements)
	ledger.Get("/movements/reference/:ref", ledgerHandler.GetMovementsByReference)
	ledger.Get("/balances/:itemId/:locationId", ledgerHandler.GetBalance)
	ledger.Get("/balances/:itemId/:locationId/reconcile", ledgerHandler.Reconcile)
	ledger.Get("/items/:itemId/total", ledgerHandler.GetTotal)
	ledger.Get("/items/:itemId/balances", ledgerHandler.GetItemBalances)
	ledger.Get("/locations/:locationId/balances", ledgerHandler.GetLocationBalances)
	ledger.Post("/reservations", ledgerHandler.Reserve)
	ledger.Post("/reservations/release", ledgerHandler.ReleaseReservation)

	// Lotes
	lotHandler := NewLotHandler(deps.Lots, log.Component("http.lots"))
	lotGroup := api.Group("/lots")
	lotGroup.Post("/", lotHandler.Create)
	lotGroup.Get("/:id", lotHandler.Get)
	lotGroup.Post("/:id/consume", lotHandler.Consume)
	lotGroup.Post("/:id/block", lotHandler.Block)
	lotGroup.Post("/:id/unblock", lotHandler.Unblock)
	lotGroup.Post("/:id/correct", lotHandler.Correct)

	// Alertas
	alertHandler := NewAlertHandler(deps.Alerts, log.Component("http.alerts"))
	api.Get("/alerts/active", alertHandler.ListActive)
	api.Post("/alerts/:id/read", alertHandler.MarkRead)

	items := api.Group("/items")
	items.Get("/:itemId/lots/available", lotHandler.ListAvailable)
	items.Get("/:itemId/alerts", alertHandler.ListByItem)
}
