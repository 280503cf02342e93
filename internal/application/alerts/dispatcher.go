package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var _ ports.AlertTrigger = (*Dispatcher)(nil)

type job struct {
	itemID     string
	locationID string
	lots       bool
}

// Dispatcher evalúa alertas en segundo plano para no alargar la transacción del
// movimiento. Si la cola está llena (o el dispatcher cerrado) la evaluación se hace
// en línea, de modo que cada movimiento dispara al menos una evaluación.
type Dispatcher struct {
	target  ports.AlertTrigger
	queue   chan job
	workers int
	timeout time.Duration
	log     *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher crea el dispatcher sobre target (normalmente *Engine).
func NewDispatcher(target ports.AlertTrigger, queueSize, workers int, timeout time.Duration, log *logger.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		target:  target,
		queue:   make(chan job, queueSize),
		workers: workers,
		timeout: timeout,
		log:     log.Component("alert_dispatcher"),
	}
}

// Start lanza los workers. Llamadas repetidas no tienen efecto.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

// Run arranca los workers y bloquea hasta que ctx termina; entonces drena la cola.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.Start()
	<-ctx.Done()
	d.Close()
	return nil
}

// Close deja de aceptar trabajos y espera a que se procese lo encolado.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		// sin workers: se procesa lo pendiente aquí
		for j := range d.queue {
			d.handle(j)
		}
		return
	}
	d.wg.Wait()
}

// Trigger encola la evaluación de stock del par.
func (d *Dispatcher) Trigger(ctx context.Context, itemID, locationID string) error {
	return d.dispatch(ctx, job{itemID: itemID, locationID: locationID})
}

// TriggerLots encola la evaluación de lotes del ítem.
func (d *Dispatcher) TriggerLots(ctx context.Context, itemID string) error {
	return d.dispatch(ctx, job{itemID: itemID, lots: true})
}

func (d *Dispatcher) dispatch(ctx context.Context, j job) error {
	d.mu.RLock()
	if !d.closed {
		select {
		case d.queue <- j:
			d.mu.RUnlock()
			return nil
		default:
		}
	}
	d.mu.RUnlock()

	d.log.Debug().Str("item_id", j.itemID).Msg("cola de alertas llena; evaluación en línea")
	return d.run(ctx, j)
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.handle(j)
	}
}

func (d *Dispatcher) handle(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.run(ctx, j); err != nil {
		d.log.Error().Err(err).
			Str("item_id", j.itemID).
			Str("location_id", j.locationID).
			Bool("lots", j.lots).
			Msg("evaluación de alertas fallida")
	}
}

func (d *Dispatcher) run(ctx context.Context, j job) error {
	if j.lots {
		return d.target.TriggerLots(ctx, j.itemID)
	}
	return d.target.Trigger(ctx, j.itemID, j.locationID)
}
