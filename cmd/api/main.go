package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/application/alerts"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/lots"
	"github.com/jhoicas/stock-ledger/internal/application/ports"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	infrakafka "github.com/jhoicas/stock-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/seed"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// storage agrupa los puertos de persistencia según el backend elegido.
type storage struct {
	tx       repository.TxRunner
	reads    repository.Repositories
	registry repository.RegistryRepository
	ping     func(ctx context.Context) error
	close    func()
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Bool("in_memory", cfg.DB.InMemoryStore).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer store.close()

	var locker ports.Locker = lock.NewLocalLocker(cfg.Ledger.LockTimeout)
	if cfg.Redis.Enabled() {
		client, err := lock.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, cfg.Redis.LockTTL, cfg.Ledger.LockTimeout, log)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("locks distribuidos en Redis")
	}

	var publisher ports.EventPublisher = ports.NopPublisher{}
	if cfg.Kafka.Enabled() {
		kp := infrakafka.NewAlertPublisher(infrakafka.NewWriter(cfg.Kafka))
		defer func() {
			if err := kp.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar writer de Kafka")
			}
		}()
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.AlertsTopic).Msg("eventos de alertas a Kafka")
	}

	var (
		ledgerRec ports.LedgerRecorder = ports.NopRecorder{}
		alertRec  ports.AlertRecorder  = ports.NopRecorder{}
		recorder  *metrics.Recorder
	)
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
		ledgerRec, alertRec = recorder, recorder
	}

	alertEngine := alerts.NewEngine(
		store.registry, store.reads.Balances, store.reads.Lots, store.reads.Alerts,
		locker, publisher, alertRec, log,
	)
	var trigger ports.AlertTrigger = alertEngine
	var dispatcher *alerts.Dispatcher
	if cfg.Ledger.AsyncAlerts {
		dispatcher = alerts.NewDispatcher(alertEngine, cfg.Ledger.AlertQueueSize, cfg.Ledger.AlertWorkers, cfg.Ledger.TxTimeout, log)
		trigger = dispatcher
	}

	policy := inventory.RetryPolicy{MaxRetries: uint64(cfg.Ledger.MaxRetries), Base: cfg.Ledger.RetryBase}
	ledger := inventory.NewBalanceLedger(store.tx, store.reads.Balances, locker, policy, log)
	opts := []inventory.EngineOption{
		inventory.WithAlertTrigger(trigger),
		inventory.WithRecorder(ledgerRec),
	}
	if cfg.Ledger.FIFOLots {
		opts = append(opts, inventory.WithLotSelector(domaininv.FIFOLotSelector))
	}
	engine := inventory.NewMovementEngine(ledger, store.registry, store.reads, log, opts...)
	tracker := lots.NewTracker(store.tx, store.reads.Lots, store.registry, trigger, ledgerRec, log)
	tracker.SetRetry(policy.MaxRetries, policy.Base)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	deps := httpRouter.RouterDeps{
		Engine:  engine,
		Ledger:  ledger,
		Lots:    tracker,
		Alerts:  alertEngine,
		Log:     log,
		Service: cfg.App.Name,
		Ping:    store.ping,
	}
	if recorder != nil {
		deps.MetricsHandler = recorder.Handler()
		deps.MetricsPath = cfg.Metrics.Path
	}
	httpRouter.Router(app, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			return err
		}
		return nil
	})
	if dispatcher != nil {
		g.Go(func() error { return dispatcher.Run(gctx) })
	}
	if cfg.Ledger.ExpirySweep > 0 {
		sweeper := alerts.NewExpirySweeper(alertEngine, store.reads.Lots, cfg.Ledger.ExpirySweep, log)
		g.Go(func() error { return sweeper.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("apagado del servidor")
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("servidor HTTP finalizado")
	}
	log.Info().Msg("aplicación detenida")
}

// openStorage abre PostgreSQL (con migraciones) o el store en memoria.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.DB.InMemoryStore {
		mem := memory.NewStore()
		if cfg.DB.SeedFile != "" {
			reg, err := seed.LoadFile(cfg.DB.SeedFile)
			if err != nil {
				return nil, err
			}
			reg.Apply(mem)
			log.Info().Int("items", len(reg.Items)).Int("locations", len(reg.Locations)).Msg("registro maestro cargado")
		}
		log.Warn().Msg("store en memoria: los datos se pierden al reiniciar")
		return &storage{
			tx:       mem,
			reads:    mem.Repositories(),
			registry: mem,
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &storage{
		tx:       postgres.NewTxRunner(pool, cfg.Ledger.TxTimeout),
		reads:    postgres.NewRepositories(pool),
		registry: postgres.NewRegistryRepository(pool),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}
