package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ExpirySweeper reevalúa periódicamente las alertas de lotes de los ítems con lotes
// vencidos. Cubre los lotes que vencen sin que ningún movimiento los toque.
type ExpirySweeper struct {
	engine   *Engine
	lots     repository.LotRepository
	interval time.Duration
	log      *logger.Logger
}

// NewExpirySweeper crea el barrido. interval <= 0 lo deja en un minuto.
func NewExpirySweeper(engine *Engine, lots repository.LotRepository, interval time.Duration, log *logger.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		engine:   engine,
		lots:     lots,
		interval: interval,
		log:      log.Component("expiry_sweeper"),
	}
}

// Sweep evalúa los lotes de cada ítem con lotes vencidos y devuelve cuántos ítems revisó.
// Un fallo en un ítem se registra y no detiene el resto.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	items, err := s.lots.ListItemsWithExpiredLots(ctx, s.engine.now())
	if err != nil {
		return 0, fmt.Errorf("ítems con lotes vencidos: %w", err)
	}
	for _, itemID := range items {
		if err := s.engine.EvaluateLots(ctx, itemID); err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			s.log.Error().Err(err).Str("item_id", itemID).Msg("barrido de vencimientos fallido")
		}
	}
	return len(items), nil
}

// Run barre cada interval hasta que ctx termina.
func (s *ExpirySweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Error().Err(err).Msg("barrido de vencimientos")
				continue
			}
			if n > 0 {
				s.log.Debug().Int("items", n).Msg("vencimientos revisados")
			}
		}
	}
}
