package inventory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LotSelector política de elección de lote para una salida sin lote explícito.
// Recibe los lotes disponibles y devuelve el elegido o nil.
type LotSelector func(lots []*entity.StockLot, qty decimal.Decimal) *entity.StockLot

// FIFOLotSelector elige el lote disponible más antiguo.
func FIFOLotSelector(lots []*entity.StockLot, _ decimal.Decimal) *entity.StockLot {
	candidates := make([]*entity.StockLot, 0, len(lots))
	for _, l := range lots {
		if l.IsAvailable() {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	SortFIFO(candidates)
	return candidates[0]
}

// SortFIFO ordena por fecha de creación y luego por ID.
func SortFIFO(lots []*entity.StockLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].CreatedAt.Equal(lots[j].CreatedAt) {
			return lots[i].CreatedAt.Before(lots[j].CreatedAt)
		}
		return lots[i].ID < lots[j].ID
	})
}
