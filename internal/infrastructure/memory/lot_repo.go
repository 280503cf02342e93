package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo lotes con número único.
type LotRepo struct {
	s    *Store
	inTx bool
}

func (r *LotRepo) Create(_ context.Context, lot *entity.StockLot) error {
	var err error
	r.s.with(r.inTx, func(st *state) {
		if _, dup := st.lotNums[lot.LotNumber]; dup {
			err = domain.ErrDuplicateLotNumber
			return
		}
		st.lotSeq++
		lot.ID = st.lotSeq
		st.lots[lot.ID] = *lot
		st.lotNums[lot.LotNumber] = lot.ID
	})
	return err
}

func (r *LotRepo) GetByID(_ context.Context, id int64) (*entity.StockLot, error) {
	var out *entity.StockLot
	r.s.with(r.inTx, func(st *state) {
		if l, ok := st.lots[id]; ok {
			out = &l
		}
	})
	return out, nil
}

func (r *LotRepo) GetForUpdate(ctx context.Context, id int64) (*entity.StockLot, error) {
	return r.GetByID(ctx, id)
}

func (r *LotRepo) Update(_ context.Context, lot *entity.StockLot) error {
	var err error
	r.s.with(r.inTx, func(st *state) {
		if _, ok := st.lots[lot.ID]; !ok {
			err = domain.ErrLotNotFound
			return
		}
		st.lots[lot.ID] = *lot
	})
	return err
}

func (r *LotRepo) ListAvailable(_ context.Context, itemID string) ([]*entity.StockLot, error) {
	out := r.list(func(l entity.StockLot) bool { return l.StockItemID == itemID && l.IsAvailable() })
	inventory.SortFIFO(out)
	return out, nil
}

func (r *LotRepo) ListOpenByItem(_ context.Context, itemID string) ([]*entity.StockLot, error) {
	out := r.list(func(l entity.StockLot) bool {
		return l.StockItemID == itemID && l.Status != entity.LotStatusConsumed
	})
	inventory.SortFIFO(out)
	return out, nil
}

func (r *LotRepo) ListItemsWithExpiredLots(_ context.Context, asOf time.Time) ([]string, error) {
	seen := map[string]bool{}
	for _, l := range r.list(func(l entity.StockLot) bool {
		return l.Status != entity.LotStatusConsumed && l.IsExpired(asOf)
	}) {
		seen[l.StockItemID] = true
	}
	items := make([]string, 0, len(seen))
	for id := range seen {
		items = append(items, id)
	}
	sort.Strings(items)
	return items, nil
}

func (r *LotRepo) list(match func(entity.StockLot) bool) []*entity.StockLot {
	out := []*entity.StockLot{}
	r.s.with(r.inTx, func(st *state) {
		for _, l := range st.lots {
			if match(l) {
				l := l
				out = append(out, &l)
			}
		}
	})
	return out
}
