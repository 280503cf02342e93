package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo log de movimientos append-only.
type MovementRepo struct {
	s    *Store
	inTx bool
}

func (r *MovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	r.s.with(r.inTx, func(st *state) {
		st.movSeq++
		m.ID = st.movSeq
		st.movements = append(st.movements, *m)
	})
	return nil
}

func (r *MovementRepo) List(_ context.Context, f entity.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	r.s.with(r.inTx, func(st *state) {
		for i := range st.movements {
			m := st.movements[i]
			if f.StockItemID != "" && m.StockItemID != f.StockItemID {
				continue
			}
			if f.LocationID != "" && m.LocationID != f.LocationID {
				continue
			}
			if f.From != nil && m.MovementDate.Before(*f.From) {
				continue
			}
			if f.To != nil && m.MovementDate.After(*f.To) {
				continue
			}
			out = append(out, &m)
		}
	})
	// más recientes primero
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Offset >= len(out) {
		return []*entity.StockMovement{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MovementRepo) ListByReference(_ context.Context, ref string) ([]*entity.StockMovement, error) {
	out := []*entity.StockMovement{}
	r.s.with(r.inTx, func(st *state) {
		for i := range st.movements {
			if m := st.movements[i]; m.ReferenceNumber == ref {
				out = append(out, &m)
			}
		}
	})
	return out, nil
}

func (r *MovementRepo) SumSigned(_ context.Context, itemID, locationID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	r.s.with(r.inTx, func(st *state) {
		for i := range st.movements {
			m := st.movements[i]
			if m.StockItemID == itemID && m.LocationID == locationID {
				sum = sum.Add(m.SignedQuantity())
			}
		}
	})
	return sum, nil
}
