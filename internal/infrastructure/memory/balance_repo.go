package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo saldos por (ítem, ubicación).
type BalanceRepo struct {
	s    *Store
	inTx bool
}

func (r *BalanceRepo) Get(_ context.Context, itemID, locationID string) (*entity.StockBalance, error) {
	var out *entity.StockBalance
	r.s.with(r.inTx, func(st *state) {
		if b, ok := st.balances[pairKey{itemID, locationID}]; ok {
			out = &b
		}
	})
	if out == nil {
		return entity.NewStockBalance(itemID, locationID), nil
	}
	return out, nil
}

// GetForUpdate crea la fila si falta; el lock lo da la transacción del store.
func (r *BalanceRepo) GetForUpdate(_ context.Context, itemID, locationID string) (*entity.StockBalance, error) {
	var out entity.StockBalance
	r.s.with(r.inTx, func(st *state) {
		k := pairKey{itemID, locationID}
		b, ok := st.balances[k]
		if !ok {
			b = *entity.NewStockBalance(itemID, locationID)
			b.UpdatedAt = time.Now()
			st.balances[k] = b
		}
		out = b
	})
	return &out, nil
}

func (r *BalanceRepo) ApplyDelta(_ context.Context, itemID, locationID string, delta, averageCost decimal.Decimal) (*entity.StockBalance, error) {
	var out *entity.StockBalance
	var err error
	r.s.with(r.inTx, func(st *state) {
		k := pairKey{itemID, locationID}
		b, ok := st.balances[k]
		if !ok {
			b = *entity.NewStockBalance(itemID, locationID)
		}
		next := b.CurrentQuantity.Add(delta)
		if next.IsNegative() {
			err = domain.ErrBalanceViolation
			return
		}
		b.CurrentQuantity = next
		if b.ReservedQuantity.GreaterThan(next) {
			b.ReservedQuantity = next
		}
		b.AverageCost = averageCost
		b.Version++
		b.UpdatedAt = time.Now()
		st.balances[k] = b
		out = &b
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BalanceRepo) SetReserved(_ context.Context, itemID, locationID string, reserved decimal.Decimal) error {
	var err error
	r.s.with(r.inTx, func(st *state) {
		k := pairKey{itemID, locationID}
		b, ok := st.balances[k]
		if !ok {
			b = *entity.NewStockBalance(itemID, locationID)
		}
		if reserved.IsNegative() || reserved.GreaterThan(b.CurrentQuantity) {
			err = domain.ErrBalanceViolation
			return
		}
		b.ReservedQuantity = reserved
		b.Version++
		b.UpdatedAt = time.Now()
		st.balances[k] = b
	})
	return err
}

func (r *BalanceRepo) ListByItem(_ context.Context, itemID string) ([]*entity.StockBalance, error) {
	return r.list(func(b entity.StockBalance) bool { return b.StockItemID == itemID }), nil
}

func (r *BalanceRepo) ListByLocation(_ context.Context, locationID string) ([]*entity.StockBalance, error) {
	return r.list(func(b entity.StockBalance) bool { return b.LocationID == locationID }), nil
}

func (r *BalanceRepo) SumByItem(_ context.Context, itemID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	r.s.with(r.inTx, func(st *state) {
		for _, b := range st.balances {
			if b.StockItemID == itemID {
				sum = sum.Add(b.CurrentQuantity)
			}
		}
	})
	return sum, nil
}

func (r *BalanceRepo) list(match func(entity.StockBalance) bool) []*entity.StockBalance {
	out := []*entity.StockBalance{}
	r.s.with(r.inTx, func(st *state) {
		for _, b := range st.balances {
			if match(b) {
				b := b
				out = append(out, &b)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].StockItemID != out[j].StockItemID {
			return out[i].StockItemID < out[j].StockItemID
		}
		return out[i].LocationID < out[j].LocationID
	})
	return out
}
