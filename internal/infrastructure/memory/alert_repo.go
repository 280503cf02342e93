package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.AlertRepository = (*AlertRepo)(nil)

// AlertRepo alertas; el índice active hace cumplir una activa por (ítem, ubicación, tipo).
type AlertRepo struct {
	s    *Store
	inTx bool
}

func keyOf(a *entity.StockAlert) alertKey {
	return alertKey{a.StockItemID, a.LocationID, a.AlertType}
}

func (r *AlertRepo) Create(_ context.Context, a *entity.StockAlert) error {
	var err error
	r.s.with(r.inTx, func(st *state) {
		if a.IsActive {
			if _, dup := st.active[keyOf(a)]; dup {
				err = domain.ErrConflict
				return
			}
		}
		st.alertSeq++
		a.ID = st.alertSeq
		st.alerts[a.ID] = *a
		if a.IsActive {
			st.active[keyOf(a)] = a.ID
		}
	})
	return err
}

func (r *AlertRepo) Update(_ context.Context, a *entity.StockAlert) error {
	var err error
	r.s.with(r.inTx, func(st *state) {
		prev, ok := st.alerts[a.ID]
		if !ok {
			err = domain.ErrAlertNotFound
			return
		}
		k := keyOf(a)
		if a.IsActive {
			if id, dup := st.active[k]; dup && id != a.ID {
				err = domain.ErrConflict
				return
			}
			st.active[k] = a.ID
		} else if prev.IsActive && st.active[k] == a.ID {
			delete(st.active, k)
		}
		st.alerts[a.ID] = *a
	})
	return err
}

func (r *AlertRepo) GetByID(_ context.Context, id int64) (*entity.StockAlert, error) {
	var out *entity.StockAlert
	r.s.with(r.inTx, func(st *state) {
		if a, ok := st.alerts[id]; ok {
			out = &a
		}
	})
	return out, nil
}

func (r *AlertRepo) ListActiveByPair(_ context.Context, itemID, locationID string) ([]*entity.StockAlert, error) {
	return r.list(func(a entity.StockAlert) bool {
		return a.IsActive && a.StockItemID == itemID && a.LocationID == locationID
	}), nil
}

func (r *AlertRepo) ListActive(_ context.Context) ([]*entity.StockAlert, error) {
	return r.list(func(a entity.StockAlert) bool { return a.IsActive }), nil
}

func (r *AlertRepo) ListByItem(_ context.Context, itemID string) ([]*entity.StockAlert, error) {
	return r.list(func(a entity.StockAlert) bool { return a.StockItemID == itemID }), nil
}

func (r *AlertRepo) MarkRead(_ context.Context, id int64, userID string, at time.Time) error {
	var err error
	r.s.with(r.inTx, func(st *state) {
		a, ok := st.alerts[id]
		if !ok {
			err = domain.ErrAlertNotFound
			return
		}
		a.IsRead = true
		a.ReadBy = userID
		a.ReadAt = &at
		a.UpdatedAt = at
		st.alerts[id] = a
	})
	return err
}

func (r *AlertRepo) list(match func(entity.StockAlert) bool) []*entity.StockAlert {
	out := []*entity.StockAlert{}
	r.s.with(r.inTx, func(st *state) {
		for _, a := range st.alerts {
			if match(a) {
				a := a
				out = append(out, &a)
			}
		}
	})
	// más recientes primero
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}
