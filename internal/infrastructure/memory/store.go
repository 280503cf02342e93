// Package memory implementa los puertos de persistencia en memoria. Se usa en tests
// y en modo demo (sin DATABASE_URL). Una transacción toma el lock global del store
// y, si falla, restaura la foto tomada al inicio.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

type pairKey struct {
	item     string
	location string
}

type alertKey struct {
	item      string
	location  string
	alertType string
}

type state struct {
	items     map[string]entity.StockItem
	locations map[string]entity.StockLocation
	movements []entity.StockMovement
	balances  map[pairKey]entity.StockBalance
	lots      map[int64]entity.StockLot
	lotNums   map[string]int64
	alerts    map[int64]entity.StockAlert
	active    map[alertKey]int64
	movSeq    int64
	lotSeq    int64
	alertSeq  int64
}

func (s *state) clone() *state {
	c := *s
	c.items = maps.Clone(s.items)
	c.locations = maps.Clone(s.locations)
	c.movements = s.movements[:len(s.movements):len(s.movements)]
	c.balances = maps.Clone(s.balances)
	c.lots = maps.Clone(s.lots)
	c.lotNums = maps.Clone(s.lotNums)
	c.alerts = maps.Clone(s.alerts)
	c.active = maps.Clone(s.active)
	return &c
}

// Store guarda todo el estado del ledger en memoria.
type Store struct {
	mu sync.Mutex
	st *state
}

var (
	_ repository.TxRunner           = (*Store)(nil)
	_ repository.RegistryRepository = (*Store)(nil)
)

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{st: &state{
		items:     map[string]entity.StockItem{},
		locations: map[string]entity.StockLocation{},
		balances:  map[pairKey]entity.StockBalance{},
		lots:      map[int64]entity.StockLot{},
		lotNums:   map[string]int64{},
		alerts:    map[int64]entity.StockAlert{},
		active:    map[alertKey]int64{},
	}}
}

// Run ejecuta fn con repositorios atados a la transacción; si fn falla se descartan sus cambios.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(s.repos(true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Repositories devuelve los repositorios de lectura (cada llamada toma el lock).
func (s *Store) Repositories() repository.Repositories {
	return s.repos(false)
}

func (s *Store) repos(inTx bool) repository.Repositories {
	return repository.Repositories{
		Movements: &MovementRepo{s: s, inTx: inTx},
		Balances:  &BalanceRepo{s: s, inTx: inTx},
		Lots:      &LotRepo{s: s, inTx: inTx},
		Alerts:    &AlertRepo{s: s, inTx: inTx},
	}
}

// with ejecuta fn con el estado; fuera de transacción toma el lock.
func (s *Store) with(inTx bool, fn func(st *state)) {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn(s.st)
}

// PutItem registra o reemplaza un ítem del registro maestro.
func (s *Store) PutItem(item entity.StockItem) {
	s.with(false, func(st *state) { st.items[item.ID] = item })
}

// PutLocation registra o reemplaza una ubicación.
func (s *Store) PutLocation(loc entity.StockLocation) {
	s.with(false, func(st *state) { st.locations[loc.ID] = loc })
}

// GetItem devuelve (nil, nil) si el ítem no existe.
func (s *Store) GetItem(_ context.Context, id string) (*entity.StockItem, error) {
	var out *entity.StockItem
	s.with(false, func(st *state) {
		if it, ok := st.items[id]; ok {
			out = &it
		}
	})
	return out, nil
}

// GetLocation devuelve (nil, nil) si la ubicación no existe.
func (s *Store) GetLocation(_ context.Context, id string) (*entity.StockLocation, error) {
	var out *entity.StockLocation
	s.with(false, func(st *state) {
		if l, ok := st.locations[id]; ok {
			out = &l
		}
	})
	return out, nil
}
