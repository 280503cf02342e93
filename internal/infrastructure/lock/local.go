// Package lock implementa ports.Locker: en memoria para un solo proceso y sobre
// Redis cuando varias réplicas comparten la base de datos.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var _ ports.Locker = (*LocalLocker)(nil)

type slot struct {
	ch   chan struct{}
	refs int
}

// LocalLocker lock por clave con espera acotada. Las claves sin uso se liberan.
type LocalLocker struct {
	mu      sync.Mutex
	slots   map[string]*slot
	timeout time.Duration
}

// NewLocalLocker crea el locker. timeout es la espera máxima por el conjunto de claves.
func NewLocalLocker(timeout time.Duration) *LocalLocker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LocalLocker{slots: map[string]*slot{}, timeout: timeout}
}

// Lock adquiere las claves en orden. Si vence la espera devuelve domain.ErrConflict.
func (l *LocalLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = ports.SortedKeys(keys)
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	held := make([]string, 0, len(keys))
	for _, k := range keys {
		s := l.acquireSlot(k)
		select {
		case s.ch <- struct{}{}:
			held = append(held, k)
		case <-timer.C:
			l.dropSlot(k)
			l.release(held)
			return nil, domain.ErrConflict
		case <-ctx.Done():
			l.dropSlot(k)
			l.release(held)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(held) }) }, nil
}

func (l *LocalLocker) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) dropSlot(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *LocalLocker) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		s := l.slots[keys[i]]
		l.mu.Unlock()
		<-s.ch
		l.dropSlot(keys[i])
	}
}

// Held devuelve cuántas claves tienen dueño o espera (tests).
func (l *LocalLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

