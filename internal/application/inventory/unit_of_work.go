package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// RetryPolicy reintentos ante conflictos de concurrencia.
type RetryPolicy struct {
	MaxRetries uint64
	Base       time.Duration
}

// DefaultRetryPolicy 3 reintentos con backoff exponencial desde 20ms.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Base: 20 * time.Millisecond}

// unitOfWork ejecuta una operación del ledger: lock por clave, transacción y reintentos.
type unitOfWork struct {
	tx     repository.TxRunner
	locker ports.Locker
	retry  RetryPolicy
}

// run adquiere las claves en orden, ejecuta fn en una transacción y reintenta
// mientras el error sea un conflicto transitorio. Agotados los reintentos devuelve
// el último error tal cual.
func (u *unitOfWork) run(ctx context.Context, keys []string, fn func(repos repository.Repositories) error) error {
	keys = ports.SortedKeys(keys)
	backoff := retry.WithMaxRetries(u.retry.MaxRetries, retry.NewExponential(u.retry.Base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := u.once(ctx, keys, fn)
		if domain.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (u *unitOfWork) once(ctx context.Context, keys []string, fn func(repos repository.Repositories) error) error {
	unlock, err := u.locker.Lock(ctx, keys...)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("adquirir lock: %w", err)
	}
	defer unlock()
	return u.tx.Run(ctx, fn)
}
