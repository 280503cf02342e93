package repository

import "context"

// Repositories agrupa los repositorios atados a una misma transacción.
type Repositories struct {
	Movements MovementRepository
	Balances  BalanceRepository
	Lots      LotRepository
	Alerts    AlertRepository
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn retorna nil, Rollback si no.
// Garantiza atomicidad por operación del ledger (un traslado es una sola transacción).
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repositories) error) error
}
