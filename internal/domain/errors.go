package domain

import "errors"

// Errores de dominio del ledger (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrItemInactive       = errors.New("ítem o ubicación inactivo")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrInvalidAdjustment  = errors.New("ajuste inválido: el saldo quedaría negativo")
	ErrDuplicateLotNumber = errors.New("número de lote duplicado")
	ErrLotNotFound        = errors.New("lote no encontrado")
	ErrLotDepleted        = errors.New("lote agotado")
	ErrLotBlocked         = errors.New("lote bloqueado")
	ErrAlertNotFound      = errors.New("alerta no encontrada")
	ErrBalanceViolation   = errors.New("violación de saldo: la cantidad actual quedaría negativa")
	ErrConflict           = errors.New("conflicto con el estado actual, reintente")
)

// IsRetryable indica si el error proviene de una carrera de concurrencia y el
// llamador puede reintentar la operación completa.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBalanceViolation) || errors.Is(err, ErrConflict)
}
