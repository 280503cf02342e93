package ports

import "time"

// LedgerRecorder puerto de métricas del ledger.
type LedgerRecorder interface {
	MovementRecorded(movementType string, elapsed time.Duration)
	MovementFailed(movementType string, err error)
	LotConsumed()
}

// AlertRecorder puerto de métricas del motor de alertas.
type AlertRecorder interface {
	AlertOpened(alertType, alertLevel string)
	AlertClosed(alertType, alertLevel string)
}

// NopRecorder no registra nada.
type NopRecorder struct{}

func (NopRecorder) MovementRecorded(string, time.Duration) {}
func (NopRecorder) MovementFailed(string, error)           {}
func (NopRecorder) LotConsumed()                           {}
func (NopRecorder) AlertOpened(string, string)             {}
func (NopRecorder) AlertClosed(string, string)             {}
