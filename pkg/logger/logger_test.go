package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func TestComponentAddsField(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info").Component("ledger")

	log.Info().Str("item", "A").Msg("movimiento registrado")

	out := buf.String()
	assert.Contains(t, out, `"component":"ledger"`)
	assert.Contains(t, out, `"item":"A"`)
	assert.Contains(t, out, "movimiento registrado")
}

func TestLevelFiltersEvents(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "warn")

	log.Info().Msg("oculto")
	log.Warn().Msg("visible")

	assert.NotContains(t, buf.String(), "oculto")
	assert.Contains(t, buf.String(), "visible")
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		logger.Nop().Component("x").Error().Msg("nada")
	})
}
