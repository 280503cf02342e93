package inventory

import "github.com/shopspring/decimal"

// QuantityScale decimales con que se persisten cantidades, pesos, largos y precios.
const QuantityScale = 4

// WithinScale indica si todos los valores caben en QuantityScale decimales.
func WithinScale(values ...decimal.Decimal) bool {
	for _, v := range values {
		if !v.Equal(v.Truncate(QuantityScale)) {
			return false
		}
	}
	return true
}
