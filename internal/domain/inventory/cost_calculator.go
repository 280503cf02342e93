package inventory

import "github.com/shopspring/decimal"

// costScale decimales con los que se guarda el costo promedio.
const costScale = 4

// WeightedAverageCost implementa el costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((CantActual * CostoActual) + (CantEntrada * CostoEntrada)) / (CantActual + CantEntrada)
// Con saldo actual en cero el nuevo costo es el de la entrada.
func WeightedAverageCost(currentQty, currentCost, inQty, inCost decimal.Decimal) decimal.Decimal {
	if !inQty.IsPositive() {
		return currentCost
	}
	if !currentQty.IsPositive() {
		return inCost.Round(costScale)
	}
	total := currentQty.Add(inQty)
	num := currentQty.Mul(currentCost).Add(inQty.Mul(inCost))
	return num.Div(total).Round(costScale)
}
