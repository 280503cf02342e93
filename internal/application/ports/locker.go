package ports

import (
	"context"
	"sort"
)

// Locker define el puerto de exclusión mutua por clave. Lo implementan un lock local
// en memoria (un solo proceso) y uno distribuido sobre Redis (varias réplicas).
type Locker interface {
	// Lock adquiere todas las claves (en orden) y devuelve la función que las libera.
	// Si no las obtiene dentro del tiempo máximo de espera devuelve domain.ErrConflict.
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// BalanceKey clave de lock del saldo (ítem, ubicación).
func BalanceKey(itemID, locationID string) string {
	return "balance:" + itemID + ":" + locationID
}

// SortedKeys devuelve las claves ordenadas y sin duplicados, el orden global en que
// se adquieren para que dos operaciones cruzadas no se bloqueen mutuamente.
func SortedKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
