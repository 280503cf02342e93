// Package seed carga el registro maestro (ítems y ubicaciones) desde JSON, para el
// store en memoria o para generar un script SQL de carga.
package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Registry contenido del archivo de seed.
type Registry struct {
	Items     []Item     `json:"items"`
	Locations []Location `json:"locations"`
}

// Item ítem del registro maestro tal como viene en el JSON.
type Item struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
	MaximumStock decimal.Decimal `json:"maximum_stock"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	LotTracked   bool            `json:"lot_tracked"`
	LotDimension string          `json:"lot_dimension"`
	Inactive     bool            `json:"inactive"`
}

// Location ubicación del registro maestro.
type Location struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Capacity decimal.Decimal `json:"capacity"`
	Inactive bool            `json:"inactive"`
}

// Sink destino de la carga (el store en memoria lo implementa).
type Sink interface {
	PutItem(item entity.StockItem)
	PutLocation(loc entity.StockLocation)
}

// Load decodifica y valida un registro.
func Load(r io.Reader) (*Registry, error) {
	var reg Registry
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&reg); err != nil {
		return nil, fmt.Errorf("decodificar seed: %w", err)
	}
	if err := reg.validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// LoadFile abre path y llama a Load.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abrir seed: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (r *Registry) validate() error {
	seen := make(map[string]bool)
	for i, it := range r.Items {
		if strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.Code) == "" {
			return fmt.Errorf("item %d: id y code son obligatorios", i)
		}
		if seen["i:"+it.ID] {
			return fmt.Errorf("item %s duplicado", it.ID)
		}
		seen["i:"+it.ID] = true
		if d := it.LotDimension; d != "" && d != entity.LotDimensionWeight && d != entity.LotDimensionLength {
			return fmt.Errorf("item %s: lot_dimension %q inválida", it.ID, d)
		}
		if it.ReorderLevel.GreaterThan(it.MinimumStock) {
			return fmt.Errorf("item %s: reorder_level mayor que minimum_stock", it.ID)
		}
	}
	for i, l := range r.Locations {
		if strings.TrimSpace(l.ID) == "" || strings.TrimSpace(l.Code) == "" {
			return fmt.Errorf("location %d: id y code son obligatorios", i)
		}
		if seen["l:"+l.ID] {
			return fmt.Errorf("location %s duplicada", l.ID)
		}
		seen["l:"+l.ID] = true
	}
	return nil
}

// StockItems convierte los ítems a entidades.
func (r *Registry) StockItems() []entity.StockItem {
	out := make([]entity.StockItem, 0, len(r.Items))
	for _, it := range r.Items {
		unit, dim := it.Unit, it.LotDimension
		if unit == "" {
			unit = "UND"
		}
		if dim == "" {
			dim = entity.LotDimensionWeight
		}
		out = append(out, entity.StockItem{
			ID:           it.ID,
			Code:         it.Code,
			Name:         it.Name,
			Unit:         unit,
			MinimumStock: it.MinimumStock,
			MaximumStock: it.MaximumStock,
			ReorderLevel: it.ReorderLevel,
			LotTracked:   it.LotTracked,
			LotDimension: dim,
			IsActive:     !it.Inactive,
		})
	}
	return out
}

// StockLocations convierte las ubicaciones a entidades.
func (r *Registry) StockLocations() []entity.StockLocation {
	out := make([]entity.StockLocation, 0, len(r.Locations))
	for _, l := range r.Locations {
		out = append(out, entity.StockLocation{
			ID:       l.ID,
			Code:     l.Code,
			Name:     l.Name,
			Capacity: l.Capacity,
			IsActive: !l.Inactive,
		})
	}
	return out
}

// Apply carga el registro en sink.
func (r *Registry) Apply(sink Sink) {
	for _, loc := range r.StockLocations() {
		sink.PutLocation(loc)
	}
	for _, it := range r.StockItems() {
		sink.PutItem(it)
	}
}

// WriteSQL escribe un script idempotente (INSERT ... ON CONFLICT DO UPDATE) ordenado por id.
func (r *Registry) WriteSQL(w io.Writer) error {
	locs := r.StockLocations()
	sort.Slice(locs, func(i, j int) bool { return locs[i].ID < locs[j].ID })
	items := r.StockItems()
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	var b strings.Builder
	b.WriteString("-- Registro maestro del ledger (generado por cmd/seed_registry)\n\n")
	if len(locs) > 0 {
		b.WriteString("INSERT INTO stock_locations (id, code, name, capacity, is_active) VALUES\n")
		for i, l := range locs {
			fmt.Fprintf(&b, "  (%s, %s, %s, %s, %t)", quote(l.ID), quote(l.Code), quote(l.Name), l.Capacity.String(), l.IsActive)
			b.WriteString(sep(i, len(locs)))
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name,\n")
		b.WriteString("  capacity = EXCLUDED.capacity, is_active = EXCLUDED.is_active, updated_at = now();\n\n")
	}
	if len(items) > 0 {
		b.WriteString("INSERT INTO stock_items (id, code, name, unit, minimum_stock, maximum_stock, reorder_level, lot_tracked, lot_dimension, is_active) VALUES\n")
		for i, it := range items {
			fmt.Fprintf(&b, "  (%s, %s, %s, %s, %s, %s, %s, %t, %s, %t)",
				quote(it.ID), quote(it.Code), quote(it.Name), quote(it.Unit),
				it.MinimumStock.String(), it.MaximumStock.String(), it.ReorderLevel.String(),
				it.LotTracked, quote(it.LotDimension), it.IsActive)
			b.WriteString(sep(i, len(items)))
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, unit = EXCLUDED.unit,\n")
		b.WriteString("  minimum_stock = EXCLUDED.minimum_stock, maximum_stock = EXCLUDED.maximum_stock,\n")
		b.WriteString("  reorder_level = EXCLUDED.reorder_level, lot_tracked = EXCLUDED.lot_tracked,\n")
		b.WriteString("  lot_dimension = EXCLUDED.lot_dimension, is_active = EXCLUDED.is_active, updated_at = now();\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func sep(i, n int) string {
	if i < n-1 {
		return ",\n"
	}
	return "\n"
}
