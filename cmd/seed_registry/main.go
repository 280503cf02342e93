// seed_registry genera el script SQL que carga el registro maestro (stock_items y
// stock_locations) a partir de un JSON como el que usa el store en memoria.
//
// Uso: go run ./cmd/seed_registry [ruta/registry.json] [salida.sql]
// Por defecto lee registry.json y escribe en stdout.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/seed"
)

func main() {
	in := "registry.json"
	if len(os.Args) > 1 {
		in = os.Args[1]
	}
	reg, err := seed.LoadFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar registro: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if len(os.Args) > 2 {
		f, err := os.Create(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := reg.WriteSQL(out); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Registro: %d ítems, %d ubicaciones\n", len(reg.Items), len(reg.Locations))
}
