// Package sample generates synthetic expense ledgers for demos and tests.
package sample

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"smartbudget/internal/ledger"
)

// Concepts are the expense concepts drawn for every generated row.
var Concepts = []string{
	"Supermercado", "Transporte", "Gasolina", "Restaurante", "Internet",
	"Servicios", "Cine", "Ropa", "Farmacia", "Café", "Suscripciones", "Mantenimiento",
}

// Header is the column layout of a generated ledger.
var Header = []string{"fecha", "concepto", "descripcion", "monto"}

// Config controls ledger generation. Days run from Start to End inclusive.
type Config struct {
	Start time.Time
	End   time.Time
	Seed  uint64

	// MaxPerDay bounds the number of expenses drawn for one day.
	MaxPerDay int
}

// DefaultConfig covers the first half of 2025.
func DefaultConfig() Config {
	return Config{
		Start:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Seed:      42,
		MaxPerDay: 4,
	}
}

// Generate draws 0 to MaxPerDay expenses per day with gamma(2.5, scale 15)
// amounts rounded to cents. The same config always yields the same table.
func Generate(cfg Config) (ledger.Table, error) {
	if cfg.End.Before(cfg.Start) {
		return ledger.Table{}, fmt.Errorf("sample range ends before it starts: %s < %s",
			cfg.End.Format(time.DateOnly), cfg.Start.Format(time.DateOnly))
	}
	if cfg.MaxPerDay < 0 {
		return ledger.Table{}, fmt.Errorf("max expenses per day must not be negative, got %d", cfg.MaxPerDay)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	amounts := distuv.Gamma{Alpha: 2.5, Beta: 1.0 / 15, Src: rand.NewPCG(cfg.Seed, cfg.Seed+1)}

	var rows [][]string
	for day := cfg.Start; !day.After(cfg.End); day = day.AddDate(0, 0, 1) {
		n := rng.IntN(cfg.MaxPerDay + 1)
		for i := 0; i < n; i++ {
			concept := Concepts[rng.IntN(len(Concepts))]
			amount := math.Round(amounts.Rand()*100) / 100
			ticket := 1000 + rng.IntN(8999)
			rows = append(rows, []string{
				day.Format(time.DateOnly),
				concept,
				fmt.Sprintf("Gasto en %s - ticket #%d", strings.ToLower(concept), ticket),
				strconv.FormatFloat(amount, 'f', 2, 64),
			})
		}
	}

	return ledger.Table{Header: append([]string(nil), Header...), Rows: rows}, nil
}
