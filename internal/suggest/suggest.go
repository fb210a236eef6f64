// Package suggest turns the monthly pivot into savings tips written in Spanish.
package suggest

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"smartbudget/internal/aggregate"
)

const (
	// MinMonths is the shortest pivot that has a last month and a history.
	MinMonths = 2

	// ConcentrationShare flags a category holding more than this share of last month's spend.
	ConcentrationShare = 0.15
	// GrowthFactor flags a category whose last month reaches this multiple of its mean.
	GrowthFactor = 1.25
	// SavingRate is the reduction quoted by basic tips.
	SavingRate = 0.10
)

const (
	msgMoreMonths         = "Cargá más meses para generar sugerencias."
	msgMoreMonthsAdvanced = "Cargá más meses para generar sugerencias avanzadas."
	msgOnTrack            = "Tus gastos del último mes están en línea con tu promedio histórico. ¡Bien ahí!"
	msgBalanced           = "No detectamos concentraciones ni subas bruscas en tus categorías. ¡Seguí así!"
)

// Comparison is one category's last month against its historical mean.
type Comparison struct {
	Category string  `json:"category"`
	Last     float64 `json:"last"`
	Mean     float64 `json:"mean"`
	Delta    float64 `json:"delta"`
}

// Compare returns last month against the mean of every earlier month for
// each category, in pivot column order. The last month is never part of
// its own baseline. Pivots shorter than MinMonths yield nil.
func Compare(p *aggregate.Pivot) []Comparison {
	n := p.Len()
	if n < MinMonths {
		return nil
	}
	out := make([]Comparison, len(p.Categories))
	for c, name := range p.Categories {
		col := p.Column(c)
		last := col[n-1]
		mean := stat.Mean(col[:n-1], nil)
		out[c] = Comparison{Category: name, Last: last, Mean: mean, Delta: last - mean}
	}
	return out
}

// SavingsTips returns tips for the topK categories with the largest
// increase over their mean. Only increases produce a tip; when there are
// none a single affirmative message is returned.
func SavingsTips(p *aggregate.Pivot, topK int) []string {
	cmp := Compare(p)
	if cmp == nil {
		return []string{msgMoreMonths}
	}
	sort.SliceStable(cmp, func(i, j int) bool {
		return cmp[i].Delta > cmp[j].Delta
	})
	if topK >= 0 && topK < len(cmp) {
		cmp = cmp[:topK]
	}

	var tips []string
	for _, c := range cmp {
		if c.Delta <= 0 {
			continue
		}
		tips = append(tips, fmt.Sprintf(
			"Estás gastando más en **%s** (+$%.2f vs promedio). Reducir un %.0f%% en esa categoría ahorraría ~$%.2f.",
			c.Category, c.Delta, SavingRate*100, c.Last*SavingRate,
		))
	}
	if len(tips) == 0 {
		return []string{msgOnTrack}
	}
	return tips
}

// AdvancedTips flags categories that concentrate more than
// ConcentrationShare of last month's spend and categories whose last month
// reached GrowthFactor times their mean. One category may produce both.
func AdvancedTips(p *aggregate.Pivot) []string {
	cmp := Compare(p)
	if cmp == nil {
		return []string{msgMoreMonthsAdvanced}
	}
	total := p.Totals[p.Len()-1]

	var tips []string
	for _, c := range cmp {
		if total > 0 {
			if share := c.Last / total; share > ConcentrationShare {
				tips = append(tips, fmt.Sprintf(
					"**%s** concentra el %.0f%% de tus gastos del último mes. Revisá si podés recortar ahí.",
					c.Category, share*100,
				))
			}
		}
		if c.Mean > 0 && c.Last >= GrowthFactor*c.Mean {
			tips = append(tips, fmt.Sprintf(
				"Tu gasto en **%s** creció un %.0f%% respecto de tu promedio histórico ($%.2f vs $%.2f).",
				c.Category, (c.Last/c.Mean-1)*100, c.Last, c.Mean,
			))
		}
	}
	if len(tips) == 0 {
		return []string{msgBalanced}
	}
	return tips
}
