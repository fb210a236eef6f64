package suggest

import (
	"strings"
	"testing"

	"smartbudget/internal/aggregate"
)

func pivotOf(cats []string, values ...[]float64) *aggregate.Pivot {
	p := &aggregate.Pivot{Categories: cats, Values: values}
	for m, row := range values {
		p.Months = append(p.Months, "2025-0"+string(rune('1'+m)))
		var total float64
		for _, v := range row {
			total += v
		}
		p.Totals = append(p.Totals, total)
	}
	return p
}

func TestSavingsTipsNeedsTwoMonths(t *testing.T) {
	tips := SavingsTips(pivotOf([]string{"a"}, []float64{10}), 3)
	if len(tips) != 1 || tips[0] != msgMoreMonths {
		t.Fatalf("unexpected tips %v", tips)
	}
	adv := AdvancedTips(pivotOf([]string{"a"}, []float64{10}))
	if len(adv) != 1 || adv[0] != msgMoreMonthsAdvanced {
		t.Fatalf("unexpected advanced tips %v", adv)
	}
}

func TestSavingsTips(t *testing.T) {
	p := pivotOf([]string{"luz", "super", "taxi"},
		[]float64{10, 100, 20},
		[]float64{10, 100, 40},
		[]float64{10, 150, 20},
	)
	tips := SavingsTips(p, 3)
	if len(tips) != 1 {
		t.Fatalf("only categories above their mean produce tips, got %v", tips)
	}
	want := "Estás gastando más en **super** (+$50.00 vs promedio). Reducir un 10% en esa categoría ahorraría ~$15.00."
	if tips[0] != want {
		t.Fatalf("tip = %q\nwant %q", tips[0], want)
	}
}

func TestSavingsTipsTopK(t *testing.T) {
	p := pivotOf([]string{"a", "b", "c"},
		[]float64{10, 10, 10},
		[]float64{30, 20, 40},
	)
	tips := SavingsTips(p, 2)
	if len(tips) != 2 || !strings.Contains(tips[0], "**c**") || !strings.Contains(tips[1], "**a**") {
		t.Fatalf("expected tips for c then a, got %v", tips)
	}
}

func TestSavingsTipsAffirmative(t *testing.T) {
	p := pivotOf([]string{"a"}, []float64{50}, []float64{40})
	tips := SavingsTips(p, 3)
	if len(tips) != 1 || tips[0] != msgOnTrack {
		t.Fatalf("unexpected tips %v", tips)
	}
}

func TestSavingsTipsZeroMean(t *testing.T) {
	p := pivotOf([]string{"a", "b"},
		[]float64{0, 100},
		[]float64{10, 150},
	)
	// a has no history; tips rank by the raw increase, not the ratio
	tips := SavingsTips(p, 3)
	want := []string{
		"Estás gastando más en **b** (+$50.00 vs promedio). Reducir un 10% en esa categoría ahorraría ~$15.00.",
		"Estás gastando más en **a** (+$10.00 vs promedio). Reducir un 10% en esa categoría ahorraría ~$1.00.",
	}
	if len(tips) != len(want) {
		t.Fatalf("expected %d tips, got %v", len(want), tips)
	}
	for i := range want {
		if tips[i] != want[i] {
			t.Fatalf("tip %d = %q\nwant %q", i, tips[i], want[i])
		}
	}
}

func TestAdvancedTipsGrowth(t *testing.T) {
	p := pivotOf([]string{"A", "B"},
		[]float64{50, 50},
		[]float64{100, 50},
		[]float64{100, 50},
		[]float64{200, 50},
	)
	tips := AdvancedTips(pivotOf([]string{"A", "B"},
		[]float64{100, 50},
		[]float64{100, 50},
		[]float64{100, 50},
		[]float64{200, 50},
	))
	var growth bool
	for _, tip := range tips {
		if strings.Contains(tip, "**A** creció un 100%") {
			growth = true
		}
		if strings.Contains(tip, "**B** creció") {
			t.Fatalf("flat category must not be flagged: %q", tip)
		}
	}
	if !growth {
		t.Fatalf("expected a growth tip for A, got %v", tips)
	}

	// month 1 lowers A's mean but the last month still more than doubles it
	growth = false
	for _, tip := range AdvancedTips(p) {
		if strings.Contains(tip, "**A** creció") {
			if !strings.Contains(tip, "creció un 140%") {
				t.Fatalf("unexpected growth percentage in %q", tip)
			}
			growth = true
		}
	}
	if !growth {
		t.Fatalf("expected a 140%% growth tip for A, got %v", AdvancedTips(p))
	}
}

func TestAdvancedTipsConcentration(t *testing.T) {
	p := pivotOf([]string{"a", "b", "c", "d", "e", "f", "g"},
		[]float64{10, 10, 10, 10, 10, 10, 40},
		[]float64{10, 10, 10, 10, 10, 10, 40},
	)
	tips := AdvancedTips(p)
	if len(tips) != 1 || !strings.Contains(tips[0], "**g** concentra el 40%") {
		t.Fatalf("expected one concentration tip for g, got %v", tips)
	}
}

func TestAdvancedTipsZeroMean(t *testing.T) {
	p := pivotOf([]string{"nuevo", "a", "b", "c", "d", "e", "f", "g"},
		[]float64{0, 20, 20, 20, 15, 15, 10, 10},
		[]float64{10, 14, 14, 14, 12, 12, 12, 12},
	)
	for _, tip := range AdvancedTips(p) {
		if strings.Contains(tip, "creció") {
			t.Fatalf("a category with zero history must not produce a growth tip: %q", tip)
		}
	}
}

func TestAdvancedTipsBalanced(t *testing.T) {
	cats := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	row := []float64{10, 10, 10, 10, 10, 10, 10, 10}
	tips := AdvancedTips(pivotOf(cats, row, row))
	if len(tips) != 1 || tips[0] != msgBalanced {
		t.Fatalf("unexpected tips %v", tips)
	}
}
