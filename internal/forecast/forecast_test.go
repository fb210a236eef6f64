package forecast

import (
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"smartbudget/internal/aggregate"
	"smartbudget/internal/core"
)

func pivotOf(months []string, cats []string, values [][]float64) *aggregate.Pivot {
	p := &aggregate.Pivot{Months: months, Categories: cats, Values: values, Totals: make([]float64, len(months))}
	for m, row := range values {
		for _, v := range row {
			p.Totals[m] += v
		}
	}
	return p
}

func TestBuildDatasetHistoryGate(t *testing.T) {
	two := pivotOf([]string{"2025-01", "2025-02"}, []string{"a"}, [][]float64{{1}, {2}})
	_, err := BuildDataset(two)
	var ih *core.InsufficientHistoryError
	if !errors.As(err, &ih) {
		t.Fatalf("expected InsufficientHistoryError, got %v", err)
	}
	if ih.Months != 2 || ih.Required != MinHistoryMonths {
		t.Fatalf("unexpected error fields %+v", ih)
	}

	three := pivotOf([]string{"2025-01", "2025-02", "2025-03"}, []string{"a", "b"}, [][]float64{{1, 2}, {3, 4}, {5, 6}})
	ds, err := BuildDataset(three)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Len() != 2 || !reflect.DeepEqual(ds.Y, []float64{7, 11}) {
		t.Fatalf("unexpected labels %v", ds.Y)
	}
	if !reflect.DeepEqual(ds.Latest, []float64{5, 6}) || ds.LatestMonth != "2025-03" {
		t.Fatalf("unexpected latest row %v %s", ds.Latest, ds.LatestMonth)
	}
	ds.X[0][0] = 99
	if three.Values[0][0] != 1 {
		t.Fatal("dataset must not alias the pivot")
	}
}

func TestForecast(t *testing.T) {
	p := pivotOf(
		[]string{"2024-10", "2024-11", "2024-12", "2025-01", "2025-02"},
		[]string{"luz", "super"},
		[][]float64{{10, 100}, {12, 110}, {11, 150}, {13, 120}, {12, 130}},
	)
	res, forest, err := Forecast(p, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Month != "2025-03" {
		t.Fatalf("forecast month = %s", res.Month)
	}
	lo, hi := 122.0, 161.0
	if res.Value < lo || res.Value > hi || math.IsNaN(res.Value) {
		t.Fatalf("forecast %v outside the observed label range [%v, %v]", res.Value, lo, hi)
	}
	if forest.Trees() != 300 {
		t.Fatalf("expected 300 trees, got %d", forest.Trees())
	}

	var sum float64
	for i, imp := range res.Importances {
		if imp.Weight < 0 {
			t.Fatalf("negative importance %+v", imp)
		}
		if i > 0 && imp.Weight > res.Importances[i-1].Weight {
			t.Fatalf("importances not sorted: %v", res.Importances)
		}
		sum += imp.Weight
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("importances should sum to 1, got %v", sum)
	}
}

func TestForecastDeterministic(t *testing.T) {
	p := pivotOf(
		[]string{"2025-01", "2025-02", "2025-03", "2025-04"},
		[]string{"a", "b", "c"},
		[][]float64{{1, 5, 9}, {2, 4, 8}, {3, 3, 7}, {4, 2, 6}},
	)
	a, _, err := Forecast(p, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Forecast(p, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different forecasts: %+v vs %+v", a, b)
	}
}

func TestForecastShortHistory(t *testing.T) {
	p := pivotOf([]string{"2025-01", "2025-02"}, []string{"a"}, [][]float64{{1}, {2}})
	_, _, err := Forecast(p, DefaultConfig())
	var ih *core.InsufficientHistoryError
	if !errors.As(err, &ih) {
		t.Fatalf("expected InsufficientHistoryError, got %v", err)
	}
}

func TestFitRejectsDegenerateData(t *testing.T) {
	cases := []struct {
		name string
		ds   *Dataset
	}{
		{"no features", &Dataset{X: [][]float64{{}}, Y: []float64{1}}},
		{"no rows", &Dataset{Features: []string{"a"}}},
		{"ragged", &Dataset{Features: []string{"a", "b"}, X: [][]float64{{1}}, Y: []float64{1}}},
		{"nan", &Dataset{Features: []string{"a"}, X: [][]float64{{math.NaN()}}, Y: []float64{1}}},
		{"inf label", &Dataset{Features: []string{"a"}, X: [][]float64{{1}}, Y: []float64{math.Inf(1)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Fit(tc.ds, DefaultConfig())
			var fe *core.ForecastError
			if !errors.As(err, &fe) || fe.Op != "fit" {
				t.Fatalf("expected fit ForecastError, got %v", err)
			}
		})
	}
}

func TestPredictChecksWidth(t *testing.T) {
	ds := &Dataset{Features: []string{"a"}, X: [][]float64{{1}, {2}}, Y: []float64{1, 2}}
	f, err := Fit(ds, Config{Trees: 5, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	var fe *core.ForecastError
	if _, err := f.Predict([]float64{1, 2}); !errors.As(err, &fe) {
		t.Fatalf("expected ForecastError, got %v", err)
	}
}

func TestTreeFitsStepFunction(t *testing.T) {
	x := [][]float64{{1, 0}, {2, 0}, {3, 0}, {4, 0}}
	y := []float64{10, 10, 20, 20}
	tr, imp := growTree(x, y, []int{0, 1, 2, 3}, rand.New(rand.NewPCG(1, 1)))
	if got := tr.predict([]float64{2.4, 0}); got != 10 {
		t.Fatalf("predict(2.4) = %v", got)
	}
	if got := tr.predict([]float64{2.6, 0}); got != 20 {
		t.Fatalf("predict(2.6) = %v", got)
	}
	if imp[0] <= 0 || imp[1] != 0 {
		t.Fatalf("importance should go to the informative feature, got %v", imp)
	}
}
