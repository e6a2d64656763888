package suggest

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/fdg312/nutricart/internal/cart"
	"github.com/fdg312/nutricart/internal/catalog"
	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/fdg312/nutricart/internal/solver"
)

// referenceProfile has the target [84, 28, 363.45, 2041.8, 300, 30].
func referenceProfile() nutrition.UserProfile {
	return nutrition.UserProfile{
		Gender:   "male",
		WeightKg: 70,
		HeightCm: 175,
		AgeYears: 30,
		Days:     1,
		Diet:     nutrition.DietAny,
	}
}

func referenceTarget(t *testing.T) nutrition.Vector {
	t.Helper()
	target, err := nutrition.ComputeTarget(referenceProfile())
	if err != nil {
		t.Fatalf("ComputeTarget: %v", err)
	}
	return target
}

func product(code int, name, category string, v nutrition.Vector) catalog.Product {
	return catalog.Product{Code: code, Name: name, Category: category, Nutrients: v}
}

func mustCatalog(t *testing.T, products ...catalog.Product) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(products)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func totalOf(c cart.Cart, products cart.Lookup) nutrition.Vector {
	return cart.Build(c, products).Total
}

func TestClassify(t *testing.T) {
	target := nutrition.Vector{100, 100, 100, 100, 100, 100}

	tests := []struct {
		name  string
		total nutrition.Vector
		want  State
	}{
		{"exact", target, Satisfied},
		{"inside band", nutrition.Vector{91, 109, 100, 95, 105, 110}, Satisfied},
		{"one above band", nutrition.Vector{100, 100, 100, 100, 100, 111}, Exceeded},
		{"above target everywhere", nutrition.Vector{150, 150, 150, 150, 150, 150}, Exceeded},
		{"one below band", nutrition.Vector{100, 100, 89, 100, 100, 100}, Deficient},
		{"above and below", nutrition.Vector{200, 100, 50, 100, 100, 100}, Deficient},
		{"empty cart", nutrition.Vector{}, Deficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.total, target); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSuggestSatisfied(t *testing.T) {
	target := referenceTarget(t)
	c := mustCatalog(t, product(1, "Daily Box", catalog.CategoryVeggie, target))
	e := NewEngine(c, Options{})

	s, err := e.Suggest(context.Background(), cart.Cart{1: 1}, referenceProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind != KindNone || s.Desc != "No suggestions" || len(s.Items) != 0 {
		t.Fatalf("expected no suggestions, got %+v", s)
	}
}

func TestSuggestRemove(t *testing.T) {
	target := referenceTarget(t)
	c := mustCatalog(t,
		product(1, "Half Box", catalog.CategoryVeggie, target.Scale(0.5)),
		product(2, "Quarter Box", catalog.CategoryVeggie, target.Scale(0.25)),
	)
	e := NewEngine(c, Options{})
	in := cart.Cart{1: 2, 2: 2}

	ev, err := e.Evaluate(context.Background(), in, referenceProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.State != Exceeded || ev.Suggestion.Kind != KindRemove {
		t.Fatalf("expected exceeded/Remove, got %s/%s", ev.State, ev.Suggestion.Kind)
	}

	removed := 0
	for _, it := range ev.Suggestion.Items {
		if it.Quantity <= 0 || it.Quantity > in[it.Code] {
			t.Fatalf("invalid removal %+v", it)
		}
		removed += it.Quantity
	}
	// 0.5a + 0.25b <= 1 with a, b <= 2 keeps at most 3 units.
	if removed != 1 {
		t.Fatalf("expected 1 removed unit, got %d (%+v)", removed, ev.Suggestion.Items)
	}

	after := totalOf(ev.Suggestion.Apply(in), c)
	for i := range after {
		if after[i] > target[i]+1e-6 {
			t.Fatalf("%s above target after removal: %v > %v", nutrition.Names[i], after[i], target[i])
		}
	}
}

func deficitCatalog(t *testing.T, target nutrition.Vector) *catalog.Catalog {
	return mustCatalog(t,
		product(10, "Third A", catalog.CategoryVeggie, target.Scale(1.0/3)),
		product(11, "Third B", catalog.CategoryNonVeggie, target.Scale(1.0/3)),
		product(12, "Third C", catalog.CategoryVeggie, target.Scale(1.0/3)),
		product(20, "Big Bowl", catalog.CategoryVeggie, target.Scale(0.6)),
		product(21, "Side Dish", catalog.CategoryNonVeggie, target.Scale(0.35)),
		product(30, "Feast", catalog.CategoryVeggie, target.Scale(1.5)),
	)
}

func TestSuggestAddEmptyCart(t *testing.T) {
	target := referenceTarget(t)
	c := deficitCatalog(t, target)
	e := NewEngine(c, Options{Rand: SeededRand(1)})

	ev, err := e.Evaluate(context.Background(), cart.Cart{}, referenceProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.State != Deficient {
		t.Fatalf("empty cart must be deficient, got %s", ev.State)
	}
	if ev.Suggestion.Kind != KindAdd || ev.Suggestion.Desc != "Add products" {
		t.Fatalf("expected Add, got %+v", ev.Suggestion)
	}

	// No single product lands in the band, two do.
	if len(ev.Suggestion.Items) != 2 {
		t.Fatalf("expected 2 added products, got %+v", ev.Suggestion.Items)
	}
	for _, it := range ev.Suggestion.Items {
		if it.Quantity != 1 {
			t.Fatalf("added items must have quantity 1, got %+v", it)
		}
	}

	after := totalOf(ev.Suggestion.Apply(cart.Cart{}), c)
	if got := Classify(after, target); got != Satisfied {
		t.Fatalf("cart after additions should be satisfied, got %s (%v)", got, after)
	}
}

func TestSuggestAddKeepsCart(t *testing.T) {
	target := referenceTarget(t)
	c := deficitCatalog(t, target)
	e := NewEngine(c, Options{Rand: SeededRand(2)})
	in := cart.Cart{20: 1}

	s, err := e.Suggest(context.Background(), in, referenceProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind != KindAdd || len(s.Items) != 1 {
		t.Fatalf("expected a single addition, got %+v", s)
	}
	if _, ok := in[s.Items[0].Code]; ok {
		t.Fatalf("suggested a product already in the cart: %+v", s.Items[0])
	}
	if s.Items[0].Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", s.Items[0].Quantity)
	}
}

func TestSuggestFallsBackToRemove(t *testing.T) {
	target := referenceTarget(t)

	sugary := target.Scale(0.5)
	sugary[nutrition.Sugars] = target[nutrition.Sugars] * 2
	heavy := nutrition.Vector{}
	heavy[nutrition.Calories] = target[nutrition.Calories] * 3

	c := mustCatalog(t,
		product(1, "Candy Bar", catalog.CategoryVeggie, sugary),
		product(2, "Lard", catalog.CategoryNonVeggie, heavy),
	)
	e := NewEngine(c, Options{})

	ev, err := e.Evaluate(context.Background(), cart.Cart{1: 1}, referenceProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.State != Deficient {
		t.Fatalf("expected deficient, got %s", ev.State)
	}
	if ev.Suggestion.Kind != KindRemove {
		t.Fatalf("expected fallback to Remove, got %+v", ev.Suggestion)
	}
	if len(ev.Suggestion.Items) != 1 || ev.Suggestion.Items[0] != (Item{Code: 1, Name: "Candy Bar", Quantity: 1}) {
		t.Fatalf("expected candy bar removal, got %+v", ev.Suggestion.Items)
	}
}

// countingProblem tags each program by the prefix of its variable names.
type countingProblem struct {
	solver.Problem
	counts map[string]int
	tagged bool
}

func (p *countingProblem) AddVariable(name string, lower, upper float64, integer bool) solver.Var {
	if !p.tagged {
		prefix, _, _ := strings.Cut(name, "_")
		p.counts[prefix]++
		p.tagged = true
	}
	return p.Problem.AddVariable(name, lower, upper, integer)
}

func TestAddRetriesUntilMaxAttempts(t *testing.T) {
	target := referenceTarget(t)

	// пятьдесят крошечных товаров: даже 15 штук не дотягивают до нижней границы
	products := []catalog.Product{product(100, "Crumb", catalog.CategoryVeggie, target.Scale(0.01))}
	for i := 1; i <= 50; i++ {
		products = append(products, product(i, "Speck", catalog.CategoryVeggie, target.Scale(0.01)))
	}
	c := mustCatalog(t, products...)

	counts := make(map[string]int)
	base := solver.NewFactory(solver.Options{})
	e := NewEngine(c, Options{
		SampleSize: 3,
		Rand:       SeededRand(11),
		Solver: func() solver.Problem {
			return &countingProblem{Problem: base(), counts: counts}
		},
	})

	ev, err := e.Evaluate(context.Background(), cart.Cart{100: 1}, referenceProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.State != Deficient {
		t.Fatalf("expected deficient, got %s", ev.State)
	}
	if ev.Suggestion.Kind != KindRemove || len(ev.Suggestion.Items) != 0 {
		t.Fatalf("expected empty Remove fallback, got %+v", ev.Suggestion)
	}

	// программа Add начинается с закреплённой строки корзины
	if counts["cart"] != DefaultMaxAttempts {
		t.Errorf("expected %d add programs, got %d", DefaultMaxAttempts, counts["cart"])
	}
	if counts["keep"] != 1 {
		t.Errorf("expected 1 remove program, got %d", counts["keep"])
	}
}

func TestAddEmptyCandidatePool(t *testing.T) {
	target := referenceTarget(t)
	c := mustCatalog(t, product(1, "Steak", catalog.CategoryNonVeggie, target))
	e := NewEngine(c, Options{})

	profile := referenceProfile()
	profile.Diet = nutrition.DietVegetarian

	_, err := e.addProducts(context.Background(), cart.Build(cart.Cart{}, c), target, profile)
	if !errors.Is(err, ErrEmptyCandidatePool) || !errors.Is(err, ErrOptimizationInfeasible) {
		t.Fatalf("expected ErrEmptyCandidatePool, got %v", err)
	}

	s, err := e.Suggest(context.Background(), cart.Cart{}, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind != KindRemove || len(s.Items) != 0 {
		t.Fatalf("expected empty Remove fallback, got %+v", s)
	}
}

func TestAddHonoursAllergies(t *testing.T) {
	target := referenceTarget(t)
	c := deficitCatalog(t, target)
	e := NewEngine(c, Options{Rand: SeededRand(3)})

	profile := referenceProfile()
	profile.Allergies = []string{"bowl", "side"}

	s, err := e.Suggest(context.Background(), cart.Cart{}, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind != KindAdd || len(s.Items) != 3 {
		t.Fatalf("expected the three thirds, got %+v", s)
	}
	for _, it := range s.Items {
		if it.Code == 20 || it.Code == 21 {
			t.Fatalf("allergen suggested: %+v", it)
		}
	}
}

func TestAddSamplingIsDeterministicWithSeed(t *testing.T) {
	target := referenceTarget(t)

	var products []catalog.Product
	for i := 1; i <= 30; i++ {
		products = append(products, product(i, "Portion", catalog.CategoryVeggie, target.Scale(0.25+float64(i%5)*0.05)))
	}
	c := mustCatalog(t, products...)

	run := func() Suggestion {
		e := NewEngine(c, Options{SampleSize: 6, Rand: SeededRand(42)})
		s, err := e.Suggest(context.Background(), cart.Cart{}, referenceProfile())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return s
	}

	first, second := run(), run()
	if first.Kind != second.Kind || len(first.Items) != len(second.Items) {
		t.Fatalf("runs differ: %+v vs %+v", first, second)
	}
	for i := range first.Items {
		if first.Items[i] != second.Items[i] {
			t.Fatalf("runs differ at %d: %+v vs %+v", i, first.Items[i], second.Items[i])
		}
	}
}

// The zero cart is always feasible for removal, so the optimizer must never
// fail, and its objective must match exhaustive search.
func TestRemoveNeverInfeasible(t *testing.T) {
	r := rand.New(rand.NewPCG(2024, 7))

	for iter := 0; iter < 40; iter++ {
		n := 1 + r.IntN(4)
		products := make([]catalog.Product, n)
		in := cart.Cart{}
		for i := range products {
			var v nutrition.Vector
			for k := range v {
				v[k] = float64(r.IntN(41))
			}
			products[i] = product(i+1, "Random", catalog.CategoryVeggie, v)
			in[i+1] = 1 + r.IntN(3)
		}
		var target nutrition.Vector
		for k := range target {
			target[k] = float64(1 + r.IntN(150))
		}

		c := mustCatalog(t, products...)
		e := NewEngine(c, Options{})
		agg := cart.Build(in, c)

		items, err := e.removeProducts(context.Background(), agg.Matrix, target)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", iter, err)
		}

		applied := Suggestion{Kind: KindRemove, Items: items}.Apply(in)
		after := totalOf(applied, c)
		for k := range after {
			if after[k] > target[k]+1e-6 {
				t.Fatalf("iteration %d: %s %v exceeds %v", iter, nutrition.Names[k], after[k], target[k])
			}
		}

		kept := 0
		for _, q := range applied {
			kept += q
		}
		if best := bestKept(agg.Matrix, target); kept != best {
			t.Fatalf("iteration %d: kept %d units, exhaustive search keeps %d", iter, kept, best)
		}
	}
}

// bestKept enumerates every sub-cart of matrix.
func bestKept(matrix []cart.Row, target nutrition.Vector) int {
	best := 0
	q := make([]int, len(matrix))
	var walk func(i int)
	walk = func(i int) {
		if i == len(matrix) {
			var total nutrition.Vector
			units := 0
			for j, row := range matrix {
				total = total.Add(row.Nutrients.Scale(float64(q[j])))
				units += q[j]
			}
			for k := range total {
				if total[k] > target[k] {
					return
				}
			}
			best = max(best, units)
			return
		}
		for v := 0; v <= matrix[i].Quantity; v++ {
			q[i] = v
			walk(i + 1)
		}
	}
	walk(0)
	return best
}

func TestUnsupportedProfile(t *testing.T) {
	e := NewEngine(mustCatalog(t), Options{})
	profile := referenceProfile()
	profile.Gender = "unknown"

	if _, err := e.Suggest(context.Background(), cart.Cart{}, profile); !errors.Is(err, nutrition.ErrUnsupportedProfile) {
		t.Fatalf("expected ErrUnsupportedProfile, got %v", err)
	}
}

func TestUnknownCodesAreDropped(t *testing.T) {
	target := referenceTarget(t)
	c := mustCatalog(t, product(1, "Daily Box", catalog.CategoryVeggie, target))
	e := NewEngine(c, Options{})

	ev, err := e.Evaluate(context.Background(), cart.Cart{1: 1, 999: 4}, referenceProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Suggestion.Kind != KindNone {
		t.Fatalf("expected None, got %s", ev.Suggestion.Kind)
	}
	if len(ev.Aggregate.Unknown) != 1 || ev.Aggregate.Unknown[0] != 999 {
		t.Fatalf("expected 999 reported as unknown, got %v", ev.Aggregate.Unknown)
	}
}

func TestConcurrentSuggestions(t *testing.T) {
	target := referenceTarget(t)
	c := deficitCatalog(t, target)
	e := NewEngine(c, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := cart.Cart{}
			if i%2 == 1 {
				in[30] = 1
			}
			if _, err := e.Suggest(context.Background(), in, referenceProfile()); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestApply(t *testing.T) {
	in := cart.Cart{1: 3, 2: 1}

	out := Suggestion{Kind: KindRemove, Items: []Item{{Code: 1, Quantity: 1}, {Code: 2, Quantity: 1}}}.Apply(in)
	if out[1] != 2 || len(out) != 1 {
		t.Fatalf("unexpected cart after removal: %v", out)
	}

	out = Suggestion{Kind: KindAdd, Items: []Item{{Code: 5, Quantity: 1}}}.Apply(in)
	if out[5] != 1 || out[1] != 3 {
		t.Fatalf("unexpected cart after addition: %v", out)
	}
	if in[1] != 3 || len(in) != 2 {
		t.Fatalf("input cart was mutated: %v", in)
	}
}

func TestKindDescription(t *testing.T) {
	if KindRemove.Description() != "Remove products" || KindAdd.Description() != "Add products" || KindNone.Description() != "No suggestions" {
		t.Fatal("unexpected descriptions")
	}
}
