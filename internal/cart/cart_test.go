package cart

import (
	"errors"
	"reflect"
	"testing"

	"github.com/fdg312/nutricart/internal/catalog"
	"github.com/fdg312/nutricart/internal/nutrition"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Product{
		{Code: 1, Name: "Oats", Category: catalog.CategoryVeggie, Nutrients: nutrition.Vector{13, 7, 68, 389, 0, 1}},
		{Code: 2, Name: "Chicken breast", Category: catalog.CategoryNonVeggie, Nutrients: nutrition.Vector{31, 3.6, 0, 165, 85, 0}},
		{Code: 3, Name: "Apple", Category: catalog.CategoryVeggie, Nutrients: nutrition.Vector{0.3, 0.2, 14, 52, 0, 10}},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func TestBuild(t *testing.T) {
	products := testCatalog(t)

	agg := Build(Cart{2: 2, 1: 1}, products)

	if len(agg.Matrix) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(agg.Matrix))
	}
	if agg.Matrix[0].Code != 1 || agg.Matrix[1].Code != 2 {
		t.Fatalf("expected rows sorted by code, got %d, %d", agg.Matrix[0].Code, agg.Matrix[1].Code)
	}
	if agg.Matrix[1].Quantity != 2 {
		t.Errorf("expected quantity 2 for chicken, got %d", agg.Matrix[1].Quantity)
	}

	want := nutrition.Vector{13 + 62, 7 + 7.2, 68, 389 + 330, 170, 1}
	for i := range want {
		if diff := agg.Total[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: expected %v, got %v", nutrition.Names[i], want[i], agg.Total[i])
		}
	}
	if len(agg.Unknown) != 0 {
		t.Errorf("expected no unknown codes, got %v", agg.Unknown)
	}
}

func TestBuildDropsUnknownCodes(t *testing.T) {
	products := testCatalog(t)

	agg := Build(Cart{3: 4, 99: 1, 42: 2}, products)

	if len(agg.Matrix) != 1 || agg.Matrix[0].Code != 3 {
		t.Fatalf("expected only apple in matrix, got %+v", agg.Matrix)
	}
	if !reflect.DeepEqual(agg.Unknown, []int{42, 99}) {
		t.Fatalf("expected unknown [42 99], got %v", agg.Unknown)
	}
	if agg.Total[nutrition.Sugars] != 40 {
		t.Errorf("expected sugars 40, got %v", agg.Total[nutrition.Sugars])
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	products := testCatalog(t)
	c := Cart{1: 3, 2: 1, 3: 7, 1000: 1}

	first := Build(c, products)
	second := Build(c, products)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical aggregates, got %+v and %+v", first, second)
	}
	if len(c) != 4 || c[1] != 3 {
		t.Fatalf("cart was mutated: %v", c)
	}
}

func TestBuildEmptyCart(t *testing.T) {
	agg := Build(Cart{}, testCatalog(t))

	if agg.Total != (nutrition.Vector{}) {
		t.Fatalf("expected zero total, got %v", agg.Total)
	}
	if len(agg.Matrix) != 0 {
		t.Fatalf("expected empty matrix, got %v", agg.Matrix)
	}
}

func TestAggregateContains(t *testing.T) {
	agg := Build(Cart{1: 1, 3: 1}, testCatalog(t))

	if !agg.Contains(1) || !agg.Contains(3) {
		t.Fatal("expected codes 1 and 3 in aggregate")
	}
	if agg.Contains(2) {
		t.Fatal("code 2 should not be in aggregate")
	}
}

func TestParse(t *testing.T) {
	c, err := Parse(map[string]int{"1": 2, " 15 ": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(c, Cart{1: 2, 15: 1}) {
		t.Fatalf("unexpected cart: %v", c)
	}

	invalid := []map[string]int{
		{"abc": 1},
		{"-4": 1},
		{"0": 1},
		{"7": 0},
		{"7": -2},
		{"7": 1, "07": 1},
	}
	for _, items := range invalid {
		if _, err := Parse(items); !errors.Is(err, ErrInvalidCart) {
			t.Errorf("Parse(%v): expected ErrInvalidCart, got %v", items, err)
		}
	}
}
