package cart

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fdg312/nutricart/internal/catalog"
	"github.com/fdg312/nutricart/internal/nutrition"
)

var ErrInvalidCart = errors.New("invalid cart")

// Cart maps product code to a positive quantity. The engine never mutates it.
type Cart map[int]int

// Lookup resolves a product by code. *catalog.Catalog satisfies it.
type Lookup interface {
	Lookup(code int) (catalog.Product, bool)
}

// Row is one cart item found in the catalog.
type Row struct {
	Code      int
	Name      string
	Nutrients nutrition.Vector // per unit
	Quantity  int
}

// Aggregate is the nutrient content of a cart.
type Aggregate struct {
	Total   nutrition.Vector
	Matrix  []Row // sorted by code
	Unknown []int // sorted codes missing from the catalog
}

// Contains reports whether the matrix has a row for code.
func (a Aggregate) Contains(code int) bool {
	i := sort.Search(len(a.Matrix), func(i int) bool { return a.Matrix[i].Code >= code })
	return i < len(a.Matrix) && a.Matrix[i].Code == code
}

// Build computes total nutrients and the per-item matrix of c. Codes missing
// from the catalog are left out of both and listed in Unknown. The result
// depends only on c and the catalog snapshot.
func Build(c Cart, products Lookup) Aggregate {
	codes := make([]int, 0, len(c))
	for code := range c {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	agg := Aggregate{Matrix: make([]Row, 0, len(codes))}
	for _, code := range codes {
		p, ok := products.Lookup(code)
		if !ok {
			agg.Unknown = append(agg.Unknown, code)
			continue
		}

		qty := c[code]
		agg.Matrix = append(agg.Matrix, Row{
			Code:      code,
			Name:      p.Name,
			Nutrients: p.Nutrients,
			Quantity:  qty,
		})
		agg.Total = agg.Total.Add(p.Nutrients.Scale(float64(qty)))
	}

	return agg
}

// Parse converts the wire form {"<code>": quantity} into a Cart. Keys must be
// positive integers and quantities positive.
func Parse(items map[string]int) (Cart, error) {
	c := make(Cart, len(items))
	for key, qty := range items {
		code, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || code <= 0 {
			return nil, fmt.Errorf("%w: product code %q is not a positive integer", ErrInvalidCart, key)
		}
		if qty <= 0 {
			return nil, fmt.Errorf("%w: quantity for %d must be positive", ErrInvalidCart, code)
		}
		if _, dup := c[code]; dup {
			return nil, fmt.Errorf("%w: product code %d listed twice", ErrInvalidCart, code)
		}
		c[code] = qty
	}
	return c, nil
}
