package catalog

import (
	"errors"
	"sort"
	"strings"

	"github.com/fdg312/nutricart/internal/nutrition"
)

// Product categories as they appear in the catalog data.
const (
	CategoryVeggie    = "Veggie"
	CategoryNonVeggie = "Non-Veggie"
)

var (
	ErrDuplicateCode = errors.New("duplicate product code")
	ErrInvalidCode   = errors.New("product code must be positive")
)

// Product is one catalog entry. Nutrients are per unit.
type Product struct {
	Code      int
	Name      string
	Category  string
	Nutrients nutrition.Vector
}

// Listing is the public {code, name} view of a product.
type Listing struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// Catalog is an immutable product table keyed by code. It is safe for
// concurrent use without locking once built.
type Catalog struct {
	products []Product // sorted by code
	byCode   map[int]int
}

// New builds a catalog from products. Codes must be positive and unique.
func New(products []Product) (*Catalog, error) {
	sorted := make([]Product, len(products))
	copy(sorted, products)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	byCode := make(map[int]int, len(sorted))
	for i, p := range sorted {
		if p.Code <= 0 {
			return nil, ErrInvalidCode
		}
		if _, ok := byCode[p.Code]; ok {
			return nil, ErrDuplicateCode
		}
		byCode[p.Code] = i
	}

	return &Catalog{products: sorted, byCode: byCode}, nil
}

// Lookup returns the product with the given code.
func (c *Catalog) Lookup(code int) (Product, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Products returns a copy of all products ordered by code.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Candidates returns the products allowed by diet and allergies, ordered by
// code. Vegetarian excludes Non-Veggie products, non-vegetarian excludes
// Veggie products, any other diet keeps everything. A product is excluded
// when its name contains any allergy word, ignoring case. Empty allergy
// words are ignored.
func (c *Catalog) Candidates(diet string, allergies []string) []Product {
	words := nutrition.NormalizeAllergies(allergies)
	diet = strings.ToLower(strings.TrimSpace(diet))

	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if !dietAllows(diet, p.Category) {
			continue
		}
		if containsAllergen(p.Name, words) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// List returns the {code, name} listing of Candidates.
func (c *Catalog) List(diet string, allergies []string) []Listing {
	candidates := c.Candidates(diet, allergies)
	out := make([]Listing, len(candidates))
	for i, p := range candidates {
		out[i] = Listing{Code: p.Code, Name: p.Name}
	}
	return out
}

func dietAllows(diet, category string) bool {
	switch diet {
	case nutrition.DietVegetarian:
		return category != CategoryNonVeggie
	case nutrition.DietNonVegetarian:
		return category != CategoryVeggie
	default:
		return true
	}
}

func containsAllergen(name string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	lower := strings.ToLower(name)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
