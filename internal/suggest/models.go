package suggest

import (
	"errors"
	"fmt"

	"github.com/fdg312/nutricart/internal/cart"
	"github.com/fdg312/nutricart/internal/nutrition"
)

var (
	// ErrOptimizationInfeasible means an optimizer found no acceptable cart.
	// For removals it signals a defect, for additions it is expected after
	// the sampling attempts run out.
	ErrOptimizationInfeasible = errors.New("optimization infeasible")

	// ErrEmptyCandidatePool means diet and allergy filtering left nothing to add.
	ErrEmptyCandidatePool = fmt.Errorf("%w: empty candidate pool", ErrOptimizationInfeasible)
)

// Kind of a suggestion.
type Kind string

const (
	KindNone   Kind = "None"
	KindRemove Kind = "Remove"
	KindAdd    Kind = "Add"
)

// Description is the label shown next to a suggestion.
func (k Kind) Description() string {
	switch k {
	case KindRemove:
		return "Remove products"
	case KindAdd:
		return "Add products"
	default:
		return "No suggestions"
	}
}

// Item is one proposed change. Quantity is the number of units to remove or
// add, never negative.
type Item struct {
	Code     int    `json:"code"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Suggestion is the engine's answer for one cart.
type Suggestion struct {
	Kind  Kind   `json:"kind"`
	Desc  string `json:"desc"`
	Items []Item `json:"items"`
}

func newSuggestion(kind Kind, items []Item) Suggestion {
	if items == nil {
		items = []Item{}
	}
	return Suggestion{Kind: kind, Desc: kind.Description(), Items: items}
}

// Apply returns c with the suggestion's deltas applied. Removing every unit
// of an item deletes it.
func (s Suggestion) Apply(c cart.Cart) cart.Cart {
	out := make(cart.Cart, len(c)+len(s.Items))
	for code, qty := range c {
		out[code] = qty
	}
	for _, it := range s.Items {
		switch s.Kind {
		case KindRemove:
			out[it.Code] -= it.Quantity
			if out[it.Code] <= 0 {
				delete(out, it.Code)
			}
		case KindAdd:
			out[it.Code] += it.Quantity
		}
	}
	return out
}

// Request is the body of POST /v1/suggestions.
type Request struct {
	Items   map[string]int         `json:"items"`
	Profile *nutrition.UserProfile `json:"profile,omitempty"`
}

// Response wraps the suggestion with the numbers it was derived from.
type Response struct {
	Suggestion
	State        string              `json:"state"`
	Target       nutrition.Breakdown `json:"target"`
	Nutrients    nutrition.Breakdown `json:"nutrients"`
	UnknownCodes []int               `json:"unknown_codes"`
}
