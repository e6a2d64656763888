package catalog

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fdg312/nutricart/internal/nutrition"
)

// ProductsResponse is the body of GET /v1/products.
type ProductsResponse struct {
	Products []Listing `json:"products"`
	Diet     string    `json:"diet"`
}

// Handler serves the product listing.
type Handler struct {
	catalog  *Catalog
	profiles nutrition.ProfileSource
}

// NewHandler creates a handler. profiles may be nil.
func NewHandler(c *Catalog, profiles nutrition.ProfileSource) *Handler {
	return &Handler{catalog: c, profiles: profiles}
}

// HandleList handles GET /v1/products?diet=&allergies=a,b. Without either
// parameter the session profile's diet and allergies apply.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	diet := strings.ToLower(strings.TrimSpace(q.Get("diet")))
	var allergies []string
	if raw := q.Get("allergies"); raw != "" {
		allergies = strings.Split(raw, ",")
	}

	if !q.Has("diet") && !q.Has("allergies") && h.profiles != nil {
		if p, err := h.profiles.CurrentProfile(r.Context()); err == nil {
			diet, allergies = p.Diet, p.Allergies
		}
	}

	switch diet {
	case "":
		diet = nutrition.DietAny
	case nutrition.DietAny, nutrition.DietVegetarian, nutrition.DietNonVegetarian:
	default:
		writeError(w, http.StatusBadRequest, "invalid_diet", "diet must be any, vegetarian or non-vegetarian")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ProductsResponse{
		Products: h.catalog.List(diet, allergies),
		Diet:     diet,
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
