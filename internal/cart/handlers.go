package cart

import (
	"encoding/json"
	"net/http"

	"github.com/fdg312/nutricart/internal/nutrition"
)

// ItemsRequest is the wire form of a cart.
type ItemsRequest struct {
	Items map[string]int `json:"items"`
}

// NutrientsResponse is the response for POST /v1/cart/nutrients.
type NutrientsResponse struct {
	Nutrients    nutrition.Breakdown `json:"nutrients"`
	Items        []ItemDTO           `json:"items"`
	UnknownCodes []int               `json:"unknown_codes"`
}

type ItemDTO struct {
	Code      int                 `json:"code"`
	Name      string              `json:"name"`
	Quantity  int                 `json:"quantity"`
	Nutrients nutrition.Breakdown `json:"nutrients"`
}

// Handler handles HTTP requests for cart aggregation.
type Handler struct {
	products Lookup
}

func NewHandler(products Lookup) *Handler {
	return &Handler{products: products}
}

// HandleNutrients handles POST /v1/cart/nutrients
func (h *Handler) HandleNutrients(w http.ResponseWriter, r *http.Request) {
	var req ItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	c, err := Parse(req.Items)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_cart", err.Error())
		return
	}

	agg := Build(c, h.products)

	resp := NutrientsResponse{
		Nutrients:    agg.Total.Breakdown(),
		Items:        make([]ItemDTO, len(agg.Matrix)),
		UnknownCodes: agg.Unknown,
	}
	if resp.UnknownCodes == nil {
		resp.UnknownCodes = []int{}
	}
	for i, row := range agg.Matrix {
		resp.Items[i] = ItemDTO{
			Code:      row.Code,
			Name:      row.Name,
			Quantity:  row.Quantity,
			Nutrients: row.Nutrients.Scale(float64(row.Quantity)).Breakdown(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
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
