package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/nutricart/internal/nutrition"
)

type stubProfiles struct {
	profile nutrition.UserProfile
	err     error
}

func (s stubProfiles) CurrentProfile(ctx context.Context) (nutrition.UserProfile, error) {
	return s.profile, s.err
}

func listCodes(t *testing.T, h *Handler, target string) (int, []int) {
	t.Helper()
	w := httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, target, nil))
	if w.Code != http.StatusOK {
		return w.Code, nil
	}
	var resp ProductsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	codes := make([]int, len(resp.Products))
	for i, p := range resp.Products {
		codes[i] = p.Code
	}
	return w.Code, codes
}

func equalCodes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHandleList(t *testing.T) {
	c, _ := New(sampleProducts())
	session := stubProfiles{profile: nutrition.UserProfile{Diet: nutrition.DietNonVegetarian, Allergies: []string{"water"}}}

	tests := []struct {
		name     string
		profiles nutrition.ProfileSource
		target   string
		want     []int
	}{
		{"everything", nil, "/v1/products", []int{10, 20, 30, 40}},
		{"query filters", nil, "/v1/products?diet=Vegetarian&allergies=peanut,%20", []int{10, 40}},
		{"session fallback", session, "/v1/products", []int{20}},
		{"query beats session", session, "/v1/products?diet=any", []int{10, 20, 30, 40}},
		{"no session", stubProfiles{err: errors.New("no session")}, "/v1/products", []int{10, 20, 30, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, codes := listCodes(t, NewHandler(c, tt.profiles), tt.target)
			if status != http.StatusOK {
				t.Fatalf("expected status 200, got %d", status)
			}
			if !equalCodes(codes, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, codes)
			}
		})
	}
}

func TestHandleListInvalidDiet(t *testing.T) {
	c, _ := New(sampleProducts())
	status, _ := listCodes(t, NewHandler(c, nil), "/v1/products?diet=keto")
	if status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", status)
	}
}
