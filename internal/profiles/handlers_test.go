package profiles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/nutricart/internal/auth"
	"github.com/fdg312/nutricart/internal/config"
	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/fdg312/nutricart/internal/storage/memory"
	"github.com/google/uuid"
)

const profileBody = `{"gender":"Male","weight":70,"height":175,"age":30,"days":1,"diet":"Vegetarian","allergies":[" Peanut ","milk","peanut"]}`

func setup() (*Service, *Handler, *auth.Service) {
	store := memory.New()
	service := NewService(store)
	tokens := auth.NewService(&config.Config{JWTSecret: "test", JWTIssuer: "nutricart-test", JWTTTLMinutes: 60})
	return service, NewHandler(service, tokens), tokens
}

func withSession(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(auth.WithSessionID(r.Context(), id))
}

func TestHandleCreate(t *testing.T) {
	service, handler, tokens := setup()

	req := httptest.NewRequest(http.MethodPost, "/v1/session", bytes.NewBufferString(profileBody))
	w := httptest.NewRecorder()
	handler.HandleCreate(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp CreateSessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.AccessToken == "" {
		t.Fatalf("expected a bearer token, got %+v", resp)
	}
	if resp.Targets.Calories != 2041.8 || resp.Targets.Carbohydrates != 363.45 {
		t.Errorf("unexpected targets: %+v", resp.Targets)
	}

	id, err := tokens.VerifyJWT(resp.AccessToken)
	if err != nil || id != resp.SessionID {
		t.Fatalf("token does not address the session: %v %s", err, id)
	}

	profile, err := service.CurrentProfile(auth.WithSessionID(context.Background(), id))
	if err != nil {
		t.Fatalf("CurrentProfile: %v", err)
	}
	if profile.Gender != "male" || profile.Diet != nutrition.DietVegetarian {
		t.Errorf("profile not normalized: %+v", profile)
	}
	if len(profile.Allergies) != 2 || profile.Allergies[0] != "milk" || profile.Allergies[1] != "peanut" {
		t.Errorf("allergies not normalized: %v", profile.Allergies)
	}
}

func TestHandleCreateErrors(t *testing.T) {
	_, handler, _ := setup()

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{`, http.StatusBadRequest, "invalid_json"},
		{"bad weight", `{"gender":"male","weight":0,"height":175,"age":30,"days":1}`, http.StatusBadRequest, "invalid_profile"},
		{"bad diet", `{"gender":"male","weight":70,"height":175,"age":30,"days":1,"diet":"keto"}`, http.StatusBadRequest, "invalid_profile"},
		{"unsupported gender", `{"gender":"x","weight":70,"height":175,"age":30,"days":1}`, http.StatusUnprocessableEntity, "unsupported_profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/session", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.HandleCreate(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			var resp ErrorResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Error.Code != tt.code {
				t.Errorf("expected error code %q, got %q", tt.code, resp.Error.Code)
			}
		})
	}
}

func TestHandleGetAndUpdate(t *testing.T) {
	service, handler, _ := setup()

	var profile nutrition.UserProfile
	json.Unmarshal([]byte(profileBody), &profile)
	created, err := service.Create(context.Background(), profile)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := withSession(httptest.NewRequest(http.MethodGet, "/v1/session", nil), created.ID)
	w := httptest.NewRecorder()
	handler.HandleGet(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var got SessionDTO
	json.NewDecoder(w.Body).Decode(&got)
	if got.ID != created.ID || got.Profile.WeightKg != 70 {
		t.Fatalf("unexpected session: %+v", got)
	}

	update := `{"gender":"female","weight":60,"height":165,"age":40,"days":7,"diet":"any"}`
	req = withSession(httptest.NewRequest(http.MethodPut, "/v1/session", bytes.NewBufferString(update)), created.ID)
	w = httptest.NewRecorder()
	handler.HandleUpdate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	json.NewDecoder(w.Body).Decode(&got)
	if got.Profile.Gender != "female" || got.Profile.Days != 7 || len(got.Profile.Allergies) != 0 {
		t.Fatalf("update not applied: %+v", got.Profile)
	}
}

func TestHandleWithoutSession(t *testing.T) {
	_, handler, _ := setup()

	w := httptest.NewRecorder()
	handler.HandleGet(w, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.HandleGet(w, withSession(httptest.NewRequest(http.MethodGet, "/v1/session", nil), uuid.New()))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown session, got %d", w.Code)
	}
}

func TestHandleDelete(t *testing.T) {
	service, handler, _ := setup()

	var profile nutrition.UserProfile
	json.Unmarshal([]byte(profileBody), &profile)
	created, _ := service.Create(context.Background(), profile)

	req := withSession(httptest.NewRequest(http.MethodDelete, "/v1/session", nil), created.ID)
	w := httptest.NewRecorder()
	handler.HandleDelete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}

	// Проверяем, что сессия удалена
	_, err := service.CurrentProfile(auth.WithSessionID(context.Background(), created.ID))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected session to be deleted, got %v", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	service, _, _ := setup()

	a, _ := service.Create(context.Background(), nutrition.UserProfile{Gender: "male", WeightKg: 80, HeightCm: 180, AgeYears: 30, Days: 1})
	b, _ := service.Create(context.Background(), nutrition.UserProfile{Gender: "female", WeightKg: 55, HeightCm: 160, AgeYears: 25, Days: 3})

	pa, _ := service.CurrentProfile(auth.WithSessionID(context.Background(), a.ID))
	pb, _ := service.CurrentProfile(auth.WithSessionID(context.Background(), b.ID))
	if pa.Gender != "male" || pb.Gender != "female" || pb.Days != 3 {
		t.Fatalf("sessions leaked into each other: %+v %+v", pa, pb)
	}
}
