// Package profiles keeps user profiles in server-side sessions. A request
// finds its profile through the session id the auth middleware put in the
// context, never through shared global state.
package profiles

import (
	"context"
	"errors"

	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/fdg312/nutricart/internal/storage"
	"github.com/fdg312/nutricart/internal/userctx"
	"github.com/google/uuid"
)

var (
	ErrNoSession = errors.New("no session in request")
	ErrNotFound  = errors.New("session not found")
)

// Service содержит бизнес-логику сессий
type Service struct {
	storage storage.SessionsStorage
}

// NewService создаёт новый сервис
func NewService(st storage.SessionsStorage) *Service {
	return &Service{storage: st}
}

// Create validates the profile, checks that a target can be computed for it
// and stores a new session.
func (s *Service) Create(ctx context.Context, profile nutrition.UserProfile) (*SessionDTO, error) {
	profile, err := prepare(profile)
	if err != nil {
		return nil, err
	}

	session := toSession(uuid.New(), profile)
	if err := s.storage.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return toDTO(*session), nil
}

// Current returns the session of the request.
func (s *Service) Current(ctx context.Context) (*SessionDTO, error) {
	session, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return toDTO(*session), nil
}

// CurrentProfile returns the profile of the request's session.
func (s *Service) CurrentProfile(ctx context.Context) (nutrition.UserProfile, error) {
	session, err := s.current(ctx)
	if err != nil {
		return nutrition.UserProfile{}, err
	}
	return toProfile(*session), nil
}

// Update replaces the profile of the request's session.
func (s *Service) Update(ctx context.Context, profile nutrition.UserProfile) (*SessionDTO, error) {
	session, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	profile, err = prepare(profile)
	if err != nil {
		return nil, err
	}

	updated := toSession(session.ID, profile)
	if err := s.storage.UpdateSession(ctx, updated); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return toDTO(*updated), nil
}

// Delete ends the request's session.
func (s *Service) Delete(ctx context.Context) error {
	id, ok := userctx.SessionID(ctx)
	if !ok {
		return ErrNoSession
	}
	if err := s.storage.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) current(ctx context.Context) (*storage.Session, error) {
	id, ok := userctx.SessionID(ctx)
	if !ok {
		return nil, ErrNoSession
	}

	session, err := s.storage.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

func prepare(profile nutrition.UserProfile) (nutrition.UserProfile, error) {
	profile = profile.Normalize()
	if err := profile.Validate(); err != nil {
		return nutrition.UserProfile{}, err
	}
	if _, err := nutrition.ComputeTarget(profile); err != nil {
		return nutrition.UserProfile{}, err
	}
	return profile, nil
}

func toSession(id uuid.UUID, p nutrition.UserProfile) *storage.Session {
	return &storage.Session{
		ID:        id,
		Gender:    p.Gender,
		WeightKg:  p.WeightKg,
		HeightCm:  p.HeightCm,
		AgeYears:  p.AgeYears,
		Days:      p.Days,
		Diet:      p.Diet,
		Allergies: p.Allergies,
	}
}

func toProfile(s storage.Session) nutrition.UserProfile {
	return nutrition.UserProfile{
		Gender:    s.Gender,
		WeightKg:  s.WeightKg,
		HeightCm:  s.HeightCm,
		AgeYears:  s.AgeYears,
		Days:      s.Days,
		Diet:      s.Diet,
		Allergies: s.Allergies,
	}
}

// toDTO конвертирует storage.Session в SessionDTO
func toDTO(s storage.Session) *SessionDTO {
	profile := toProfile(s)
	dto := &SessionDTO{
		ID:        s.ID,
		Profile:   profile,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if target, err := nutrition.ComputeTarget(profile); err == nil {
		dto.Targets = target.Breakdown()
	}
	return dto
}
