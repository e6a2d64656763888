package nutrition

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnsupportedProfile means no target can be derived for the profile,
	// e.g. the gender is neither male nor female.
	ErrUnsupportedProfile = errors.New("unsupported profile")
	ErrInvalidProfile     = errors.New("invalid profile")
)

const (
	GenderMale   = "male"
	GenderFemale = "female"

	DietAny           = "any"
	DietVegetarian    = "vegetarian"
	DietNonVegetarian = "non-vegetarian"
)

// UserProfile is the physiological and dietary input of a recommendation.
type UserProfile struct {
	Gender    string   `json:"gender"`
	WeightKg  float64  `json:"weight" validate:"gt=0,lte=500"`
	HeightCm  float64  `json:"height" validate:"gt=0,lte=300"`
	AgeYears  int      `json:"age" validate:"gte=1,lte=150"`
	Days      int      `json:"days" validate:"gte=1,lte=365"`
	Diet      string   `json:"diet" validate:"omitempty,oneof=any vegetarian non-vegetarian"`
	Allergies []string `json:"allergies" validate:"max=50,dive,max=80"`
}

// Normalize lowercases gender and diet, defaults an empty diet to "any" and
// reduces allergies to a sorted set of lowercase, trimmed, non-empty words.
func (p UserProfile) Normalize() UserProfile {
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	p.Diet = strings.ToLower(strings.TrimSpace(p.Diet))
	if p.Diet == "" {
		p.Diet = DietAny
	}
	p.Allergies = NormalizeAllergies(p.Allergies)
	return p
}

// Validate checks numeric ranges and the diet value. Gender is checked by
// ComputeTarget, which reports ErrUnsupportedProfile instead.
func (p UserProfile) Validate() error {
	err := getValidator().Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%w: %s must be one of: %s", ErrInvalidProfile, fe.Field(), fe.Param())
	case "gt":
		return fmt.Errorf("%w: %s must be greater than %s", ErrInvalidProfile, fe.Field(), fe.Param())
	case "gte":
		return fmt.Errorf("%w: %s must be at least %s", ErrInvalidProfile, fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Errorf("%w: %s must be at most %s", ErrInvalidProfile, fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%w: %s failed %s validation", ErrInvalidProfile, fe.Field(), fe.Tag())
	}
}

// NormalizeAllergies lowercases and trims every entry and drops empty and
// duplicate entries.
func NormalizeAllergies(allergies []string) []string {
	seen := make(map[string]struct{}, len(allergies))
	out := make([]string, 0, len(allergies))
	for _, a := range allergies {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// TargetsResponse is the response for GET/POST /v1/nutrition/targets.
type TargetsResponse struct {
	Targets Breakdown `json:"targets"`
	Days    int       `json:"days"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}
