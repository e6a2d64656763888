package nutrition

import (
	"fmt"
	"strings"
)

const (
	// sedentaryActivity converts BMR into daily energy needs.
	sedentaryActivity = 1.2

	fatPerKg     = 0.4
	proteinPerKg = 1.2

	kcalPerGramFat     = 9
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4

	dailyCholesterolMg = 300
	dailySugarsG       = 30
)

// BMR returns the basal metabolic rate (Harris-Benedict) for the profile.
func BMR(p UserProfile) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(p.Gender)) {
	case GenderMale:
		return 66.5 + 13.75*p.WeightKg + 5*p.HeightCm - 6.75*float64(p.AgeYears), nil
	case GenderFemale:
		return 655 + 9.56*p.WeightKg + 1.85*p.HeightCm - 4.68*float64(p.AgeYears), nil
	default:
		return 0, fmt.Errorf("%w: gender %q", ErrUnsupportedProfile, p.Gender)
	}
}

// Daily returns the one-day nutrient target for the profile. Besides an
// unknown gender, a profile whose fat and protein needs leave a negative
// carbohydrate target is reported as ErrUnsupportedProfile.
func Daily(p UserProfile) (Vector, error) {
	bmr, err := BMR(p)
	if err != nil {
		return Vector{}, err
	}

	calories := bmr * sedentaryActivity
	fats := fatPerKg * p.WeightKg
	proteins := proteinPerKg * p.WeightKg
	carbs := (calories - kcalPerGramFat*fats - kcalPerGramProtein*proteins) / kcalPerGramCarbs
	if carbs < 0 {
		return Vector{}, fmt.Errorf("%w: fat and protein needs exceed energy needs", ErrUnsupportedProfile)
	}

	var v Vector
	v[Proteins] = proteins
	v[Fats] = fats
	v[Carbohydrates] = carbs
	v[Calories] = calories
	v[Cholesterol] = dailyCholesterolMg
	v[Sugars] = dailySugarsG
	return v, nil
}

// ComputeTarget returns the nutrient target for the whole plan, i.e. the
// daily target scaled by the profile's plan days. The result keeps full
// precision; use Vector.Breakdown for display.
func ComputeTarget(p UserProfile) (Vector, error) {
	daily, err := Daily(p)
	if err != nil {
		return Vector{}, err
	}
	return daily.Scale(float64(p.Days)), nil
}
