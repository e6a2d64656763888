package suggest

import (
	"math"

	"github.com/fdg312/nutricart/internal/nutrition"
)

// Tolerance is the relative band around each target value that counts as met.
const Tolerance = 0.10

// State is the cart's standing against the target.
type State int

const (
	Satisfied State = iota
	Exceeded
	Deficient
)

func (s State) String() string {
	switch s {
	case Satisfied:
		return "satisfied"
	case Exceeded:
		return "exceeded"
	default:
		return "deficient"
	}
}

// Classify compares total cart nutrients with target.
//
// Satisfied: every nutrient within ±Tolerance of its target.
// Exceeded: no nutrient below the lower band and at least one above target.
// Deficient: everything else.
func Classify(total, target nutrition.Vector) State {
	within := true
	for i := range total {
		if math.Abs(total[i]-target[i]) > Tolerance*target[i] {
			within = false
			break
		}
	}
	if within {
		return Satisfied
	}

	above := false
	for i := range total {
		if total[i] < (1-Tolerance)*target[i] {
			return Deficient
		}
		if total[i] > target[i] {
			above = true
		}
	}
	if above {
		return Exceeded
	}
	return Deficient
}
