package nutrition

import "math"

// Positions of the tracked nutrients inside a Vector. Every vector and matrix
// row in the service uses this order.
const (
	Proteins = iota
	Fats
	Carbohydrates
	Calories
	Cholesterol
	Sugars

	Count
)

// Names are the display names of the nutrients, indexed like Vector.
var Names = [Count]string{"Proteins", "Fats", "Carbohydrates", "Calories", "Cholesterol", "Sugars"}

// Vector holds one value per tracked nutrient.
type Vector [Count]float64

// Add returns the elementwise sum of v and o.
func (v Vector) Add(o Vector) Vector {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

// Scale returns v multiplied by k.
func (v Vector) Scale(k float64) Vector {
	for i := range v {
		v[i] *= k
	}
	return v
}

// Breakdown returns the display form of v, rounded to two decimals.
func (v Vector) Breakdown() Breakdown {
	return Breakdown{
		Proteins:      round2(v[Proteins]),
		Fats:          round2(v[Fats]),
		Carbohydrates: round2(v[Carbohydrates]),
		Calories:      round2(v[Calories]),
		Cholesterol:   round2(v[Cholesterol]),
		Sugars:        round2(v[Sugars]),
	}
}

// Breakdown is the human-readable form of a Vector.
type Breakdown struct {
	Proteins      float64 `json:"Proteins"`
	Fats          float64 `json:"Fats"`
	Carbohydrates float64 `json:"Carbohydrates"`
	Calories      float64 `json:"Calories"`
	Cholesterol   float64 `json:"Cholesterol"`
	Sugars        float64 `json:"Sugars"`
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
