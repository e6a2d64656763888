// Package suggest decides how a cart should change to meet a nutrient target
// and computes the change with small integer programs.
package suggest

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/fdg312/nutricart/internal/cart"
	"github.com/fdg312/nutricart/internal/catalog"
	"github.com/fdg312/nutricart/internal/metrics"
	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/fdg312/nutricart/internal/solver"
)

const (
	DefaultSampleSize  = 200
	DefaultMaxAttempts = 5
)

// Catalog is what the engine needs from the product catalog.
type Catalog interface {
	cart.Lookup
	Candidates(diet string, allergies []string) []catalog.Product
}

// Options configure an Engine. Zero values take defaults.
type Options struct {
	SampleSize  int
	MaxAttempts int
	// Rand returns the random source for one addition search. It is called
	// once per search; the returned source is not shared.
	Rand   func() *rand.Rand
	Solver solver.Factory
}

// SeededRand returns a Rand option that replays the same sequence on every
// call.
func SeededRand(seed uint64) func() *rand.Rand {
	return func() *rand.Rand {
		return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func randomRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (o Options) withDefaults() Options {
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Rand == nil {
		o.Rand = randomRand
	}
	if o.Solver == nil {
		o.Solver = solver.NewFactory(solver.Options{})
	}
	return o
}

// Engine computes suggestions. It is safe for concurrent use: every call
// builds its own programs and random source.
type Engine struct {
	catalog Catalog
	opts    Options
}

// NewEngine creates an engine over an immutable catalog.
func NewEngine(c Catalog, opts Options) *Engine {
	return &Engine{catalog: c, opts: opts.withDefaults()}
}

// Evaluation is a suggestion together with the figures behind it.
type Evaluation struct {
	Suggestion Suggestion
	State      State
	Target     nutrition.Vector
	Aggregate  cart.Aggregate
}

// Suggest returns the change c needs to meet the profile's target.
func (e *Engine) Suggest(ctx context.Context, c cart.Cart, profile nutrition.UserProfile) (Suggestion, error) {
	ev, err := e.Evaluate(ctx, c, profile)
	if err != nil {
		return Suggestion{}, err
	}
	return ev.Suggestion, nil
}

// Evaluate classifies c against the profile's target and runs the matching
// optimizer. An addition that proves infeasible falls back to removal.
func (e *Engine) Evaluate(ctx context.Context, c cart.Cart, profile nutrition.UserProfile) (Evaluation, error) {
	target, err := nutrition.ComputeTarget(profile)
	if err != nil {
		metrics.RecordSuggestionError("unsupported_profile")
		return Evaluation{}, err
	}

	agg := cart.Build(c, e.catalog)
	ev := Evaluation{
		State:     Classify(agg.Total, target),
		Target:    target,
		Aggregate: agg,
	}

	switch ev.State {
	case Satisfied:
		ev.Suggestion = newSuggestion(KindNone, nil)

	case Exceeded:
		items, err := e.removeProducts(ctx, agg.Matrix, target)
		if err != nil {
			return Evaluation{}, e.failed(err)
		}
		ev.Suggestion = newSuggestion(KindRemove, items)

	case Deficient:
		items, err := e.addProducts(ctx, agg, target, profile)
		if err == nil {
			ev.Suggestion = newSuggestion(KindAdd, items)
			break
		}
		if !errors.Is(err, ErrOptimizationInfeasible) {
			return Evaluation{}, e.failed(err)
		}

		items, err = e.removeProducts(ctx, agg.Matrix, target)
		if err != nil {
			return Evaluation{}, e.failed(err)
		}
		ev.Suggestion = newSuggestion(KindRemove, items)
	}

	metrics.RecordSuggestion(ev.State.String(), string(ev.Suggestion.Kind))
	return ev, nil
}

func (e *Engine) failed(err error) error {
	metrics.RecordSuggestionError(outcome(err))
	return err
}
