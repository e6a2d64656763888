package solver

import (
	"context"
	"errors"
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Abs(b))
}

func TestKnapsack(t *testing.T) {
	weights := []float64{12, 2, 1, 1, 4}
	values := []float64{4, 2, 1, 2, 10}

	m := New(Options{})
	var weightTerms, valueTerms []Term
	for i := range weights {
		v := m.AddVariable("item", 0, 1, true)
		weightTerms = append(weightTerms, Term{Var: v, Coef: weights[i]})
		valueTerms = append(valueTerms, Term{Var: v, Coef: values[i]})
	}
	m.AddConstraint(weightTerms, LessEq, 15)
	m.SetObjective(valueTerms, Maximize)

	res, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", res.Status)
	}
	if !near(res.Objective, 15) {
		t.Fatalf("expected objective 15, got %v", res.Objective)
	}

	weight := 0.0
	for i, w := range weights {
		x := res.Value(Var(i))
		if x != 0 && x != 1 {
			t.Fatalf("item %d: expected binary value, got %v", i, x)
		}
		weight += w * x
	}
	if weight > 15 {
		t.Fatalf("capacity exceeded: %v", weight)
	}
}

func TestIntegerRounding(t *testing.T) {
	m := New(Options{})
	x := m.AddVariable("x", 0, math.Inf(1), true)
	y := m.AddVariable("y", 0, math.Inf(1), true)
	m.AddConstraint([]Term{{x, 2}, {y, 2}}, LessEq, 3)
	m.SetObjective([]Term{{x, 1}, {y, 1}}, Maximize)

	res, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusOptimal || !near(res.Objective, 1) {
		t.Fatalf("expected optimal objective 1, got %s %v", res.Status, res.Objective)
	}
}

func TestContinuousEquality(t *testing.T) {
	m := New(Options{})
	x := m.AddVariable("x", 0, math.Inf(1), false)
	y := m.AddVariable("y", 0, math.Inf(1), false)
	m.AddConstraint([]Term{{x, 1}, {y, 1}}, Equal, 4)
	m.AddConstraint([]Term{{x, 1}, {y, -1}}, Equal, 2)
	m.SetObjective([]Term{{x, 1}, {y, 1}}, Minimize)

	res, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Status.HasSolution() {
		t.Fatalf("expected a solution, got %s", res.Status)
	}
	if !near(res.Value(x), 3) || !near(res.Value(y), 1) {
		t.Fatalf("expected (3, 1), got (%v, %v)", res.Value(x), res.Value(y))
	}
}

func TestFixedVariable(t *testing.T) {
	m := New(Options{})
	x := m.AddVariable("x", 3, 3, true)
	y := m.AddVariable("y", 0, 10, true)
	m.AddConstraint([]Term{{x, 1}, {y, 1}}, GreaterEq, 5)
	m.SetObjective([]Term{{x, 1}, {y, 1}}, Minimize)

	res, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value(x) != 3 || res.Value(y) != 2 {
		t.Fatalf("expected x=3 y=2, got x=%v y=%v", res.Value(x), res.Value(y))
	}
	if !near(res.Objective, 5) {
		t.Fatalf("expected objective 5, got %v", res.Objective)
	}
}

func TestUpperBoundsRespected(t *testing.T) {
	m := New(Options{})
	var terms []Term
	for i := 0; i < 4; i++ {
		terms = append(terms, Term{Var: m.AddVariable("q", 0, 2, true), Coef: 1})
	}
	m.AddConstraint(terms, LessEq, 100)
	m.SetObjective(terms, Maximize)

	res, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(res.Objective, 8) {
		t.Fatalf("expected every variable at its bound (8), got %v", res.Objective)
	}
	for i := range terms {
		if res.Value(Var(i)) != 2 {
			t.Fatalf("var %d: expected 2, got %v", i, res.Value(Var(i)))
		}
	}
}

func TestInfeasible(t *testing.T) {
	m := New(Options{})
	x := m.AddVariable("x", 0, 10, false)
	m.AddConstraint([]Term{{x, 1}}, GreaterEq, 2)
	m.AddConstraint([]Term{{x, 1}}, LessEq, 1)
	m.SetObjective([]Term{{x, 1}}, Minimize)

	res, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusInfeasible {
		t.Fatalf("expected infeasible, got %s", res.Status)
	}
}

func TestIntegerInfeasible(t *testing.T) {
	m := New(Options{})
	x := m.AddVariable("x", 0, 5, true)
	m.AddConstraint([]Term{{x, 2}}, Equal, 1)
	m.SetObjective([]Term{{x, 1}}, Minimize)

	res, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusInfeasible {
		t.Fatalf("expected infeasible, got %s", res.Status)
	}
}

func TestNodeLimit(t *testing.T) {
	m := New(Options{MaxNodes: 1})
	x := m.AddVariable("x", 0, 5, true)
	m.AddConstraint([]Term{{x, 2}}, Equal, 1)
	m.SetObjective([]Term{{x, 1}}, Minimize)

	res, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusLimit {
		t.Fatalf("expected limit, got %s", res.Status)
	}
	if res.Nodes != 1 {
		t.Fatalf("expected 1 node, got %d", res.Nodes)
	}
}

func TestUnbounded(t *testing.T) {
	t.Run("free column", func(t *testing.T) {
		m := New(Options{})
		x := m.AddVariable("x", 0, math.Inf(1), false)
		m.SetObjective([]Term{{x, 1}}, Maximize)

		res, err := m.Solve(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != StatusUnbounded {
			t.Fatalf("expected unbounded, got %s", res.Status)
		}
	})

	t.Run("ray", func(t *testing.T) {
		m := New(Options{})
		x := m.AddVariable("x", 0, math.Inf(1), false)
		y := m.AddVariable("y", 0, math.Inf(1), false)
		m.AddConstraint([]Term{{x, 1}, {y, -1}}, LessEq, 1)
		m.SetObjective([]Term{{x, 1}}, Maximize)

		res, err := m.Solve(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != StatusUnbounded {
			t.Fatalf("expected unbounded, got %s", res.Status)
		}
	})
}

func TestCanceledContext(t *testing.T) {
	m := New(Options{})
	x := m.AddVariable("x", 0, 1, true)
	m.SetObjective([]Term{{x, 1}}, Maximize)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Solve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestInvalidModel(t *testing.T) {
	m := New(Options{})
	m.AddVariable("x", 0, 1, true)
	m.AddConstraint([]Term{{Var(7), 1}}, LessEq, 1)

	if _, err := m.Solve(context.Background()); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}

	m = New(Options{})
	m.AddVariable("y", math.Inf(-1), 1, false)
	if _, err := m.Solve(context.Background()); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel for unbounded lower, got %v", err)
	}
}

func TestDuplicateTermsMerged(t *testing.T) {
	m := New(Options{})
	x := m.AddVariable("x", 0, 10, true)
	// 2x <= 7 written as x + x
	m.AddConstraint([]Term{{x, 1}, {x, 1}}, LessEq, 7)
	m.SetObjective([]Term{{x, 1}}, Maximize)

	res, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value(x) != 3 {
		t.Fatalf("expected x=3, got %v", res.Value(x))
	}
}

func TestFactoryBuildsIndependentModels(t *testing.T) {
	factory := NewFactory(Options{MaxNodes: 10})
	a, b := factory(), factory()
	a.AddVariable("x", 0, 1, true)

	if got := len(b.(*Model).vars); got != 0 {
		t.Fatalf("models share state: %d vars", got)
	}
}
