// Package solver builds and solves small mixed-integer linear programs.
//
// Callers describe a program through the Problem interface and never touch
// the backend. Model is the default backend: depth-first branch and bound
// over LP relaxations solved with gonum's simplex implementation.
package solver

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidModel = errors.New("invalid model")
	ErrNumeric      = errors.New("numeric failure in LP relaxation")
)

// Sense is the optimization direction.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// Op is a constraint comparison.
type Op int

const (
	LessEq Op = iota
	GreaterEq
	Equal
)

func (o Op) String() string {
	switch o {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "=="
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Var identifies a decision variable inside the Problem that created it.
type Var int

// Term is coef·var.
type Term struct {
	Var  Var
	Coef float64
}

// Status is the outcome of Solve.
type Status int

const (
	// StatusOptimal means the returned point is proven optimal.
	StatusOptimal Status = iota
	// StatusFeasible means a limit stopped the search after an incumbent was found.
	StatusFeasible
	StatusInfeasible
	StatusUnbounded
	// StatusLimit means a limit stopped the search before any incumbent was found.
	StatusLimit
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusLimit:
		return "limit"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// HasSolution reports whether Values holds a feasible point.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Result of a solve. Values is indexed by Var and is only meaningful when
// Status.HasSolution() is true. Integer variables hold exact integers.
type Result struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
}

// Value returns the value of v, or 0 when there is no solution.
func (r Result) Value(v Var) float64 {
	if int(v) < 0 || int(v) >= len(r.Values) {
		return 0
	}
	return r.Values[v]
}

// Problem is a mixed-integer linear program under construction. A Problem is
// owned by one goroutine; build a new one per solve.
type Problem interface {
	// AddVariable adds a variable with lower <= x <= upper. Lower must be
	// finite; upper may be math.Inf(1).
	AddVariable(name string, lower, upper float64, integer bool) Var
	AddConstraint(terms []Term, op Op, rhs float64)
	SetObjective(terms []Term, sense Sense)
	Solve(ctx context.Context) (Result, error)
}

// Factory creates an empty Problem.
type Factory func() Problem
