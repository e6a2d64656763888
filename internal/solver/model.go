package solver

import (
	"context"
	"fmt"
	"math"
)

const (
	defaultMaxNodes = 5000
	defaultIntTol   = 1e-6
)

// Options tune the branch-and-bound search.
type Options struct {
	MaxNodes int     // LP relaxations per Solve; default 5000
	IntTol   float64 // integrality tolerance; default 1e-6
}

func (o Options) withDefaults() Options {
	if o.MaxNodes <= 0 {
		o.MaxNodes = defaultMaxNodes
	}
	if o.IntTol <= 0 {
		o.IntTol = defaultIntTol
	}
	return o
}

type variable struct {
	name    string
	lower   float64
	upper   float64
	integer bool
}

type row struct {
	terms []Term
	op    Op
	rhs   float64
}

// Model is a branch-and-bound Problem backed by gonum's simplex solver.
type Model struct {
	opts      Options
	vars      []variable
	rows      []row
	objective []Term
	sense     Sense
	err       error
}

var _ Problem = (*Model)(nil)

// New creates an empty model.
func New(opts Options) *Model {
	return &Model{opts: opts.withDefaults()}
}

// NewFactory returns a Factory producing models with opts.
func NewFactory(opts Options) Factory {
	return func() Problem { return New(opts) }
}

func (m *Model) AddVariable(name string, lower, upper float64, integer bool) Var {
	if math.IsNaN(lower) || math.IsNaN(upper) || math.IsInf(lower, 0) || math.IsInf(upper, -1) {
		m.fail("variable %q: bounds [%v, %v] not supported", name, lower, upper)
	}
	if integer {
		lower = math.Ceil(lower - m.opts.IntTol)
		if !math.IsInf(upper, 1) {
			upper = math.Floor(upper + m.opts.IntTol)
		}
	}
	m.vars = append(m.vars, variable{name: name, lower: lower, upper: upper, integer: integer})
	return Var(len(m.vars) - 1)
}

func (m *Model) AddConstraint(terms []Term, op Op, rhs float64) {
	if op != LessEq && op != GreaterEq && op != Equal {
		m.fail("constraint: unknown op %v", op)
		return
	}
	if math.IsNaN(rhs) || math.IsInf(rhs, 0) {
		m.fail("constraint: rhs %v not supported", rhs)
		return
	}
	merged, ok := m.merge(terms)
	if !ok {
		return
	}
	m.rows = append(m.rows, row{terms: merged, op: op, rhs: rhs})
}

func (m *Model) SetObjective(terms []Term, sense Sense) {
	merged, ok := m.merge(terms)
	if !ok {
		return
	}
	m.objective = merged
	m.sense = sense
}

// merge sums duplicate variables and drops zero coefficients.
func (m *Model) merge(terms []Term) ([]Term, bool) {
	index := make(map[Var]int, len(terms))
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if int(t.Var) < 0 || int(t.Var) >= len(m.vars) {
			m.fail("term references unknown variable %d", t.Var)
			return nil, false
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			m.fail("term for %q has coefficient %v", m.vars[t.Var].name, t.Coef)
			return nil, false
		}
		if i, ok := index[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		index[t.Var] = len(out)
		out = append(out, t)
	}

	kept := out[:0]
	for _, t := range out {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	return kept, true
}

func (m *Model) fail(format string, v ...any) {
	if m.err == nil {
		m.err = fmt.Errorf("%w: "+format, append([]any{ErrInvalidModel}, v...)...)
	}
}

type node struct {
	lo, up []float64
}

func (nd node) withUpper(j int, v float64) node {
	up := append([]float64(nil), nd.up...)
	up[j] = v
	return node{lo: nd.lo, up: up}
}

func (nd node) withLower(j int, v float64) node {
	lo := append([]float64(nil), nd.lo...)
	lo[j] = v
	return node{lo: lo, up: nd.up}
}

// search holds the incumbent of one Solve call.
type search struct {
	m           *Model
	cost        []float64
	integralObj bool
	found       bool
	best        []float64
	bestObj     float64
}

// Solve runs depth-first branch and bound. The search stops early when
// MaxNodes relaxations have been solved or ctx is done; in the first case the
// best point found so far is returned with StatusFeasible, in the second ctx's
// error is returned.
func (m *Model) Solve(ctx context.Context) (Result, error) {
	if m.err != nil {
		return Result{}, m.err
	}

	n := len(m.vars)
	cost := make([]float64, n)
	for _, t := range m.objective {
		c := t.Coef
		if m.sense == Maximize {
			c = -c
		}
		cost[t.Var] += c
	}

	root := node{lo: make([]float64, n), up: make([]float64, n)}
	for j, v := range m.vars {
		root.lo[j] = v.lower
		root.up[j] = v.upper
	}

	s := &search{m: m, cost: cost, integralObj: m.integralObjective(cost), bestObj: math.Inf(1)}
	stack := []node{root}
	nodes := 0
	limited := false

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return Result{Nodes: nodes}, err
		}
		if nodes >= m.opts.MaxNodes {
			limited = true
			break
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		sol, err := m.relax(cost, nd.lo, nd.up)
		if err != nil {
			if nodes == 1 {
				return Result{Nodes: nodes}, err
			}
			// The subtree is dropped, so optimality is no longer proven.
			limited = true
			continue
		}

		switch sol.status {
		case lpInfeasible:
			continue
		case lpUnbounded:
			if nodes == 1 {
				return Result{Status: StatusUnbounded, Nodes: nodes}, nil
			}
			continue
		}

		if s.prune(sol.obj) {
			continue
		}

		j := m.branchVar(sol.x)
		if j < 0 {
			s.offer(m.roundIntegers(sol.x))
			continue
		}

		s.tryRoundings(sol.x)
		if s.prune(sol.obj) {
			continue
		}

		v := sol.x[j]
		f := math.Floor(v)
		down := nd.withUpper(j, f)
		up := nd.withLower(j, f+1)
		// The nearer branch is popped first.
		if v-f < 0.5 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	if !s.found {
		if limited {
			return Result{Status: StatusLimit, Nodes: nodes}, nil
		}
		return Result{Status: StatusInfeasible, Nodes: nodes}, nil
	}

	status := StatusOptimal
	if limited {
		status = StatusFeasible
	}

	obj := 0.0
	for _, t := range m.objective {
		obj += t.Coef * s.best[t.Var]
	}

	return Result{Status: status, Objective: obj, Values: s.best, Nodes: nodes}, nil
}

// integralObjective reports whether every feasible point has an integral
// objective, which allows rounding LP bounds up when pruning.
func (m *Model) integralObjective(cost []float64) bool {
	for j, c := range cost {
		if c == 0 {
			continue
		}
		if !m.vars[j].integer || c != math.Trunc(c) {
			return false
		}
	}
	return true
}

// branchVar returns the most fractional integer variable, or -1.
func (m *Model) branchVar(x []float64) int {
	best, bestDist := -1, m.opts.IntTol
	for j, v := range m.vars {
		if !v.integer {
			continue
		}
		frac := x[j] - math.Floor(x[j])
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			best, bestDist = j, dist
		}
	}
	return best
}

func (m *Model) roundIntegers(x []float64) []float64 {
	out := append([]float64(nil), x...)
	for j, v := range m.vars {
		if v.integer {
			out[j] = math.Round(out[j])
		}
	}
	return out
}

// feasible checks x against every bound and row.
func (m *Model) feasible(x []float64) bool {
	for j, v := range m.vars {
		tol := 1e-9 * math.Max(1, math.Abs(x[j]))
		if x[j] < v.lower-tol || x[j] > v.upper+tol {
			return false
		}
	}
	for _, r := range m.rows {
		lhs := 0.0
		for _, t := range r.terms {
			lhs += t.Coef * x[t.Var]
		}
		if !satisfied(lhs, r.op, r.rhs) {
			return false
		}
	}
	return true
}

func (s *search) objective(x []float64) float64 {
	obj := 0.0
	for j, c := range s.cost {
		obj += c * x[j]
	}
	return obj
}

func (s *search) prune(bound float64) bool {
	if !s.found {
		return false
	}
	if s.integralObj {
		return math.Ceil(bound-1e-6) >= s.bestObj-1e-9
	}
	return bound >= s.bestObj-1e-9*math.Max(1, math.Abs(s.bestObj))
}

func (s *search) offer(x []float64) {
	if !s.m.feasible(x) {
		return
	}
	if obj := s.objective(x); !s.found || obj < s.bestObj {
		s.found = true
		s.best = x
		s.bestObj = obj
	}
}

// tryRoundings offers the floor, nearest and ceiling roundings of an LP point.
func (s *search) tryRoundings(x []float64) {
	for _, round := range []func(float64) float64{math.Floor, math.Round, math.Ceil} {
		cand := append([]float64(nil), x...)
		for j, v := range s.m.vars {
			if v.integer {
				cand[j] = clamp(round(cand[j]), v.lower, v.upper)
			}
		}
		s.offer(cand)
	}
}
