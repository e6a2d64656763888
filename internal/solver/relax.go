package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	simplexTol = 1e-10
	fixTol     = 1e-9
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

type lpSolution struct {
	status lpStatus
	obj    float64 // internal (minimization) objective
	x      []float64
}

// sparseRow is a <= row over free-variable positions: Σ coef·y <= rhs.
type sparseRow struct {
	pos  []int
	coef []float64
	rhs  float64
}

// relax solves the LP relaxation of the model restricted to lo <= x <= up.
//
// gonum's simplex wants min cᵀy, Ay = b, y >= 0, so every variable is
// shifted by its lower bound, fixed variables are substituted out and each
// row gets its own slack column, which keeps A at full row rank. Finite upper
// bounds become rows only once the LP violates them; a basic solution has few
// non-zero columns, so most bounds never enter the tableau.
func (m *Model) relax(cost, lo, up []float64) (lpSolution, error) {
	n := len(m.vars)
	x := make([]float64, n)
	copy(x, lo)

	pos := make([]int, n)
	free := make([]int, 0, n)
	for j := 0; j < n; j++ {
		if up[j] < lo[j]-fixTol {
			return lpSolution{status: lpInfeasible}, nil
		}
		if up[j]-lo[j] <= fixTol {
			pos[j] = -1
			continue
		}
		pos[j] = len(free)
		free = append(free, j)
	}

	base := make([]sparseRow, 0, len(m.rows)+4)
	used := make([]bool, len(free))
	for _, r := range m.rows {
		rhs := r.rhs
		var ps []int
		var cs []float64
		for _, t := range r.terms {
			rhs -= t.Coef * lo[t.Var]
			if p := pos[t.Var]; p >= 0 {
				ps = append(ps, p)
				cs = append(cs, t.Coef)
			}
		}

		if len(ps) == 0 {
			if !satisfied(0, r.op, rhs) {
				return lpSolution{status: lpInfeasible}, nil
			}
			continue
		}
		for _, p := range ps {
			used[p] = true
		}

		switch r.op {
		case LessEq:
			base = append(base, sparseRow{pos: ps, coef: cs, rhs: rhs})
		case GreaterEq:
			base = append(base, sparseRow{pos: ps, coef: negate(cs), rhs: -rhs})
		case Equal:
			base = append(base,
				sparseRow{pos: ps, coef: cs, rhs: rhs},
				sparseRow{pos: ps, coef: negate(cs), rhs: -rhs},
			)
		}
	}

	// Variables outside every row sit at whichever bound the objective prefers.
	col := make([]int, len(free))
	ncols := 0
	for p, j := range free {
		if used[p] {
			col[p] = ncols
			ncols++
			continue
		}
		col[p] = -1
		switch {
		case cost[j] < 0 && math.IsInf(up[j], 1):
			return lpSolution{status: lpUnbounded}, nil
		case cost[j] < 0:
			x[j] = up[j]
		default:
			x[j] = lo[j]
		}
	}

	if ncols > 0 {
		bounded := make([]bool, len(free))
		for {
			rows := make([]sparseRow, len(base), len(base)+len(free))
			copy(rows, base)
			for p, j := range free {
				if bounded[p] {
					rows = append(rows, sparseRow{pos: []int{p}, coef: []float64{1}, rhs: up[j] - lo[j]})
				}
			}

			y, status, err := solveStandard(rows, col, ncols, free, cost)
			if err != nil {
				return lpSolution{}, err
			}

			switch status {
			case lpInfeasible:
				return lpSolution{status: lpInfeasible}, nil
			case lpUnbounded:
				// The missing bounds may be what lets the LP run away.
				if !boundAll(free, used, bounded, up) {
					return lpSolution{status: lpUnbounded}, nil
				}
				continue
			}

			added := false
			for p, j := range free {
				if !used[p] || bounded[p] || math.IsInf(up[j], 1) {
					continue
				}
				width := up[j] - lo[j]
				if y[col[p]] > width+1e-7*math.Max(1, width) {
					bounded[p] = true
					added = true
				}
			}
			if added {
				continue
			}

			for p, j := range free {
				if used[p] {
					x[j] = clamp(lo[j]+y[col[p]], lo[j], up[j])
				}
			}
			break
		}
	}

	obj := 0.0
	for j, c := range cost {
		obj += c * x[j]
	}
	return lpSolution{status: lpOptimal, obj: obj, x: x}, nil
}

// solveStandard assembles [A | I] y = b from rows and runs the simplex.
// The returned slice holds the structural columns only.
func solveStandard(rows []sparseRow, col []int, ncols int, free []int, cost []float64) ([]float64, lpStatus, error) {
	mrows := len(rows)
	width := ncols + mrows

	A := mat.NewDense(mrows, width, nil)
	b := make([]float64, mrows)
	feasibleSlack := true
	for i, r := range rows {
		for k, p := range r.pos {
			A.Set(i, col[p], A.At(i, col[p])+r.coef[k])
		}
		A.Set(i, ncols+i, 1)
		b[i] = r.rhs
		if r.rhs < 0 {
			feasibleSlack = false
		}
	}

	c := make([]float64, width)
	for p, j := range free {
		if col[p] >= 0 {
			c[col[p]] = cost[j]
		}
	}

	var basic []int
	if feasibleSlack {
		basic = make([]int, mrows)
		for i := range basic {
			basic[i] = ncols + i
		}
	}

	y, err := runSimplex(c, A, b, basic)
	switch {
	case err == nil:
		return y[:ncols], lpOptimal, nil
	case errors.Is(err, lp.ErrInfeasible):
		return nil, lpInfeasible, nil
	case errors.Is(err, lp.ErrUnbounded):
		return nil, lpUnbounded, nil
	default:
		return nil, 0, fmt.Errorf("%w: %v", ErrNumeric, err)
	}
}

func runSimplex(c []float64, A mat.Matrix, b []float64, basic []int) (x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simplex panic: %v", r)
		}
	}()
	_, x, err = lp.Simplex(c, A, b, simplexTol, basic)
	return x, err
}

func boundAll(free []int, used, bounded []bool, up []float64) bool {
	added := false
	for p, j := range free {
		if used[p] && !bounded[p] && !math.IsInf(up[j], 1) {
			bounded[p] = true
			added = true
		}
	}
	return added
}

func satisfied(lhs float64, op Op, rhs float64) bool {
	tol := 1e-6 * math.Max(1, math.Abs(rhs))
	switch op {
	case LessEq:
		return lhs <= rhs+tol
	case GreaterEq:
		return lhs >= rhs-tol
	default:
		return math.Abs(lhs-rhs) <= tol
	}
}

func negate(cs []float64) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = -c
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
