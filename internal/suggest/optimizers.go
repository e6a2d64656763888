package suggest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fdg312/nutricart/internal/cart"
	"github.com/fdg312/nutricart/internal/catalog"
	"github.com/fdg312/nutricart/internal/metrics"
	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/fdg312/nutricart/internal/solver"
)

// removeProducts trims cart quantities so that no nutrient exceeds target,
// keeping as many units as possible. Any row whose kept quantity differs from
// the cart becomes a Remove item.
func (e *Engine) removeProducts(ctx context.Context, matrix []cart.Row, target nutrition.Vector) (items []Item, err error) {
	start := time.Now()
	nodes := -1
	defer func() {
		metrics.RecordOptimizer("remove", outcome(err), time.Since(start), nodes)
	}()

	p := e.opts.Solver()
	vars := make([]solver.Var, len(matrix))
	keep := make([]solver.Term, len(matrix))
	for i, row := range matrix {
		vars[i] = p.AddVariable(fmt.Sprintf("keep_%d", row.Code), 0, float64(row.Quantity), true)
		keep[i] = solver.Term{Var: vars[i], Coef: 1}
	}

	for n := 0; n < nutrition.Count; n++ {
		terms := make([]solver.Term, 0, len(matrix))
		for i, row := range matrix {
			terms = append(terms, solver.Term{Var: vars[i], Coef: row.Nutrients[n]})
		}
		p.AddConstraint(terms, solver.LessEq, target[n])
	}
	p.SetObjective(keep, solver.Maximize)

	res, err := p.Solve(ctx)
	nodes = res.Nodes
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: remove: %v", ErrOptimizationInfeasible, err)
	}
	if !res.Status.HasSolution() {
		return nil, fmt.Errorf("%w: remove: solver status %s", ErrOptimizationInfeasible, res.Status)
	}

	for i, row := range matrix {
		kept := int(math.Round(res.Value(vars[i])))
		if kept != row.Quantity {
			items = append(items, Item{Code: row.Code, Name: row.Name, Quantity: row.Quantity - kept})
		}
	}
	return items, nil
}

// addProducts looks for new products, at most one unit each, that bring every
// nutrient into the tolerance band while the cart's own quantities stay fixed.
// Attempt k draws min(SampleSize*k, pool) candidates at random; the search
// gives up after MaxAttempts or once an attempt has used the whole pool.
func (e *Engine) addProducts(ctx context.Context, agg cart.Aggregate, target nutrition.Vector, profile nutrition.UserProfile) (items []Item, err error) {
	start := time.Now()
	nodes := -1
	attempts := 0
	defer func() {
		metrics.RecordOptimizer("add", outcome(err), time.Since(start), nodes)
		if attempts > 0 {
			metrics.RecordAddAttempts(attempts)
		}
	}()

	// cart rows are already fixed in every program, so the pool holds only new codes
	var pool []catalog.Product
	for _, p := range e.catalog.Candidates(profile.Diet, profile.Allergies) {
		if !agg.Contains(p.Code) {
			pool = append(pool, p)
		}
	}
	if len(pool) == 0 {
		return nil, ErrEmptyCandidatePool
	}

	r := e.opts.Rand()
	for attempts < e.opts.MaxAttempts {
		attempts++
		n := min(e.opts.SampleSize*attempts, len(pool))

		idx := r.Perm(len(pool))[:n]
		sort.Ints(idx)
		sample := make([]catalog.Product, n)
		for i, j := range idx {
			sample[i] = pool[j]
		}

		found, ok, used, err := e.solveAdd(ctx, agg.Matrix, sample, target)
		nodes = max(nodes, 0) + used
		if err != nil {
			return nil, err
		}
		if ok {
			return found, nil
		}
		if n == len(pool) {
			break
		}
	}

	return nil, fmt.Errorf("%w: no addition found after %d attempts", ErrOptimizationInfeasible, attempts)
}

// solveAdd builds and solves one sampled program. ok is false when the
// program has no solution; err is only set for cancellation.
func (e *Engine) solveAdd(ctx context.Context, matrix []cart.Row, sample []catalog.Product, target nutrition.Vector) (items []Item, ok bool, nodes int, err error) {
	p := e.opts.Solver()

	type column struct {
		v         solver.Var
		nutrients nutrition.Vector
	}
	cols := make([]column, 0, len(matrix)+len(sample))
	for _, row := range matrix {
		qty := float64(row.Quantity)
		cols = append(cols, column{p.AddVariable(fmt.Sprintf("cart_%d", row.Code), qty, qty, true), row.Nutrients})
	}
	candidates := make([]solver.Var, len(sample))
	for i, prod := range sample {
		candidates[i] = p.AddVariable(fmt.Sprintf("add_%d", prod.Code), 0, 1, true)
		cols = append(cols, column{candidates[i], prod.Nutrients})
	}

	units := make([]solver.Term, len(cols))
	for i, c := range cols {
		units[i] = solver.Term{Var: c.v, Coef: 1}
	}
	for n := 0; n < nutrition.Count; n++ {
		terms := make([]solver.Term, len(cols))
		for i, c := range cols {
			terms[i] = solver.Term{Var: c.v, Coef: c.nutrients[n]}
		}
		p.AddConstraint(terms, solver.GreaterEq, (1-Tolerance)*target[n])
		p.AddConstraint(terms, solver.LessEq, (1+Tolerance)*target[n])
	}
	p.SetObjective(units, solver.Minimize)

	res, err := p.Solve(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, res.Nodes, err
		}
		// A numeric failure only loses this sample.
		return nil, false, res.Nodes, nil
	}
	if !res.Status.HasSolution() {
		return nil, false, res.Nodes, nil
	}

	for i, prod := range sample {
		if q := int(math.Round(res.Value(candidates[i]))); q != 0 {
			items = append(items, Item{Code: prod.Code, Name: prod.Name, Quantity: q})
		}
	}
	return items, true, res.Nodes, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyCandidatePool):
		return "empty_pool"
	case errors.Is(err, ErrOptimizationInfeasible):
		return "infeasible"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
