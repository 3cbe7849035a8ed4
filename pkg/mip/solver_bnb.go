package mip

import (
	"context"
	"math"
	"slices"
)

const bnbBackend = "bnb"

type bnbSolver struct {
	rootIterations int
	nodeIterations int
}

// NewBranchAndBoundSolver returns an in-process backend for binary models. Rows of the form "exactly one of these
// variables" that share no variable are kept as is, while every other row is priced into the costs with a Lagrange
// multiplier. The bound of each node comes from a few subgradient steps on those multipliers, and greedy dives on the
// priced costs supply the incumbents
func NewBranchAndBoundSolver() Solver {
	return &bnbSolver{rootIterations: 300, nodeIterations: 30}
}

func (solver *bnbSolver) Backend() string {
	return bnbBackend
}

func (solver *bnbSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return contextFailure(bnbBackend, err)
	}
	if err := model.Validate(); err != nil {
		return failure(bnbBackend, err)
	}

	reduction, feasible := presolve(model)
	if !feasible {
		return Solution{Status: Infeasible}, nil
	}

	s := newSearch(ctx, reduction.model, solver.nodeIterations)
	s.run(solver.rootIterations)
	if s.err != nil {
		return contextFailure(bnbBackend, s.err)
	} else if s.incumbent == nil {
		return Solution{Status: Infeasible}, nil
	}

	values := reduction.expand(s.incumbent)
	return Solution{Status: Optimal, Objective: model.Evaluate(values), Values: values}, nil
}

type search struct {
	*propagator
	ctx context.Context
	err error

	costs    []float64
	integral bool
	// cover holds disjoint "exactly one of" rows, solved directly by the subproblem
	cover [][]int
	// relaxed holds the rows priced with a multiplier
	relaxed []int
	// loose holds the variables outside every cover row
	loose []int

	nodeIterations int

	best      float64
	incumbent []float64

	// Scratch space of the bound computation
	reduced   []float64
	branching []float64
	gradient  []float64
	subset    []float64
	candidate []float64
}

func newSearch(ctx context.Context, model *Model, nodeIterations int) *search {
	variables := len(model.Variables)
	s := &search{
		ctx:            ctx,
		costs:          make([]float64, variables),
		integral:       true,
		nodeIterations: nodeIterations,
		reduced:        make([]float64, variables),
		branching:      make([]float64, variables),
		subset:         make([]float64, variables),
		candidate:      make([]float64, variables),
	}
	for _, term := range model.Objective {
		s.costs[term.Var] += term.Coef
	}
	for _, cost := range s.costs {
		if cost != math.Trunc(cost) {
			s.integral = false
		}
	}

	claimed := make([]bool, variables)
	rows := make([]row, 0, len(model.Constraints))
	for _, constraint := range model.Constraints {
		split := lessEqRows(constraint)
		isCover := constraint.Sense == Eq && constraint.RHS == 1 && len(split[0].terms) > 0 &&
			!slices.ContainsFunc(split[0].terms, func(term Term) bool { return term.Coef != 1 || claimed[term.Var] })
		if isCover {
			members := make([]int, len(split[0].terms))
			for i, term := range split[0].terms {
				members[i] = term.Var
				claimed[term.Var] = true
			}
			s.cover = append(s.cover, members)
		}
		for _, r := range split {
			if !isCover {
				s.relaxed = append(s.relaxed, len(rows))
			}
			rows = append(rows, r)
		}
	}
	for variable := range variables {
		if !claimed[variable] {
			s.loose = append(s.loose, variable)
		}
	}

	s.propagator = newPropagator(variables, rows)
	s.gradient = make([]float64, len(s.relaxed))
	return s
}

func (s *search) run(rootIterations int) {
	if !s.propagateAll() {
		return
	}
	s.explore(make([]float64, len(s.relaxed)), rootIterations)
}

func (s *search) stopped() bool {
	if s.err == nil {
		s.err = s.ctx.Err()
	}
	return s.err != nil
}

// explore bounds the current node and, unless it is pruned, branches on the cheapest free variable of the most
// constrained open cover row. The multipliers of a node warm start its children
func (s *search) explore(multipliers []float64, iterations int) {
	if s.stopped() {
		return
	}

	multipliers = slices.Clone(multipliers)
	lower, ok := s.bound(multipliers, iterations)
	if !ok || s.err != nil || s.prunes(lower) {
		return
	}

	costs := slices.Clone(s.branching)
	var variable int
	first := int8(1)
	if i := s.openCover(); i >= 0 {
		variable = s.cheapest(s.cover[i], costs)
	} else {
		variable = s.cheapest(nil, costs)
		if variable == -1 {
			s.consider(s.assignment())
			return
		} else if costs[variable] >= 0 {
			first = 0
		}
	}
	if variable == -1 {
		return
	}

	for _, value := range []int8{first, 1 - first} {
		mark := len(s.trail)
		s.fix(variable, value)
		if s.propagate() {
			s.explore(multipliers, s.nodeIterations)
		}
		s.undo(mark)
		if s.err != nil {
			return
		}
	}
}

// bound runs subgradient steps on the multipliers and returns the best Lagrangian bound found. It reports false when
// some cover row has no variable left to pick
func (s *search) bound(multipliers []float64, iterations int) (float64, bool) {
	lower := math.Inf(-1)
	step := 2.0
	for iteration := range iterations {
		if s.stopped() {
			return lower, true
		}
		value, ok := s.subproblem(multipliers)
		if !ok {
			return 0, false
		}
		if value > lower {
			lower = value
			copy(s.branching, s.reduced)
		}
		s.consider(s.subset)
		if iteration%50 == 0 || iteration == iterations-1 {
			s.dive()
		}
		if s.prunes(lower) {
			break
		}

		norm := 0.0
		for i, k := range s.relaxed {
			gradient := activity(s.rows[k].terms, s.subset) - s.rows[k].rhs
			if multipliers[i] == 0 && gradient < 0 {
				gradient = 0
			}
			s.gradient[i] = gradient
			norm += gradient * gradient
		}
		if norm == 0 {
			break
		}

		// Polyak step towards the incumbent, or towards a guess above the bound while there is none
		target := lower + max(1, math.Abs(lower)*0.05)
		if s.incumbent != nil {
			target = s.best
		}
		length := step * max(target-value, tolerance) / norm
		for i := range multipliers {
			multipliers[i] = max(0, multipliers[i]+length*s.gradient[i])
		}
		if iteration%10 == 9 {
			step *= 0.7
		}
	}
	return lower, true
}

// subproblem prices the relaxed rows into the costs, then picks the cheapest variable of every cover row and every
// loose variable with a negative priced cost. The choice is left in subset
func (s *search) subproblem(multipliers []float64) (float64, bool) {
	copy(s.reduced, s.costs)
	value := 0.0
	for i, k := range s.relaxed {
		if multipliers[i] == 0 {
			continue
		}
		for _, term := range s.rows[k].terms {
			s.reduced[term.Var] += multipliers[i] * term.Coef
		}
		value -= multipliers[i] * s.rows[k].rhs
	}

	clear(s.subset)
	for _, members := range s.cover {
		pick := -1
		for _, variable := range members {
			if s.values[variable] == 1 {
				pick = variable
				break
			} else if s.values[variable] == free && (pick == -1 || s.reduced[variable] < s.reduced[pick]) {
				pick = variable
			}
		}
		if pick == -1 {
			return 0, false
		}
		s.subset[pick] = 1
		value += s.reduced[pick]
	}
	for _, variable := range s.loose {
		if s.values[variable] == 1 || (s.values[variable] == free && s.reduced[variable] < 0) {
			s.subset[variable] = 1
			value += s.reduced[variable]
		}
	}
	return value, true
}

// dive completes the current node greedily on the priced costs, looking for a better incumbent. Every fixing is
// taken back before returning
func (s *search) dive() {
	mark := len(s.trail)
	defer s.undo(mark)

	for {
		i := s.openCover()
		if i < 0 {
			break
		}
		variable := s.cheapest(s.cover[i], s.reduced)
		if variable == -1 {
			return
		}
		attempt := len(s.trail)
		s.fix(variable, 1)
		if s.propagate() {
			continue
		}
		s.undo(attempt)
		s.fix(variable, 0)
		if !s.propagate() {
			return
		}
	}
	for variable := range s.values {
		if s.values[variable] != free {
			continue
		}
		if s.reduced[variable] < 0 {
			s.fix(variable, 1)
		} else {
			s.fix(variable, 0)
		}
		if !s.propagate() {
			return
		}
	}
	s.consider(s.assignment())
}

// openCover returns the unsatisfied cover row with the fewest free variables, or -1 when every cover row already has
// a variable set
func (s *search) openCover() int {
	best, fewest := -1, 0
	for i, members := range s.cover {
		count, satisfied := 0, false
		for _, variable := range members {
			if s.values[variable] == 1 {
				satisfied = true
				break
			} else if s.values[variable] == free {
				count++
			}
		}
		if !satisfied && (best == -1 || count < fewest) {
			best, fewest = i, count
		}
	}
	return best
}

// cheapest returns the free variable of members with the lowest cost, considering every variable when members is
// nil. It returns -1 when none is free
func (s *search) cheapest(members []int, costs []float64) int {
	pick := -1
	check := func(variable int) {
		if s.values[variable] == free && (pick == -1 || costs[variable] < costs[pick]) {
			pick = variable
		}
	}
	if members == nil {
		for variable := range s.values {
			check(variable)
		}
	} else {
		for _, variable := range members {
			check(variable)
		}
	}
	return pick
}

// assignment reads the fixed variables, free ones count as 0
func (s *search) assignment() []float64 {
	for variable, value := range s.values {
		s.candidate[variable] = 0
		if value == 1 {
			s.candidate[variable] = 1
		}
	}
	return s.candidate
}

// consider keeps values as the new incumbent if it satisfies every row and is cheaper than the current one
func (s *search) consider(values []float64) {
	cost := 0.0
	for variable, coef := range s.costs {
		cost += coef * values[variable]
	}
	if s.incumbent != nil && cost >= s.best-tolerance {
		return
	}
	for _, r := range s.rows {
		if activity(r.terms, values) > r.rhs+tolerance {
			return
		}
	}
	s.best, s.incumbent = cost, slices.Clone(values)
}

// prunes tells whether a node with the given bound can still hold a better assignment. With integral costs any
// better assignment is at least one unit cheaper
func (s *search) prunes(lower float64) bool {
	if s.incumbent == nil {
		return false
	} else if s.integral {
		return lower > s.best-1+tolerance
	}
	return lower >= s.best-tolerance
}

func activity(terms []Term, values []float64) float64 {
	total := 0.0
	for _, term := range terms {
		total += term.Coef * values[term.Var]
	}
	return total
}
