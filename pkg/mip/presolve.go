package mip

import (
	"math"
	"slices"
)

const (
	tolerance = 1e-6
	free      = int8(-1)
)

// row is a constraint written as "sum <= rhs", with one term per variable
type row struct {
	terms []Term
	rhs   float64
}

type occurrence struct {
	row  int
	coef float64
}

// lessEqRows splits a constraint into "<=" rows: an equality gives two of them
func lessEqRows(constraint Constraint) []row {
	terms := mergeTerms(constraint.Terms)
	switch constraint.Sense {
	case LessEq:
		return []row{{terms: terms, rhs: constraint.RHS}}
	case GreaterEq:
		return []row{{terms: negate(terms), rhs: -constraint.RHS}}
	}
	return []row{{terms: terms, rhs: constraint.RHS}, {terms: negate(terms), rhs: -constraint.RHS}}
}

// mergeTerms adds up the coefficients of repeated variables and drops the ones that cancel out
func mergeTerms(terms []Term) []Term {
	position := make(map[int]int, len(terms))
	merged := make([]Term, 0, len(terms))
	for _, term := range terms {
		if i, ok := position[term.Var]; ok {
			merged[i].Coef += term.Coef
			continue
		}
		position[term.Var] = len(merged)
		merged = append(merged, term)
	}
	return slices.DeleteFunc(merged, func(term Term) bool { return term.Coef == 0 })
}

func negate(terms []Term) []Term {
	negated := make([]Term, len(terms))
	for i, term := range terms {
		negated[i] = Term{Var: term.Var, Coef: -term.Coef}
	}
	return negated
}

// propagator fixes the binary variables whose value is implied by the fixings made so far. It tracks the minimum
// activity of every row and keeps a trail of the fixings, so that a search can take them back
type propagator struct {
	rows        []row
	occurrences [][]occurrence
	minActivity []float64
	maxCoef     []float64
	values      []int8
	trail       []int
	queue       []int
}

func newPropagator(variables int, rows []row) *propagator {
	p := &propagator{
		rows:        rows,
		occurrences: make([][]occurrence, variables),
		minActivity: make([]float64, len(rows)),
		maxCoef:     make([]float64, len(rows)),
		values:      make([]int8, variables),
	}
	for variable := range p.values {
		p.values[variable] = free
	}
	for i, row := range rows {
		for _, term := range row.terms {
			p.occurrences[term.Var] = append(p.occurrences[term.Var], occurrence{row: i, coef: term.Coef})
			p.minActivity[i] += min(term.Coef, 0)
			p.maxCoef[i] = max(p.maxCoef[i], math.Abs(term.Coef))
		}
	}
	return p
}

// contribution is how much the minimum activity of a row grows when a variable with that coefficient takes value
func contribution(coef float64, value int8) float64 {
	if value == 1 {
		return max(coef, 0)
	}
	return -min(coef, 0)
}

// fix sets a free variable and queues the rows it appears in
func (p *propagator) fix(variable int, value int8) {
	p.values[variable] = value
	p.trail = append(p.trail, variable)
	for _, o := range p.occurrences[variable] {
		p.minActivity[o.row] += contribution(o.coef, value)
		p.queue = append(p.queue, o.row)
	}
}

// propagate drains the queue, fixing every variable that would overflow a row if set the other way. It reports false
// as soon as some row cannot hold anymore
func (p *propagator) propagate() bool {
	for len(p.queue) > 0 {
		i := p.queue[len(p.queue)-1]
		p.queue = p.queue[:len(p.queue)-1]

		slack := p.rows[i].rhs - p.minActivity[i]
		if slack < -tolerance {
			p.queue = p.queue[:0]
			return false
		} else if slack >= p.maxCoef[i] {
			continue
		}
		for _, term := range p.rows[i].terms {
			if p.values[term.Var] != free {
				continue
			}
			if term.Coef > slack+tolerance {
				p.fix(term.Var, 0)
			} else if -term.Coef > slack+tolerance {
				p.fix(term.Var, 1)
			}
		}
	}
	return true
}

func (p *propagator) propagateAll() bool {
	for i := range p.rows {
		p.queue = append(p.queue, i)
	}
	return p.propagate()
}

// undo frees the variables fixed after the trail had the given length
func (p *propagator) undo(mark int) {
	for len(p.trail) > mark {
		variable := p.trail[len(p.trail)-1]
		p.trail = p.trail[:len(p.trail)-1]
		for _, o := range p.occurrences[variable] {
			p.minActivity[o.row] -= contribution(o.coef, p.values[variable])
		}
		p.values[variable] = free
	}
}

// reduction is the smaller model left once root propagation has fixed what it can. Variables are renumbered densely
type reduction struct {
	model    *Model
	original []int
	values   []float64
}

// presolve fixes the variables decided by root propagation and drops them, together with the constraints they
// settle. It reports false when propagation alone proves the model infeasible
func presolve(model *Model) (*reduction, bool) {
	rows := make([]row, 0, len(model.Constraints))
	for _, constraint := range model.Constraints {
		rows = append(rows, lessEqRows(constraint)...)
	}
	p := newPropagator(len(model.Variables), rows)
	if !p.propagateAll() {
		return nil, false
	}

	r := &reduction{
		model:  &Model{Name: model.Name, Scale: model.Scale},
		values: make([]float64, len(model.Variables)),
	}
	index := make([]int, len(model.Variables))
	for variable, value := range p.values {
		index[variable] = -1
		switch value {
		case 1:
			r.values[variable] = 1
		case free:
			index[variable] = len(r.original)
			r.original = append(r.original, variable)
			r.model.Variables = append(r.model.Variables, model.Variables[variable])
		}
	}

	for _, term := range model.Objective {
		if i := index[term.Var]; i >= 0 {
			r.model.Objective = append(r.model.Objective, Term{Var: i, Coef: term.Coef})
		}
	}
	for _, constraint := range model.Constraints {
		rhs := constraint.RHS
		terms := make([]Term, 0, len(constraint.Terms))
		for _, term := range constraint.Terms {
			if i := index[term.Var]; i >= 0 {
				terms = append(terms, Term{Var: i, Coef: term.Coef})
			} else {
				rhs -= term.Coef * r.values[term.Var]
			}
		}
		// Propagation already checked the constraints whose variables are all fixed
		if len(terms) == 0 {
			continue
		}
		r.model.Constraints = append(r.model.Constraints, Constraint{Name: constraint.Name, Terms: terms, Sense: constraint.Sense, RHS: rhs})
	}

	return r, true
}

// expand maps an assignment of the reduced model back to the variables of the original one
func (r *reduction) expand(values []float64) []float64 {
	expanded := slices.Clone(r.values)
	for i, variable := range r.original {
		expanded[variable] = values[i]
	}
	return expanded
}
