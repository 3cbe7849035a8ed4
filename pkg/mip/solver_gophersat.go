package mip

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	pb "github.com/crillab/gophersat/solver"
)

const gophersatBackend = "gophersat"

// errConstantViolated flags a constraint without variables whose right-hand side cannot hold
var errConstantViolated = errors.New("constant constraint is violated")

type gophersatSolver struct{}

// NewGophersatSolver returns an in-process backend that solves the model as a pseudo-boolean optimization problem.
// Every coefficient and right-hand side must be integral
func NewGophersatSolver() Solver {
	return &gophersatSolver{}
}

type gophersatResult struct {
	cost  int
	model []bool
	err   error
}

func (solver *gophersatSolver) Backend() string {
	return gophersatBackend
}

func (solver *gophersatSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return contextFailure(gophersatBackend, err)
	}
	if err := model.Validate(); err != nil {
		return failure(gophersatBackend, err)
	}

	// Root propagation settles most of the variables of a scheduling model, only the rest is encoded
	reduction, feasible := presolve(model)
	if !feasible {
		return Solution{Status: Infeasible}, nil
	}
	model, original := reduction.model, model

	constraints, maxVar, err := pbConstraints(model)
	if errors.Is(err, errConstantViolated) {
		return Solution{Status: Infeasible}, nil
	} else if err != nil {
		return failure(gophersatBackend, err)
	}
	lits, weights, err := pbCostFunction(model, maxVar)
	if err != nil {
		return failure(gophersatBackend, err)
	}

	// A model without constraints leaves every variable free, the optimum sets them all to 0
	if len(constraints) == 0 {
		values := reduction.expand(make([]float64, len(model.Variables)))
		return Solution{Status: Optimal, Objective: original.Evaluate(values), Values: values}, nil
	}

	problem := pb.ParsePBConstrs(constraints)
	if len(lits) > 0 {
		problem.SetCostFunc(lits, weights)
	}
	instance := pb.New(problem)

	// The search cannot be interrupted, on timeout it is left to finish in the background and its result discarded
	results := make(chan gophersatResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- gophersatResult{err: fmt.Errorf("solver panicked: %v", r)}
			}
		}()
		if len(lits) > 0 {
			cost := instance.Minimize()
			if cost < 0 {
				results <- gophersatResult{cost: -1}
				return
			}
			results <- gophersatResult{cost: cost, model: instance.Model()}
			return
		}
		if instance.Solve() != pb.Sat {
			results <- gophersatResult{cost: -1}
			return
		}
		results <- gophersatResult{model: instance.Model()}
	}()

	var result gophersatResult
	select {
	case <-ctx.Done():
		return contextFailure(gophersatBackend, ctx.Err())
	case result = <-results:
	}

	if result.err != nil {
		return failure(gophersatBackend, result.err)
	} else if result.cost < 0 {
		return Solution{Status: Infeasible}, nil
	}

	values := make([]float64, len(model.Variables))
	for i := range values {
		// Variables absent from every constraint are not part of the solver's model, they stay at 0
		if i < len(result.model) && result.model[i] {
			values[i] = 1
		}
	}
	values = reduction.expand(values)

	return Solution{Status: Optimal, Objective: original.Evaluate(values), Values: values}, nil
}

func pbConstraints(model *Model) (constraints []pb.PBConstr, maxVar int, err error) {
	constraints = make([]pb.PBConstr, 0, len(model.Constraints))

	for _, constraint := range model.Constraints {
		lits, weights, rhs, err := normalize(constraint.Terms, constraint.RHS, constraint.Sense)
		if err != nil {
			return nil, 0, fmt.Errorf("constraint %v: %w", constraint.Name, err)
		}
		for _, lit := range lits {
			maxVar = max(maxVar, lit, -lit)
		}

		// A constraint whose terms all vanished is decided by its right-hand side alone
		if len(lits) == 0 {
			if !constantHolds(0, constraint.Sense, rhs) {
				return nil, 0, fmt.Errorf("constraint %v: %w", constraint.Name, errConstantViolated)
			}
			continue
		}

		switch constraint.Sense {
		case LessEq:
			constraints = append(constraints, lessEq(lits, weights, rhs)...)
		case GreaterEq:
			constraints = append(constraints, pb.GtEq(lits, weights, rhs))
		case Eq:
			if rhs == 0 {
				constraints = append(constraints, lessEq(lits, weights, rhs)...)
			} else {
				constraints = append(constraints, pb.Eq(lits, weights, rhs)...)
			}
		}
	}

	return constraints, maxVar, nil
}

// lessEq handles the "sum <= 0" case with unit clauses, which gophersat propagates directly. pb.LtEq negates the
// literals it is given, so it gets its own copies
func lessEq(lits []int, weights []int, rhs int) []pb.PBConstr {
	if rhs == 0 {
		clauses := make([]pb.PBConstr, len(lits))
		for i, lit := range lits {
			clauses[i] = pb.PropClause(-lit)
		}
		return clauses
	}
	return []pb.PBConstr{pb.LtEq(slices.Clone(lits), slices.Clone(weights), rhs)}
}

// normalize turns the terms into literals with positive integral weights. A negative weight w on x is rewritten as
// |w| on not(x), moving w to the right-hand side, and zero weights are dropped
func normalize(terms []Term, rhs float64, sense Sense) (lits []int, weights []int, normalizedRHS int, err error) {
	if rhs != math.Trunc(rhs) {
		return nil, nil, 0, fmt.Errorf("right-hand side %v is not integral", rhs)
	}
	normalizedRHS = int(rhs)

	for _, term := range terms {
		if term.Coef != math.Trunc(term.Coef) {
			return nil, nil, 0, fmt.Errorf("coefficient %v of variable %d is not integral", term.Coef, term.Var)
		}
		weight := int(term.Coef)
		lit := term.Var + 1
		switch {
		case weight == 0:
			continue
		case weight < 0:
			lit, weight = -lit, -weight
			normalizedRHS += weight
		}
		lits = append(lits, lit)
		weights = append(weights, weight)
	}

	return lits, weights, normalizedRHS, nil
}

func pbCostFunction(model *Model, maxVar int) (lits []pb.Lit, weights []int, err error) {
	coefficients := make(map[int]float64)
	for _, term := range model.Objective {
		coefficients[term.Var] += term.Coef
	}

	for variable := range len(model.Variables) {
		coefficient := coefficients[variable]
		if coefficient == 0 {
			continue
		} else if coefficient != math.Trunc(coefficient) {
			return nil, nil, fmt.Errorf("objective coefficient %v of variable %d is not integral", coefficient, variable)
		}
		// Unconstrained variables are fixed to 0 by the caller, which is optimal for a positive cost
		if variable >= maxVar && coefficient > 0 {
			continue
		} else if variable >= maxVar {
			return nil, nil, fmt.Errorf("variable %d has a negative cost but appears in no constraint", variable)
		}

		lit, weight := variable+1, int(coefficient)
		if weight < 0 {
			lit, weight = -lit, -weight
		}
		lits = append(lits, pb.IntToLit(int32(lit)))
		weights = append(weights, weight)
	}

	return lits, weights, nil
}

func constantHolds(lhs int, sense Sense, rhs int) bool {
	switch sense {
	case LessEq:
		return lhs <= rhs
	case GreaterEq:
		return lhs >= rhs
	default:
		return lhs == rhs
	}
}
