package mip

import (
	"fmt"
	"math"
)

type Sense int

const (
	LessEq Sense = iota
	Eq
	GreaterEq
)

func (sense Sense) String() string {
	switch sense {
	case LessEq:
		return "<="
	case Eq:
		return "="
	case GreaterEq:
		return ">="
	}
	return fmt.Sprintf("Sense(%d)", int(sense))
}

// Variable is a binary decision variable. Its position in Model.Variables is its identifier
type Variable struct {
	Name string
}

type Term struct {
	Var  int
	Coef float64
}

type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a minimization problem over binary variables with a linear objective and linear constraints.
// Scale multiplies the whole objective; a zero value is read as 1
type Model struct {
	Name        string
	Variables   []Variable
	Objective   []Term
	Scale       float64
	Constraints []Constraint
}

func (m *Model) ObjectiveScale() float64 {
	if m.Scale == 0 {
		return 1
	}
	return m.Scale
}

// Evaluate returns the scaled objective value of the given assignment
func (m *Model) Evaluate(values []float64) float64 {
	total := 0.0
	for _, term := range m.Objective {
		total += term.Coef * values[term.Var]
	}
	return m.ObjectiveScale() * total
}

// Satisfied checks whether the given assignment satisfies every constraint within the tolerance
func (m *Model) Satisfied(values []float64, tolerance float64) bool {
	for _, constraint := range m.Constraints {
		lhs := 0.0
		for _, term := range constraint.Terms {
			lhs += term.Coef * values[term.Var]
		}
		switch constraint.Sense {
		case LessEq:
			if lhs > constraint.RHS+tolerance {
				return false
			}
		case GreaterEq:
			if lhs < constraint.RHS-tolerance {
				return false
			}
		case Eq:
			if math.Abs(lhs-constraint.RHS) > tolerance {
				return false
			}
		}
	}
	return true
}

// Validate checks the model is well formed before it is handed to a backend
func (m *Model) Validate() error {
	if m.Scale < 0 || math.IsNaN(m.Scale) || math.IsInf(m.Scale, 0) {
		return fmt.Errorf("objective scale must be a positive finite number: %v", m.Scale)
	}
	if err := m.validateTerms("objective", m.Objective); err != nil {
		return err
	}
	for _, constraint := range m.Constraints {
		if err := m.validateTerms(constraint.Name, constraint.Terms); err != nil {
			return err
		}
		if math.IsNaN(constraint.RHS) || math.IsInf(constraint.RHS, 0) {
			return fmt.Errorf("constraint %v has a non-finite right-hand side", constraint.Name)
		}
		if constraint.Sense < LessEq || constraint.Sense > GreaterEq {
			return fmt.Errorf("constraint %v has an unknown sense %v", constraint.Name, constraint.Sense)
		}
	}
	return nil
}

func (m *Model) validateTerms(owner string, terms []Term) error {
	for _, term := range terms {
		if term.Var < 0 || term.Var >= len(m.Variables) {
			return fmt.Errorf("%v references unknown variable %d", owner, term.Var)
		}
		if math.IsNaN(term.Coef) || math.IsInf(term.Coef, 0) {
			return fmt.Errorf("%v has a non-finite coefficient for variable %v", owner, m.Variables[term.Var].Name)
		}
	}
	return nil
}
