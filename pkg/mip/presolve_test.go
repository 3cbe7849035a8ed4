package mip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresolve(t *testing.T) {
	t.Run("Fixed variables are dropped and the rest renumbered", func(t *testing.T) {
		//** Arrange
		model := assignmentModel([2][2]float64{{1, 5}, {4, 2}})
		model.Scale = 10
		// Task 0 cannot run on machine 0
		model.Constraints = append(model.Constraints, Constraint{Name: "pruned", Terms: []Term{{Var: 0, Coef: 1}}, Sense: Eq, RHS: 0})

		//** Act
		reduction, feasible := presolve(model)

		//** Assert
		require.True(t, feasible)
		// x0 = 0 forces x1 = 1, which forces x3 = 0 and then x2 = 1
		assert.Empty(t, reduction.model.Variables)
		assert.Empty(t, reduction.model.Constraints)
		assert.Equal(t, 10.0, reduction.model.Scale)
		assert.Equal(t, []float64{0, 1, 1, 0}, reduction.expand(nil))
	})

	t.Run("Right-hand sides absorb the fixed variables", func(t *testing.T) {
		model := &Model{
			Variables: []Variable{{Name: "x0"}, {Name: "x1"}, {Name: "x2"}},
			Objective: []Term{{Var: 0, Coef: 1}, {Var: 1, Coef: 2}, {Var: 2, Coef: 3}},
			Constraints: []Constraint{
				{Name: "forced", Terms: []Term{{Var: 0, Coef: 1}}, Sense: GreaterEq, RHS: 1},
				{Name: "pair", Terms: []Term{{Var: 0, Coef: 1}, {Var: 1, Coef: 1}, {Var: 2, Coef: 1}}, Sense: LessEq, RHS: 2},
			},
		}

		reduction, feasible := presolve(model)

		require.True(t, feasible)
		assert.Equal(t, []int{1, 2}, reduction.original)
		require.Len(t, reduction.model.Constraints, 1)
		assert.Equal(t, Constraint{Name: "pair", Terms: []Term{{Var: 0, Coef: 1}, {Var: 1, Coef: 1}}, Sense: LessEq, RHS: 1}, reduction.model.Constraints[0])
		assert.Equal(t, []Term{{Var: 0, Coef: 2}, {Var: 1, Coef: 3}}, reduction.model.Objective)
		assert.Equal(t, []float64{1, 0, 1}, reduction.expand([]float64{0, 1}))
	})

	t.Run("Infeasible", func(t *testing.T) {
		model := assignmentModel([2][2]float64{{1, 5}, {4, 2}})
		model.Constraints = append(model.Constraints,
			Constraint{Name: "pruned", Terms: []Term{{Var: 1, Coef: 1}}, Sense: Eq, RHS: 0},
			Constraint{Name: "pruned", Terms: []Term{{Var: 3, Coef: 1}}, Sense: Eq, RHS: 0},
		)

		_, feasible := presolve(model)

		assert.False(t, feasible)
	})
}

func TestPropagator(t *testing.T) {
	// x0 + x1 + x2 = 1 and x2 - x0 <= 0
	model := &Model{
		Variables: []Variable{{Name: "x0"}, {Name: "x1"}, {Name: "x2"}},
		Constraints: []Constraint{
			{Terms: []Term{{Var: 0, Coef: 1}, {Var: 1, Coef: 1}, {Var: 2, Coef: 1}}, Sense: Eq, RHS: 1},
			{Terms: []Term{{Var: 2, Coef: 1}, {Var: 0, Coef: -1}}, Sense: LessEq, RHS: 0},
		},
	}
	var rows []row
	for _, constraint := range model.Constraints {
		rows = append(rows, lessEqRows(constraint)...)
	}
	p := newPropagator(len(model.Variables), rows)
	require.True(t, p.propagateAll())
	assert.Equal(t, []int8{free, free, free}, p.values)

	mark := len(p.trail)
	p.fix(1, 1)
	require.True(t, p.propagate())
	assert.Equal(t, []int8{0, 1, 0}, p.values)

	p.undo(mark)
	assert.Equal(t, []int8{free, free, free}, p.values)
	assert.Equal(t, []float64{0, -3, -1}, p.minActivity)

	// x0 = x1 = 0 forces x2 = 1, which the second row does not allow without x0
	p.fix(0, 0)
	p.fix(1, 0)
	assert.False(t, p.propagate())
	assert.Empty(t, p.queue)
}

func TestMergeTerms(t *testing.T) {
	merged := mergeTerms([]Term{{Var: 1, Coef: 2}, {Var: 0, Coef: 1}, {Var: 1, Coef: -2}, {Var: 2, Coef: 0}, {Var: 0, Coef: 3}})

	assert.Equal(t, []Term{{Var: 0, Coef: 4}}, merged)
}
