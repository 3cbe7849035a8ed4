package mip

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two tasks, two machines: task i on machine j costs costs[i][j]. Variable 2*i+j assigns task i to machine j
func assignmentModel(costs [2][2]float64) *Model {
	model := &Model{Name: "assignment"}
	for i := range 2 {
		for j := range 2 {
			model.Variables = append(model.Variables, Variable{Name: "task" + string(rune('0'+i)) + "_machine" + string(rune('0'+j))})
			model.Objective = append(model.Objective, Term{Var: 2*i + j, Coef: costs[i][j]})
		}
	}
	for i := range 2 {
		model.Constraints = append(model.Constraints, Constraint{
			Name:  "task",
			Terms: []Term{{Var: 2 * i, Coef: 1}, {Var: 2*i + 1, Coef: 1}},
			Sense: Eq,
			RHS:   1,
		})
	}
	for j := range 2 {
		model.Constraints = append(model.Constraints, Constraint{
			Name:  "machine",
			Terms: []Term{{Var: j, Coef: 1}, {Var: 2 + j, Coef: 1}},
			Sense: LessEq,
			RHS:   1,
		})
	}
	return model
}

func TestEvaluate(t *testing.T) {
	model := assignmentModel([2][2]float64{{1, 5}, {4, 2}})

	assert.Equal(t, 3.0, model.Evaluate([]float64{1, 0, 0, 1}))
	assert.Equal(t, 9.0, model.Evaluate([]float64{0, 1, 1, 0}))

	model.Scale = 1000
	assert.Equal(t, 3000.0, model.Evaluate([]float64{1, 0, 0, 1}))
}

func TestSatisfied(t *testing.T) {
	model := assignmentModel([2][2]float64{{1, 5}, {4, 2}})

	assert.True(t, model.Satisfied([]float64{1, 0, 0, 1}, 1e-9))
	assert.False(t, model.Satisfied([]float64{1, 0, 1, 0}, 1e-9)) // machine 0 used twice
	assert.False(t, model.Satisfied([]float64{1, 1, 0, 1}, 1e-9)) // task 0 assigned twice
	assert.False(t, model.Satisfied([]float64{0, 0, 0, 1}, 1e-9)) // task 0 unassigned
}

func TestValidate(t *testing.T) {
	t.Run("Well formed", func(t *testing.T) {
		assert.NoError(t, assignmentModel([2][2]float64{{1, 5}, {4, 2}}).Validate())
	})

	t.Run("Unknown variable", func(t *testing.T) {
		model := assignmentModel([2][2]float64{{1, 5}, {4, 2}})
		model.Constraints[0].Terms = append(model.Constraints[0].Terms, Term{Var: 7, Coef: 1})
		assert.Error(t, model.Validate())
	})

	t.Run("Negative scale", func(t *testing.T) {
		model := assignmentModel([2][2]float64{{1, 5}, {4, 2}})
		model.Scale = -1
		assert.Error(t, model.Validate())
	})

	t.Run("Unknown sense", func(t *testing.T) {
		model := assignmentModel([2][2]float64{{1, 5}, {4, 2}})
		model.Constraints[0].Sense = Sense(7)
		assert.Error(t, model.Validate())
	})
}

func TestWriteLP(t *testing.T) {
	model := assignmentModel([2][2]float64{{1, 5}, {4, 2}})
	model.Scale = 10

	var builder strings.Builder
	require.NoError(t, model.WriteLP(&builder))
	lp := builder.String()

	assert.True(t, strings.HasPrefix(lp, "\\ assignment\n"))
	assert.Contains(t, lp, "Minimize\n obj: + 10 x0 + 50 x1 + 40 x2 + 20 x3\n")
	assert.Contains(t, lp, "Subject To\n")
	assert.Contains(t, lp, " c0: + 1 x0 + 1 x1 = 1\n")
	assert.Contains(t, lp, " c3: + 1 x1 + 1 x3 <= 1\n")
	assert.Contains(t, lp, "Binary\n x0 \\ task0_machine0\n")
	assert.True(t, strings.HasSuffix(lp, "End\n"))
}

func TestWriteLPBreaksLongRows(t *testing.T) {
	model := &Model{}
	terms := make([]Term, 0, 20)
	for i := range 20 {
		model.Variables = append(model.Variables, Variable{})
		terms = append(terms, Term{Var: i, Coef: -1})
	}
	model.Constraints = []Constraint{{Terms: terms, Sense: GreaterEq, RHS: -3}}

	var builder strings.Builder
	require.NoError(t, model.WriteLP(&builder))

	for _, line := range strings.Split(builder.String(), "\n") {
		assert.LessOrEqual(t, strings.Count(line, " x"), termsPerLine, line)
	}
	assert.Contains(t, builder.String(), " - 1 x0 - 1 x1")
	assert.Contains(t, builder.String(), ">= -3\n")
}

func TestLPName(t *testing.T) {
	variable, ok := ParseLPName(LPName(42))
	assert.True(t, ok)
	assert.Equal(t, 42, variable)

	_, ok = ParseLPName("y1")
	assert.False(t, ok)
	_, ok = ParseLPName("x-1")
	assert.False(t, ok)
	_, ok = ParseLPName("xa")
	assert.False(t, ok)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Optimal", Optimal.String())
	assert.Equal(t, "Infeasible", Infeasible.String())
	assert.Equal(t, "Unbounded", Unbounded.String())
	assert.Equal(t, "Error", Error.String())
	assert.Equal(t, "Status(9)", Status(9).String())
	assert.Equal(t, "<=", LessEq.String())
}
