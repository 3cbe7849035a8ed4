package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/limaJavier/mipschedule/pkg/mip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// defaultTimeout mirrors the solve time limit of the CLI
const defaultTimeout = 30 * time.Second

type fakeSolver struct {
	solution mip.Solution
	err      error
}

func (solver fakeSolver) Solve(context.Context, *mip.Model) (mip.Solution, error) {
	return solver.solution, solver.err
}

// lateSolver answers only once the context is done
type lateSolver struct{}

func (lateSolver) Solve(ctx context.Context, model *mip.Model) (mip.Solution, error) {
	<-ctx.Done()
	return mip.Solution{Status: mip.Optimal, Values: make([]float64, len(model.Variables))}, nil
}

type fakeRecorder struct {
	variables, constraints int
	statuses               []mip.Status
}

func (recorder *fakeRecorder) RecordModel(variables, constraints int) {
	recorder.variables, recorder.constraints = variables, constraints
}

func (recorder *fakeRecorder) RecordSolve(status mip.Status, _ time.Duration) {
	recorder.statuses = append(recorder.statuses, status)
}

func TestSchedulerDefaultCatalog(t *testing.T) {
	//** Arrange
	c := catalog.Default()
	recorder := &fakeRecorder{}
	scheduler := NewScheduler(mip.NewBranchAndBoundSolver(),
		WithScale(1000),
		WithTimeout(time.Minute),
		WithLogger(zaptest.NewLogger(t)),
		WithRecorder(recorder),
	)

	//** Act
	outcome, err := scheduler.Run(context.Background(), c)

	//** Assert
	require.NoError(t, err)
	require.True(t, outcome.Optimal())
	require.NotNil(t, outcome.Schedule)
	assert.NoError(t, outcome.Err())
	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, 686000.0, outcome.Schedule.TotalCost)
	assert.Len(t, outcome.Schedule.Rows, 9)
	assert.NoError(t, Verify(*outcome.Schedule, c))
	for i, row := range outcome.Schedule.Rows {
		assert.Equal(t, c.Subject(i).Id, row.Subject)
	}

	assert.Equal(t, 6561, recorder.variables)
	assert.Equal(t, outcome.Stats.Constraints, recorder.constraints)
	assert.Equal(t, []mip.Status{mip.Optimal}, recorder.statuses)
}

// The reference scenario is solved to optimality within the time limit the CLI uses by default
func TestSchedulerDefaultCatalogWithinDefaultTimeout(t *testing.T) {
	//** Arrange
	c := catalog.Default()
	solver, err := mip.NewSolver(mip.BranchAndBoundBackend, nil, nil)
	require.NoError(t, err)
	scheduler := NewScheduler(solver, WithTimeout(defaultTimeout), WithLogger(zaptest.NewLogger(t)))

	//** Act
	outcome, err := scheduler.Run(context.Background(), c)

	//** Assert
	require.NoError(t, err)
	require.Equal(t, mip.Optimal, outcome.Status, outcome.Message)
	assert.Equal(t, 686.0, outcome.Schedule.TotalCost)
	assert.Less(t, outcome.Duration, defaultTimeout)
	assert.NoError(t, Verify(*outcome.Schedule, c))
}

func TestSchedulerIsIdempotent(t *testing.T) {
	c := catalog.Default()
	scheduler := NewScheduler(mip.NewBranchAndBoundSolver(), WithTimeout(defaultTimeout))

	first, err := scheduler.Run(context.Background(), c)
	require.NoError(t, err)
	second, err := scheduler.Run(context.Background(), c)
	require.NoError(t, err)

	require.True(t, first.Optimal(), first.Message)
	require.True(t, second.Optimal(), second.Message)
	assert.Equal(t, 686.0, first.Schedule.TotalCost)
	assert.Equal(t, first.Schedule.TotalCost, second.Schedule.TotalCost)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestSchedulerInfeasible(t *testing.T) {
	t.Run("Qualified teacher is never available", func(t *testing.T) {
		//** Arrange
		c, err := catalog.New(catalog.RawCatalog{
			Teachers:       []string{"T"},
			Subjects:       []string{"x"},
			Slots:          []int{1},
			Rooms:          []string{"a"},
			Qualifications: map[string][]string{"T": {"x"}},
			Availability:   map[string][]int{"T": {}},
			Costs: catalog.RawCosts{
				Teachers: map[string]int64{"T": 1},
				Subjects: map[string]int64{"x": 1},
				Slots:    map[string]int64{"1": 1},
				Rooms:    map[string]int64{"a": 1},
			},
		})
		require.NoError(t, err)

		//** Act
		outcome, err := NewScheduler(mip.NewBranchAndBoundSolver(), WithTimeout(defaultTimeout)).Run(context.Background(), c)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, mip.Infeasible, outcome.Status)
		assert.Nil(t, outcome.Schedule)
		assert.ErrorIs(t, outcome.Err(), ErrInfeasible)
		assert.Contains(t, outcome.Message, "no optimal solution found")
		require.NotNil(t, outcome.Diagnosis)
		assert.Equal(t, []string{"x"}, outcome.Diagnosis.Uncoverable)
	})

	t.Run("Not enough rooms", func(t *testing.T) {
		c, err := catalog.New(catalog.RawCatalog{
			Teachers:       []string{"T", "U"},
			Subjects:       []string{"x", "y"},
			Slots:          []int{1},
			Rooms:          []string{"a"},
			Qualifications: map[string][]string{"T": {"x"}, "U": {"y"}},
			Availability:   map[string][]int{"T": {1}, "U": {1}},
			Costs: catalog.RawCosts{
				Teachers: map[string]int64{"T": 1, "U": 1},
				Subjects: map[string]int64{"x": 1, "y": 1},
				Slots:    map[string]int64{"1": 1},
				Rooms:    map[string]int64{"a": 1},
			},
		})
		require.NoError(t, err)

		outcome, err := NewScheduler(mip.NewBranchAndBoundSolver(), WithTimeout(defaultTimeout)).Run(context.Background(), c)

		require.NoError(t, err)
		assert.Equal(t, mip.Infeasible, outcome.Status)
		require.NotNil(t, outcome.Diagnosis)
		assert.True(t, outcome.Diagnosis.Empty())
	})
}

func TestDiagnose(t *testing.T) {
	// x and y can only be taught by T at slot 1
	c, err := catalog.New(catalog.RawCatalog{
		Teachers:       []string{"T", "U"},
		Subjects:       []string{"x", "y", "z"},
		Slots:          []int{1},
		Rooms:          []string{"a", "b"},
		Qualifications: map[string][]string{"T": {"x", "y"}, "U": {"z"}},
		Availability:   map[string][]int{"T": {1}, "U": {}},
		Costs: catalog.RawCosts{
			Teachers: map[string]int64{"T": 1, "U": 1},
			Subjects: map[string]int64{"x": 1, "y": 1, "z": 1},
			Slots:    map[string]int64{"1": 1},
			Rooms:    map[string]int64{"a": 1, "b": 1},
		},
	})
	require.NoError(t, err)

	diagnosis, err := Diagnose(c)

	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, diagnosis.Uncoverable)
	require.Len(t, diagnosis.Unmatched, 1)
	assert.Contains(t, []string{"x", "y"}, diagnosis.Unmatched[0])
	assert.Contains(t, diagnosis.String(), "compete")

	diagnosis, err = Diagnose(catalog.Default())
	require.NoError(t, err)
	assert.True(t, diagnosis.Empty())
}

func TestSchedulerSolverFailures(t *testing.T) {
	c := smallCatalog(t)

	t.Run("Backend error", func(t *testing.T) {
		cause := errors.New("backend crashed")
		solver := fakeSolver{solution: mip.Solution{Status: mip.Error}, err: &mip.SolverError{Backend: "fake", Err: cause}}

		outcome, err := NewScheduler(solver).Run(context.Background(), c)

		require.NoError(t, err)
		assert.Equal(t, mip.Error, outcome.Status)
		assert.Nil(t, outcome.Schedule)
		assert.ErrorIs(t, outcome.Err(), cause)
		assert.Contains(t, outcome.Message, "no optimal solution found")
	})

	t.Run("Timeout", func(t *testing.T) {
		outcome, err := NewScheduler(lateSolver{}, WithTimeout(10*time.Millisecond)).Run(context.Background(), c)

		require.NoError(t, err)
		assert.Equal(t, mip.Error, outcome.Status)
		var solverError *mip.SolverError
		require.ErrorAs(t, outcome.Err(), &solverError)
		assert.True(t, solverError.Timeout)
	})

	t.Run("Unbounded", func(t *testing.T) {
		outcome, err := NewScheduler(fakeSolver{solution: mip.Solution{Status: mip.Unbounded}}).Run(context.Background(), c)

		require.NoError(t, err)
		assert.Equal(t, mip.Unbounded, outcome.Status)
		assert.ErrorIs(t, outcome.Err(), ErrUnbounded)
	})

	t.Run("Inconsistent solution", func(t *testing.T) {
		solver := fakeSolver{solution: mip.Solution{Status: mip.Optimal, Values: []float64{1}}}

		_, err := NewScheduler(solver).Run(context.Background(), c)

		var inconsistencyError *ProjectionInconsistencyError
		assert.ErrorAs(t, err, &inconsistencyError)
	})

	t.Run("Invalid scale", func(t *testing.T) {
		_, err := NewScheduler(fakeSolver{}, WithScale(-5)).Run(context.Background(), c)

		var configurationError *catalog.ConfigurationError
		assert.ErrorAs(t, err, &configurationError)
	})
}
