package model

import (
	"errors"
	"testing"

	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/limaJavier/mipschedule/pkg/mip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Teacher T teaches x and y, teacher U teaches y only. Both are available at slots 1 and 2
func smallCatalog(t *testing.T) *catalog.Catalog {
	c, err := catalog.New(catalog.RawCatalog{
		Teachers: []string{"T", "U"},
		Subjects: []string{"x", "y"},
		Slots:    []int{1, 2},
		Rooms:    []string{"a", "b"},
		Qualifications: map[string][]string{
			"T": {"x", "y"},
			"U": {"y"},
		},
		Availability: map[string][]int{
			"T": {1, 2},
			"U": {1, 2},
		},
		Costs: catalog.RawCosts{
			Teachers: map[string]int64{"T": 1, "U": 2},
			Subjects: map[string]int64{"x": 1, "y": 1},
			Slots:    map[string]int64{"1": 1, "2": 5},
			Rooms:    map[string]int64{"a": 1, "b": 3},
		},
	})
	require.NoError(t, err)
	return c
}

// Positions in smallCatalog
const (
	teacherT, teacherU = 0, 1
	subjectX, subjectY = 0, 1
	slot1, slot2       = 0, 1
	roomA, roomB       = 0, 1
)

// solutionFor selects exactly the given tuples and reports their scaled cost as objective
func solutionFor(problem *Problem, c *catalog.Catalog, keys ...Key) mip.Solution {
	values := make([]float64, problem.Indexer.Len())
	var cost int64
	for _, key := range keys {
		values[problem.Indexer.Index(key)] = 1
		cost += tupleCost(c, key)
	}
	return mip.Solution{
		Status:    mip.Optimal,
		Objective: problem.Model.ObjectiveScale() * float64(cost),
		Values:    values,
	}
}

func TestProject(t *testing.T) {
	//** Arrange
	c := smallCatalog(t)
	problem, err := Build(c, BuildOptions{Scale: 10})
	require.NoError(t, err)
	solution := solutionFor(problem, c,
		Key{Teacher: teacherU, Subject: subjectY, Slot: slot1, Room: roomB},
		Key{Teacher: teacherT, Subject: subjectX, Slot: slot1, Room: roomA},
	)

	//** Act
	schedule, err := Project(problem, c, solution)

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{Subject: "x", Teacher: "T", Slot: 1, Room: "a", Cost: 4},
		{Subject: "y", Teacher: "U", Slot: 1, Room: "b", Cost: 7},
	}, schedule.Rows)
	assert.Equal(t, 110.0, schedule.TotalCost)
	assert.Equal(t, 10.0, schedule.Scale)
	assert.NoError(t, Verify(schedule, c))
}

func TestProjectInconsistencies(t *testing.T) {
	c := smallCatalog(t)
	problem, err := Build(c, BuildOptions{})
	require.NoError(t, err)

	xT1a := Key{Teacher: teacherT, Subject: subjectX, Slot: slot1, Room: roomA}
	cases := []struct {
		name     string
		solution func() mip.Solution
	}{
		{"subject scheduled twice", func() mip.Solution {
			return solutionFor(problem, c, xT1a,
				Key{Teacher: teacherT, Subject: subjectX, Slot: slot2, Room: roomA},
				Key{Teacher: teacherU, Subject: subjectY, Slot: slot1, Room: roomB},
			)
		}},
		{"subject missing", func() mip.Solution {
			return solutionFor(problem, c, xT1a)
		}},
		{"fractional value", func() mip.Solution {
			solution := solutionFor(problem, c, xT1a, Key{Teacher: teacherU, Subject: subjectY, Slot: slot1, Room: roomB})
			solution.Values[problem.Indexer.Index(xT1a)] = 0.5
			return solution
		}},
		{"teacher not qualified", func() mip.Solution {
			return solutionFor(problem, c,
				Key{Teacher: teacherU, Subject: subjectX, Slot: slot1, Room: roomA},
				Key{Teacher: teacherT, Subject: subjectY, Slot: slot2, Room: roomA},
			)
		}},
		{"teacher double booked", func() mip.Solution {
			return solutionFor(problem, c, xT1a, Key{Teacher: teacherT, Subject: subjectY, Slot: slot1, Room: roomB})
		}},
		{"room double booked", func() mip.Solution {
			return solutionFor(problem, c, xT1a, Key{Teacher: teacherU, Subject: subjectY, Slot: slot1, Room: roomA})
		}},
		{"objective mismatch", func() mip.Solution {
			solution := solutionFor(problem, c, xT1a, Key{Teacher: teacherU, Subject: subjectY, Slot: slot1, Room: roomB})
			solution.Objective++
			return solution
		}},
		{"value count mismatch", func() mip.Solution {
			return mip.Solution{Status: mip.Optimal, Values: []float64{1}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Project(problem, c, tc.solution())

			var inconsistencyError *ProjectionInconsistencyError
			assert.True(t, errors.As(err, &inconsistencyError), "unexpected error %v", err)
		})
	}
}

func TestProjectRejectsNonOptimalSolutions(t *testing.T) {
	c := smallCatalog(t)
	problem, err := Build(c, BuildOptions{})
	require.NoError(t, err)

	_, err = Project(problem, c, mip.Solution{Status: mip.Infeasible})

	assert.Error(t, err)
	var inconsistencyError *ProjectionInconsistencyError
	assert.False(t, errors.As(err, &inconsistencyError))
}

func TestVerify(t *testing.T) {
	c := smallCatalog(t)
	valid := Schedule{
		Rows: []Row{
			{Subject: "x", Teacher: "T", Slot: 2, Room: "b", Cost: 10},
			{Subject: "y", Teacher: "U", Slot: 2, Room: "a", Cost: 9},
		},
		TotalCost: 19,
		Scale:     1,
	}
	require.NoError(t, Verify(valid, c))

	cases := []struct {
		name   string
		mutate func(*Schedule)
	}{
		{"unknown teacher", func(schedule *Schedule) { schedule.Rows[0].Teacher = "Z" }},
		{"unknown slot", func(schedule *Schedule) { schedule.Rows[0].Slot = 3 }},
		{"unqualified teacher", func(schedule *Schedule) { schedule.Rows[0].Teacher = "U"; schedule.Rows[1].Slot = 1 }},
		{"repeated subject", func(schedule *Schedule) { schedule.Rows[1].Subject = "x" }},
		{"missing subject", func(schedule *Schedule) { schedule.Rows = schedule.Rows[:1]; schedule.TotalCost = 10 }},
		{"room double booked", func(schedule *Schedule) { schedule.Rows[1].Room = "b"; schedule.TotalCost = 21 }},
		{"wrong total", func(schedule *Schedule) { schedule.TotalCost = 20 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			schedule := valid
			schedule.Rows = append([]Row(nil), valid.Rows...)
			tc.mutate(&schedule)

			var inconsistencyError *ProjectionInconsistencyError
			assert.True(t, errors.As(Verify(schedule, c), &inconsistencyError))
		})
	}
}
