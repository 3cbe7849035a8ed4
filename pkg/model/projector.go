package model

import (
	"fmt"
	"math"

	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/limaJavier/mipschedule/pkg/mip"
	"github.com/samber/lo"
)

// Indicator values must lie this close to 0 or 1
const integralityTolerance = 1e-6

// Row is one scheduled subject
type Row struct {
	Subject string `json:"subject"`
	Teacher string `json:"teacher"`
	Slot    int    `json:"slot"`
	Room    string `json:"room"`
	Cost    int64  `json:"cost"`
}

// Schedule holds one row per subject, in catalog order, and the realized total cost (scaled like the objective)
type Schedule struct {
	Rows      []Row   `json:"rows"`
	TotalCost float64 `json:"totalCost"`
	Scale     float64 `json:"scale"`
}

// Project turns an optimal solution into a schedule. Any assignment that contradicts the schedule invariants is
// reported as a ProjectionInconsistencyError instead of being displayed
func Project(problem *Problem, c *catalog.Catalog, solution mip.Solution) (Schedule, error) {
	if solution.Status != mip.Optimal {
		return Schedule{}, fmt.Errorf("cannot project a %v solution", solution.Status)
	}
	if len(solution.Values) != problem.Indexer.Len() {
		return Schedule{}, inconsistency("solver returned %d values for %d variables", len(solution.Values), problem.Indexer.Len())
	}

	//** Collect selected tuples
	selected := make([]Key, 0)
	for variable, value := range solution.Values {
		switch {
		case math.Abs(value) <= integralityTolerance:
		case math.Abs(value-1) <= integralityTolerance:
			selected = append(selected, problem.Indexer.Attributes(variable))
		default:
			return Schedule{}, inconsistency("variable %v has fractional value %v", problem.Model.Variables[variable].Name, value)
		}
	}

	//** Check invariants on the selected tuples
	teachers, subjects, slots, rooms := c.Size()
	perSubject := lo.GroupBy(selected, func(key Key) int { return key.Subject })
	teacherAssistance := make([][]bool, teachers)
	for i := range teacherAssistance {
		teacherAssistance[i] = make([]bool, slots)
	}
	roomAssistance := make([][]bool, rooms)
	for i := range roomAssistance {
		roomAssistance[i] = make([]bool, slots)
	}

	schedule := Schedule{Rows: make([]Row, 0, subjects), Scale: problem.Model.ObjectiveScale()}
	var total int64
	for subject := range subjects {
		keys := perSubject[subject]
		if len(keys) != 1 {
			return Schedule{}, inconsistency("subject %v is scheduled %d times", c.Subject(subject).Id, len(keys))
		}
		key := keys[0]

		teacher, slot, room := c.Teacher(key.Teacher), c.TimeSlot(key.Slot), c.Room(key.Room)
		// Check that:
		// - Teacher is qualified for the subject and available at the slot
		// - Teacher is not already teaching at the slot
		// - Room is not already taken at the slot
		if !c.Eligible(key.Teacher, key.Subject, key.Slot) {
			return Schedule{}, inconsistency("teacher %v cannot teach subject %v at slot %v", teacher.Id, c.Subject(subject).Id, slot.Id)
		} else if teacherAssistance[key.Teacher][key.Slot] {
			return Schedule{}, inconsistency("teacher %v teaches twice at slot %v", teacher.Id, slot.Id)
		} else if roomAssistance[key.Room][key.Slot] {
			return Schedule{}, inconsistency("room %v is used twice at slot %v", room.Id, slot.Id)
		}
		teacherAssistance[key.Teacher][key.Slot] = true
		roomAssistance[key.Room][key.Slot] = true

		cost := tupleCost(c, key)
		total += cost
		schedule.Rows = append(schedule.Rows, Row{
			Subject: c.Subject(subject).Id,
			Teacher: teacher.Id,
			Slot:    slot.Id,
			Room:    room.Id,
			Cost:    cost,
		})
	}

	//** Check the realized cost against the reported objective
	schedule.TotalCost = schedule.Scale * float64(total)
	if math.Abs(schedule.TotalCost-solution.Objective) > integralityTolerance*math.Max(1, math.Abs(schedule.TotalCost)) {
		return Schedule{}, inconsistency("realized cost %v differs from objective %v", schedule.TotalCost, solution.Objective)
	}

	return schedule, nil
}

// Verify checks a schedule against the catalog independently of any model: every subject exactly once, qualified and
// available teachers, no teacher or room booked twice in a slot and a total cost matching the rows
func Verify(schedule Schedule, c *catalog.Catalog) error {
	_, subjects, _, _ := c.Size()
	taught := make(map[string]bool)
	teacherAssistance := make(map[[2]string]bool)
	roomAssistance := make(map[[2]string]bool)

	var total int64
	for _, row := range schedule.Rows {
		s, ok := c.SubjectIndex(row.Subject)
		if !ok {
			return inconsistency("unknown subject %v", row.Subject)
		}
		t, ok := c.TeacherIndex(row.Teacher)
		if !ok {
			return inconsistency("unknown teacher %v", row.Teacher)
		}
		h, ok := c.SlotIndex(row.Slot)
		if !ok {
			return inconsistency("unknown slot %v", row.Slot)
		}
		r, ok := c.RoomIndex(row.Room)
		if !ok {
			return inconsistency("unknown room %v", row.Room)
		}

		slot := fmt.Sprint(row.Slot)
		switch {
		case taught[row.Subject]:
			return inconsistency("subject %v is scheduled more than once", row.Subject)
		case !c.Qualified(t, s):
			return inconsistency("teacher %v is not qualified for subject %v", row.Teacher, row.Subject)
		case !c.Available(t, h):
			return inconsistency("teacher %v is not available at slot %v", row.Teacher, row.Slot)
		case teacherAssistance[[2]string{row.Teacher, slot}]:
			return inconsistency("teacher %v teaches twice at slot %v", row.Teacher, row.Slot)
		case roomAssistance[[2]string{row.Room, slot}]:
			return inconsistency("room %v is used twice at slot %v", row.Room, row.Slot)
		}

		taught[row.Subject] = true
		teacherAssistance[[2]string{row.Teacher, slot}] = true
		roomAssistance[[2]string{row.Room, slot}] = true
		total += tupleCost(c, Key{Teacher: t, Subject: s, Slot: h, Room: r})
	}

	if len(taught) != subjects {
		missing := lo.Filter(c.Subjects(), func(subject catalog.Subject, _ int) bool { return !taught[subject.Id] })
		return inconsistency("subjects %v are not scheduled", lo.Map(missing, func(subject catalog.Subject, _ int) string { return subject.Id }))
	}

	scale := schedule.Scale
	if scale == 0 {
		scale = 1
	}
	if expected := scale * float64(total); math.Abs(expected-schedule.TotalCost) > integralityTolerance*math.Max(1, math.Abs(expected)) {
		return inconsistency("total cost %v does not match the rows (%v)", schedule.TotalCost, expected)
	}

	return nil
}
