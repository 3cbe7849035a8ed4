package model

import (
	"fmt"

	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/limaJavier/mipschedule/pkg/mip"
)

type constraintState struct {
	catalog *catalog.Catalog
	indexer Indexer

	teachers,
	subjects,
	slots,
	rooms int
}

// Each subject is taught exactly once: sum over (t, h, r) of x(t, s, h, r) = 1
func demandConstraints(state constraintState) []mip.Constraint {
	constraints := make([]mip.Constraint, 0, state.subjects)

	for subject := range state.subjects {
		terms := make([]mip.Term, 0, state.teachers*state.slots*state.rooms)
		for teacher := range state.teachers {
			for slot := range state.slots {
				for room := range state.rooms {
					terms = append(terms, unit(state, teacher, subject, slot, room))
				}
			}
		}
		constraints = append(constraints, mip.Constraint{
			Name:  fmt.Sprintf("demand[%v]", state.catalog.Subject(subject).Id),
			Terms: terms,
			Sense: mip.Eq,
			RHS:   1,
		})
	}

	return constraints
}

// A teacher teaches at most one subject per slot: sum over (s, r) of x(t, s, h, r) <= 1
func teacherConstraints(state constraintState) []mip.Constraint {
	constraints := make([]mip.Constraint, 0, state.teachers*state.slots)

	for teacher := range state.teachers {
		for slot := range state.slots {
			terms := make([]mip.Term, 0, state.subjects*state.rooms)
			for subject := range state.subjects {
				for room := range state.rooms {
					terms = append(terms, unit(state, teacher, subject, slot, room))
				}
			}
			constraints = append(constraints, mip.Constraint{
				Name:  fmt.Sprintf("teacher[%v,%v]", state.catalog.Teacher(teacher).Id, state.catalog.TimeSlot(slot).Id),
				Terms: terms,
				Sense: mip.LessEq,
				RHS:   1,
			})
		}
	}

	return constraints
}

// A room hosts at most one subject per slot: sum over (t, s) of x(t, s, h, r) <= 1
func roomConstraints(state constraintState) []mip.Constraint {
	constraints := make([]mip.Constraint, 0, state.rooms*state.slots)

	for room := range state.rooms {
		for slot := range state.slots {
			terms := make([]mip.Term, 0, state.teachers*state.subjects)
			for teacher := range state.teachers {
				for subject := range state.subjects {
					terms = append(terms, unit(state, teacher, subject, slot, room))
				}
			}
			constraints = append(constraints, mip.Constraint{
				Name:  fmt.Sprintf("room[%v,%v]", state.catalog.Room(room).Id, state.catalog.TimeSlot(slot).Id),
				Terms: terms,
				Sense: mip.LessEq,
				RHS:   1,
			})
		}
	}

	return constraints
}

// Tuples whose teacher is not qualified for the subject or not available at the slot are forced to 0, in every room
func eligibilityConstraints(state constraintState) []mip.Constraint {
	constraints := make([]mip.Constraint, 0)

	for teacher := range state.teachers {
		for subject := range state.subjects {
			for slot := range state.slots {
				if state.catalog.Eligible(teacher, subject, slot) {
					continue
				}
				for room := range state.rooms {
					constraints = append(constraints, mip.Constraint{
						Name: fmt.Sprintf("eligible[%v,%v,%v,%v]",
							state.catalog.Teacher(teacher).Id,
							state.catalog.Subject(subject).Id,
							state.catalog.TimeSlot(slot).Id,
							state.catalog.Room(room).Id,
						),
						Terms: []mip.Term{unit(state, teacher, subject, slot, room)},
						Sense: mip.Eq,
						RHS:   0,
					})
				}
			}
		}
	}

	return constraints
}

// Rooms of equal cost are interchangeable, so within a slot they are filled in catalog order: a room hosts a subject
// only if the previous room of the same cost does. Sum over (t, s) of x(t, s, h, r) - x(t, s, h, q) <= 0
func symmetryConstraints(state constraintState) []mip.Constraint {
	constraints := make([]mip.Constraint, 0)

	previous := make(map[int64]int)
	for room := range state.rooms {
		cost := state.catalog.RoomCost(room)
		twin, ok := previous[cost]
		previous[cost] = room
		if !ok {
			continue
		}
		for slot := range state.slots {
			terms := make([]mip.Term, 0, 2*state.teachers*state.subjects)
			for teacher := range state.teachers {
				for subject := range state.subjects {
					terms = append(terms, unit(state, teacher, subject, slot, room))
					twinTerm := unit(state, teacher, subject, slot, twin)
					twinTerm.Coef = -1
					terms = append(terms, twinTerm)
				}
			}
			constraints = append(constraints, mip.Constraint{
				Name:  fmt.Sprintf("symmetry[%v,%v,%v]", state.catalog.Room(room).Id, state.catalog.Room(twin).Id, state.catalog.TimeSlot(slot).Id),
				Terms: terms,
				Sense: mip.LessEq,
				RHS:   0,
			})
		}
	}

	return constraints
}

func unit(state constraintState, teacher, subject, slot, room int) mip.Term {
	return mip.Term{
		Var:  state.indexer.Index(Key{Teacher: teacher, Subject: subject, Slot: slot, Room: room}),
		Coef: 1,
	}
}
