package model

import (
	"fmt"
	"math"

	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/limaJavier/mipschedule/pkg/mip"
)

// Stats describes the size of a built problem
type Stats struct {
	Variables   int `json:"variables"`
	Constraints int `json:"constraints"`
	Demand      int `json:"demand"`
	Teacher     int `json:"teacher"`
	Room        int `json:"room"`
	Eligibility int `json:"eligibility"`
	Symmetry    int `json:"symmetry,omitempty"`
}

// Problem is the optimization model of a catalog together with the indexer that maps its variables back to
// assignment tuples
type Problem struct {
	Model   *mip.Model
	Indexer Indexer
	Stats   Stats
}

type BuildOptions struct {
	// Scale multiplies the objective. It changes the reported magnitude only, never the optimal assignment
	Scale float64
	// BreakSymmetry adds the room ordering constraints. The optimal cost is unchanged, but fewer equivalent
	// assignments are left for the backend to explore
	BreakSymmetry bool
}

// Build creates one binary variable per assignment tuple, the cost objective and the demand, teacher-exclusivity,
// room-exclusivity and eligibility constraints, plus the room ordering ones when asked for
func Build(c *catalog.Catalog, options BuildOptions) (*Problem, error) {
	if c == nil {
		return nil, &catalog.ConfigurationError{Field: "catalog", Reason: "no catalog was supplied"}
	}
	scale := options.Scale
	if scale == 0 {
		scale = 1
	} else if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, &catalog.ConfigurationError{Field: "scale", Reason: fmt.Sprintf("must be a positive finite number: %v", scale)}
	}

	//** Extract attributes' domains
	teachers, subjects, slots, rooms := c.Size()

	//** Initialize dependencies
	indexer := NewIndexer(teachers, subjects, slots, rooms)
	state := constraintState{
		catalog:  c,
		indexer:  indexer,
		teachers: teachers,
		subjects: subjects,
		slots:    slots,
		rooms:    rooms,
	}

	//** Variables and objective
	model := &mip.Model{
		Name:      "schedule",
		Variables: make([]mip.Variable, indexer.Len()),
		Objective: make([]mip.Term, indexer.Len()),
		Scale:     scale,
	}
	for variable := range indexer.Len() {
		key := indexer.Attributes(variable)
		model.Variables[variable] = mip.Variable{Name: fmt.Sprintf("x[%v,%v,%v,%v]",
			c.Teacher(key.Teacher).Id,
			c.Subject(key.Subject).Id,
			c.TimeSlot(key.Slot).Id,
			c.Room(key.Room).Id,
		)}
		model.Objective[variable] = mip.Term{Var: variable, Coef: float64(tupleCost(c, key))}
	}

	//** Constraints
	demand := demandConstraints(state)
	teacher := teacherConstraints(state)
	room := roomConstraints(state)
	eligibility := eligibilityConstraints(state)
	var symmetry []mip.Constraint
	if options.BreakSymmetry {
		symmetry = symmetryConstraints(state)
	}

	model.Constraints = make([]mip.Constraint, 0, len(demand)+len(teacher)+len(room)+len(eligibility)+len(symmetry))
	model.Constraints = append(model.Constraints, demand...)
	model.Constraints = append(model.Constraints, teacher...)
	model.Constraints = append(model.Constraints, room...)
	model.Constraints = append(model.Constraints, eligibility...)
	model.Constraints = append(model.Constraints, symmetry...)

	return &Problem{
		Model:   model,
		Indexer: indexer,
		Stats: Stats{
			Variables:   len(model.Variables),
			Constraints: len(model.Constraints),
			Demand:      len(demand),
			Teacher:     len(teacher),
			Room:        len(room),
			Eligibility: len(eligibility),
			Symmetry:    len(symmetry),
		},
	}, nil
}

// tupleCost is the unscaled cost of selecting the tuple
func tupleCost(c *catalog.Catalog, key Key) int64 {
	return c.TeacherCost(key.Teacher) + c.SubjectCost(key.Subject) + c.SlotCost(key.Slot) + c.RoomCost(key.Room)
}
