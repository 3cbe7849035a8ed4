package catalog

import (
	"slices"
	"strconv"
)

type Teacher struct {
	Id   string
	Cost int64
}

type Subject struct {
	Id   string
	Cost int64
}

type TimeSlot struct {
	Id   int
	Cost int64
}

type Room struct {
	Id   string
	Cost int64
}

// Catalog is the immutable registry of teachers, subjects, time slots and rooms together with their costs and the
// qualification and availability relations. Entities are addressed by their position in the ordered collections
type Catalog struct {
	teachers  []Teacher
	subjects  []Subject
	timeSlots []TimeSlot
	rooms     []Room

	qualified [][]bool // qualified[teacher][subject]
	available [][]bool // available[teacher][slot]

	teacherIndex map[string]int
	subjectIndex map[string]int
	slotIndex    map[int]int
	roomIndex    map[string]int
}

func (c *Catalog) Teachers() []Teacher { return slices.Clone(c.teachers) }
func (c *Catalog) Subjects() []Subject { return slices.Clone(c.subjects) }
func (c *Catalog) TimeSlots() []TimeSlot { return slices.Clone(c.timeSlots) }
func (c *Catalog) Rooms() []Room { return slices.Clone(c.rooms) }
func (c *Catalog) Teacher(t int) Teacher { return c.teachers[t] }
func (c *Catalog) Subject(s int) Subject { return c.subjects[s] }
func (c *Catalog) TimeSlot(h int) TimeSlot { return c.timeSlots[h] }
func (c *Catalog) Room(r int) Room { return c.rooms[r] }

// Size returns the cardinality of each collection in the order teachers, subjects, slots, rooms
func (c *Catalog) Size() (teachers, subjects, slots, rooms int) {
	return len(c.teachers), len(c.subjects), len(c.timeSlots), len(c.rooms)
}

func (c *Catalog) TeacherCost(t int) int64 { return c.teachers[t].Cost }
func (c *Catalog) SubjectCost(s int) int64 { return c.subjects[s].Cost }
func (c *Catalog) SlotCost(h int) int64 { return c.timeSlots[h].Cost }
func (c *Catalog) RoomCost(r int) int64 { return c.rooms[r].Cost }

// Checks whether the teacher is qualified to teach the subject
func (c *Catalog) Qualified(teacher, subject int) bool {
	return c.qualified[teacher][subject]
}

// Checks whether the teacher is available at the time slot
func (c *Catalog) Available(teacher, slot int) bool {
	return c.available[teacher][slot]
}

// Checks whether the teacher can teach the subject at the time slot
func (c *Catalog) Eligible(teacher, subject, slot int) bool {
	return c.qualified[teacher][subject] && c.available[teacher][slot]
}

func (c *Catalog) QualifiedSubjects(teacher int) []Subject {
	subjects := make([]Subject, 0)
	for subject, ok := range c.qualified[teacher] {
		if ok {
			subjects = append(subjects, c.subjects[subject])
		}
	}
	return subjects
}

func (c *Catalog) AvailableSlots(teacher int) []TimeSlot {
	slots := make([]TimeSlot, 0)
	for slot, ok := range c.available[teacher] {
		if ok {
			slots = append(slots, c.timeSlots[slot])
		}
	}
	return slots
}

func (c *Catalog) TeacherIndex(id string) (int, bool) {
	index, ok := c.teacherIndex[id]
	return index, ok
}

func (c *Catalog) SubjectIndex(id string) (int, bool) {
	index, ok := c.subjectIndex[id]
	return index, ok
}

func (c *Catalog) SlotIndex(id int) (int, bool) {
	index, ok := c.slotIndex[id]
	return index, ok
}

func (c *Catalog) RoomIndex(id string) (int, bool) {
	index, ok := c.roomIndex[id]
	return index, ok
}

// Raw returns the tabular representation the catalog was built from
func (c *Catalog) Raw() RawCatalog {
	raw := RawCatalog{
		Qualifications: make(map[string][]string, len(c.teachers)),
		Availability:   make(map[string][]int, len(c.teachers)),
		Costs: RawCosts{
			Teachers: make(map[string]int64, len(c.teachers)),
			Subjects: make(map[string]int64, len(c.subjects)),
			Slots:    make(map[string]int64, len(c.timeSlots)),
			Rooms:    make(map[string]int64, len(c.rooms)),
		},
	}

	for t, teacher := range c.teachers {
		raw.Teachers = append(raw.Teachers, teacher.Id)
		raw.Costs.Teachers[teacher.Id] = teacher.Cost
		raw.Qualifications[teacher.Id] = make([]string, 0)
		for _, subject := range c.QualifiedSubjects(t) {
			raw.Qualifications[teacher.Id] = append(raw.Qualifications[teacher.Id], subject.Id)
		}
		raw.Availability[teacher.Id] = make([]int, 0)
		for _, slot := range c.AvailableSlots(t) {
			raw.Availability[teacher.Id] = append(raw.Availability[teacher.Id], slot.Id)
		}
	}
	for _, subject := range c.subjects {
		raw.Subjects = append(raw.Subjects, subject.Id)
		raw.Costs.Subjects[subject.Id] = subject.Cost
	}
	for _, slot := range c.timeSlots {
		raw.Slots = append(raw.Slots, slot.Id)
		raw.Costs.Slots[strconv.Itoa(slot.Id)] = slot.Cost
	}
	for _, room := range c.rooms {
		raw.Rooms = append(raw.Rooms, room.Id)
		raw.Costs.Rooms[room.Id] = room.Cost
	}

	return raw
}
