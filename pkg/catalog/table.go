package catalog

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Row is one line of the display-ready catalog echo. Row i carries the i-th entry of every collection, so columns of
// shorter collections are left empty once they run out
type Row struct {
	Teacher        string `json:"teacher,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Slot           string `json:"slot,omitempty"`
	Room           string `json:"room,omitempty"`
	Qualifications string `json:"qualifications,omitempty"`
	Availability   string `json:"availability,omitempty"`
	TeacherCost    *int64 `json:"teacherCost,omitempty"`
	SubjectCost    *int64 `json:"subjectCost,omitempty"`
	SlotCost       *int64 `json:"slotCost,omitempty"`
	RoomCost       *int64 `json:"roomCost,omitempty"`
}

// Table echoes the catalog column by column, the way the constraint table is shown next to the schedule
func (c *Catalog) Table() []Row {
	rows := make([]Row, max(len(c.teachers), len(c.subjects), len(c.timeSlots), len(c.rooms)))

	for t, teacher := range c.teachers {
		rows[t].Teacher = teacher.Id
		rows[t].TeacherCost = lo.ToPtr(teacher.Cost)
		rows[t].Qualifications = strings.Join(lo.Map(c.QualifiedSubjects(t), func(subject Subject, _ int) string { return subject.Id }), ",")
		rows[t].Availability = strings.Join(lo.Map(c.AvailableSlots(t), func(slot TimeSlot, _ int) string { return strconv.Itoa(slot.Id) }), ",")
	}
	for s, subject := range c.subjects {
		rows[s].Subject = subject.Id
		rows[s].SubjectCost = lo.ToPtr(subject.Cost)
	}
	for h, slot := range c.timeSlots {
		rows[h].Slot = strconv.Itoa(slot.Id)
		rows[h].SlotCost = lo.ToPtr(slot.Cost)
	}
	for r, room := range c.rooms {
		rows[r].Room = room.Id
		rows[r].RoomCost = lo.ToPtr(room.Cost)
	}

	return rows
}
