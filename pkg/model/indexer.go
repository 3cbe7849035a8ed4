package model

// Key identifies an assignment tuple by the positions of its teacher, subject, slot and room in the catalog
type Key struct {
	Teacher int
	Subject int
	Slot    int
	Room    int
}

// Indexer gives a unique dense index to each assignment tuple and vice versa. Indices follow the lexicographic order
// (teacher, subject, slot, room), so the variables of a (teacher, subject, slot) combination are contiguous
type Indexer struct {
	teachers, subjects, slots, rooms         int
	teacherStride, subjectStride, slotStride int
}

func NewIndexer(teachers, subjects, slots, rooms int) Indexer {
	return Indexer{
		teachers:      teachers,
		subjects:      subjects,
		slots:         slots,
		rooms:         rooms,
		slotStride:    rooms,
		subjectStride: slots * rooms,
		teacherStride: subjects * slots * rooms,
	}
}

// Returns the number of assignment tuples
func (indexer Indexer) Len() int {
	return indexer.teachers * indexer.teacherStride
}

// Returns a unique index to a combination of assignment attributes
func (indexer Indexer) Index(key Key) int {
	return key.Teacher*indexer.teacherStride + key.Subject*indexer.subjectStride + key.Slot*indexer.slotStride + key.Room
}

// Returns the combination of assignment attributes from a unique index
func (indexer Indexer) Attributes(index int) Key {
	room := index % indexer.rooms
	index = index / indexer.rooms

	slot := index % indexer.slots
	index = index / indexer.slots

	subject := index % indexer.subjects
	index = index / indexer.subjects

	return Key{Teacher: index, Subject: subject, Slot: slot, Room: room}
}
