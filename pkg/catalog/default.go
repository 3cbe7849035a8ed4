package catalog

import "log"

// DefaultRaw returns the reference scenario: nine teachers, nine subjects, nine slots and nine rooms
func DefaultRaw() RawCatalog {
	return RawCatalog{
		Teachers: []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"},
		Subjects: []string{"k", "j", "o", "r", "p", "m", "n", "s", "q"},
		Slots:    []int{1, 2, 3, 4, 5, 6, 7, 8, 9},
		Rooms:    []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"},
		Qualifications: map[string][]string{
			"A": {"j", "s", "k"},
			"B": {"o", "m"},
			"C": {"r", "n", "s"},
			"D": {"p", "s", "q"},
			"E": {"j", "o", "n"},
			"F": {"o", "r", "q"},
			"G": {"r", "p", "k"},
			"H": {"p", "j", "m"},
			"I": {"j", "o", "r"},
		},
		Availability: map[string][]int{
			"A": {1, 2, 3},
			"B": {2, 4, 6},
			"C": {3, 4, 5},
			"D": {6, 8, 9},
			"E": {9, 8, 6},
			"F": {1, 3, 5},
			"G": {4, 6, 8},
			"H": {1, 3, 6},
			"I": {3, 6, 7},
		},
		Costs: RawCosts{
			Teachers: map[string]int64{"A": 10, "B": 20, "C": 20, "D": 10, "E": 20, "F": 10, "G": 10, "H": 20, "I": 20},
			Subjects: map[string]int64{"k": 10, "j": 5, "o": 5, "r": 5, "p": 10, "m": 10, "n": 5, "s": 5, "q": 5},
			Slots:    map[string]int64{"1": 20, "2": 20, "3": 20, "4": 18, "5": 18, "6": 18, "7": 16, "8": 16, "9": 16},
			Rooms:    map[string]int64{"a": 50, "b": 50, "c": 40, "d": 40, "e": 50, "f": 50, "g": 40, "h": 40, "i": 50},
		},
	}
}

// Default returns the reference scenario as a validated catalog
func Default() *Catalog {
	c, err := New(DefaultRaw())
	if err != nil {
		log.Panicf("default catalog is invalid: %v", err)
	}
	return c
}
