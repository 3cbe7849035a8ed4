package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

type RawCosts struct {
	Teachers map[string]int64 `mapstructure:"teachers" json:"teachers" yaml:"teachers"`
	Subjects map[string]int64 `mapstructure:"subjects" json:"subjects" yaml:"subjects"`
	Slots    map[string]int64 `mapstructure:"slots" json:"slots" yaml:"slots"`
	Rooms    map[string]int64 `mapstructure:"rooms" json:"rooms" yaml:"rooms"`
}

// RawCatalog is the tabular form of a catalog as it is written in configuration: four identifier lists, the two
// relations keyed by teacher and four independent cost tables
type RawCatalog struct {
	Teachers       []string            `mapstructure:"teachers" json:"teachers" yaml:"teachers"`
	Subjects       []string            `mapstructure:"subjects" json:"subjects" yaml:"subjects"`
	Slots          []int               `mapstructure:"slots" json:"slots" yaml:"slots"`
	Rooms          []string            `mapstructure:"rooms" json:"rooms" yaml:"rooms"`
	Qualifications map[string][]string `mapstructure:"qualifications" json:"qualifications" yaml:"qualifications"`
	Availability   map[string][]int    `mapstructure:"availability" json:"availability" yaml:"availability"`
	Costs          RawCosts            `mapstructure:"costs" json:"costs" yaml:"costs"`
}

// Load reads a catalog from a JSON or YAML file (chosen by extension) and validates it
func Load(file string) (*Catalog, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return nil, &ConfigurationError{Field: "file", Reason: err.Error()}
	}

	var document map[string]any
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &document)
	default:
		err = json.Unmarshal(bytes, &document)
	}
	if err != nil {
		return nil, &ConfigurationError{Field: "file", Reason: fmt.Sprintf("cannot parse %v: %v", file, err)}
	}

	return Decode(document)
}

// Decode turns a generic document (as produced by a JSON or YAML parser) into a validated catalog
func Decode(document map[string]any) (*Catalog, error) {
	var raw RawCatalog
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &raw,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(document); err != nil {
		return nil, &ConfigurationError{Field: "document", Reason: err.Error()}
	}
	return New(raw)
}

// New validates the raw tables and builds the immutable catalog. Every inconsistency is reported as a
// ConfigurationError, since a catalog that cannot be indexed must never reach the model builder
func New(raw RawCatalog) (*Catalog, error) {
	if err := checkIdentifiers("teachers", raw.Teachers); err != nil {
		return nil, err
	}
	if err := checkIdentifiers("subjects", raw.Subjects); err != nil {
		return nil, err
	}
	if err := checkIdentifiers("slots", lo.Map(raw.Slots, func(slot int, _ int) string { return strconv.Itoa(slot) })); err != nil {
		return nil, err
	}
	if err := checkIdentifiers("rooms", raw.Rooms); err != nil {
		return nil, err
	}

	c := &Catalog{
		teacherIndex: make(map[string]int, len(raw.Teachers)),
		subjectIndex: make(map[string]int, len(raw.Subjects)),
		slotIndex:    make(map[int]int, len(raw.Slots)),
		roomIndex:    make(map[string]int, len(raw.Rooms)),
	}

	//** Manage entities and their costs
	for i, id := range raw.Teachers {
		cost, err := lookupCost("costs.teachers", raw.Costs.Teachers, id)
		if err != nil {
			return nil, err
		}
		c.teachers = append(c.teachers, Teacher{Id: id, Cost: cost})
		c.teacherIndex[id] = i
	}
	for i, id := range raw.Subjects {
		cost, err := lookupCost("costs.subjects", raw.Costs.Subjects, id)
		if err != nil {
			return nil, err
		}
		c.subjects = append(c.subjects, Subject{Id: id, Cost: cost})
		c.subjectIndex[id] = i
	}
	for i, id := range raw.Slots {
		cost, err := lookupCost("costs.slots", raw.Costs.Slots, strconv.Itoa(id))
		if err != nil {
			return nil, err
		}
		c.timeSlots = append(c.timeSlots, TimeSlot{Id: id, Cost: cost})
		c.slotIndex[id] = i
	}
	for i, id := range raw.Rooms {
		cost, err := lookupCost("costs.rooms", raw.Costs.Rooms, id)
		if err != nil {
			return nil, err
		}
		c.rooms = append(c.rooms, Room{Id: id, Cost: cost})
		c.roomIndex[id] = i
	}

	//** Make sure cost tables do not name unknown entities
	if err := checkUnknownKeys("costs.teachers", raw.Costs.Teachers, raw.Teachers); err != nil {
		return nil, err
	}
	if err := checkUnknownKeys("costs.subjects", raw.Costs.Subjects, raw.Subjects); err != nil {
		return nil, err
	}
	if err := checkUnknownKeys("costs.slots", raw.Costs.Slots, lo.Map(raw.Slots, func(slot int, _ int) string { return strconv.Itoa(slot) })); err != nil {
		return nil, err
	}
	if err := checkUnknownKeys("costs.rooms", raw.Costs.Rooms, raw.Rooms); err != nil {
		return nil, err
	}
	if err := checkUnknownKeys("qualifications", raw.Qualifications, raw.Teachers); err != nil {
		return nil, err
	}
	if err := checkUnknownKeys("availability", raw.Availability, raw.Teachers); err != nil {
		return nil, err
	}

	//** Manage relations
	c.qualified = make([][]bool, len(c.teachers))
	c.available = make([][]bool, len(c.teachers))
	for t, teacher := range c.teachers {
		c.qualified[t] = make([]bool, len(c.subjects))
		c.available[t] = make([]bool, len(c.timeSlots))

		subjects, ok := raw.Qualifications[teacher.Id]
		if !ok {
			return nil, &ConfigurationError{Field: "qualifications", Reason: fmt.Sprintf("teacher \"%v\" has no qualification entry", teacher.Id)}
		}
		for _, subject := range subjects {
			s, ok := c.subjectIndex[subject]
			if !ok {
				return nil, &ConfigurationError{Field: "qualifications", Reason: fmt.Sprintf("teacher \"%v\" is qualified for unknown subject \"%v\"", teacher.Id, subject)}
			}
			c.qualified[t][s] = true
		}

		slots, ok := raw.Availability[teacher.Id]
		if !ok {
			return nil, &ConfigurationError{Field: "availability", Reason: fmt.Sprintf("teacher \"%v\" has no availability entry", teacher.Id)}
		}
		for _, slot := range slots {
			h, ok := c.slotIndex[slot]
			if !ok {
				return nil, &ConfigurationError{Field: "availability", Reason: fmt.Sprintf("teacher \"%v\" is available at unknown slot %v", teacher.Id, slot)}
			}
			c.available[t][h] = true
		}
	}

	return c, nil
}

func checkIdentifiers(field string, ids []string) error {
	if len(ids) == 0 {
		return &ConfigurationError{Field: field, Reason: "must not be empty"}
	}
	if lo.Contains(ids, "") {
		return &ConfigurationError{Field: field, Reason: "identifiers must not be empty"}
	}
	if duplicates := lo.FindDuplicates(ids); len(duplicates) > 0 {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("duplicate identifiers %v", duplicates)}
	}
	return nil
}

func lookupCost(field string, costs map[string]int64, id string) (int64, error) {
	cost, ok := costs[id]
	if !ok {
		return 0, &ConfigurationError{Field: field, Reason: fmt.Sprintf("missing cost for \"%v\"", id)}
	} else if cost < 0 {
		return 0, &ConfigurationError{Field: field, Reason: fmt.Sprintf("cost for \"%v\" must be nonnegative: %v", id, cost)}
	}
	return cost, nil
}

func checkUnknownKeys[V any](field string, table map[string]V, ids []string) error {
	unknown := lo.Without(lo.Keys(table), ids...)
	if len(unknown) > 0 {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("unknown identifiers %v", unknown)}
	}
	return nil
}
