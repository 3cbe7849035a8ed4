package model

import (
	"fmt"
	"strings"

	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// Diagnosis explains why a catalog admits no schedule. Uncoverable subjects have no eligible (teacher, slot) pair at
// all. Unmatched subjects are left out of a maximum matching between subjects and eligible (teacher, slot) pairs,
// i.e. they compete for the same few teachers and slots. Rooms are not part of the matching, so a catalog whose
// diagnosis is empty can still be infeasible when a slot needs more rooms than there are
type Diagnosis struct {
	Uncoverable []string `json:"uncoverable,omitempty"`
	Unmatched   []string `json:"unmatched,omitempty"`
}

func (diagnosis Diagnosis) Empty() bool {
	return len(diagnosis.Uncoverable) == 0 && len(diagnosis.Unmatched) == 0
}

func (diagnosis Diagnosis) String() string {
	if diagnosis.Empty() {
		return "every subject can be matched to a distinct eligible teacher and slot; rooms are insufficient"
	}
	parts := make([]string, 0, 2)
	if len(diagnosis.Uncoverable) > 0 {
		parts = append(parts, fmt.Sprintf("no qualified teacher is available for subjects %v", diagnosis.Uncoverable))
	}
	if len(diagnosis.Unmatched) > 0 {
		parts = append(parts, fmt.Sprintf("subjects %v compete for the same teachers and slots", diagnosis.Unmatched))
	}
	return strings.Join(parts, "; ")
}

// Diagnose looks for the reason a catalog is infeasible
func Diagnose(c *catalog.Catalog) (Diagnosis, error) {
	teachers, subjects, slots, _ := c.Size()
	diagnosis := Diagnosis{}

	//** Subjects without any eligible pair
	coverable := make([]int, 0, subjects)
	for subject := range subjects {
		if lo.SomeBy(lo.Range(teachers), func(teacher int) bool {
			return lo.SomeBy(lo.Range(slots), func(slot int) bool { return c.Eligible(teacher, subject, slot) })
		}) {
			coverable = append(coverable, subject)
		} else {
			diagnosis.Uncoverable = append(diagnosis.Uncoverable, c.Subject(subject).Id)
		}
	}

	//** Maximum matching between the remaining subjects and eligible (teacher, slot) pairs
	pairs := make([][2]int, 0)
	for teacher := range teachers {
		for slot := range slots {
			if lo.SomeBy(coverable, func(subject int) bool { return c.Eligible(teacher, subject, slot) }) {
				pairs = append(pairs, [2]int{teacher, slot})
			}
		}
	}

	if len(coverable) == 0 {
		return diagnosis, nil
	}

	neighbors := func(subjectAny any, pairAny any) (bool, error) {
		subject := subjectAny.(int)
		pair := pairAny.([2]int)

		return c.Eligible(pair[0], subject, pair[1]), nil
	}

	subjectsAny, pairsAny := lo.Map(coverable, func(subject int, _ int) any { return subject }), lo.Map(pairs, func(pair [2]int, _ int) any { return pair })

	graph, err := bipartitegraph.NewBipartiteGraph(subjectsAny, pairsAny, neighbors)
	if err != nil {
		return Diagnosis{}, err
	}

	matching := graph.LargestMatching()
	matched := make(map[int]bool, len(matching))
	for _, edge := range matching {
		matched[coverable[edge.Node1]] = true
	}
	for _, subject := range coverable {
		if !matched[subject] {
			diagnosis.Unmatched = append(diagnosis.Unmatched, c.Subject(subject).Id)
		}
	}

	return diagnosis, nil
}
