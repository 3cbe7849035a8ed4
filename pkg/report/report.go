package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/limaJavier/mipschedule/pkg/model"
)

// Document is the machine readable result of one run
type Document struct {
	RunID     string           `json:"runId"`
	Status    string           `json:"status"`
	Message   string           `json:"message"`
	Stats     model.Stats      `json:"stats"`
	Schedule  *model.Schedule  `json:"schedule,omitempty"`
	Diagnosis *model.Diagnosis `json:"diagnosis,omitempty"`
	Catalog   []catalog.Row    `json:"catalog,omitempty"`
	Seconds   float64          `json:"seconds"`
}

func NewDocument(outcome model.Outcome, c *catalog.Catalog) Document {
	document := Document{
		RunID:     outcome.RunID,
		Status:    outcome.Status.String(),
		Message:   outcome.Message,
		Stats:     outcome.Stats,
		Schedule:  outcome.Schedule,
		Diagnosis: outcome.Diagnosis,
		Seconds:   outcome.Duration.Seconds(),
	}
	if c != nil {
		document.Catalog = c.Table()
	}
	return document
}

func WriteJSON(w io.Writer, document Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(document)
}

// WriteCatalog prints the catalog echo with one column per collection and its cost next to it
func WriteCatalog(w io.Writer, c *catalog.Catalog) error {
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(table, "TEACHER\tCOST\tQUALIFICATIONS\tAVAILABILITY\tSUBJECT\tCOST\tSLOT\tCOST\tROOM\tCOST\t")
	for _, row := range c.Table() {
		fmt.Fprintf(table, "%v\t%v\t%v\t%v\t%v\t%v\t%v\t%v\t%v\t%v\t\n",
			row.Teacher, cost(row.TeacherCost), row.Qualifications, row.Availability,
			row.Subject, cost(row.SubjectCost),
			row.Slot, cost(row.SlotCost),
			row.Room, cost(row.RoomCost),
		)
	}
	return table.Flush()
}

// WriteOutcome prints the schedule and its total cost, or the reason no schedule was found
func WriteOutcome(w io.Writer, outcome model.Outcome) error {
	if outcome.Schedule == nil {
		_, err := fmt.Fprintf(w, "Status: %v\n%v\n", outcome.Status, outcome.Message)
		return err
	}

	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(table, "SUBJECT\tTEACHER\tSLOT\tROOM\tCOST\t")
	for _, row := range outcome.Schedule.Rows {
		fmt.Fprintf(table, "%v\t%v\t%v\t%v\t%v\t\n", row.Subject, row.Teacher, row.Slot, row.Room, row.Cost)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Status: %v\nTotal cost: %v\n", outcome.Status, strconv.FormatFloat(outcome.Schedule.TotalCost, 'f', -1, 64))
	return err
}

func cost(value *int64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatInt(*value, 10)
}
