package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/limaJavier/mipschedule/pkg/catalog"
	"github.com/limaJavier/mipschedule/pkg/mip"
	"github.com/limaJavier/mipschedule/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optimalOutcome() model.Outcome {
	return model.Outcome{
		RunID:  "run",
		Status: mip.Optimal,
		Schedule: &model.Schedule{
			Rows: []model.Row{
				{Subject: "k", Teacher: "G", Slot: 8, Room: "c", Cost: 76},
				{Subject: "j", Teacher: "A", Slot: 1, Room: "c", Cost: 75},
			},
			TotalCost: 151000,
			Scale:     1000,
		},
		Message:  "optimal schedule found",
		Duration: 1500 * time.Millisecond,
	}
}

func TestWriteOutcome(t *testing.T) {
	var buffer bytes.Buffer

	require.NoError(t, WriteOutcome(&buffer, optimalOutcome()))

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"SUBJECT", "TEACHER", "SLOT", "ROOM", "COST"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"k", "G", "8", "c", "76"}, strings.Fields(lines[1]))
	assert.Equal(t, "Status: Optimal", lines[3])
	assert.Equal(t, "Total cost: 151000", lines[4])
}

func TestWriteOutcomeWithoutSchedule(t *testing.T) {
	var buffer bytes.Buffer
	outcome := model.Outcome{Status: mip.Infeasible, Message: "no optimal solution found: no assignment satisfies every constraint"}

	require.NoError(t, WriteOutcome(&buffer, outcome))

	assert.Equal(t, "Status: Infeasible\nno optimal solution found: no assignment satisfies every constraint\n", buffer.String())
}

func TestWriteCatalog(t *testing.T) {
	var buffer bytes.Buffer

	require.NoError(t, WriteCatalog(&buffer, catalog.Default()))

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, []string{"A", "10", "k,j,s", "1,2,3", "k", "10", "1", "20", "a", "50"}, strings.Fields(lines[1]))
}

func TestWriteJSON(t *testing.T) {
	var buffer bytes.Buffer
	outcome := optimalOutcome()

	require.NoError(t, WriteJSON(&buffer, NewDocument(outcome, catalog.Default())))

	var document Document
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &document))
	assert.Equal(t, "Optimal", document.Status)
	assert.Equal(t, 1.5, document.Seconds)
	assert.Len(t, document.Catalog, 9)
	if diff := cmp.Diff(outcome.Schedule, document.Schedule); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}
}
