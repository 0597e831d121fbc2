package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title: "Attendance Report",
		Columns: []Column{
			{Header: "Date", Width: 30},
			{Header: "Student", Width: 80},
			{Header: "Status", Width: 80},
		},
		Rows: [][]string{
			{"2026-09-01", "Student One", "PRESENT"},
			{"2026-09-01", "Student Two", "ABSENT"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	data, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Student,Status", lines[0])
	assert.Contains(t, lines[1], "Student One")
}

func TestCSVExporterRejectsRaggedRow(t *testing.T) {
	table := sampleTable()
	table.Rows = append(table.Rows, []string{"too", "short"})

	_, err := NewCSVExporter().Render(table)
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data, err := NewPDFExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestPDFExporterDistributesMissingWidths(t *testing.T) {
	table := sampleTable()
	for i := range table.Columns {
		table.Columns[i].Width = 0
	}

	data, err := NewPDFExporter().Render(table)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
