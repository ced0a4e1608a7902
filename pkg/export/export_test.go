package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterPadsShortRows(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Student ID", "Student Name", "Score", "Remarks"},
		Rows:    [][]string{{"007", "Bond, James"}, {"S2", "Eve"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Student ID,Student Name,Score,Remarks\n007,\"Bond, James\",,\nS2,Eve,,\n", string(out))
}

func TestCSVExporterRejectsInvalidData(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{Headers: []string{"a"}, Rows: [][]string{{"1", "2"}}})
	assert.Error(t, err)
}

func TestPDFExporterRendersSections(t *testing.T) {
	out, err := NewPDFExporter().Render(Document{
		Title:    "Academic Transcript",
		Subtitle: []string{"Ada Lovelace (STU001)"},
		Sections: []Section{{
			Heading: "First 2023/2024",
			Table:   Dataset{Headers: []string{"Code", "Grade"}, Rows: [][]string{{"CS101", "A"}}},
			Widths:  []float64{150, 40},
			Footer:  "GPA 4.00",
		}},
		Summary: []string{"CGPA 4.00"},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Document{Sections: []Section{{Heading: "empty"}}})
	assert.Error(t, err)
}
