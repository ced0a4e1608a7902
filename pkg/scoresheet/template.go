package scoresheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// TemplateHeaders are the columns of a blank score sheet. Each one matches a
// parser synonym so a filled template uploads unchanged.
var TemplateHeaders = []string{"Student ID", "Student Name", "Score", "Remarks"}

// TemplateRow pre-populates one student line.
type TemplateRow struct {
	StudentID   string
	StudentName string
}

const templateSheet = "Results"

// WriteXLSXTemplate writes a single sheet workbook with empty score and remarks cells.
func WriteXLSXTemplate(w io.Writer, rows []TemplateRow) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName(f.GetSheetName(0), templateSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(templateSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, 2, 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	header := make([]interface{}, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		// student ids are written as text so leading zeros survive
		if err := sw.SetRow(cellRef, []interface{}{row.StudentID, row.StudentName, "", ""}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush template: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

// TemplateFilename follows the "<CODE>_Results_Template.<ext>" convention.
func TemplateFilename(courseCode string, format Format) string {
	return fmt.Sprintf("%s_Results_Template.%s", courseCode, format)
}
