package scoresheet

import (
	"bytes"
	"io"

	"github.com/xuri/excelize/v2"
)

// xlsxSource streams the first worksheet row by row.
type xlsxSource struct {
	file *excelize.File
	rows *excelize.Rows
}

func openXLSX(data []byte) (cellSource, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Reason: "unreadable workbook", Err: err}
	}
	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		_ = file.Close()
		return nil, &ParseError{Format: FormatXLSX, Reason: "workbook has no sheets"}
	}
	rows, err := file.Rows(sheets[0])
	if err != nil {
		_ = file.Close()
		return nil, &ParseError{Format: FormatXLSX, Reason: "unreadable worksheet", Err: err}
	}
	return &xlsxSource{file: file, rows: rows}, nil
}

func (s *xlsxSource) next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, &ParseError{Format: FormatXLSX, Reason: "corrupt worksheet", Err: err}
		}
		return nil, io.EOF
	}
	cells, err := s.rows.Columns()
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Reason: "corrupt row", Err: err}
	}
	return cells, nil
}

func (s *xlsxSource) close() error {
	_ = s.rows.Close()
	return s.file.Close()
}
