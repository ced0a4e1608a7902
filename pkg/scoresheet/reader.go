// Package scoresheet decodes uploaded score files into loosely typed rows.
//
// Only the first sheet of a workbook (or the whole CSV body) is read. The first
// row is the header; columns are located by case-insensitive synonyms.
package scoresheet

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format identifies the container of an uploaded file.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseError means the file could not be read as a score sheet at all.
type ParseError struct {
	Format Format
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Format, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RawRow is one data row. Optional cells are nil when the column is absent
// or the cell is blank. Rows without a student id are never emitted.
type RawRow struct {
	Line      int
	StudentID string
	Score     *string
	Remarks   *string
}

// Reader yields rows lazily. Next returns io.EOF after the last row.
type Reader interface {
	Next() (RawRow, error)
	Close() error
}

// ParseFormat normalises a declared format such as "XLSX" or ".csv".
func ParseFormat(raw string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), ".") {
	case "xlsx", "xlsm":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", &ParseError{Format: Format(raw), Reason: "unsupported file format"}
	}
}

// FormatFromFilename infers the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(filepath.Ext(name))
}

// Open validates the container and header and returns a row reader.
func Open(data []byte, format Format) (Reader, error) {
	if len(data) == 0 {
		return nil, &ParseError{Format: format, Reason: "file is empty"}
	}
	var src cellSource
	var err error
	switch format {
	case FormatXLSX:
		src, err = openXLSX(data)
	case FormatCSV:
		src, err = openCSV(data)
	default:
		return nil, &ParseError{Format: format, Reason: "unsupported file format"}
	}
	if err != nil {
		return nil, err
	}

	header, err := src.next()
	if err == io.EOF {
		_ = src.close()
		return nil, &ParseError{Format: format, Reason: "file has no header row"}
	}
	if err != nil {
		_ = src.close()
		return nil, err
	}
	cols := locateColumns(header)
	if cols.studentID < 0 {
		_ = src.close()
		return nil, &ParseError{Format: format, Reason: "no student identifier column"}
	}
	return &rowReader{src: src, cols: cols, line: 1}, nil
}

// ReadAll drains a reader. Mostly useful in tests and small files.
func ReadAll(r Reader) ([]RawRow, error) {
	var rows []RawRow
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// cellSource abstracts the container specific record iterator.
type cellSource interface {
	next() ([]string, error)
	close() error
}

type rowReader struct {
	src  cellSource
	cols columns
	line int
}

func (r *rowReader) Next() (RawRow, error) {
	for {
		cells, err := r.src.next()
		if err != nil {
			return RawRow{}, err
		}
		r.line++
		id := cell(cells, r.cols.studentID)
		if id == nil {
			continue
		}
		return RawRow{
			Line:      r.line,
			StudentID: *id,
			Score:     cell(cells, r.cols.score),
			Remarks:   cell(cells, r.cols.remarks),
		}, nil
	}
}

func (r *rowReader) Close() error {
	return r.src.close()
}

func cell(cells []string, idx int) *string {
	if idx < 0 || idx >= len(cells) {
		return nil
	}
	v := strings.TrimSpace(cells[idx])
	if v == "" {
		return nil
	}
	return &v
}
