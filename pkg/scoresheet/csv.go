package scoresheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"unicode/utf8"
)

type csvSource struct {
	r *csv.Reader
}

func openCSV(data []byte) (cellSource, error) {
	if !utf8.Valid(data) {
		return nil, &ParseError{Format: FormatCSV, Reason: "file is not valid UTF-8 text"}
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = false
	return &csvSource{r: r}, nil
}

func (s *csvSource) next() ([]string, error) {
	record, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &ParseError{Format: FormatCSV, Reason: "malformed csv", Err: err}
	}
	return record, nil
}

func (s *csvSource) close() error { return nil }
