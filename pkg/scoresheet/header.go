package scoresheet

import "strings"

var (
	studentIDHeaders = []string{"studentid", "studentnumber", "matricno", "matricnumber"}
	scoreHeaders     = []string{"score", "mark", "marks"}
	remarksHeaders   = []string{"remarks", "remark", "comment", "comments"}
)

type columns struct {
	studentID int
	score     int
	remarks   int
}

// locateColumns maps each known field to its header index, -1 when absent.
// The first matching column wins.
func locateColumns(header []string) columns {
	cols := columns{studentID: -1, score: -1, remarks: -1}
	for i, raw := range header {
		name := normalizeHeader(raw)
		switch {
		case cols.studentID < 0 && contains(studentIDHeaders, name):
			cols.studentID = i
		case cols.score < 0 && contains(scoreHeaders, name):
			cols.score = i
		case cols.remarks < 0 && contains(remarksHeaders, name):
			cols.remarks = i
		}
	}
	return cols
}

// normalizeHeader folds "Student ID", "student_id" and "StudentID" to "studentid".
func normalizeHeader(raw string) string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch r {
		case ' ', '_', '-', '.', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
