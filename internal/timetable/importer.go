package timetable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// ImportRow is one externally authored schedule row, still keyed by human readable names.
type ImportRow struct {
	Line         int    `json:"line"`
	Teacher      string `json:"teacher"`
	Weekday      string `json:"weekday"`
	LessonNumber int    `json:"lesson_number"`
	Class        string `json:"class"`
	Subgroup     string `json:"subgroup,omitempty"`
	Subject      string `json:"subject"`
	Room         string `json:"room"`
}

// ImportWarning reports a row that was skipped or adjusted without failing the import.
type ImportWarning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// SpreadsheetHeader is the expected column template of an imported sheet.
var SpreadsheetHeader = []string{"Teacher", "Weekday", "Lesson number", "Class", "Subgroup", "Subject", "Room"}

const (
	colTeacher = iota
	colWeekday
	colLesson
	colClass
	colSubgroup
	colSubject
	colRoom
)

type jsonImportRow struct {
	Teacher      string      `json:"Teacher"`
	Weekday      string      `json:"Weekday"`
	LessonNumber json.Number `json:"LessonNumber"`
	Class        string      `json:"Class"`
	Subgroup     looseString `json:"Subgroup"`
	Subject      string      `json:"Subject"`
	Room         looseString `json:"Room"`
}

// looseString accepts a JSON string, number or null.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

// ParseJSON decodes an array of schedule rows.
func ParseJSON(r io.Reader) ([]ImportRow, error) {
	var raw []jsonImportRow
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid JSON schedule")
	}
	rows := make([]ImportRow, 0, len(raw))
	for i, item := range raw {
		lesson, err := parseLessonNumber(item.LessonNumber.String())
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("row %d: invalid lesson number %q", i+1, item.LessonNumber.String()))
		}
		rows = append(rows, ImportRow{
			Line:         i + 1,
			Teacher:      strings.TrimSpace(item.Teacher),
			Weekday:      strings.TrimSpace(item.Weekday),
			LessonNumber: lesson,
			Class:        strings.TrimSpace(item.Class),
			Subgroup:     strings.TrimSpace(string(item.Subgroup)),
			Subject:      strings.TrimSpace(item.Subject),
			Room:         strings.TrimSpace(string(item.Room)),
		})
	}
	return rows, nil
}

// ParseSpreadsheet reads the first sheet of an xlsx workbook. The header row must match
// SpreadsheetHeader before any data row is read. Rows missing teacher, weekday, lesson number
// or subject are skipped with a warning.
func ParseSpreadsheet(r io.Reader) ([]ImportRow, []ImportWarning, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid spreadsheet")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "spreadsheet has no sheets")
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read spreadsheet rows")
	}
	if len(grid) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "spreadsheet is empty")
	}
	if err := MatchHeader(grid[0]); err != nil {
		return nil, nil, err
	}

	rows := make([]ImportRow, 0, len(grid)-1)
	var warnings []ImportWarning
	for i, record := range grid[1:] {
		line := i + 2
		if blankRecord(record) {
			continue
		}
		teacher := cellAt(record, colTeacher)
		weekday := cellAt(record, colWeekday)
		lessonRaw := cellAt(record, colLesson)
		subject := cellAt(record, colSubject)
		if teacher == "" || weekday == "" || lessonRaw == "" || subject == "" {
			warnings = append(warnings, ImportWarning{Line: line, Message: "missing teacher, weekday, lesson number or subject; row skipped"})
			continue
		}
		lesson, err := parseLessonNumber(lessonRaw)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrReferenceResolution, fmt.Sprintf("row %d: unknown lesson number %q", line, lessonRaw))
		}
		rows = append(rows, ImportRow{
			Line:         line,
			Teacher:      teacher,
			Weekday:      weekday,
			LessonNumber: lesson,
			Class:        cellAt(record, colClass),
			Subgroup:     cellAt(record, colSubgroup),
			Subject:      subject,
			Room:         cellAt(record, colRoom),
		})
	}
	return rows, warnings, nil
}

// MatchHeader checks each expected column name is contained, case-insensitively, in the header cell at the same position.
func MatchHeader(header []string) error {
	if len(header) < len(SpreadsheetHeader) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("spreadsheet header must have %d columns: %s", len(SpreadsheetHeader), strings.Join(SpreadsheetHeader, ", ")))
	}
	for i, want := range SpreadsheetHeader {
		got := strings.ToLower(strings.TrimSpace(header[i]))
		if !strings.Contains(got, strings.ToLower(want)) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("spreadsheet column %d is %q, expected %q", i+1, header[i], want))
		}
	}
	return nil
}

func cellAt(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseLessonNumber accepts "3" as well as spreadsheet style "3.0".
func parseLessonNumber(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("lesson number %q is not whole", raw)
	}
	return int(f), nil
}
