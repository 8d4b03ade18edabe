package timetable

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestParseJSON(t *testing.T) {
	body := `[
		{"Teacher":"Ann Lee","Weekday":"Monday","LessonNumber":1,"Class":"10A","Subgroup":"","Subject":"Math","Room":"101"},
		{"Teacher":"Bob Ray","Weekday":"Tue","LessonNumber":"2","Class":"10A","Subgroup":2,"Subject":"English","Room":102}
	]`

	rows, err := ParseJSON(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ImportRow{Line: 1, Teacher: "Ann Lee", Weekday: "Monday", LessonNumber: 1, Class: "10A", Subject: "Math", Room: "101"}, rows[0])
	assert.Equal(t, "2", rows[1].Subgroup)
	assert.Equal(t, "102", rows[1].Room)
	assert.Equal(t, 2, rows[1].LessonNumber)
}

func TestParseJSONRejectsBadInput(t *testing.T) {
	_, err := ParseJSON(strings.NewReader(`{"Teacher":"x"}`))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = ParseJSON(strings.NewReader(`[{"Teacher":"x","LessonNumber":1.5}]`))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseSpreadsheet(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Teacher name", "WEEKDAY", "Lesson number", "Class", "Subgroup", "Subject", "Room"},
		{"Ann Lee", "Monday", 1, "10A", "", "Math", "101"},
		{"", "Monday", 2, "10A", "", "Math", "101"},
		{"Bob Ray", "Tuesday", "", "10A", "", "Art", "102"},
		{"Bob Ray", "Tuesday", 3, "10A", 1, "Art", "102"},
	})

	rows, warnings, err := ParseSpreadsheet(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Ann Lee", rows[0].Teacher)
	assert.Equal(t, 5, rows[1].Line)
	assert.Equal(t, "1", rows[1].Subgroup)
	require.Len(t, warnings, 2)
	assert.Equal(t, 3, warnings[0].Line)
	assert.Equal(t, 4, warnings[1].Line)
}

func TestParseSpreadsheetFailsOnUnreadableLessonNumber(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Teacher", "Weekday", "Lesson number", "Class", "Subgroup", "Subject", "Room"},
		{"Ann Lee", "Monday", 1, "10A", "", "Math", "101"},
		{"Bob Ray", "Tuesday", "abc", "10A", "", "Art", "102"},
	})

	rows, warnings, err := ParseSpreadsheet(buf)
	assert.Nil(t, rows)
	assert.Nil(t, warnings)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceResolution))
	assert.Contains(t, err.Error(), "row 3")
}

func TestParseSpreadsheetRejectsHeader(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Teacher", "Day", "Lesson number", "Class", "Subgroup", "Subject", "Room"},
		{"Ann Lee", "Monday", 1, "10A", "", "Math", "101"},
	})

	rows, _, err := ParseSpreadsheet(buf)
	assert.Nil(t, rows)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "Weekday")
}

func TestMatchHeaderTooShort(t *testing.T) {
	assert.Error(t, MatchHeader([]string{"Teacher", "Weekday"}))
}
