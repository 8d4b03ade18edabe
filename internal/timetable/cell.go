package timetable

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// CellState distinguishes a whole-class cell from a cell split into two subgroups.
type CellState string

const (
	CellSingle    CellState = "SINGLE"
	CellSplitPair CellState = "SPLIT_PAIR"
)

// CellRow is one editable assignment inside a cell. Empty ids mean "not chosen yet".
type CellRow struct {
	SubjectID string `json:"subject_id"`
	TeacherID string `json:"teacher_id"`
	RoomID    string `json:"room_id"`
	Subgroup  *int   `json:"subgroup,omitempty"`
}

// Cell is the editor state for one (class, day, lesson) of the grid.
type Cell struct {
	ClassID  string         `json:"class_id"`
	Day      models.Weekday `json:"day"`
	LessonID string         `json:"lesson_id"`
	Rows     []CellRow      `json:"rows"`
}

// NewCell builds an editor cell from stored rows. No rows yields one empty row.
func NewCell(classID string, day models.Weekday, lessonID string, rows []models.TimeSlot) *Cell {
	cell := &Cell{ClassID: classID, Day: day, LessonID: lessonID}
	sorted := make([]models.TimeSlot, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return subgroupOf(sorted[i]) < subgroupOf(sorted[j]) })
	for _, row := range sorted {
		cell.Rows = append(cell.Rows, CellRow{
			SubjectID: row.SubjectID,
			TeacherID: row.TeacherID,
			RoomID:    row.RoomID,
			Subgroup:  copyInt(row.Subgroup),
		})
	}
	if len(cell.Rows) == 0 {
		cell.Rows = []CellRow{{}}
	}
	return cell
}

// State reports whether the cell is split.
func (c *Cell) State() CellState {
	if len(c.Rows) == 2 {
		return CellSplitPair
	}
	return CellSingle
}

// Split turns a single cell into a pair: row 1 keeps its values, row 2 starts empty.
func (c *Cell) Split() error {
	if c.State() == CellSplitPair {
		return appErrors.Clone(appErrors.ErrValidation, "cell is already split")
	}
	if len(c.Rows) == 0 {
		c.Rows = []CellRow{{}}
	}
	c.Rows[0].Subgroup = intPtr(1)
	c.Rows = append(c.Rows[:1], CellRow{Subgroup: intPtr(2)})
	return nil
}

// Merge drops subgroup 2 and turns the cell back into a whole-class row.
func (c *Cell) Merge() error {
	if c.State() != CellSplitPair {
		return appErrors.Clone(appErrors.ErrValidation, "cell is not split")
	}
	c.Rows = c.Rows[:1]
	c.Rows[0].Subgroup = nil
	return nil
}

// SetSubject changes the subject of row i and clears its teacher and room.
func (c *Cell) SetSubject(i int, subjectID string) error {
	row, err := c.row(i)
	if err != nil {
		return err
	}
	row.SubjectID = subjectID
	row.TeacherID = ""
	row.RoomID = ""
	return nil
}

// SetTeacher changes the teacher of row i and clears its room.
func (c *Cell) SetTeacher(i int, teacherID string) error {
	row, err := c.row(i)
	if err != nil {
		return err
	}
	row.TeacherID = teacherID
	row.RoomID = ""
	return nil
}

// SetRoom changes the room of row i.
func (c *Cell) SetRoom(i int, roomID string) error {
	row, err := c.row(i)
	if err != nil {
		return err
	}
	row.RoomID = roomID
	return nil
}

func (c *Cell) row(i int) (*CellRow, error) {
	if i < 0 || i >= len(c.Rows) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cell has no row %d", i))
	}
	return &c.Rows[i], nil
}

// CompleteRows returns the rows that have every field needed to be saved.
// A cell left without any complete row is an invalid form.
func (c *Cell) CompleteRows(periodID string) ([]models.TimeSlot, error) {
	out := make([]models.TimeSlot, 0, len(c.Rows))
	if c.Day == "" || c.LessonID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidForm, "cell day and lesson are required")
	}
	for _, row := range c.Rows {
		if row.SubjectID == "" || row.TeacherID == "" || row.RoomID == "" {
			continue
		}
		out = append(out, models.TimeSlot{
			AcademicPeriodID: periodID,
			ClassID:          c.ClassID,
			Day:              c.Day,
			LessonID:         c.LessonID,
			SubjectID:        row.SubjectID,
			TeacherID:        row.TeacherID,
			RoomID:           row.RoomID,
			Subgroup:         copyInt(row.Subgroup),
		})
	}
	if len(out) == 0 {
		return nil, appErrors.ErrInvalidForm
	}
	return out, nil
}

// TeacherCandidates returns the teachers allowed to teach the subject, ordered by name.
func TeacherCandidates(subjectName string, teachers []models.Teacher) []models.Teacher {
	out := make([]models.Teacher, 0)
	for _, t := range teachers {
		if t.Teaches(subjectName) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

// RoomCandidates restricts rooms to the teacher's preferred ones, or all rooms when there are none.
func RoomCandidates(teacher *models.Teacher, rooms []models.Room) []models.Room {
	if teacher == nil || len(teacher.RoomIDs) == 0 {
		out := make([]models.Room, len(rooms))
		copy(out, rooms)
		return out
	}
	preferred := make(map[string]struct{}, len(teacher.RoomIDs))
	for _, id := range teacher.RoomIDs {
		preferred[id] = struct{}{}
	}
	out := make([]models.Room, 0, len(teacher.RoomIDs))
	for _, r := range rooms {
		if _, ok := preferred[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

func subgroupOf(row models.TimeSlot) int {
	if row.Subgroup == nil {
		return 0
	}
	return *row.Subgroup
}

func intPtr(v int) *int { return &v }

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	return intPtr(*v)
}
