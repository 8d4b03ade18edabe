package timetable

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// CellKey identifies one (weekday, lesson) cell of the weekly grid.
type CellKey struct {
	Day      models.Weekday
	LessonID string
}

type cellUsage struct {
	teachers map[string]struct{}
	rooms    map[string]struct{}
}

// Occupancy tracks which teachers and rooms are taken in each cell.
type Occupancy struct {
	cells map[CellKey]*cellUsage
}

// NewOccupancy returns an empty occupancy map.
func NewOccupancy() *Occupancy {
	return &Occupancy{cells: make(map[CellKey]*cellUsage)}
}

// Seed marks the teachers and rooms of existing rows as taken.
func (o *Occupancy) Seed(rows []models.TimeSlot) {
	for _, row := range rows {
		o.Reserve(CellKey{Day: row.Day, LessonID: row.LessonID}, row.TeacherID, row.RoomID)
	}
}

// TeacherBusy reports whether the teacher already teaches in the cell.
func (o *Occupancy) TeacherBusy(key CellKey, teacherID string) bool {
	usage, ok := o.cells[key]
	if !ok {
		return false
	}
	_, busy := usage.teachers[teacherID]
	return busy
}

// RoomBusy reports whether the room is already used in the cell.
func (o *Occupancy) RoomBusy(key CellKey, roomID string) bool {
	usage, ok := o.cells[key]
	if !ok {
		return false
	}
	_, busy := usage.rooms[roomID]
	return busy
}

// Reserve marks the teacher and room as taken in the cell. Empty ids are ignored.
func (o *Occupancy) Reserve(key CellKey, teacherID, roomID string) {
	usage, ok := o.cells[key]
	if !ok {
		usage = &cellUsage{teachers: make(map[string]struct{}), rooms: make(map[string]struct{})}
		o.cells[key] = usage
	}
	if teacherID != "" {
		usage.teachers[teacherID] = struct{}{}
	}
	if roomID != "" {
		usage.rooms[roomID] = struct{}{}
	}
}

// FreeRooms returns the rooms not used in the cell, ordered by id.
func (o *Occupancy) FreeRooms(key CellKey, rooms []models.Room) []models.Room {
	free := make([]models.Room, 0, len(rooms))
	for _, room := range rooms {
		if !o.RoomBusy(key, room.ID) {
			free = append(free, room)
		}
	}
	sort.SliceStable(free, func(i, j int) bool { return free[i].ID < free[j].ID })
	return free
}

// DetectConflicts checks proposed rows against each other and against already stored rows.
// Stored rows must not include the rows the proposal replaces.
func DetectConflicts(proposed, stored []models.TimeSlot) []models.ScheduleConflict {
	conflicts := make([]models.ScheduleConflict, 0)

	teacherAt := make(map[CellKey]map[string]models.TimeSlot)
	roomAt := make(map[CellKey]map[string]models.TimeSlot)
	remember := func(index map[CellKey]map[string]models.TimeSlot, key CellKey, id string, row models.TimeSlot) {
		if index[key] == nil {
			index[key] = make(map[string]models.TimeSlot)
		}
		index[key][id] = row
	}
	for _, row := range stored {
		key := CellKey{Day: row.Day, LessonID: row.LessonID}
		remember(teacherAt, key, row.TeacherID, row)
		remember(roomAt, key, row.RoomID, row)
	}

	classCells := make(map[string][]models.TimeSlot)
	for _, row := range proposed {
		key := CellKey{Day: row.Day, LessonID: row.LessonID}
		if other, clash := teacherAt[key][row.TeacherID]; clash {
			conflicts = append(conflicts, conflictFor(row, other, models.ConflictTeacher))
		} else {
			remember(teacherAt, key, row.TeacherID, row)
		}
		if other, clash := roomAt[key][row.RoomID]; clash {
			conflicts = append(conflicts, conflictFor(row, other, models.ConflictRoom))
		} else {
			remember(roomAt, key, row.RoomID, row)
		}
		classKey := row.ClassID + "|" + string(row.Day) + "|" + row.LessonID
		classCells[classKey] = append(classCells[classKey], row)
	}

	keys := make([]string, 0, len(classCells))
	for k := range classCells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !validClassCell(classCells[k]) {
			row := classCells[k][0]
			conflicts = append(conflicts, models.ScheduleConflict{
				ClassID:   row.ClassID,
				Day:       row.Day,
				LessonID:  row.LessonID,
				Dimension: models.ConflictClass,
			})
		}
	}
	return conflicts
}

// validClassCell accepts one whole-class row or a pair of rows for subgroups 1 and 2.
func validClassCell(rows []models.TimeSlot) bool {
	switch len(rows) {
	case 1:
		return true
	case 2:
		a, b := rows[0].Subgroup, rows[1].Subgroup
		if a == nil || b == nil {
			return false
		}
		return (*a == 1 && *b == 2) || (*a == 2 && *b == 1)
	default:
		return false
	}
}

func conflictFor(row, other models.TimeSlot, dimension string) models.ScheduleConflict {
	c := models.ScheduleConflict{
		TimeSlotID: other.ID,
		ClassID:    row.ClassID,
		Day:        row.Day,
		LessonID:   row.LessonID,
		Dimension:  dimension,
	}
	if dimension == models.ConflictTeacher {
		c.TeacherID = row.TeacherID
	} else {
		c.RoomID = row.RoomID
	}
	return c
}
