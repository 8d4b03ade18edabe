package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestOccupancyReserveAndFreeRooms(t *testing.T) {
	occ := NewOccupancy()
	key := CellKey{Day: models.Monday, LessonID: "l1"}
	occ.Reserve(key, "t1", "r2")

	assert.True(t, occ.TeacherBusy(key, "t1"))
	assert.False(t, occ.TeacherBusy(CellKey{Day: models.Tuesday, LessonID: "l1"}, "t1"))
	assert.True(t, occ.RoomBusy(key, "r2"))

	free := occ.FreeRooms(key, []models.Room{{ID: "r3"}, {ID: "r2"}, {ID: "r1"}})
	require.Len(t, free, 2)
	assert.Equal(t, "r1", free[0].ID)
	assert.Equal(t, "r3", free[1].ID)
}

func TestDetectConflicts(t *testing.T) {
	stored := []models.TimeSlot{
		{ID: "s1", ClassID: "10B", Day: models.Monday, LessonID: "l1", TeacherID: "t1", RoomID: "r1"},
	}
	proposed := []models.TimeSlot{
		{ClassID: "10A", Day: models.Monday, LessonID: "l1", TeacherID: "t1", RoomID: "r2"},
		{ClassID: "10A", Day: models.Monday, LessonID: "l2", TeacherID: "t2", RoomID: "r1"},
		{ClassID: "10C", Day: models.Monday, LessonID: "l2", TeacherID: "t3", RoomID: "r1"},
	}

	conflicts := DetectConflicts(proposed, stored)
	require.Len(t, conflicts, 2)
	assert.Equal(t, models.ConflictTeacher, conflicts[0].Dimension)
	assert.Equal(t, "s1", conflicts[0].TimeSlotID)
	assert.Equal(t, "t1", conflicts[0].TeacherID)
	assert.Equal(t, models.ConflictRoom, conflicts[1].Dimension)
	assert.Equal(t, "10C", conflicts[1].ClassID)
}

func TestDetectConflictsClassCells(t *testing.T) {
	one, two := 1, 2
	pair := []models.TimeSlot{
		{ClassID: "10A", Day: models.Monday, LessonID: "l1", TeacherID: "t1", RoomID: "r1", Subgroup: &one},
		{ClassID: "10A", Day: models.Monday, LessonID: "l1", TeacherID: "t2", RoomID: "r2", Subgroup: &two},
	}
	assert.Empty(t, DetectConflicts(pair, nil))

	duplicate := []models.TimeSlot{
		{ClassID: "10A", Day: models.Monday, LessonID: "l1", TeacherID: "t1", RoomID: "r1"},
		{ClassID: "10A", Day: models.Monday, LessonID: "l1", TeacherID: "t2", RoomID: "r2"},
	}
	conflicts := DetectConflicts(duplicate, nil)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictClass, conflicts[0].Dimension)
}
