package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestTimeSlotRepositoryReplaceScopeInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("time_slots:p1:c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_slots WHERE class_id = $1 AND academic_period_id = $2")).
		WithArgs("c1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO time_slots").
		WithArgs(sqlmock.AnyArg(), "p1", "c1", models.Monday, "l1", "s1", "t1", "r1", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	slots := []models.TimeSlot{{AcademicPeriodID: "p1", ClassID: "c1", Day: models.Monday, LessonID: "l1", SubjectID: "s1", TeacherID: "t1", RoomID: "r1"}}
	require.NoError(t, repo.ReplaceScope(context.Background(), tx, "c1", "p1", slots))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, slots[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryReplaceScopeInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM time_slots").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO time_slots").WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.ReplaceScope(context.Background(), tx, "c1", "p1", []models.TimeSlot{{ClassID: "c1", AcademicPeriodID: "p1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert time slot")
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryListOtherClasses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "academic_period_id", "class_id", "day", "lesson_id", "subject_id", "teacher_id", "room_id", "subgroup", "created_at", "updated_at"}).
		AddRow("ts1", "p1", "c2", "Monday", "l1", "s1", "t1", "r1", 2, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots WHERE academic_period_id = $1 AND class_id NOT IN ($2, $3)")).
		WithArgs("p1", "c1", "c3").
		WillReturnRows(rows)

	slots, err := repo.ListOtherClasses(context.Background(), "p1", []string{"c1", "c3"})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, models.Monday, slots[0].Day)
	require.NotNil(t, slots[0].Subgroup)
	assert.Equal(t, 2, *slots[0].Subgroup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryDeleteByFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_slots WHERE 1=1 AND academic_period_id = $1 AND class_id = $2")).
		WithArgs("p1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteByFilter(context.Background(), models.TimeSlotFilter{AcademicPeriodID: "p1", ClassID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = repo.DeleteByFilter(context.Background(), models.TimeSlotFilter{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryCountByReference(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM time_slots WHERE room_id = $1")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountByReference(context.Background(), "room_id", "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.CountByReference(context.Background(), "id; drop", "x")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
