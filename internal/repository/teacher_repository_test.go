package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestTeacherRepositoryListBySubject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "subjects", "class_ids", "room_ids", "created_at", "updated_at"}).
		AddRow("t1", "Ann Lee", "{Math,Physics}", "{}", "{r1}", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE 1=1 AND $1 = ANY(subjects) ORDER BY full_name ASC LIMIT 20 OFFSET 0")).
		WithArgs("Math").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers WHERE 1=1 AND $1 = ANY(subjects)")).
		WithArgs("Math").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{Subject: "Math"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.True(t, list[0].Teaches("Physics"))
	assert.Equal(t, []string{"r1"}, []string(list[0].RoomIDs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateFillsEmptyArrays(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers").
		WithArgs(sqlmock.AnyArg(), "Ann Lee", "{}", "{}", "{}", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), &models.Teacher{FullName: "Ann Lee"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
