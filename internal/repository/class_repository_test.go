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

func TestClassRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "grade", "literal", "created_at", "updated_at"}).
		AddRow("c1", "10A", 10, "A", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, grade, literal, created_at, updated_at FROM classes WHERE 1=1 AND grade = $1 AND LOWER(name) LIKE $2 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WithArgs(10, "%10%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes WHERE 1=1 AND grade = $1 AND LOWER(name) LIKE $2")).
		WithArgs(10, "%10%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ClassFilter{Grade: 10, ListQuery: models.ListQuery{Search: "10"}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "10A", list[0].Name)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListSortFallback(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE 1=1 ORDER BY name DESC LIMIT 10 OFFSET 10")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.ClassFilter{ListQuery: models.ListQuery{SortBy: "password; drop", SortOrder: "desc", Page: 2, PageSize: 10}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCreateAndExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO classes").
		WithArgs(sqlmock.AnyArg(), "10A", 10, "A", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	class := &models.Class{Name: "10A", Grade: 10, Literal: "A"}
	require.NoError(t, repo.Create(context.Background(), class))
	assert.NotEmpty(t, class.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM classes WHERE name = $1 AND id <> $2 LIMIT 1")).
		WithArgs("10A", "other").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	exists, err := repo.ExistsByName(context.Background(), "10A", "other")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
