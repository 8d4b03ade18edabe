package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// referencesStub serves fixed reference data to the timetable, cell, import and export services.
type referencesStub struct {
	period      *models.AcademicPeriod
	periodErr   error
	lessons     []models.Lesson
	rooms       []models.Room
	teachers    []models.Teacher
	subjects    []models.Subject
	classes     []models.Class
	obligations map[string][]timetable.Obligation
	others      []models.TimeSlot
	othersErr   error

	excluded [][]string
}

func (r *referencesStub) ResolvePeriod(ctx context.Context, id string) (*models.AcademicPeriod, error) {
	if r.periodErr != nil {
		return nil, r.periodErr
	}
	return r.period, nil
}

func (r *referencesStub) Lessons(ctx context.Context) ([]models.Lesson, error) { return r.lessons, nil }

func (r *referencesStub) Rooms(ctx context.Context) ([]models.Room, error) { return r.rooms, nil }

func (r *referencesStub) Teachers(ctx context.Context) ([]models.Teacher, error) {
	return r.teachers, nil
}

func (r *referencesStub) Subjects(ctx context.Context) ([]models.Subject, error) {
	return r.subjects, nil
}

func (r *referencesStub) Classes(ctx context.Context) ([]models.Class, error) { return r.classes, nil }

func (r *referencesStub) Obligations(ctx context.Context, classID string) ([]timetable.Obligation, error) {
	return r.obligations[classID], nil
}

func (r *referencesStub) OtherClassRows(ctx context.Context, periodID string, exclude []string) ([]models.TimeSlot, error) {
	r.excluded = append(r.excluded, exclude)
	if r.othersErr != nil {
		return nil, r.othersErr
	}
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	out := make([]models.TimeSlot, 0, len(r.others))
	for _, row := range r.others {
		if !skip[row.ClassID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *referencesStub) Reference(ctx context.Context) (timetable.Reference, error) {
	return timetable.Reference{
		Teachers: r.teachers,
		Rooms:    r.rooms,
		Lessons:  r.lessons,
		Classes:  r.classes,
		Subjects: r.subjects,
	}, nil
}

type classReaderStub struct {
	classes map[string]*models.Class
}

func (s classReaderStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := s.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type teacherReaderStub struct {
	teachers map[string]*models.Teacher
}

func (s teacherReaderStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := s.teachers[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

type replaceCall struct {
	classID  string
	periodID string
	slots    []models.TimeSlot
}

// scopeReplacerStub records ReplaceScope calls and fails on the class named in failOn.
type scopeReplacerStub struct {
	calls  []replaceCall
	failOn string
	stored []models.TimeSlot
}

func (s *scopeReplacerStub) ReplaceScope(ctx context.Context, exec sqlx.ExtContext, classID, periodID string, slots []models.TimeSlot) error {
	if classID == s.failOn {
		return sql.ErrConnDone
	}
	s.calls = append(s.calls, replaceCall{classID: classID, periodID: periodID, slots: slots})
	s.stored = append(s.stored, slots...)
	return nil
}

// tenAReferences is the 10A / Math / Science / rooms 101 and 102 school used across tests.
func tenAReferences() *referencesStub {
	lessons := make([]models.Lesson, 0, 6)
	for i := 1; i <= 6; i++ {
		lessons = append(lessons, models.Lesson{ID: fmt.Sprintf("lesson-%d", i), LessonNumber: i})
	}
	return &referencesStub{
		period:  &models.AcademicPeriod{ID: "period-1", Name: "2025 Term 1", IsActive: true},
		lessons: lessons,
		rooms:   []models.Room{{ID: "room-101", Number: "101"}, {ID: "room-102", Number: "102"}},
		teachers: []models.Teacher{
			{ID: "teacher-ivanova", FullName: "Ivanova", Subjects: []string{"Math"}},
			{ID: "teacher-petrov", FullName: "Petrov", Subjects: []string{"Science"}, RoomIDs: []string{"room-102"}},
		},
		subjects: []models.Subject{
			{ID: "subject-math", Name: "Math"},
			{ID: "subject-science", Name: "Science", IsSubgroup: true},
		},
		classes: []models.Class{{ID: "class-10a", Name: "10A"}, {ID: "class-10b", Name: "10B"}},
		obligations: map[string][]timetable.Obligation{
			"class-10a": {
				{SubjectID: "subject-math", TeacherID: "teacher-ivanova", HoursPerWeek: 4},
				{SubjectID: "subject-science", TeacherID: "teacher-petrov", HoursPerWeek: 3},
			},
		},
	}
}

func tenAClasses() classReaderStub {
	return classReaderStub{classes: map[string]*models.Class{
		"class-10a": {ID: "class-10a", Name: "10A"},
		"class-10b": {ID: "class-10b", Name: "10B"},
	}}
}
