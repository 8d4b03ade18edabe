package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type mockTeacherRepo struct {
	items     map[string]*models.Teacher
	listErr   error
	deleted   []string
	createErr error
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	out := make([]models.Teacher, 0, len(m.items))
	for _, t := range m.items {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	if teacher.ID == "" {
		teacher.ID = "generated"
	}
	now := time.Now()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type slotCounterStub struct {
	counts map[string]int
	column string
}

func (s *slotCounterStub) CountByReference(ctx context.Context, column, id string) (int, error) {
	s.column = column
	return s.counts[id], nil
}

type invalidatorStub struct{ calls int }

func (i *invalidatorStub) Invalidate(ctx context.Context) { i.calls++ }

func newTeacherServiceForTest(repo *mockTeacherRepo, counter *slotCounterStub, inv *invalidatorStub) *TeacherService {
	return NewTeacherService(repo, counter, inv, nil, zap.NewNop())
}

func TestTeacherServiceCreateInvalidatesReferenceCache(t *testing.T) {
	repo := &mockTeacherRepo{}
	inv := &invalidatorStub{}
	svc := newTeacherServiceForTest(repo, &slotCounterStub{}, inv)

	teacher, err := svc.Create(context.Background(), TeacherRequest{
		FullName: "Ivanova",
		Subjects: []string{"Math"},
		RoomIDs:  []string{"room-101"},
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", teacher.ID)
	assert.True(t, teacher.Teaches("Math"))
	assert.Equal(t, 1, inv.calls)
}

func TestTeacherServiceCreateValidation(t *testing.T) {
	inv := &invalidatorStub{}
	svc := newTeacherServiceForTest(&mockTeacherRepo{}, &slotCounterStub{}, inv)

	_, err := svc.Create(context.Background(), TeacherRequest{Subjects: []string{""}})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Zero(t, inv.calls)
}

func TestTeacherServiceCreateRepositoryFailure(t *testing.T) {
	svc := newTeacherServiceForTest(&mockTeacherRepo{createErr: errors.New("boom")}, &slotCounterStub{}, &invalidatorStub{})

	_, err := svc.Create(context.Background(), TeacherRequest{FullName: "Petrov"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestTeacherServiceUpdateReplacesAssignments(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"teacher-petrov": {ID: "teacher-petrov", FullName: "Petrov", Subjects: []string{"Science"}},
	}}
	inv := &invalidatorStub{}
	svc := newTeacherServiceForTest(repo, &slotCounterStub{}, inv)

	teacher, err := svc.Update(context.Background(), "teacher-petrov", TeacherRequest{
		FullName: "Petrov",
		Subjects: []string{"Science", "Physics"},
		RoomIDs:  []string{"room-102"},
	})
	require.NoError(t, err)
	assert.True(t, teacher.Teaches("Physics"))
	assert.Equal(t, []string{"room-102"}, []string(repo.items["teacher-petrov"].RoomIDs))
	assert.Equal(t, 1, inv.calls)
}

func TestTeacherServiceGetNotFound(t *testing.T) {
	svc := newTeacherServiceForTest(&mockTeacherRepo{}, &slotCounterStub{}, &invalidatorStub{})

	_, err := svc.Get(context.Background(), "missing")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTeacherServiceDeleteRefusesScheduledTeacher(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"teacher-ivanova": {ID: "teacher-ivanova", FullName: "Ivanova"},
	}}
	counter := &slotCounterStub{counts: map[string]int{"teacher-ivanova": 4}}
	inv := &invalidatorStub{}
	svc := newTeacherServiceForTest(repo, counter, inv)

	err := svc.Delete(context.Background(), "teacher-ivanova")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Equal(t, "teacher_id", counter.column)
	assert.Empty(t, repo.deleted)
	assert.Zero(t, inv.calls)
}

func TestTeacherServiceDeleteUnscheduledTeacher(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"teacher-ivanova": {ID: "teacher-ivanova", FullName: "Ivanova"},
	}}
	inv := &invalidatorStub{}
	svc := newTeacherServiceForTest(repo, &slotCounterStub{}, inv)

	require.NoError(t, svc.Delete(context.Background(), "teacher-ivanova"))
	assert.Equal(t, []string{"teacher-ivanova"}, repo.deleted)
	assert.Equal(t, 1, inv.calls)
}
