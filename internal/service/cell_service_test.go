package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type cellStoreStub struct {
	rows     []models.TimeSlot
	listed   int
	replaced []models.TimeSlot
	cleared  bool
	err      error
}

func (s *cellStoreStub) List(ctx context.Context, f models.TimeSlotFilter) ([]models.TimeSlot, error) {
	s.listed++
	out := make([]models.TimeSlot, 0)
	for _, row := range s.rows {
		if (f.ClassID == "" || row.ClassID == f.ClassID) &&
			(f.Day == "" || row.Day == f.Day) &&
			(f.LessonID == "" || row.LessonID == f.LessonID) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *cellStoreStub) ReplaceCell(ctx context.Context, exec sqlx.ExtContext, periodID, classID string, day models.Weekday, lessonID string, slots []models.TimeSlot) error {
	if s.err != nil {
		return s.err
	}
	s.replaced = slots
	return nil
}

func (s *cellStoreStub) DeleteCell(ctx context.Context, exec sqlx.ExtContext, periodID, classID string, day models.Weekday, lessonID string) error {
	s.cleared = true
	return s.err
}

func intRef(v int) *int { return &v }

func newCellFixture(t *testing.T, store *cellStoreStub) (*CellService, func()) {
	tx, mock := newTxProviderMock(t)
	svc := NewCellService(tenAReferences(), tenAClasses(), store, tx, nil, nil)
	return svc, func() { require.NoError(t, mock.ExpectationsWereMet()) }
}

func TestCellServiceSaveSplitPair(t *testing.T) {
	store := &cellStoreStub{}
	svc, verify := newCellFixture(t, store)
	svc.tx.(*txProviderMock).mock.ExpectBegin()
	svc.tx.(*txProviderMock).mock.ExpectCommit()

	view, err := svc.Save(context.Background(), dto.SaveCellRequest{
		CellQuery: dto.CellQuery{ClassID: "class-10a", Day: "Monday", LessonID: "lesson-1"},
		Rows: []timetable.CellRow{
			{SubjectID: "subject-science", TeacherID: "teacher-petrov", RoomID: "room-101", Subgroup: intRef(1)},
			{SubjectID: "subject-science", TeacherID: "teacher-ivanova", RoomID: "room-102", Subgroup: intRef(2)},
		},
	})
	require.NoError(t, err)
	verify()

	assert.Equal(t, timetable.CellSplitPair, view.State)
	require.Len(t, store.replaced, 2)
	for _, row := range store.replaced {
		assert.Equal(t, "period-1", row.AcademicPeriodID)
		assert.Equal(t, models.Monday, row.Day)
	}
}

func TestCellServiceSaveDropsIncompleteRow(t *testing.T) {
	store := &cellStoreStub{}
	svc, verify := newCellFixture(t, store)
	svc.tx.(*txProviderMock).mock.ExpectBegin()
	svc.tx.(*txProviderMock).mock.ExpectCommit()

	_, err := svc.Save(context.Background(), dto.SaveCellRequest{
		CellQuery: dto.CellQuery{ClassID: "class-10a", Day: "Monday", LessonID: "lesson-1"},
		Rows: []timetable.CellRow{
			{SubjectID: "subject-science", TeacherID: "teacher-petrov", RoomID: "room-101", Subgroup: intRef(1)},
			{SubjectID: "subject-science", Subgroup: intRef(2)},
		},
	})
	require.NoError(t, err)
	verify()
	require.Len(t, store.replaced, 1)
	assert.Equal(t, 1, *store.replaced[0].Subgroup)
}

func TestCellServiceSaveInvalidFormTouchesNothing(t *testing.T) {
	store := &cellStoreStub{}
	svc, verify := newCellFixture(t, store)

	_, err := svc.Save(context.Background(), dto.SaveCellRequest{
		CellQuery: dto.CellQuery{ClassID: "class-10a", Day: "Monday", LessonID: "lesson-1"},
		Rows:      []timetable.CellRow{{SubjectID: "subject-math"}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidForm))

	_, err = svc.Save(context.Background(), dto.SaveCellRequest{
		CellQuery: dto.CellQuery{ClassID: "class-10a", LessonID: "lesson-1"},
		Rows:      []timetable.CellRow{{SubjectID: "subject-math", TeacherID: "teacher-ivanova", RoomID: "room-101"}},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidForm))

	verify()
	assert.Zero(t, store.listed)
	assert.Nil(t, store.replaced)
}

func TestCellServiceSaveRejectsClashWithOtherClass(t *testing.T) {
	store := &cellStoreStub{rows: []models.TimeSlot{{
		ID: "slot-b", ClassID: "class-10b", Day: models.Monday, LessonID: "lesson-1",
		SubjectID: "subject-math", TeacherID: "teacher-ivanova", RoomID: "room-102",
	}}}
	svc, verify := newCellFixture(t, store)

	_, err := svc.Save(context.Background(), dto.SaveCellRequest{
		CellQuery: dto.CellQuery{ClassID: "class-10a", Day: "Monday", LessonID: "lesson-1"},
		Rows:      []timetable.CellRow{{SubjectID: "subject-math", TeacherID: "teacher-ivanova", RoomID: "room-101"}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	var detail *models.ScheduleConflictError
	require.True(t, errors.As(err, &detail))
	require.Len(t, detail.Errors, 1)
	assert.Equal(t, models.ConflictTeacher, detail.Errors[0].Dimension)
	assert.Equal(t, "slot-b", detail.Errors[0].TimeSlotID)
	assert.Equal(t, "cell clashes with another class: 1 clash on teacher", err.Error())
	verify()
	assert.Nil(t, store.replaced)
}

func TestCellServiceSaveIgnoresOwnStoredRows(t *testing.T) {
	store := &cellStoreStub{rows: []models.TimeSlot{{
		ID: "slot-a", ClassID: "class-10a", Day: models.Monday, LessonID: "lesson-1",
		SubjectID: "subject-math", TeacherID: "teacher-ivanova", RoomID: "room-101",
	}}}
	svc, verify := newCellFixture(t, store)
	svc.tx.(*txProviderMock).mock.ExpectBegin()
	svc.tx.(*txProviderMock).mock.ExpectCommit()

	_, err := svc.Save(context.Background(), dto.SaveCellRequest{
		CellQuery: dto.CellQuery{ClassID: "class-10a", Day: "mon", LessonID: "lesson-1"},
		Rows:      []timetable.CellRow{{SubjectID: "subject-math", TeacherID: "teacher-ivanova", RoomID: "room-101"}},
	})
	require.NoError(t, err)
	verify()
}

func TestCellServiceSaveWriteFailureRollsBack(t *testing.T) {
	store := &cellStoreStub{err: errors.New("insert failed")}
	svc, verify := newCellFixture(t, store)
	svc.tx.(*txProviderMock).mock.ExpectBegin()
	svc.tx.(*txProviderMock).mock.ExpectRollback()

	_, err := svc.Save(context.Background(), dto.SaveCellRequest{
		CellQuery: dto.CellQuery{ClassID: "class-10a", Day: "Monday", LessonID: "lesson-1"},
		Rows:      []timetable.CellRow{{SubjectID: "subject-math", TeacherID: "teacher-ivanova", RoomID: "room-101"}},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrWrite))
	verify()
}

func TestCellServiceGetAndClear(t *testing.T) {
	store := &cellStoreStub{rows: []models.TimeSlot{
		{ClassID: "class-10a", Day: models.Tuesday, LessonID: "lesson-2", SubjectID: "subject-science", TeacherID: "teacher-petrov", RoomID: "room-102", Subgroup: intRef(2)},
		{ClassID: "class-10a", Day: models.Tuesday, LessonID: "lesson-2", SubjectID: "subject-science", TeacherID: "teacher-ivanova", RoomID: "room-101", Subgroup: intRef(1)},
	}}
	svc, verify := newCellFixture(t, store)

	view, err := svc.Get(context.Background(), dto.CellQuery{ClassID: "class-10a", Day: "Tuesday", LessonID: "lesson-2"})
	require.NoError(t, err)
	assert.Equal(t, timetable.CellSplitPair, view.State)
	assert.Equal(t, "teacher-ivanova", view.Cell.Rows[0].TeacherID)

	svc.tx.(*txProviderMock).mock.ExpectBegin()
	svc.tx.(*txProviderMock).mock.ExpectCommit()
	require.NoError(t, svc.Clear(context.Background(), dto.CellQuery{ClassID: "class-10a", Day: "Tuesday", LessonID: "lesson-2"}))
	assert.True(t, store.cleared)
	verify()
}

func TestCellServicePreviewAppliesActionsAndListsCandidates(t *testing.T) {
	store := &cellStoreStub{}
	svc, _ := newCellFixture(t, store)

	view, err := svc.Preview(context.Background(), dto.PreviewCellRequest{
		CellQuery: dto.CellQuery{ClassID: "class-10a", Day: "Monday", LessonID: "lesson-1"},
		Actions: []dto.CellAction{
			{Type: dto.CellActionSetSubject, Row: 0, Value: "subject-science"},
			{Type: dto.CellActionSetTeacher, Row: 0, Value: "teacher-petrov"},
			{Type: dto.CellActionSplit},
			{Type: dto.CellActionSetSubject, Row: 1, Value: "subject-math"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, timetable.CellSplitPair, view.State)
	require.Len(t, view.Options, 2)

	require.Len(t, view.Options[0].Teachers, 1)
	assert.Equal(t, "teacher-petrov", view.Options[0].Teachers[0].ID)
	require.Len(t, view.Options[0].Rooms, 1)
	assert.Equal(t, "room-102", view.Options[0].Rooms[0].ID)

	require.Len(t, view.Options[1].Teachers, 1)
	assert.Equal(t, "teacher-ivanova", view.Options[1].Teachers[0].ID)
	assert.Empty(t, view.Options[1].Rooms)
}

func TestCellServicePreviewRejectsInvalidAction(t *testing.T) {
	svc, _ := newCellFixture(t, &cellStoreStub{})
	_, err := svc.Preview(context.Background(), dto.PreviewCellRequest{
		CellQuery: dto.CellQuery{ClassID: "class-10a", Day: "Monday", LessonID: "lesson-1"},
		Actions:   []dto.CellAction{{Type: dto.CellActionMerge}},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
