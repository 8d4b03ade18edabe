package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type dispatcherStub struct {
	jobs []jobs.Job
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	d.jobs = append(d.jobs, job)
	return nil
}

func newTimetableFixture(t *testing.T, refs *referencesStub, cfg TimetableConfig) (*TimetableService, *scopeReplacerStub, func()) {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	replacer := &scopeReplacerStub{}
	svc := NewTimetableService(refs, tenAClasses(), replacer, tx, NewMetricsService(), nil, zap.NewNop(), cfg)
	return svc, replacer, func() {
		require.NoError(t, mock.ExpectationsWereMet())
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestTimetableServiceGenerateFillsWholeWeek(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	replacer := &scopeReplacerStub{}
	svc := NewTimetableService(tenAReferences(), tenAClasses(), replacer, tx, NewMetricsService(), nil, zap.NewNop(), TimetableConfig{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a", Seed: int64Ptr(7)})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "period-1", resp.AcademicPeriodID)
	assert.Equal(t, 30, resp.Placed)
	assert.Empty(t, resp.Skipped)
	require.Len(t, replacer.calls, 1)
	assert.Equal(t, "class-10a", replacer.calls[0].classID)
	assert.Equal(t, "period-1", replacer.calls[0].periodID)
	for _, slot := range resp.Slots {
		// Without the weekly cap the first obligation always wins.
		assert.Equal(t, "teacher-ivanova", slot.TeacherID)
		assert.Contains(t, []string{"room-101", "room-102"}, slot.RoomID)
	}
}

func TestTimetableServiceGenerateRespectsWeeklyHours(t *testing.T) {
	svc, replacer, verify := newTimetableFixture(t, tenAReferences(), TimetableConfig{RespectWeeklyHours: true})
	svc.tx.(*txProviderMock).mock.ExpectBegin()
	svc.tx.(*txProviderMock).mock.ExpectCommit()

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a", Seed: int64Ptr(1)})
	require.NoError(t, err)
	verify()

	assert.Equal(t, 7, resp.Placed)
	assert.Len(t, resp.Skipped, 23)
	counts := map[string]int{}
	for _, slot := range replacer.calls[0].slots {
		counts[slot.SubjectID]++
	}
	assert.Equal(t, 4, counts["subject-math"])
	assert.Equal(t, 3, counts["subject-science"])
}

func TestTimetableServiceGenerateAvoidsTeachersBusyInOtherClasses(t *testing.T) {
	refs := tenAReferences()
	for _, lesson := range refs.lessons {
		refs.others = append(refs.others, models.TimeSlot{
			ClassID: "class-10b", Day: models.Monday, LessonID: lesson.ID,
			SubjectID: "subject-math", TeacherID: "teacher-ivanova", RoomID: "room-101",
		})
	}
	svc, _, verify := newTimetableFixture(t, refs, TimetableConfig{})
	svc.tx.(*txProviderMock).mock.ExpectBegin()
	svc.tx.(*txProviderMock).mock.ExpectCommit()

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a"})
	require.NoError(t, err)
	verify()

	assert.Equal(t, [][]string{{"class-10a"}}, refs.excluded)
	for _, slot := range resp.Slots {
		if slot.Day != models.Monday {
			continue
		}
		assert.Equal(t, "teacher-petrov", slot.TeacherID)
		assert.Equal(t, "room-102", slot.RoomID)
	}
}

func TestTimetableServiceGenerateSameSeedSameRooms(t *testing.T) {
	svc, _, verify := newTimetableFixture(t, tenAReferences(), TimetableConfig{})
	mock := svc.tx.(*txProviderMock).mock
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	first, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a", Seed: int64Ptr(42)})
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a", Seed: int64Ptr(42)})
	require.NoError(t, err)
	verify()

	require.Equal(t, len(first.Slots), len(second.Slots))
	for i := range first.Slots {
		assert.Equal(t, first.Slots[i].RoomID, second.Slots[i].RoomID)
	}
}

func TestTimetableServiceGenerateNoObligationsLeavesScheduleUntouched(t *testing.T) {
	svc, replacer, verify := newTimetableFixture(t, tenAReferences(), TimetableConfig{})

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10b"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoObligations))
	assert.Empty(t, replacer.calls)
	verify()
}

func TestTimetableServiceGenerateRollsBackOnWriteFailure(t *testing.T) {
	svc, replacer, verify := newTimetableFixture(t, tenAReferences(), TimetableConfig{})
	replacer.failOn = "class-10a"
	mock := svc.tx.(*txProviderMock).mock
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrWrite))
	verify()
}

func TestTimetableServiceGenerateValidation(t *testing.T) {
	svc, _, verify := newTimetableFixture(t, tenAReferences(), TimetableConfig{})

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a", Weekdays: []string{"Funday"}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "missing"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	verify()
}

func TestTimetableServiceGenerateCustomWeekdays(t *testing.T) {
	svc, _, verify := newTimetableFixture(t, tenAReferences(), TimetableConfig{})
	svc.tx.(*txProviderMock).mock.ExpectBegin()
	svc.tx.(*txProviderMock).mock.ExpectCommit()

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a", Weekdays: []string{"sat"}})
	require.NoError(t, err)
	verify()

	assert.Equal(t, 6, resp.Placed)
	for _, slot := range resp.Slots {
		assert.Equal(t, models.Saturday, slot.Day)
	}
}

func TestTimetableServiceGenerateRepeatedWeekdays(t *testing.T) {
	svc, replacer, verify := newTimetableFixture(t, tenAReferences(), TimetableConfig{})

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a", Weekdays: []string{"Monday", "Monday"}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, replacer.calls)

	svc.tx.(*txProviderMock).mock.ExpectBegin()
	svc.tx.(*txProviderMock).mock.ExpectCommit()
	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a", Weekdays: []string{"Monday", "monday"}})
	require.NoError(t, err)
	verify()

	assert.Equal(t, 6, resp.Placed)
	assert.Empty(t, timetable.DetectConflicts(resp.Slots, nil))
}

func TestTimetableServiceGenerateWithoutLessonsOrRoomsKeepsSchedule(t *testing.T) {
	noLessons := tenAReferences()
	noLessons.lessons = nil
	noRooms := tenAReferences()
	noRooms.rooms = nil

	for name, refs := range map[string]*referencesStub{"lessons": noLessons, "rooms": noRooms} {
		t.Run(name, func(t *testing.T) {
			svc, replacer, verify := newTimetableFixture(t, refs, TimetableConfig{})

			_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{ClassID: "class-10a"})
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
			assert.Empty(t, replacer.calls)
			verify()
		})
	}
}

func TestTimetableServicePeriodRun(t *testing.T) {
	svc, replacer, verify := newTimetableFixture(t, tenAReferences(), TimetableConfig{})
	queue := &dispatcherStub{}
	svc.UseQueue(queue)
	mock := svc.tx.(*txProviderMock).mock
	mock.ExpectBegin()
	mock.ExpectCommit()

	run, err := svc.GeneratePeriod(context.Background(), dto.GeneratePeriodRequest{})
	require.NoError(t, err)
	assert.Equal(t, dto.RunPending, run.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, run.ID, queue.jobs[0].ID)

	require.NoError(t, svc.HandleJob(context.Background(), queue.jobs[0]))
	verify()

	got, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.RunCompleted, got.Status)
	require.Len(t, got.Classes, 2)
	assert.Equal(t, "10A", got.Classes[0].ClassName)
	assert.Equal(t, 30, got.Classes[0].Placed)
	assert.Equal(t, "10B", got.Classes[1].ClassName)
	assert.NotEmpty(t, got.Classes[1].Error)
	assert.NotNil(t, got.FinishedAt)
	require.Len(t, replacer.calls, 1)
}

func TestTimetableServicePeriodRunFailsOnWriteError(t *testing.T) {
	svc, replacer, verify := newTimetableFixture(t, tenAReferences(), TimetableConfig{})
	replacer.failOn = "class-10a"
	queue := &dispatcherStub{}
	svc.UseQueue(queue)
	mock := svc.tx.(*txProviderMock).mock
	mock.ExpectBegin()
	mock.ExpectRollback()

	run, err := svc.GeneratePeriod(context.Background(), dto.GeneratePeriodRequest{})
	require.NoError(t, err)

	err = svc.HandleJob(context.Background(), queue.jobs[0])
	require.Error(t, err)
	assert.True(t, jobs.IsPermanent(err))
	verify()

	got, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.RunFailed, got.Status)
	assert.NotEmpty(t, got.Error)
	require.Len(t, got.Classes, 1)
}

func TestTimetableServicePeriodRunRequiresQueue(t *testing.T) {
	svc, _, _ := newTimetableFixture(t, tenAReferences(), TimetableConfig{})
	_, err := svc.GeneratePeriod(context.Background(), dto.GeneratePeriodRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))

	_, err = svc.GetRun(context.Background(), "unknown")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
