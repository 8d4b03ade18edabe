package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timeSlotEditorMock struct {
	query   dto.TimeSlotQuery
	updated string
	deleted dto.DeleteTimeSlotsRequest
	err     error
}

func (m *timeSlotEditorMock) List(ctx context.Context, q dto.TimeSlotQuery) ([]models.TimeSlotDetail, error) {
	m.query = q
	return []models.TimeSlotDetail{}, m.err
}

func (m *timeSlotEditorMock) Update(ctx context.Context, id string, req dto.UpdateTimeSlotRequest) (*models.TimeSlot, error) {
	m.updated = id
	if m.err != nil {
		return nil, m.err
	}
	return &models.TimeSlot{ID: id, Day: models.Weekday(req.Day), LessonID: req.LessonID}, nil
}

func (m *timeSlotEditorMock) Delete(ctx context.Context, req dto.DeleteTimeSlotsRequest) (int64, error) {
	m.deleted = req
	return 6, m.err
}

func TestTimeSlotHandlerListFilters(t *testing.T) {
	svc := &timeSlotEditorMock{}
	h := &TimeSlotHandler{service: svc}

	w := serve(h.List, http.MethodGet, "/time-slots?class_id=class-10a&teacher_id=teacher-ivanova&day=Mon", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "class-10a", svc.query.ClassID)
	assert.Equal(t, "teacher-ivanova", svc.query.TeacherID)
	assert.Equal(t, "Mon", svc.query.Day)
}

func TestTimeSlotHandlerUpdateConflict(t *testing.T) {
	svc := &timeSlotEditorMock{err: appErrors.Clone(appErrors.ErrConflict, "time slot clashes with the stored schedule")}
	h := &TimeSlotHandler{service: svc}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PUT("/time-slots/:id", h.Update)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/time-slots/slot-1", strings.NewReader(`{"day":"Monday","lesson_id":"lesson-1","subject_id":"s","teacher_id":"t","room_id":"r"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "slot-1", svc.updated)
}

func TestTimeSlotHandlerDeleteReportsCount(t *testing.T) {
	svc := &timeSlotEditorMock{}
	h := &TimeSlotHandler{service: svc}

	w := serve(h.Delete, http.MethodDelete, "/time-slots?class_id=class-10a&academic_period_id=period-1", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.DeleteTimeSlotsRequest{ClassID: "class-10a", AcademicPeriodID: "period-1"}, svc.deleted)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 6, data["deleted"])
}
