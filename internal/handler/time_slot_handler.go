package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timeSlotEditor interface {
	List(ctx context.Context, q dto.TimeSlotQuery) ([]models.TimeSlotDetail, error)
	Update(ctx context.Context, id string, req dto.UpdateTimeSlotRequest) (*models.TimeSlot, error)
	Delete(ctx context.Context, req dto.DeleteTimeSlotsRequest) (int64, error)
}

// TimeSlotHandler exposes stored schedule rows.
type TimeSlotHandler struct {
	service timeSlotEditor
}

// NewTimeSlotHandler constructs the handler.
func NewTimeSlotHandler(svc *service.TimeSlotService) *TimeSlotHandler {
	return &TimeSlotHandler{service: svc}
}

// List godoc
// @Summary List stored schedule rows
// @Tags TimeSlots
// @Produce json
// @Param academic_period_id query string false "Academic period"
// @Param class_id query string false "Class"
// @Param teacher_id query string false "Teacher"
// @Param room_id query string false "Room"
// @Param day query string false "Weekday"
// @Success 200 {object} response.Envelope
// @Router /time-slots [get]
func (h *TimeSlotHandler) List(c *gin.Context) {
	var q dto.TimeSlotQuery
	if !bindQuery(c, &q) {
		return
	}
	rows, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Update godoc
// @Summary Move or edit one stored row
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param id path string true "Time slot ID"
// @Param payload body dto.UpdateTimeSlotRequest true "Time slot payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /time-slots/{id} [put]
func (h *TimeSlotHandler) Update(c *gin.Context) {
	var req dto.UpdateTimeSlotRequest
	if !bindJSON(c, &req) {
		return
	}
	slot, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Delete godoc
// @Summary Delete every stored row of a class in a period
// @Tags TimeSlots
// @Produce json
// @Param class_id query string true "Class"
// @Param academic_period_id query string false "Academic period"
// @Success 200 {object} response.Envelope
// @Router /time-slots [delete]
func (h *TimeSlotHandler) Delete(c *gin.Context) {
	var req dto.DeleteTimeSlotsRequest
	if !bindQuery(c, &req) {
		return
	}
	deleted, err := h.service.Delete(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}
