package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type academicPeriodService interface {
	List(ctx context.Context) ([]models.AcademicPeriod, error)
	Get(ctx context.Context, id string) (*models.AcademicPeriod, error)
	Create(ctx context.Context, req service.AcademicPeriodRequest) (*models.AcademicPeriod, error)
	Update(ctx context.Context, id string, req service.AcademicPeriodRequest) (*models.AcademicPeriod, error)
	Delete(ctx context.Context, id string) error
	Active(ctx context.Context) (*models.AcademicPeriod, error)
}

// AcademicPeriodHandler exposes academic periods endpoints.
type AcademicPeriodHandler struct {
	service academicPeriodService
}

// NewAcademicPeriodHandler constructs the handler.
func NewAcademicPeriodHandler(svc *service.AcademicPeriodService) *AcademicPeriodHandler {
	return &AcademicPeriodHandler{service: svc}
}

// List godoc
// @Summary List academic periods
// @Tags AcademicPeriods
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-periods [get]
func (h *AcademicPeriodHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get academic period
// @Tags AcademicPeriods
// @Produce json
// @Param id path string true "ID"
// @Success 200 {object} response.Envelope
// @Router /academic-periods/{id} [get]
func (h *AcademicPeriodHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Active godoc
// @Summary Get the active academic period
// @Tags AcademicPeriods
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-periods/active [get]
func (h *AcademicPeriodHandler) Active(c *gin.Context) {
	item, err := h.service.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create academic period
// @Tags AcademicPeriods
// @Accept json
// @Produce json
// @Param payload body service.AcademicPeriodRequest true "Payload"
// @Success 201 {object} response.Envelope
// @Router /academic-periods [post]
func (h *AcademicPeriodHandler) Create(c *gin.Context) {
	var req service.AcademicPeriodRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update academic period
// @Tags AcademicPeriods
// @Accept json
// @Produce json
// @Param id path string true "ID"
// @Param payload body service.AcademicPeriodRequest true "Payload"
// @Success 200 {object} response.Envelope
// @Router /academic-periods/{id} [put]
func (h *AcademicPeriodHandler) Update(c *gin.Context) {
	var req service.AcademicPeriodRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete academic period
// @Tags AcademicPeriods
// @Param id path string true "ID"
// @Success 204
// @Router /academic-periods/{id} [delete]
func (h *AcademicPeriodHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
