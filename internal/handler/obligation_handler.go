package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type obligationService interface {
	ListSyllabus(ctx context.Context, filter models.ObligationFilter) ([]models.SyllabusEntry, *models.Pagination, error)
	GetSyllabus(ctx context.Context, id string) (*models.SyllabusEntry, error)
	CreateSyllabus(ctx context.Context, req service.SyllabusRequest) (*models.SyllabusEntry, error)
	UpdateSyllabus(ctx context.Context, id string, req service.SyllabusRequest) (*models.SyllabusEntry, error)
	DeleteSyllabus(ctx context.Context, id string) error
	ListSubjectTeachers(ctx context.Context, filter models.ObligationFilter) ([]models.SubjectTeacher, *models.Pagination, error)
	GetSubjectTeacher(ctx context.Context, id string) (*models.SubjectTeacher, error)
	CreateSubjectTeacher(ctx context.Context, req service.SubjectTeacherRequest) (*models.SubjectTeacher, error)
	UpdateSubjectTeacher(ctx context.Context, id string, req service.SubjectTeacherRequest) (*models.SubjectTeacher, error)
	DeleteSubjectTeacher(ctx context.Context, id string) error
}

// ObligationHandler exposes the syllabus and the subject-teacher mapping.
type ObligationHandler struct {
	service obligationService
}

// NewObligationHandler constructs the handler.
func NewObligationHandler(svc *service.ObligationService) *ObligationHandler {
	return &ObligationHandler{service: svc}
}

func obligationFilter(c *gin.Context) models.ObligationFilter {
	return models.ObligationFilter{
		ListQuery: listQuery(c),
		ClassID:   c.Query("class_id"),
		SubjectID: c.Query("subject_id"),
		TeacherID: c.Query("teacher_id"),
	}
}

// ListSyllabus godoc
// @Summary List syllabus entries
// @Tags Syllabus
// @Produce json
// @Param class_id query string false "Class"
// @Param subject_id query string false "Subject"
// @Param teacher_id query string false "Teacher"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /syllabus [get]
func (h *ObligationHandler) ListSyllabus(c *gin.Context) {
	items, pagination, err := h.service.ListSyllabus(c.Request.Context(), obligationFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// GetSyllabus godoc
// @Summary Get syllabus entry
// @Tags Syllabus
// @Produce json
// @Param id path string true "ID"
// @Success 200 {object} response.Envelope
// @Router /syllabus/{id} [get]
func (h *ObligationHandler) GetSyllabus(c *gin.Context) {
	item, err := h.service.GetSyllabus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// CreateSyllabus godoc
// @Summary Create syllabus entry
// @Tags Syllabus
// @Accept json
// @Produce json
// @Param payload body service.SyllabusRequest true "Payload"
// @Success 201 {object} response.Envelope
// @Router /syllabus [post]
func (h *ObligationHandler) CreateSyllabus(c *gin.Context) {
	var req service.SyllabusRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.CreateSyllabus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateSyllabus godoc
// @Summary Update syllabus entry
// @Tags Syllabus
// @Accept json
// @Produce json
// @Param id path string true "ID"
// @Param payload body service.SyllabusRequest true "Payload"
// @Success 200 {object} response.Envelope
// @Router /syllabus/{id} [put]
func (h *ObligationHandler) UpdateSyllabus(c *gin.Context) {
	var req service.SyllabusRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.UpdateSyllabus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteSyllabus godoc
// @Summary Delete syllabus entry
// @Tags Syllabus
// @Param id path string true "ID"
// @Success 204
// @Router /syllabus/{id} [delete]
func (h *ObligationHandler) DeleteSyllabus(c *gin.Context) {
	if err := h.service.DeleteSyllabus(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubjectTeachers godoc
// @Summary List subject-teacher mappings
// @Tags SubjectTeachers
// @Produce json
// @Param class_id query string false "Class"
// @Param subject_id query string false "Subject"
// @Param teacher_id query string false "Teacher"
// @Success 200 {object} response.Envelope
// @Router /subject-teachers [get]
func (h *ObligationHandler) ListSubjectTeachers(c *gin.Context) {
	items, pagination, err := h.service.ListSubjectTeachers(c.Request.Context(), obligationFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// GetSubjectTeacher godoc
// @Summary Get subject-teacher mapping
// @Tags SubjectTeachers
// @Produce json
// @Param id path string true "ID"
// @Success 200 {object} response.Envelope
// @Router /subject-teachers/{id} [get]
func (h *ObligationHandler) GetSubjectTeacher(c *gin.Context) {
	item, err := h.service.GetSubjectTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// CreateSubjectTeacher godoc
// @Summary Create subject-teacher mapping
// @Tags SubjectTeachers
// @Accept json
// @Produce json
// @Param payload body service.SubjectTeacherRequest true "Payload"
// @Success 201 {object} response.Envelope
// @Router /subject-teachers [post]
func (h *ObligationHandler) CreateSubjectTeacher(c *gin.Context) {
	var req service.SubjectTeacherRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.CreateSubjectTeacher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateSubjectTeacher godoc
// @Summary Update subject-teacher mapping
// @Tags SubjectTeachers
// @Accept json
// @Produce json
// @Param id path string true "ID"
// @Param payload body service.SubjectTeacherRequest true "Payload"
// @Success 200 {object} response.Envelope
// @Router /subject-teachers/{id} [put]
func (h *ObligationHandler) UpdateSubjectTeacher(c *gin.Context) {
	var req service.SubjectTeacherRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.UpdateSubjectTeacher(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteSubjectTeacher godoc
// @Summary Delete subject-teacher mapping
// @Tags SubjectTeachers
// @Param id path string true "ID"
// @Success 204
// @Router /subject-teachers/{id} [delete]
func (h *ObligationHandler) DeleteSubjectTeacher(c *gin.Context) {
	if err := h.service.DeleteSubjectTeacher(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
