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

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type classServiceMock struct {
	filter  models.ClassFilter
	created service.ClassRequest
	err     error
}

func (m *classServiceMock) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	m.filter = filter
	return []models.Class{{ID: "class-10a", Name: "10A"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, m.err
}

func (m *classServiceMock) Get(ctx context.Context, id string) (*models.Class, error) {
	if id != "class-10a" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return &models.Class{ID: id, Name: "10A"}, nil
}

func (m *classServiceMock) Create(ctx context.Context, req service.ClassRequest) (*models.Class, error) {
	m.created = req
	return &models.Class{ID: "class-new", Name: req.Name, Grade: req.Grade}, m.err
}

func (m *classServiceMock) Update(ctx context.Context, id string, req service.ClassRequest) (*models.Class, error) {
	return &models.Class{ID: id, Name: req.Name}, m.err
}

func (m *classServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func classRouter(svc *classServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &ClassHandler{service: svc}
	r := gin.New()
	r.GET("/classes", h.List)
	r.GET("/classes/:id", h.Get)
	r.POST("/classes", h.Create)
	r.DELETE("/classes/:id", h.Delete)
	return r
}

func TestClassHandlerListPassesFilters(t *testing.T) {
	svc := &classServiceMock{}
	w := httptest.NewRecorder()
	classRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/classes?grade=10&search=10&page=2&limit=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, svc.filter.Grade)
	assert.Equal(t, "10", svc.filter.Search)
	assert.Equal(t, 2, svc.filter.Page)
	assert.Equal(t, 5, svc.filter.PageSize)
}

func TestClassHandlerGetNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	classRouter(&classServiceMock{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/classes/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestClassHandlerCreate(t *testing.T) {
	svc := &classServiceMock{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/classes", strings.NewReader(`{"name":"10A","grade":10,"literal":"A"}`))
	req.Header.Set("Content-Type", "application/json")
	classRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, service.ClassRequest{Name: "10A", Grade: 10, Literal: "A"}, svc.created)
}

func TestClassHandlerDeleteScheduledClass(t *testing.T) {
	svc := &classServiceMock{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "class is used by time slots")}
	w := httptest.NewRecorder()
	classRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/classes/class-10a", nil))
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}
