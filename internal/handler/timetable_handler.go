package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	GeneratePeriod(ctx context.Context, req dto.GeneratePeriodRequest) (*dto.GenerationRun, error)
	GetRun(ctx context.Context, id string) (*dto.GenerationRun, error)
}

type cellEditor interface {
	Get(ctx context.Context, q dto.CellQuery) (*dto.CellView, error)
	Save(ctx context.Context, req dto.SaveCellRequest) (*dto.CellView, error)
	Clear(ctx context.Context, q dto.CellQuery) error
	Preview(ctx context.Context, req dto.PreviewCellRequest) (*dto.CellView, error)
}

type scheduleImporter interface {
	ImportJSON(ctx context.Context, periodID string, r io.Reader) (*dto.ImportResponse, error)
	ImportSpreadsheet(ctx context.Context, periodID string, r io.Reader) (*dto.ImportResponse, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error)
	Open(token string) (*service.ExportedFile, error)
}

// TimetableHandler exposes generation, the cell editor, imports and exports.
type TimetableHandler struct {
	generator     timetableGenerator
	cells         cellEditor
	importer      scheduleImporter
	exporter      scheduleExporter
	maxUploadSize int64
}

// NewTimetableHandler constructs the handler. maxUploadSize bounds import bodies in bytes.
func NewTimetableHandler(generator *service.TimetableService, cells *service.CellService, importer *service.ImportService, exporter *service.ExportService, maxUploadSize int64) *TimetableHandler {
	return &TimetableHandler{
		generator:     generator,
		cells:         cells,
		importer:      importer,
		exporter:      exporter,
		maxUploadSize: maxUploadSize,
	}
}

// Generate godoc
// @Summary Regenerate the weekly schedule of one class
// @Description Replaces every stored row of the class for the period. Omitted period means the active one.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "placed", result.Placed)
	middleware.SetMeta(c, "skipped", len(result.Skipped))
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// GeneratePeriod godoc
// @Summary Regenerate every class of a period in the background
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GeneratePeriodRequest false "Period payload"
// @Success 202 {object} response.Envelope
// @Router /timetable/generate/period [post]
func (h *TimetableHandler) GeneratePeriod(c *gin.Context) {
	var req dto.GeneratePeriodRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	run, err := h.generator.GeneratePeriod(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}

// GetRun godoc
// @Summary Get the status of a period regeneration
// @Tags Timetable
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	run, err := h.generator.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// GetCell godoc
// @Summary Get one cell of a class grid
// @Tags TimetableCells
// @Produce json
// @Param class_id query string true "Class"
// @Param academic_period_id query string false "Academic period"
// @Param day query string true "Weekday"
// @Param lesson_id query string true "Lesson"
// @Success 200 {object} response.Envelope
// @Router /timetable/cells [get]
func (h *TimetableHandler) GetCell(c *gin.Context) {
	var q dto.CellQuery
	if !bindQuery(c, &q) {
		return
	}
	view, err := h.cells.Get(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SaveCell godoc
// @Summary Replace the rows of one cell
// @Description Incomplete rows are dropped. A cell without any complete row is rejected with INVALID_FORM.
// @Tags TimetableCells
// @Accept json
// @Produce json
// @Param payload body dto.SaveCellRequest true "Cell payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/cells [put]
func (h *TimetableHandler) SaveCell(c *gin.Context) {
	var req dto.SaveCellRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.cells.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ClearCell godoc
// @Summary Delete the rows of one cell
// @Tags TimetableCells
// @Param class_id query string true "Class"
// @Param academic_period_id query string false "Academic period"
// @Param day query string true "Weekday"
// @Param lesson_id query string true "Lesson"
// @Success 204
// @Router /timetable/cells [delete]
func (h *TimetableHandler) ClearCell(c *gin.Context) {
	var q dto.CellQuery
	if !bindQuery(c, &q) {
		return
	}
	if err := h.cells.Clear(c.Request.Context(), q); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PreviewCell godoc
// @Summary Apply editor actions to a cell without saving
// @Tags TimetableCells
// @Accept json
// @Produce json
// @Param payload body dto.PreviewCellRequest true "Preview payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/cells/preview [post]
func (h *TimetableHandler) PreviewCell(c *gin.Context) {
	var req dto.PreviewCellRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.cells.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ImportJSON godoc
// @Summary Import a schedule from a JSON array
// @Description Accepts the array as the request body or as a multipart "file" field.
// @Tags TimetableImport
// @Accept json
// @Produce json
// @Param academic_period_id query string false "Academic period"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetable/import/json [post]
func (h *TimetableHandler) ImportJSON(c *gin.Context) {
	h.limitBody(c)
	body, closeFn, err := h.upload(c, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()
	result, err := h.importer.ImportJSON(c.Request.Context(), c.Query("academic_period_id"), body)
	if err != nil {
		response.Error(c, uploadError(err))
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ImportSpreadsheet godoc
// @Summary Import a schedule from an xlsx workbook
// @Tags TimetableImport
// @Accept multipart/form-data
// @Produce json
// @Param academic_period_id query string false "Academic period"
// @Param file formData file true "Workbook"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetable/import/spreadsheet [post]
func (h *TimetableHandler) ImportSpreadsheet(c *gin.Context) {
	h.limitBody(c)
	body, closeFn, err := h.upload(c, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()
	result, err := h.importer.ImportSpreadsheet(c.Request.Context(), c.Query("academic_period_id"), body)
	if err != nil {
		response.Error(c, uploadError(err))
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Render a class or teacher schedule to CSV, PDF or XLSX
// @Tags TimetableExport
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 201 {object} response.Envelope
// @Router /timetable/exports [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered schedule through its signed token
// @Tags TimetableExport
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Router /timetable/exports/download [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.exporter.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.File.Close() //nolint:errcheck
	info, err := file.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), file.ContentType, file.File, nil)
}

func (h *TimetableHandler) limitBody(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}
}

// upload returns the multipart "file" field, or the raw body when the request is not multipart
// and a file is not required.
func (h *TimetableHandler) upload(c *gin.Context, requireFile bool) (io.Reader, func(), error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if requireFile {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
		}
		return c.Request.Body, func() {}, nil
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, nil, uploadError(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is required"))
	}
	src, err := fileHeader.Open()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return src, func() { _ = src.Close() }, nil
}

// uploadError reports bodies cut off by the size limit as 413.
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return appErrors.Wrap(err, appErrors.ErrPayloadTooLarge.Code, appErrors.ErrPayloadTooLarge.Status, "upload exceeds the size limit")
	}
	return err
}
