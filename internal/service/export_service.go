package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

type detailedSlotLister interface {
	ListDetailed(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlotDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportedFile is an opened export ready to stream.
type ExportedFile struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ExportService renders class or teacher schedules to files behind expiring signed links.
type ExportService struct {
	slots     detailedSlotLister
	periods   periodResolver
	classes   classReader
	teachers  teacherReader
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[string]datasetRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService with CSV, PDF and XLSX renderers.
func NewExportService(
	slots detailedSlotLister,
	periods periodResolver,
	classes classReader,
	teachers teacherReader,
	store fileStorage,
	signer *storage.SignedURLSigner,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ExportConfig,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		slots:    slots,
		periods:  periods,
		classes:  classes,
		teachers: teachers,
		storage:  store,
		signer:   signer,
		renderers: map[string]datasetRenderer{
			dto.ExportCSV:  export.NewCSVExporter(),
			dto.ExportPDF:  export.NewPDFExporter(),
			dto.ExportXLSX: export.NewXLSXExporter(),
		},
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Export renders the schedule and returns a signed download link.
func (s *ExportService) Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid export payload")
	}
	period, err := s.periods.ResolvePeriod(ctx, req.AcademicPeriodID)
	if err != nil {
		return nil, err
	}

	filter := models.TimeSlotFilter{AcademicPeriodID: period.ID}
	var subject string
	if req.ClassID != "" {
		class, err := s.classes.FindByID(ctx, req.ClassID)
		if err != nil {
			return nil, loadError(err, "class")
		}
		filter.ClassID = class.ID
		subject = class.Name
	} else {
		teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
		if err != nil {
			return nil, loadError(err, "teacher")
		}
		filter.TeacherID = teacher.ID
		subject = teacher.FullName
	}

	rows, err := s.slots.ListDetailed(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to load schedule")
	}
	dataset := buildScheduleDataset(fmt.Sprintf("Timetable %s - %s", subject, period.Name), rows)

	payload, err := s.renderers[req.Format].Render(dataset)
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}
	id := uuid.NewString()
	filename := fmt.Sprintf("timetable_%s_%s_%s.%s", sanitizeFilename(subject), time.Now().UTC().Format("20060102_150405"), id[:8], req.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, internalError(err, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, internalError(err, "failed to sign export")
	}

	s.logger.Info("timetable exported", zap.String("export_id", id), zap.String("format", req.Format), zap.Int("rows", len(rows)))
	return &dto.ExportResponse{
		ID:        id,
		Format:    req.Format,
		URL:       s.downloadURL(token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and opens the file it points at.
func (s *ExportService) Open(token string) (*ExportedFile, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export link invalid or expired")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	return &ExportedFile{
		File:        file,
		Filename:    filepath.Base(relPath),
		ContentType: s.contentType(relPath),
	}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return removed, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("files", len(removed)))
	}
	return removed, nil
}

func (s *ExportService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return prefix + "/timetable/exports/download?token=" + url.QueryEscape(token)
}

func (s *ExportService) contentType(relPath string) string {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(relPath)), ".")
	if renderer, ok := s.renderers[format]; ok {
		return renderer.ContentType()
	}
	return "application/octet-stream"
}

var scheduleHeaders = []string{"Day", "Lesson", "Time", "Class", "Subgroup", "Subject", "Teacher", "Room"}

// buildScheduleDataset orders rows by weekday, lesson, class and subgroup.
func buildScheduleDataset(title string, rows []models.TimeSlotDetail) export.Dataset {
	sorted := make([]models.TimeSlotDetail, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Day.Index() != b.Day.Index() {
			return a.Day.Index() < b.Day.Index()
		}
		if a.LessonNumber != b.LessonNumber {
			return a.LessonNumber < b.LessonNumber
		}
		if a.ClassName != b.ClassName {
			return a.ClassName < b.ClassName
		}
		return subgroupValue(a.Subgroup) < subgroupValue(b.Subgroup)
	})

	data := make([]map[string]string, 0, len(sorted))
	for _, row := range sorted {
		subgroup := ""
		if row.Subgroup != nil {
			subgroup = strconv.Itoa(*row.Subgroup)
		}
		data = append(data, map[string]string{
			"Day":      string(row.Day),
			"Lesson":   strconv.Itoa(row.LessonNumber),
			"Time":     row.StartTime + "-" + row.EndTime,
			"Class":    row.ClassName,
			"Subgroup": subgroup,
			"Subject":  row.SubjectName,
			"Teacher":  row.TeacherName,
			"Room":     row.RoomNumber,
		})
	}
	return export.Dataset{Title: title, Headers: scheduleHeaders, Rows: data}
}

func subgroupValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
