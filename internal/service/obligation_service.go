package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type syllabusRepository interface {
	List(ctx context.Context, filter models.ObligationFilter) ([]models.SyllabusEntry, int, error)
	FindByID(ctx context.Context, id string) (*models.SyllabusEntry, error)
	Create(ctx context.Context, entry *models.SyllabusEntry) error
	Update(ctx context.Context, entry *models.SyllabusEntry) error
	Delete(ctx context.Context, id string) error
}

type subjectTeacherRepository interface {
	List(ctx context.Context, filter models.ObligationFilter) ([]models.SubjectTeacher, int, error)
	FindByID(ctx context.Context, id string) (*models.SubjectTeacher, error)
	Create(ctx context.Context, row *models.SubjectTeacher) error
	Update(ctx context.Context, row *models.SubjectTeacher) error
	Delete(ctx context.Context, id string) error
}

type obligationRefs struct {
	classes  classReader
	subjects subjectReader
	teachers teacherReader
}

func (r obligationRefs) check(ctx context.Context, classID, subjectID, teacherID string) error {
	if r.classes != nil {
		if _, err := r.classes.FindByID(ctx, classID); err != nil {
			return loadError(err, "class")
		}
	}
	if r.subjects != nil {
		if _, err := r.subjects.FindByID(ctx, subjectID); err != nil {
			return loadError(err, "subject")
		}
	}
	if r.teachers != nil {
		if _, err := r.teachers.FindByID(ctx, teacherID); err != nil {
			return loadError(err, "teacher")
		}
	}
	return nil
}

// SyllabusRequest is a syllabus entry payload.
type SyllabusRequest struct {
	ClassID      string `json:"class_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	HoursPerWeek int    `json:"hours_per_week" validate:"min=0,max=40"`
}

// SubjectTeacherRequest is a fallback mapping payload.
type SubjectTeacherRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
}

// ObligationService manages the syllabus and the subject-teacher fallback mapping the generator reads.
type ObligationService struct {
	syllabus  syllabusRepository
	mapping   subjectTeacherRepository
	refs      obligationRefs
	validator *validator.Validate
	logger    *zap.Logger
}

// NewObligationService constructs the service. The reference readers validate ids and may be nil.
func NewObligationService(
	syllabus syllabusRepository,
	mapping subjectTeacherRepository,
	classes classReader,
	subjects subjectReader,
	teachers teacherReader,
	validate *validator.Validate,
	logger *zap.Logger,
) *ObligationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObligationService{
		syllabus:  syllabus,
		mapping:   mapping,
		refs:      obligationRefs{classes: classes, subjects: subjects, teachers: teachers},
		validator: validate,
		logger:    logger,
	}
}

// ListSyllabus returns syllabus entries.
func (s *ObligationService) ListSyllabus(ctx context.Context, filter models.ObligationFilter) ([]models.SyllabusEntry, *models.Pagination, error) {
	entries, total, err := s.syllabus.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list syllabus")
	}
	return entries, paginationFor(filter.ListQuery, total), nil
}

// GetSyllabus returns one entry.
func (s *ObligationService) GetSyllabus(ctx context.Context, id string) (*models.SyllabusEntry, error) {
	entry, err := s.syllabus.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "syllabus entry")
	}
	return entry, nil
}

// CreateSyllabus adds an entry.
func (s *ObligationService) CreateSyllabus(ctx context.Context, req SyllabusRequest) (*models.SyllabusEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid syllabus payload")
	}
	if err := s.refs.check(ctx, req.ClassID, req.SubjectID, req.TeacherID); err != nil {
		return nil, err
	}
	entry := &models.SyllabusEntry{ClassID: req.ClassID, SubjectID: req.SubjectID, TeacherID: req.TeacherID, HoursPerWeek: req.HoursPerWeek}
	if err := s.syllabus.Create(ctx, entry); err != nil {
		return nil, internalError(err, "failed to create syllabus entry")
	}
	return entry, nil
}

// UpdateSyllabus modifies an entry.
func (s *ObligationService) UpdateSyllabus(ctx context.Context, id string, req SyllabusRequest) (*models.SyllabusEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid syllabus payload")
	}
	entry, err := s.syllabus.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "syllabus entry")
	}
	if err := s.refs.check(ctx, req.ClassID, req.SubjectID, req.TeacherID); err != nil {
		return nil, err
	}
	entry.ClassID = req.ClassID
	entry.SubjectID = req.SubjectID
	entry.TeacherID = req.TeacherID
	entry.HoursPerWeek = req.HoursPerWeek
	if err := s.syllabus.Update(ctx, entry); err != nil {
		return nil, internalError(err, "failed to update syllabus entry")
	}
	return entry, nil
}

// DeleteSyllabus removes an entry.
func (s *ObligationService) DeleteSyllabus(ctx context.Context, id string) error {
	if _, err := s.syllabus.FindByID(ctx, id); err != nil {
		return loadError(err, "syllabus entry")
	}
	if err := s.syllabus.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete syllabus entry")
	}
	return nil
}

// ListSubjectTeachers returns fallback mappings.
func (s *ObligationService) ListSubjectTeachers(ctx context.Context, filter models.ObligationFilter) ([]models.SubjectTeacher, *models.Pagination, error) {
	rows, total, err := s.mapping.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list subject teachers")
	}
	return rows, paginationFor(filter.ListQuery, total), nil
}

// GetSubjectTeacher returns one mapping.
func (s *ObligationService) GetSubjectTeacher(ctx context.Context, id string) (*models.SubjectTeacher, error) {
	row, err := s.mapping.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "subject teacher")
	}
	return row, nil
}

// CreateSubjectTeacher adds a mapping.
func (s *ObligationService) CreateSubjectTeacher(ctx context.Context, req SubjectTeacherRequest) (*models.SubjectTeacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject teacher payload")
	}
	if err := s.refs.check(ctx, req.ClassID, req.SubjectID, req.TeacherID); err != nil {
		return nil, err
	}
	row := &models.SubjectTeacher{ClassID: req.ClassID, SubjectID: req.SubjectID, TeacherID: req.TeacherID}
	if err := s.mapping.Create(ctx, row); err != nil {
		return nil, internalError(err, "failed to create subject teacher")
	}
	return row, nil
}

// UpdateSubjectTeacher modifies a mapping.
func (s *ObligationService) UpdateSubjectTeacher(ctx context.Context, id string, req SubjectTeacherRequest) (*models.SubjectTeacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject teacher payload")
	}
	row, err := s.mapping.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "subject teacher")
	}
	if err := s.refs.check(ctx, req.ClassID, req.SubjectID, req.TeacherID); err != nil {
		return nil, err
	}
	row.ClassID = req.ClassID
	row.SubjectID = req.SubjectID
	row.TeacherID = req.TeacherID
	if err := s.mapping.Update(ctx, row); err != nil {
		return nil, internalError(err, "failed to update subject teacher")
	}
	return row, nil
}

// DeleteSubjectTeacher removes a mapping.
func (s *ObligationService) DeleteSubjectTeacher(ctx context.Context, id string) error {
	if _, err := s.mapping.FindByID(ctx, id); err != nil {
		return loadError(err, "subject teacher")
	}
	if err := s.mapping.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete subject teacher")
	}
	return nil
}
