package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// TeacherRequest is the teacher payload. Subjects are subject names.
type TeacherRequest struct {
	FullName string   `json:"full_name" validate:"required,max=255"`
	Subjects []string `json:"subjects" validate:"dive,required"`
	ClassIDs []string `json:"class_ids" validate:"dive,required"`
	RoomIDs  []string `json:"room_ids" validate:"dive,required"`
}

// TeacherService contains business logic for teacher management.
type TeacherService struct {
	repo      teacherRepository
	slots     timeSlotReferenceCounter
	cache     referenceInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService instance.
func NewTeacherService(repo teacherRepository, slots timeSlotReferenceCounter, cache referenceInvalidator, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, slots: slots, cache: cache, validator: validate, logger: logger}
}

// List returns paginated teachers.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list teachers")
	}
	return teachers, paginationFor(filter.ListQuery, total), nil
}

// Get returns a teacher by ID.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "teacher")
	}
	return teacher, nil
}

// Create registers a new teacher.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher := &models.Teacher{FullName: req.FullName, Subjects: req.Subjects, ClassIDs: req.ClassIDs, RoomIDs: req.RoomIDs}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, internalError(err, "failed to create teacher")
	}
	invalidate(ctx, s.cache)
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID))
	return teacher, nil
}

// Update modifies teacher details.
func (s *TeacherService) Update(ctx context.Context, id string, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "teacher")
	}
	teacher.FullName = req.FullName
	teacher.Subjects = req.Subjects
	teacher.ClassIDs = req.ClassIDs
	teacher.RoomIDs = req.RoomIDs
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, internalError(err, "failed to update teacher")
	}
	invalidate(ctx, s.cache)
	return teacher, nil
}

// Delete removes a teacher that has no time slots.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return loadError(err, "teacher")
	}
	if err := ensureUnscheduled(ctx, s.slots, "teacher_id", id, "teacher"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete teacher")
	}
	invalidate(ctx, s.cache)
	return nil
}
