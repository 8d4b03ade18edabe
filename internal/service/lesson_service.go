package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type lessonRepository interface {
	ListAll(ctx context.Context) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

// LessonRequest is the lesson payload. Times use HH:MM.
type LessonRequest struct {
	LessonNumber int    `json:"lesson_number" validate:"required,min=1"`
	StartTime    string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string `json:"end_time" validate:"required,datetime=15:04"`
}

// LessonService manages the periods of the school day.
type LessonService struct {
	repo      lessonRepository
	slots     timeSlotReferenceCounter
	cache     referenceInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs LessonService.
func NewLessonService(repo lessonRepository, slots timeSlotReferenceCounter, cache referenceInvalidator, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{repo: repo, slots: slots, cache: cache, validator: validate, logger: logger}
}

// List returns every lesson ordered by number.
func (s *LessonService) List(ctx context.Context) ([]models.Lesson, error) {
	lessons, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list lessons")
	}
	return lessons, nil
}

// Get returns a lesson.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "lesson")
	}
	return lesson, nil
}

// Create adds a lesson keeping numbers unique and times increasing.
func (s *LessonService) Create(ctx context.Context, req LessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lesson payload")
	}
	lesson := &models.Lesson{LessonNumber: req.LessonNumber, StartTime: req.StartTime, EndTime: req.EndTime}
	if err := s.checkOrdering(ctx, lesson); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, internalError(err, "failed to create lesson")
	}
	invalidate(ctx, s.cache)
	return lesson, nil
}

// Update modifies a lesson keeping numbers unique and times increasing.
func (s *LessonService) Update(ctx context.Context, id string, req LessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lesson payload")
	}
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "lesson")
	}
	lesson.LessonNumber = req.LessonNumber
	lesson.StartTime = req.StartTime
	lesson.EndTime = req.EndTime
	if err := s.checkOrdering(ctx, lesson); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, lesson); err != nil {
		return nil, internalError(err, "failed to update lesson")
	}
	invalidate(ctx, s.cache)
	return lesson, nil
}

// Delete removes a lesson that has no time slots.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return loadError(err, "lesson")
	}
	if err := ensureUnscheduled(ctx, s.slots, "lesson_id", id, "lesson"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete lesson")
	}
	invalidate(ctx, s.cache)
	return nil
}

// checkOrdering rejects a lesson whose number is taken or whose time range breaks the order by number.
func (s *LessonService) checkOrdering(ctx context.Context, candidate *models.Lesson) error {
	if candidate.StartTime >= candidate.EndTime {
		return appErrors.Clone(appErrors.ErrValidation, "lesson must end after it starts")
	}
	existing, err := s.repo.ListAll(ctx)
	if err != nil {
		return internalError(err, "failed to list lessons")
	}
	lessons := make([]models.Lesson, 0, len(existing)+1)
	for _, l := range existing {
		if l.ID == candidate.ID {
			continue
		}
		if l.LessonNumber == candidate.LessonNumber {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("lesson number %d already exists", candidate.LessonNumber))
		}
		lessons = append(lessons, l)
	}
	lessons = append(lessons, *candidate)
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].LessonNumber < lessons[j].LessonNumber })
	for i := 1; i < len(lessons); i++ {
		if lessons[i].StartTime < lessons[i-1].EndTime {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("lesson %d overlaps or precedes lesson %d", lessons[i].LessonNumber, lessons[i-1].LessonNumber))
		}
	}
	return nil
}
