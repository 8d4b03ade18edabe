package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

type timeSlotStore interface {
	List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error)
	ListDetailed(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlotDetail, error)
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	Update(ctx context.Context, slot *models.TimeSlot) error
	DeleteByFilter(ctx context.Context, filter models.TimeSlotFilter) (int64, error)
}

type periodResolver interface {
	ResolvePeriod(ctx context.Context, id string) (*models.AcademicPeriod, error)
}

// TimeSlotService lists and edits stored schedule rows.
type TimeSlotService struct {
	repo      timeSlotStore
	periods   periodResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeSlotService constructs the service.
func NewTimeSlotService(repo timeSlotStore, periods periodResolver, validate *validator.Validate, logger *zap.Logger) *TimeSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeSlotService{repo: repo, periods: periods, validator: validate, logger: logger}
}

// List returns rows with display labels. Without a period the active one is used.
func (s *TimeSlotService) List(ctx context.Context, q dto.TimeSlotQuery) ([]models.TimeSlotDetail, error) {
	filter, err := s.filter(ctx, q.AcademicPeriodID, q.ClassID)
	if err != nil {
		return nil, err
	}
	filter.TeacherID = q.TeacherID
	filter.RoomID = q.RoomID
	if q.Day != "" {
		if filter.Day, err = parseDay(q.Day); err != nil {
			return nil, err
		}
	}
	rows, err := s.repo.ListDetailed(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list time slots")
	}
	return rows, nil
}

// Update edits one row after checking it against the rows sharing its new cell.
func (s *TimeSlotService) Update(ctx context.Context, id string, req dto.UpdateTimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid time slot payload")
	}
	day, err := parseDay(req.Day)
	if err != nil {
		return nil, err
	}
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "time slot")
	}
	slot.Day = day
	slot.LessonID = req.LessonID
	slot.SubjectID = req.SubjectID
	slot.TeacherID = req.TeacherID
	slot.RoomID = req.RoomID
	slot.Subgroup = req.Subgroup

	cellRows, err := s.repo.List(ctx, models.TimeSlotFilter{AcademicPeriodID: slot.AcademicPeriodID, Day: day, LessonID: req.LessonID})
	if err != nil {
		return nil, internalError(err, "failed to load cell occupancy")
	}
	proposed := []models.TimeSlot{*slot}
	stored := make([]models.TimeSlot, 0, len(cellRows))
	for _, row := range cellRows {
		switch {
		case row.ID == slot.ID:
		case row.ClassID == slot.ClassID:
			proposed = append(proposed, row)
		default:
			stored = append(stored, row)
		}
	}
	if conflicts := timetable.DetectConflicts(proposed, stored); len(conflicts) > 0 {
		return nil, conflictError(conflicts, "time slot clashes with the schedule")
	}

	if err := s.repo.Update(ctx, slot); err != nil {
		return nil, internalError(err, "failed to update time slot")
	}
	return slot, nil
}

// Delete removes every row of a class for a period and returns how many were removed.
func (s *TimeSlotService) Delete(ctx context.Context, req dto.DeleteTimeSlotsRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, validationError(err, "class_id is required")
	}
	filter, err := s.filter(ctx, req.AcademicPeriodID, req.ClassID)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteByFilter(ctx, filter)
	if err != nil {
		return 0, internalError(err, "failed to delete time slots")
	}
	s.logger.Info("time slots deleted", zap.String("class_id", req.ClassID), zap.String("academic_period_id", filter.AcademicPeriodID), zap.Int64("rows", n))
	return n, nil
}

func (s *TimeSlotService) filter(ctx context.Context, periodID, classID string) (models.TimeSlotFilter, error) {
	period, err := s.periods.ResolvePeriod(ctx, periodID)
	if err != nil {
		return models.TimeSlotFilter{}, err
	}
	return models.TimeSlotFilter{AcademicPeriodID: period.ID, ClassID: classID}, nil
}
