package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type academicPeriodRepository interface {
	List(ctx context.Context) ([]models.AcademicPeriod, error)
	FindByID(ctx context.Context, id string) (*models.AcademicPeriod, error)
	FindActive(ctx context.Context) (*models.AcademicPeriod, error)
	DeactivateAll(ctx context.Context, exec sqlx.ExtContext, exceptID string) error
	Create(ctx context.Context, exec sqlx.ExtContext, period *models.AcademicPeriod) error
	Update(ctx context.Context, exec sqlx.ExtContext, period *models.AcademicPeriod) error
	Delete(ctx context.Context, id string) error
}

// AcademicPeriodRequest is the period payload. Dates use YYYY-MM-DD.
type AcademicPeriodRequest struct {
	Name      string `json:"name" validate:"required,max=128"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	IsActive  bool   `json:"is_active"`
}

// AcademicPeriodService manages terms and the single active period.
type AcademicPeriodService struct {
	repo      academicPeriodRepository
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicPeriodService constructs the service.
func NewAcademicPeriodService(repo academicPeriodRepository, tx txProvider, validate *validator.Validate, logger *zap.Logger) *AcademicPeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicPeriodService{repo: repo, tx: tx, validator: validate, logger: logger}
}

// List returns every period.
func (s *AcademicPeriodService) List(ctx context.Context) ([]models.AcademicPeriod, error) {
	periods, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list academic periods")
	}
	return periods, nil
}

// Get returns one period.
func (s *AcademicPeriodService) Get(ctx context.Context, id string) (*models.AcademicPeriod, error) {
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "academic period")
	}
	return period, nil
}

// Active returns the current academic period.
func (s *AcademicPeriodService) Active(ctx context.Context) (*models.AcademicPeriod, error) {
	period, err := s.repo.FindActive(ctx)
	if err != nil {
		return nil, loadError(err, "active academic period")
	}
	return period, nil
}

// Create adds a period; an active one takes the flag from any other.
func (s *AcademicPeriodService) Create(ctx context.Context, req AcademicPeriodRequest) (*models.AcademicPeriod, error) {
	period := &models.AcademicPeriod{}
	if err := s.apply(period, req); err != nil {
		return nil, err
	}
	if err := s.save(ctx, period, true); err != nil {
		return nil, err
	}
	return period, nil
}

// Update modifies a period.
func (s *AcademicPeriodService) Update(ctx context.Context, id string, req AcademicPeriodRequest) (*models.AcademicPeriod, error) {
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "academic period")
	}
	if err := s.apply(period, req); err != nil {
		return nil, err
	}
	if err := s.save(ctx, period, false); err != nil {
		return nil, err
	}
	return period, nil
}

// Delete removes a period together with its schedule.
func (s *AcademicPeriodService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return loadError(err, "academic period")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete academic period")
	}
	s.logger.Info("academic period deleted", zap.String("academic_period_id", id))
	return nil
}

func (s *AcademicPeriodService) apply(period *models.AcademicPeriod, req AcademicPeriodRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid academic period payload")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return validationError(err, "invalid start_date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return validationError(err, "invalid end_date")
	}
	if !end.After(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}
	period.Name = req.Name
	period.StartDate = start
	period.EndDate = end
	period.IsActive = req.IsActive
	return nil
}

func (s *AcademicPeriodService) save(ctx context.Context, period *models.AcademicPeriod, create bool) (err error) {
	if create && period.ID == "" {
		period.ID = uuid.NewString()
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return internalError(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// the partial unique index allows one active row, so the flag moves before the write
	if period.IsActive {
		if err = s.repo.DeactivateAll(ctx, tx, period.ID); err != nil {
			return internalError(err, "failed to switch active academic period")
		}
	}
	if create {
		if err = s.repo.Create(ctx, tx, period); err != nil {
			return internalError(err, "failed to create academic period")
		}
	} else if err = s.repo.Update(ctx, tx, period); err != nil {
		return internalError(err, "failed to update academic period")
	}
	if err = tx.Commit(); err != nil {
		return internalError(err, "failed to commit academic period")
	}
	return nil
}
