package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type roomRepository interface {
	List(ctx context.Context, filter models.ListQuery) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ExistsByNumber(ctx context.Context, number string, excludeID string) (bool, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
}

// RoomRequest is the room payload.
type RoomRequest struct {
	Number string `json:"number" validate:"required,max=32"`
}

// RoomService manages the room pool.
type RoomService struct {
	repo      roomRepository
	slots     timeSlotReferenceCounter
	cache     referenceInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService constructs RoomService.
func NewRoomService(repo roomRepository, slots timeSlotReferenceCounter, cache referenceInvalidator, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, slots: slots, cache: cache, validator: validate, logger: logger}
}

// List returns rooms.
func (s *RoomService) List(ctx context.Context, filter models.ListQuery) ([]models.Room, *models.Pagination, error) {
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list rooms")
	}
	return rooms, paginationFor(filter, total), nil
}

// Get returns a room.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "room")
	}
	return room, nil
}

// Create adds a room.
func (s *RoomService) Create(ctx context.Context, req RoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid room payload")
	}
	if err := s.ensureUniqueNumber(ctx, req.Number, ""); err != nil {
		return nil, err
	}
	room := &models.Room{Number: req.Number}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, internalError(err, "failed to create room")
	}
	invalidate(ctx, s.cache)
	return room, nil
}

// Update renames a room.
func (s *RoomService) Update(ctx context.Context, id string, req RoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid room payload")
	}
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "room")
	}
	if err := s.ensureUniqueNumber(ctx, req.Number, id); err != nil {
		return nil, err
	}
	room.Number = req.Number
	if err := s.repo.Update(ctx, room); err != nil {
		return nil, internalError(err, "failed to update room")
	}
	invalidate(ctx, s.cache)
	return room, nil
}

// Delete removes a room that has no time slots.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return loadError(err, "room")
	}
	if err := ensureUnscheduled(ctx, s.slots, "room_id", id, "room"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete room")
	}
	invalidate(ctx, s.cache)
	return nil
}

func (s *RoomService) ensureUniqueNumber(ctx context.Context, number, excludeID string) error {
	exists, err := s.repo.ExistsByNumber(ctx, number, excludeID)
	if err != nil {
		return internalError(err, "failed to check room number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "room number already exists")
	}
	return nil
}
