package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timeSlotReferenceCounter interface {
	CountByReference(ctx context.Context, column, id string) (int, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type referenceInvalidator interface {
	Invalidate(ctx context.Context)
}

func paginationFor(q models.ListQuery, total int) *models.Pagination {
	n := q.Normalize()
	return &models.Pagination{Page: n.Page, PageSize: n.PageSize, TotalCount: total}
}

// loadError maps a repository read error to not found or internal.
func loadError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// ensureUnscheduled refuses to delete a reference row that time slots still point at.
func ensureUnscheduled(ctx context.Context, counter timeSlotReferenceCounter, column, id, entity string) error {
	if counter == nil {
		return nil
	}
	count, err := counter.CountByReference(ctx, column, id)
	if err != nil {
		return internalError(err, "failed to check "+entity+" usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, entity+" is used by time slots")
	}
	return nil
}

// conflictError wraps detected clashes so handlers can list them next to the conflict code.
func conflictError(conflicts []models.ScheduleConflict, message string) error {
	detail := &models.ScheduleConflictError{Message: conflictSummary(conflicts), Errors: conflicts}
	return appErrors.Wrap(detail, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
}

// conflictSummary reads like "2 clashes on teacher, room".
func conflictSummary(conflicts []models.ScheduleConflict) string {
	seen := make(map[string]struct{}, 3)
	dims := make([]string, 0, 3)
	for _, c := range conflicts {
		if _, ok := seen[c.Dimension]; ok {
			continue
		}
		seen[c.Dimension] = struct{}{}
		dims = append(dims, strings.ToLower(c.Dimension))
	}
	noun := "clashes"
	if len(conflicts) == 1 {
		noun = "clash"
	}
	return fmt.Sprintf("%d %s on %s", len(conflicts), noun, strings.Join(dims, ", "))
}

func invalidate(ctx context.Context, inv referenceInvalidator) {
	if inv != nil {
		inv.Invalidate(ctx)
	}
}
