package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const referenceCachePrefix = "timetable:ref:"

type lessonLister interface {
	ListAll(ctx context.Context) ([]models.Lesson, error)
}

type roomLister interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type teacherLister interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
}

type subjectLister interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type classLister interface {
	ListAll(ctx context.Context) ([]models.Class, error)
}

type syllabusByClass interface {
	ListByClass(ctx context.Context, classID string) ([]models.SyllabusEntry, error)
}

type subjectTeachersByClass interface {
	ListByClass(ctx context.Context, classID string) ([]models.SubjectTeacher, error)
}

type activePeriodReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicPeriod, error)
	FindActive(ctx context.Context) (*models.AcademicPeriod, error)
}

type otherClassSlots interface {
	ListOtherClasses(ctx context.Context, periodID string, excludeClassIDs []string) ([]models.TimeSlot, error)
}

type referenceCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// ReferenceSources groups the repositories the loader reads from.
type ReferenceSources struct {
	Lessons         lessonLister
	Rooms           roomLister
	Teachers        teacherLister
	Subjects        subjectLister
	Classes         classLister
	Syllabus        syllabusByClass
	SubjectTeachers subjectTeachersByClass
	Periods         activePeriodReader
	Slots           otherClassSlots
}

// RetryConfig bounds retries of reference reads.
type RetryConfig struct {
	Attempts  uint64
	BaseDelay time.Duration
}

// ReferenceLoader reads reference data with exponential backoff and optional caching.
type ReferenceLoader struct {
	src     ReferenceSources
	cache   referenceCache
	metrics *MetricsService
	retry   RetryConfig
	logger  *zap.Logger
}

// NewReferenceLoader wires the loader. cache and metrics may be nil.
func NewReferenceLoader(src ReferenceSources, cache referenceCache, metrics *MetricsService, cfg RetryConfig, logger *zap.Logger) *ReferenceLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	return &ReferenceLoader{src: src, cache: cache, metrics: metrics, retry: cfg, logger: logger}
}

// fetch runs read with the retry budget. sql.ErrNoRows is returned as is and never retried.
func (l *ReferenceLoader) fetch(ctx context.Context, label string, read func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(l.retry.Attempts, retry.NewExponential(l.retry.BaseDelay))
	attempt := 0
	start := time.Now()
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := read(ctx)
		if err == nil || errors.Is(err, sql.ErrNoRows) {
			return err
		}
		l.logger.Warn("reference read failed", zap.String("source", label), zap.Int("attempt", attempt), zap.Error(err))
		return retry.RetryableError(err)
	})
	l.metrics.ObserveDBQuery(label, time.Since(start))
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrTransientFetch.Code, appErrors.ErrTransientFetch.Status, "failed to load "+label)
}

func cachedList[T any](ctx context.Context, l *ReferenceLoader, name string, read func(ctx context.Context) ([]T, error)) ([]T, error) {
	key := referenceCachePrefix + name
	var items []T
	if l.cache != nil {
		if hit, err := l.cache.Get(ctx, key, &items); err == nil && hit {
			return items, nil
		}
	}
	err := l.fetch(ctx, name, func(ctx context.Context) error {
		var err error
		items, err = read(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		_ = l.cache.Set(ctx, key, items, 0)
	}
	return items, nil
}

// Lessons returns lessons ordered by number.
func (l *ReferenceLoader) Lessons(ctx context.Context) ([]models.Lesson, error) {
	lessons, err := cachedList(ctx, l, "lessons", l.src.Lessons.ListAll)
	if err != nil {
		return nil, err
	}
	return timetable.SortLessons(lessons), nil
}

// Rooms returns the room pool ordered by number.
func (l *ReferenceLoader) Rooms(ctx context.Context) ([]models.Room, error) {
	return cachedList(ctx, l, "rooms", l.src.Rooms.ListAll)
}

// Teachers returns every teacher.
func (l *ReferenceLoader) Teachers(ctx context.Context) ([]models.Teacher, error) {
	return cachedList(ctx, l, "teachers", l.src.Teachers.ListAll)
}

// Subjects returns every subject.
func (l *ReferenceLoader) Subjects(ctx context.Context) ([]models.Subject, error) {
	return cachedList(ctx, l, "subjects", l.src.Subjects.ListAll)
}

// Classes returns every class ordered by name.
func (l *ReferenceLoader) Classes(ctx context.Context) ([]models.Class, error) {
	return cachedList(ctx, l, "classes", l.src.Classes.ListAll)
}

// Reference loads every list the import normalizer resolves names against.
func (l *ReferenceLoader) Reference(ctx context.Context) (timetable.Reference, error) {
	var ref timetable.Reference
	var err error
	if ref.Teachers, err = l.Teachers(ctx); err != nil {
		return ref, err
	}
	if ref.Rooms, err = l.Rooms(ctx); err != nil {
		return ref, err
	}
	if ref.Lessons, err = l.Lessons(ctx); err != nil {
		return ref, err
	}
	if ref.Classes, err = l.Classes(ctx); err != nil {
		return ref, err
	}
	if ref.Subjects, err = l.Subjects(ctx); err != nil {
		return ref, err
	}
	return ref, nil
}

// Obligations returns the class's syllabus, or its subject-teacher mapping when the syllabus is empty.
func (l *ReferenceLoader) Obligations(ctx context.Context, classID string) ([]timetable.Obligation, error) {
	var entries []models.SyllabusEntry
	if err := l.fetch(ctx, "syllabus", func(ctx context.Context) error {
		var err error
		entries, err = l.src.Syllabus.ListByClass(ctx, classID)
		return err
	}); err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return timetable.ObligationsFromSyllabus(entries), nil
	}

	var mapping []models.SubjectTeacher
	if err := l.fetch(ctx, "subject_teachers", func(ctx context.Context) error {
		var err error
		mapping, err = l.src.SubjectTeachers.ListByClass(ctx, classID)
		return err
	}); err != nil {
		return nil, err
	}
	return timetable.ObligationsFromSubjectTeachers(mapping), nil
}

// ResolvePeriod returns the requested period, or the active one when id is empty.
func (l *ReferenceLoader) ResolvePeriod(ctx context.Context, id string) (*models.AcademicPeriod, error) {
	var period *models.AcademicPeriod
	err := l.fetch(ctx, "academic_period", func(ctx context.Context) error {
		var err error
		if id == "" {
			period, err = l.src.Periods.FindActive(ctx)
		} else {
			period, err = l.src.Periods.FindByID(ctx, id)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if id == "" {
				return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active academic period")
			}
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic period not found")
		}
		return nil, err
	}
	return period, nil
}

// OtherClassRows returns the period's stored rows outside the excluded classes. They are never cached.
func (l *ReferenceLoader) OtherClassRows(ctx context.Context, periodID string, exclude []string) ([]models.TimeSlot, error) {
	var rows []models.TimeSlot
	err := l.fetch(ctx, "time_slots", func(ctx context.Context) error {
		var err error
		rows, err = l.src.Slots.ListOtherClasses(ctx, periodID, exclude)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Invalidate drops every cached reference list.
func (l *ReferenceLoader) Invalidate(ctx context.Context) {
	if l == nil || l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, referenceCachePrefix+"*"); err != nil {
		l.logger.Warn("reference cache invalidation failed", zap.Error(err))
	}
}
