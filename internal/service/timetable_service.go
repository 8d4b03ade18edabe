package service

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

const periodRunJobType = "timetable.generate_period"

type timetableReferences interface {
	ResolvePeriod(ctx context.Context, id string) (*models.AcademicPeriod, error)
	Lessons(ctx context.Context) ([]models.Lesson, error)
	Rooms(ctx context.Context) ([]models.Room, error)
	Classes(ctx context.Context) ([]models.Class, error)
	Obligations(ctx context.Context, classID string) ([]timetable.Obligation, error)
	OtherClassRows(ctx context.Context, periodID string, exclude []string) ([]models.TimeSlot, error)
}

type scopeReplacer interface {
	ReplaceScope(ctx context.Context, exec sqlx.ExtContext, classID, periodID string, slots []models.TimeSlot) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// TimetableConfig tunes generation.
type TimetableConfig struct {
	Weekdays           []models.Weekday
	RespectWeeklyHours bool
	// RandomSeed fixes room picks when non-zero; a request seed wins over it.
	RandomSeed int64
	RunTTL     time.Duration
}

// TimetableService regenerates class schedules and persists them atomically.
type TimetableService struct {
	refs      timetableReferences
	classes   classReader
	slots     scopeReplacer
	tx        txProvider
	queue     jobDispatcher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableConfig
	runs      *runStore
	now       func() time.Time
}

// NewTimetableService wires the generator. The period queue is attached separately with UseQueue.
func NewTimetableService(
	refs timetableReferences,
	classes classReader,
	slots scopeReplacer,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Weekdays) == 0 {
		cfg.Weekdays = models.SchoolWeekdays
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 24 * time.Hour
	}
	return &TimetableService{
		refs:      refs,
		classes:   classes,
		slots:     slots,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		runs:      newRunStore(cfg.RunTTL),
		now:       time.Now,
	}
}

// UseQueue attaches the dispatcher that runs period-wide regenerations.
func (s *TimetableService) UseQueue(queue jobDispatcher) {
	s.queue = queue
}

// Generate replaces the schedule of one class for a period with a freshly generated one.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid generate payload")
	}
	weekdays, err := s.weekdays(req.Weekdays)
	if err != nil {
		return nil, err
	}
	period, err := s.refs.ResolvePeriod(ctx, req.AcademicPeriodID)
	if err != nil {
		return nil, err
	}
	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		return nil, loadError(err, "class")
	}

	result, err := s.generateClass(ctx, period.ID, class.ID, weekdays, s.random(req.Seed))
	if err != nil {
		return nil, err
	}
	return &dto.GenerateTimetableResponse{
		ClassID:          class.ID,
		AcademicPeriodID: period.ID,
		Slots:            result.Slots,
		Placed:           len(result.Slots),
		Skipped:          result.Skipped,
	}, nil
}

// generateClass runs the engine for one class and swaps the stored scope in a single transaction.
// No rows are touched when the class has nothing to schedule.
func (s *TimetableService) generateClass(ctx context.Context, periodID, classID string, weekdays []models.Weekday, rng *rand.Rand) (*timetable.GenerateResult, error) {
	obligations, err := s.refs.Obligations(ctx, classID)
	if err != nil {
		return nil, err
	}
	if len(obligations) == 0 {
		s.metrics.ObserveGeneration("no_obligations", 0, nil)
		return nil, appErrors.Clone(appErrors.ErrNoObligations, "class has no syllabus or subject-teacher mapping")
	}
	lessons, err := s.refs.Lessons(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.refs.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(lessons) == 0 || len(rooms) == 0 {
		s.metrics.ObserveGeneration("no_cells", 0, nil)
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lessons and rooms must be defined before generating")
	}
	occupied, err := s.refs.OtherClassRows(ctx, periodID, []string{classID})
	if err != nil {
		return nil, err
	}

	result, err := timetable.Generate(timetable.GenerateInput{
		ClassID:            classID,
		AcademicPeriodID:   periodID,
		Weekdays:           weekdays,
		Lessons:            lessons,
		Obligations:        obligations,
		Rooms:              rooms,
		Occupied:           occupied,
		RespectWeeklyHours: s.cfg.RespectWeeklyHours,
	}, rng)
	if err != nil {
		return nil, err
	}

	err = writeInTx(ctx, s.tx, "failed to replace class schedule", func(tx *sqlx.Tx) error {
		return s.slots.ReplaceScope(ctx, tx, classID, periodID, result.Slots)
	})
	if err != nil {
		s.metrics.ObserveGeneration("write_error", 0, nil)
		s.logger.Error("timetable write failed", zap.String("class_id", classID), zap.String("academic_period_id", periodID), zap.Error(err))
		return nil, err
	}

	skipped := make(map[string]int)
	for _, cell := range result.Skipped {
		skipped[cell.Reason]++
	}
	s.metrics.ObserveGeneration("success", len(result.Slots), skipped)
	s.logger.Info("timetable generated",
		zap.String("class_id", classID),
		zap.String("academic_period_id", periodID),
		zap.Int("placed", len(result.Slots)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// GeneratePeriod queues a regeneration of every class of the period and returns the pending run.
func (s *TimetableService) GeneratePeriod(ctx context.Context, req dto.GeneratePeriodRequest) (*dto.GenerationRun, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid generate payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "generation queue not configured")
	}
	if _, err := s.weekdays(req.Weekdays); err != nil {
		return nil, err
	}
	period, err := s.refs.ResolvePeriod(ctx, req.AcademicPeriodID)
	if err != nil {
		return nil, err
	}

	run := dto.GenerationRun{
		ID:               uuid.NewString(),
		AcademicPeriodID: period.ID,
		Status:           dto.RunPending,
		Classes:          []dto.ClassRunResult{},
		RequestedAt:      s.now().UTC(),
	}
	s.runs.Save(run)
	payload := periodRunPayload{PeriodID: period.ID, Weekdays: req.Weekdays, Seed: req.Seed}
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: periodRunJobType, Payload: payload}); err != nil {
		s.runs.Delete(run.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation")
	}
	return &run, nil
}

// GetRun returns the state of a period-wide regeneration.
func (s *TimetableService) GetRun(ctx context.Context, id string) (*dto.GenerationRun, error) {
	run, ok := s.runs.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found")
	}
	return &run, nil
}

type periodRunPayload struct {
	PeriodID string
	Weekdays []string
	Seed     *int64
}

// HandleJob is the queue handler for period-wide regenerations. Classes run in name order,
// each one seeing the rows written for the classes before it.
func (s *TimetableService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(periodRunPayload)
	if !ok {
		return jobs.Permanent(errors.New("unexpected generation payload"))
	}
	started := s.now().UTC()
	s.runs.Update(job.ID, func(run *dto.GenerationRun) {
		run.Status = dto.RunRunning
		run.StartedAt = &started
	})

	err := s.runPeriod(ctx, job.ID, payload)
	finished := s.now().UTC()
	s.runs.Update(job.ID, func(run *dto.GenerationRun) {
		run.FinishedAt = &finished
		if err != nil {
			run.Status = dto.RunFailed
			run.Error = err.Error()
			return
		}
		run.Status = dto.RunCompleted
	})
	if err != nil {
		s.logger.Warn("period generation failed", zap.String("run_id", job.ID), zap.Error(err))
	}
	// Failures are recorded on the run; retrying would regenerate classes that already succeeded.
	return jobs.Permanent(err)
}

func (s *TimetableService) runPeriod(ctx context.Context, runID string, payload periodRunPayload) error {
	weekdays, err := s.weekdays(payload.Weekdays)
	if err != nil {
		return err
	}
	classes, err := s.refs.Classes(ctx)
	if err != nil {
		return err
	}
	ordered := append([]models.Class(nil), classes...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	rng := s.random(payload.Seed)
	for _, class := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := dto.ClassRunResult{ClassID: class.ID, ClassName: class.Name}
		result, genErr := s.generateClass(ctx, payload.PeriodID, class.ID, weekdays, rng)
		switch {
		case genErr == nil:
			entry.Placed = len(result.Slots)
			entry.Skipped = len(result.Skipped)
		case appErrors.Is(genErr, appErrors.ErrNoObligations):
			entry.Error = genErr.Error()
		default:
			entry.Error = genErr.Error()
			s.runs.Update(runID, func(run *dto.GenerationRun) { run.Classes = append(run.Classes, entry) })
			return genErr
		}
		s.runs.Update(runID, func(run *dto.GenerationRun) { run.Classes = append(run.Classes, entry) })
	}
	return nil
}

func (s *TimetableService) weekdays(raw []string) ([]models.Weekday, error) {
	if len(raw) == 0 {
		return s.cfg.Weekdays, nil
	}
	days := make([]models.Weekday, 0, len(raw))
	for _, value := range raw {
		day, ok := models.ParseWeekday(value)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekday "+value)
		}
		days = append(days, day)
	}
	return timetable.UniqueWeekdays(days), nil
}

func (s *TimetableService) random(seed *int64) *rand.Rand {
	switch {
	case seed != nil:
		return rand.New(rand.NewSource(*seed))
	case s.cfg.RandomSeed != 0:
		return rand.New(rand.NewSource(s.cfg.RandomSeed))
	default:
		return rand.New(rand.NewSource(s.now().UnixNano()))
	}
}

type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]dto.GenerationRun
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]dto.GenerationRun),
	}
}

func (s *runStore) Save(run dto.GenerationRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[run.ID] = run
}

func (s *runStore) Get(id string) (dto.GenerationRun, bool) {
	s.mu.RLock()
	run, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return dto.GenerationRun{}, false
	}
	if run.FinishedAt != nil && time.Since(*run.FinishedAt) > s.ttl {
		s.Delete(id)
		return dto.GenerationRun{}, false
	}
	run.Classes = append(make([]dto.ClassRunResult, 0, len(run.Classes)), run.Classes...)
	return run, true
}

func (s *runStore) Update(id string, fn func(run *dto.GenerationRun)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.items[id]
	if !ok {
		return
	}
	fn(&run)
	s.items[id] = run
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
