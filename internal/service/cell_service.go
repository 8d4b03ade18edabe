package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type cellReferences interface {
	ResolvePeriod(ctx context.Context, id string) (*models.AcademicPeriod, error)
	Teachers(ctx context.Context) ([]models.Teacher, error)
	Rooms(ctx context.Context) ([]models.Room, error)
	Subjects(ctx context.Context) ([]models.Subject, error)
}

type cellStore interface {
	List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error)
	ReplaceCell(ctx context.Context, exec sqlx.ExtContext, periodID, classID string, day models.Weekday, lessonID string, slots []models.TimeSlot) error
	DeleteCell(ctx context.Context, exec sqlx.ExtContext, periodID, classID string, day models.Weekday, lessonID string) error
}

// CellService backs the grid editor: one (class, day, lesson) cell at a time.
type CellService struct {
	refs      cellReferences
	classes   classReader
	slots     cellStore
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCellService wires the editor service.
func NewCellService(refs cellReferences, classes classReader, slots cellStore, tx txProvider, validate *validator.Validate, logger *zap.Logger) *CellService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CellService{refs: refs, classes: classes, slots: slots, tx: tx, validator: validate, logger: logger}
}

// Get returns the stored rows of one cell as editor state.
func (s *CellService) Get(ctx context.Context, q dto.CellQuery) (*dto.CellView, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, validationError(err, "invalid cell query")
	}
	day, err := parseDay(q.Day)
	if err != nil {
		return nil, err
	}
	period, err := s.refs.ResolvePeriod(ctx, q.AcademicPeriodID)
	if err != nil {
		return nil, err
	}
	stored, err := s.storedRows(ctx, period.ID, q.ClassID, day, q.LessonID)
	if err != nil {
		return nil, err
	}
	cell := timetable.NewCell(q.ClassID, day, q.LessonID, stored)
	return &dto.CellView{AcademicPeriodID: period.ID, Cell: cell, State: cell.State(), Stored: stored}, nil
}

// Save replaces the class's rows in the cell with the complete rows of the request.
// Incomplete rows are dropped; a cell with none left is rejected before touching the store.
func (s *CellService) Save(ctx context.Context, req dto.SaveCellRequest) (*dto.CellView, error) {
	if err := s.validator.Var(req.Rows, "max=2"); err != nil {
		return nil, validationError(err, "a cell holds at most two rows")
	}
	var day models.Weekday
	if req.Day != "" {
		parsed, err := parseDay(req.Day)
		if err != nil {
			return nil, err
		}
		day = parsed
	}
	cell := &timetable.Cell{ClassID: req.ClassID, Day: day, LessonID: req.LessonID, Rows: req.Rows}
	rows, err := cell.CompleteRows(req.AcademicPeriodID)
	if err != nil {
		return nil, err
	}
	if req.ClassID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_id is required")
	}

	period, err := s.refs.ResolvePeriod(ctx, req.AcademicPeriodID)
	if err != nil {
		return nil, err
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		return nil, loadError(err, "class")
	}
	for i := range rows {
		rows[i].AcademicPeriodID = period.ID
	}

	others, err := s.slots.List(ctx, models.TimeSlotFilter{AcademicPeriodID: period.ID, Day: day, LessonID: req.LessonID})
	if err != nil {
		return nil, internalError(err, "failed to load cell occupancy")
	}
	if conflicts := timetable.DetectConflicts(rows, excludeClass(others, req.ClassID)); len(conflicts) > 0 {
		return nil, conflictError(conflicts, "cell clashes with another class")
	}

	err = writeInTx(ctx, s.tx, "failed to save cell", func(tx *sqlx.Tx) error {
		return s.slots.ReplaceCell(ctx, tx, period.ID, req.ClassID, day, req.LessonID, rows)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("timetable cell saved",
		zap.String("class_id", req.ClassID),
		zap.String("day", string(day)),
		zap.String("lesson_id", req.LessonID),
		zap.Int("rows", len(rows)),
	)
	saved := timetable.NewCell(req.ClassID, day, req.LessonID, rows)
	return &dto.CellView{AcademicPeriodID: period.ID, Cell: saved, State: saved.State(), Stored: rows}, nil
}

// Clear deletes every row of the class in the cell.
func (s *CellService) Clear(ctx context.Context, q dto.CellQuery) error {
	if err := s.validator.Struct(q); err != nil {
		return validationError(err, "invalid cell query")
	}
	day, err := parseDay(q.Day)
	if err != nil {
		return err
	}
	period, err := s.refs.ResolvePeriod(ctx, q.AcademicPeriodID)
	if err != nil {
		return err
	}
	return writeInTx(ctx, s.tx, "failed to clear cell", func(tx *sqlx.Tx) error {
		return s.slots.DeleteCell(ctx, tx, period.ID, q.ClassID, day, q.LessonID)
	})
}

// Preview applies editor actions to a cell without saving and lists the choices left for each row.
// Without rows in the request the stored cell is the starting point.
func (s *CellService) Preview(ctx context.Context, req dto.PreviewCellRequest) (*dto.CellView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid preview payload")
	}
	day, err := parseDay(req.Day)
	if err != nil {
		return nil, err
	}
	period, err := s.refs.ResolvePeriod(ctx, req.AcademicPeriodID)
	if err != nil {
		return nil, err
	}

	var cell *timetable.Cell
	if len(req.Rows) > 0 {
		cell = &timetable.Cell{ClassID: req.ClassID, Day: day, LessonID: req.LessonID, Rows: req.Rows}
	} else {
		stored, err := s.storedRows(ctx, period.ID, req.ClassID, day, req.LessonID)
		if err != nil {
			return nil, err
		}
		cell = timetable.NewCell(req.ClassID, day, req.LessonID, stored)
	}
	for _, action := range req.Actions {
		if err := applyCellAction(cell, action); err != nil {
			return nil, err
		}
	}

	options, err := s.options(ctx, cell)
	if err != nil {
		return nil, err
	}
	return &dto.CellView{AcademicPeriodID: period.ID, Cell: cell, State: cell.State(), Options: options}, nil
}

func applyCellAction(cell *timetable.Cell, action dto.CellAction) error {
	switch action.Type {
	case dto.CellActionSplit:
		return cell.Split()
	case dto.CellActionMerge:
		return cell.Merge()
	case dto.CellActionSetSubject:
		return cell.SetSubject(action.Row, action.Value)
	case dto.CellActionSetTeacher:
		return cell.SetTeacher(action.Row, action.Value)
	case dto.CellActionSetRoom:
		return cell.SetRoom(action.Row, action.Value)
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown cell action "+action.Type)
	}
}

// options lists teachers qualified for each row's subject and rooms allowed for each row's teacher.
func (s *CellService) options(ctx context.Context, cell *timetable.Cell) ([]dto.CellRowOptions, error) {
	subjects, err := s.refs.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	teachers, err := s.refs.Teachers(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.refs.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	subjectNames := make(map[string]string, len(subjects))
	for _, subject := range subjects {
		subjectNames[subject.ID] = subject.Name
	}
	teacherByID := make(map[string]*models.Teacher, len(teachers))
	for i := range teachers {
		teacherByID[teachers[i].ID] = &teachers[i]
	}

	out := make([]dto.CellRowOptions, 0, len(cell.Rows))
	for _, row := range cell.Rows {
		opts := dto.CellRowOptions{Teachers: []models.Teacher{}, Rooms: []models.Room{}}
		if name, ok := subjectNames[row.SubjectID]; ok {
			opts.Teachers = timetable.TeacherCandidates(name, teachers)
		}
		if row.TeacherID != "" {
			opts.Rooms = timetable.RoomCandidates(teacherByID[row.TeacherID], rooms)
		}
		out = append(out, opts)
	}
	return out, nil
}

func (s *CellService) storedRows(ctx context.Context, periodID, classID string, day models.Weekday, lessonID string) ([]models.TimeSlot, error) {
	rows, err := s.slots.List(ctx, models.TimeSlotFilter{AcademicPeriodID: periodID, ClassID: classID, Day: day, LessonID: lessonID})
	if err != nil {
		return nil, internalError(err, "failed to load cell")
	}
	return rows, nil
}

func parseDay(raw string) (models.Weekday, error) {
	day, ok := models.ParseWeekday(raw)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown weekday "+raw)
	}
	return day, nil
}

func excludeClass(rows []models.TimeSlot, classID string) []models.TimeSlot {
	out := make([]models.TimeSlot, 0, len(rows))
	for _, row := range rows {
		if row.ClassID != classID {
			out = append(out, row)
		}
	}
	return out
}
