package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

// GenerateTimetableRequest regenerates the weekly schedule of one class.
type GenerateTimetableRequest struct {
	ClassID          string   `json:"class_id" validate:"required"`
	AcademicPeriodID string   `json:"academic_period_id"`
	Weekdays         []string `json:"weekdays" validate:"omitempty,unique,dive,required"`
	Seed             *int64   `json:"seed"`
}

// GenerateTimetableResponse reports the rows that replaced the class schedule.
type GenerateTimetableResponse struct {
	ClassID          string                  `json:"class_id"`
	AcademicPeriodID string                  `json:"academic_period_id"`
	Slots            []models.TimeSlot       `json:"slots"`
	Placed           int                     `json:"placed"`
	Skipped          []timetable.SkippedCell `json:"skipped"`
}

// GeneratePeriodRequest regenerates every class of a period in the background.
type GeneratePeriodRequest struct {
	AcademicPeriodID string   `json:"academic_period_id"`
	Weekdays         []string `json:"weekdays" validate:"omitempty,unique,dive,required"`
	Seed             *int64   `json:"seed"`
}

// Run statuses of a period-wide regeneration.
const (
	RunPending   = "PENDING"
	RunRunning   = "RUNNING"
	RunCompleted = "COMPLETED"
	RunFailed    = "FAILED"
)

// ClassRunResult is the outcome of one class inside a period run.
type ClassRunResult struct {
	ClassID   string `json:"class_id"`
	ClassName string `json:"class_name"`
	Placed    int    `json:"placed"`
	Skipped   int    `json:"skipped"`
	Error     string `json:"error,omitempty"`
}

// GenerationRun tracks a period-wide regeneration.
type GenerationRun struct {
	ID               string           `json:"id"`
	AcademicPeriodID string           `json:"academic_period_id"`
	Status           string           `json:"status"`
	Classes          []ClassRunResult `json:"classes"`
	Error            string           `json:"error,omitempty"`
	RequestedAt      time.Time        `json:"requested_at"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	FinishedAt       *time.Time       `json:"finished_at,omitempty"`
}

// CellQuery addresses one class cell.
type CellQuery struct {
	ClassID          string `form:"class_id" json:"class_id" validate:"required"`
	AcademicPeriodID string `form:"academic_period_id" json:"academic_period_id"`
	Day              string `form:"day" json:"day" validate:"required"`
	LessonID         string `form:"lesson_id" json:"lesson_id" validate:"required"`
}

// SaveCellRequest replaces the rows of one class cell.
type SaveCellRequest struct {
	CellQuery
	Rows []timetable.CellRow `json:"rows" validate:"max=2"`
}

// Cell editor actions.
const (
	CellActionSplit      = "split"
	CellActionMerge      = "merge"
	CellActionSetSubject = "set_subject"
	CellActionSetTeacher = "set_teacher"
	CellActionSetRoom    = "set_room"
)

// CellAction is one editor step applied by the preview endpoint.
type CellAction struct {
	Type  string `json:"type" validate:"required,oneof=split merge set_subject set_teacher set_room"`
	Row   int    `json:"row" validate:"min=0,max=1"`
	Value string `json:"value"`
}

// PreviewCellRequest applies actions to a cell without saving it.
type PreviewCellRequest struct {
	CellQuery
	Rows    []timetable.CellRow `json:"rows"`
	Actions []CellAction        `json:"actions" validate:"dive"`
}

// CellRowOptions lists the choices available for one row of the editor.
type CellRowOptions struct {
	Teachers []models.Teacher `json:"teachers"`
	Rooms    []models.Room    `json:"rooms"`
}

// CellView is the editor state returned to the dashboard.
type CellView struct {
	AcademicPeriodID string              `json:"academic_period_id"`
	Cell             *timetable.Cell     `json:"cell"`
	State            timetable.CellState `json:"state"`
	Options          []CellRowOptions    `json:"options,omitempty"`
	Stored           []models.TimeSlot   `json:"stored,omitempty"`
}

// ImportResponse summarises a successful import.
type ImportResponse struct {
	AcademicPeriodID string                    `json:"academic_period_id"`
	Classes          []string                  `json:"classes"`
	Imported         int                       `json:"imported"`
	Warnings         []timetable.ImportWarning `json:"warnings,omitempty"`
}

// Export formats.
const (
	ExportCSV  = "csv"
	ExportPDF  = "pdf"
	ExportXLSX = "xlsx"
)

// ExportRequest renders the schedule of a class or a teacher.
type ExportRequest struct {
	AcademicPeriodID string `json:"academic_period_id"`
	ClassID          string `json:"class_id" validate:"required_without=TeacherID"`
	TeacherID        string `json:"teacher_id" validate:"required_without=ClassID"`
	Format           string `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ExportResponse points at the rendered file.
type ExportResponse struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UpdateTimeSlotRequest edits a single stored row.
type UpdateTimeSlotRequest struct {
	Day       string `json:"day" validate:"required"`
	LessonID  string `json:"lesson_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
	RoomID    string `json:"room_id" validate:"required"`
	Subgroup  *int   `json:"subgroup" validate:"omitempty,oneof=1 2"`
}

// TimeSlotQuery filters stored rows.
type TimeSlotQuery struct {
	AcademicPeriodID string `form:"academic_period_id"`
	ClassID          string `form:"class_id"`
	TeacherID        string `form:"teacher_id"`
	RoomID           string `form:"room_id"`
	Day              string `form:"day"`
}

// DeleteTimeSlotsRequest removes the rows of one class for a period.
type DeleteTimeSlotsRequest struct {
	ClassID          string `form:"class_id" json:"class_id" validate:"required"`
	AcademicPeriodID string `form:"academic_period_id" json:"academic_period_id"`
}
