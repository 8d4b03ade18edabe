package timetable

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// Obligation is a (subject, teacher) pair a class must be taught, optionally capped by weekly hours.
type Obligation struct {
	SubjectID    string `json:"subject_id"`
	TeacherID    string `json:"teacher_id"`
	HoursPerWeek int    `json:"hours_per_week,omitempty"`
}

// GenerateInput is everything the engine needs to fill one class's week.
type GenerateInput struct {
	ClassID          string
	AcademicPeriodID string
	Weekdays         []models.Weekday
	Lessons          []models.Lesson
	Obligations      []Obligation
	Rooms            []models.Room
	// Occupied holds rows of other classes in the same period; their teachers and rooms are unavailable.
	Occupied []models.TimeSlot
	// RespectWeeklyHours stops placing an obligation once it reached its HoursPerWeek.
	RespectWeeklyHours bool
}

// Skip reasons reported for cells left empty.
const (
	SkipNoObligation = "NO_FREE_OBLIGATION"
	SkipNoRoom       = "NO_FREE_ROOM"
)

// SkippedCell is a cell the engine could not fill.
type SkippedCell struct {
	Day      models.Weekday `json:"day"`
	LessonID string         `json:"lesson_id"`
	Reason   string         `json:"reason"`
}

// GenerateResult is the replacement schedule for the class.
type GenerateResult struct {
	Slots   []models.TimeSlot `json:"slots"`
	Skipped []SkippedCell     `json:"skipped"`
}

// Generate fills every (weekday, lesson) cell of the class greedily: the first obligation whose
// teacher is free in the cell wins and gets a random free room. Cells with no free teacher or
// room stay empty. There is no backtracking.
func Generate(in GenerateInput, rng *rand.Rand) (*GenerateResult, error) {
	if in.ClassID == "" || in.AcademicPeriodID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class and academic period are required")
	}
	if len(in.Obligations) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoObligations, fmt.Sprintf("no obligations to schedule for class %s", in.ClassID))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	weekdays := UniqueWeekdays(in.Weekdays)
	if len(weekdays) == 0 {
		weekdays = models.SchoolWeekdays
	}
	lessons := SortLessons(in.Lessons)

	occupancy := NewOccupancy()
	occupancy.Seed(in.Occupied)
	placed := make([]int, len(in.Obligations))

	result := &GenerateResult{Slots: make([]models.TimeSlot, 0, len(weekdays)*len(lessons))}
	for _, day := range weekdays {
		for _, lesson := range lessons {
			key := CellKey{Day: day, LessonID: lesson.ID}

			idx := firstAvailable(in, occupancy, key, placed)
			if idx < 0 {
				result.Skipped = append(result.Skipped, SkippedCell{Day: day, LessonID: lesson.ID, Reason: SkipNoObligation})
				continue
			}

			free := occupancy.FreeRooms(key, in.Rooms)
			if len(free) == 0 {
				result.Skipped = append(result.Skipped, SkippedCell{Day: day, LessonID: lesson.ID, Reason: SkipNoRoom})
				continue
			}
			room := free[rng.Intn(len(free))]

			ob := in.Obligations[idx]
			result.Slots = append(result.Slots, models.TimeSlot{
				AcademicPeriodID: in.AcademicPeriodID,
				ClassID:          in.ClassID,
				Day:              day,
				LessonID:         lesson.ID,
				SubjectID:        ob.SubjectID,
				TeacherID:        ob.TeacherID,
				RoomID:           room.ID,
			})
			occupancy.Reserve(key, ob.TeacherID, room.ID)
			placed[idx]++
		}
	}
	return result, nil
}

func firstAvailable(in GenerateInput, occupancy *Occupancy, key CellKey, placed []int) int {
	for i, ob := range in.Obligations {
		if in.RespectWeeklyHours && ob.HoursPerWeek > 0 && placed[i] >= ob.HoursPerWeek {
			continue
		}
		if occupancy.TeacherBusy(key, ob.TeacherID) {
			continue
		}
		return i
	}
	return -1
}

// SortLessons returns a copy of lessons ordered by lesson number.
func SortLessons(lessons []models.Lesson) []models.Lesson {
	sorted := make([]models.Lesson, len(lessons))
	copy(sorted, lessons)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LessonNumber < sorted[j].LessonNumber })
	return sorted
}

// ObligationsFromSyllabus keeps syllabus order and hour counts.
func ObligationsFromSyllabus(entries []models.SyllabusEntry) []Obligation {
	out := make([]Obligation, 0, len(entries))
	for _, e := range entries {
		out = append(out, Obligation{SubjectID: e.SubjectID, TeacherID: e.TeacherID, HoursPerWeek: e.HoursPerWeek})
	}
	return out
}

// ObligationsFromSubjectTeachers builds uncapped obligations from the fallback mapping.
func ObligationsFromSubjectTeachers(rows []models.SubjectTeacher) []Obligation {
	out := make([]Obligation, 0, len(rows))
	for _, r := range rows {
		out = append(out, Obligation{SubjectID: r.SubjectID, TeacherID: r.TeacherID})
	}
	return out
}

// UniqueWeekdays drops repeated days and keeps the first occurrence order.
func UniqueWeekdays(days []models.Weekday) []models.Weekday {
	seen := make(map[models.Weekday]struct{}, len(days))
	out := make([]models.Weekday, 0, len(days))
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
