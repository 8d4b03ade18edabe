package timetable

import (
	"fmt"
	"strconv"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// Subgroup fallback policies for subgroup subjects imported without a subgroup number.
const (
	FallbackSingle    = "single"
	FallbackFirstRoom = "first_room"
)

// Reference holds the reference lists imported names are resolved against.
type Reference struct {
	Teachers []models.Teacher
	Rooms    []models.Room
	Lessons  []models.Lesson
	Classes  []models.Class
	Subjects []models.Subject
}

// NormalizeOptions scopes the drafts and picks the subgroup fallback.
type NormalizeOptions struct {
	AcademicPeriodID string
	SubgroupFallback string
}

// NormalizeResult is the resolved batch.
type NormalizeResult struct {
	Slots    []models.TimeSlot `json:"slots"`
	ClassIDs []string          `json:"class_ids"`
	Warnings []ImportWarning   `json:"warnings,omitempty"`
}

// Normalize resolves every row by exact name match. The first unresolved row fails the whole batch.
func Normalize(rows []ImportRow, ref Reference, opts NormalizeOptions) (*NormalizeResult, error) {
	teachers := make(map[string]string, len(ref.Teachers))
	for _, t := range ref.Teachers {
		teachers[t.FullName] = t.ID
	}
	rooms := make(map[string]string, len(ref.Rooms))
	for _, r := range ref.Rooms {
		rooms[r.Number] = r.ID
	}
	lessons := make(map[int]string, len(ref.Lessons))
	for _, l := range ref.Lessons {
		lessons[l.LessonNumber] = l.ID
	}
	classes := make(map[string]string, len(ref.Classes))
	for _, c := range ref.Classes {
		classes[c.Name] = c.ID
	}
	subjects := make(map[string]models.Subject, len(ref.Subjects))
	for _, s := range ref.Subjects {
		subjects[s.Name] = s
	}

	result := &NormalizeResult{Slots: make([]models.TimeSlot, 0, len(rows))}
	seenClass := make(map[string]struct{})
	for _, row := range rows {
		day, ok := models.ParseWeekday(row.Weekday)
		if !ok {
			return nil, unresolved(row, "weekday", row.Weekday)
		}
		teacherID, ok := teachers[row.Teacher]
		if !ok {
			return nil, unresolved(row, "teacher", row.Teacher)
		}
		roomID, ok := rooms[row.Room]
		if !ok {
			return nil, unresolved(row, "room", row.Room)
		}
		lessonID, ok := lessons[row.LessonNumber]
		if !ok {
			return nil, unresolved(row, "lesson number", strconv.Itoa(row.LessonNumber))
		}
		classID, ok := classes[row.Class]
		if !ok {
			return nil, unresolved(row, "class", row.Class)
		}
		subject, ok := subjects[row.Subject]
		if !ok {
			return nil, unresolved(row, "subject", row.Subject)
		}

		base := models.TimeSlot{
			AcademicPeriodID: opts.AcademicPeriodID,
			ClassID:          classID,
			Day:              day,
			LessonID:         lessonID,
			SubjectID:        subject.ID,
			TeacherID:        teacherID,
			RoomID:           roomID,
		}
		if _, seen := seenClass[classID]; !seen {
			seenClass[classID] = struct{}{}
			result.ClassIDs = append(result.ClassIDs, classID)
		}

		if !subject.IsSubgroup {
			if row.Subgroup != "" {
				result.Warnings = append(result.Warnings, ImportWarning{Line: row.Line, Message: fmt.Sprintf("subject %q is not split into subgroups; subgroup ignored", row.Subject)})
			}
			result.Slots = append(result.Slots, base)
			continue
		}

		if row.Subgroup != "" {
			n, err := strconv.Atoi(row.Subgroup)
			if err != nil || (n != 1 && n != 2) {
				return nil, appErrors.Clone(appErrors.ErrReferenceResolution, fmt.Sprintf("row %d: subgroup must be 1 or 2, got %q", row.Line, row.Subgroup))
			}
			base.Subgroup = intPtr(n)
			result.Slots = append(result.Slots, base)
			continue
		}

		base.Subgroup = intPtr(1)
		result.Slots = append(result.Slots, base)
		if opts.SubgroupFallback == FallbackFirstRoom {
			if second, ok := secondSubgroup(base, subject.Name, ref); ok {
				result.Slots = append(result.Slots, second)
				result.Warnings = append(result.Warnings, ImportWarning{Line: row.Line, Message: fmt.Sprintf("no subgroup given for %q; subgroup 2 defaulted to teacher %s in room %s", row.Subject, nameOf(ref.Teachers, second.TeacherID), numberOf(ref.Rooms, second.RoomID))})
				continue
			}
			result.Warnings = append(result.Warnings, ImportWarning{Line: row.Line, Message: fmt.Sprintf("no subgroup given for %q and no free teacher/room pair for subgroup 2; imported as subgroup 1 only", row.Subject)})
			continue
		}
		result.Warnings = append(result.Warnings, ImportWarning{Line: row.Line, Message: fmt.Sprintf("no subgroup given for %q; imported as subgroup 1 only", row.Subject)})
	}
	return result, nil
}

// secondSubgroup builds the subgroup 2 row: another teacher of the subject and the first pool room
// other than subgroup 1's, so the pair never clashes with itself.
func secondSubgroup(first models.TimeSlot, subjectName string, ref Reference) (models.TimeSlot, bool) {
	teacherID := ""
	for _, t := range TeacherCandidates(subjectName, ref.Teachers) {
		if t.ID != first.TeacherID {
			teacherID = t.ID
			break
		}
	}
	roomID := ""
	for _, r := range ref.Rooms {
		if r.ID != first.RoomID {
			roomID = r.ID
			break
		}
	}
	if teacherID == "" || roomID == "" {
		return models.TimeSlot{}, false
	}
	second := first
	second.Subgroup = intPtr(2)
	second.TeacherID = teacherID
	second.RoomID = roomID
	return second, true
}

func nameOf(teachers []models.Teacher, id string) string {
	for _, t := range teachers {
		if t.ID == id {
			return t.FullName
		}
	}
	return id
}

func numberOf(rooms []models.Room, id string) string {
	for _, r := range rooms {
		if r.ID == id {
			return r.Number
		}
	}
	return id
}

func unresolved(row ImportRow, field, value string) error {
	return appErrors.Clone(appErrors.ErrReferenceResolution, fmt.Sprintf("row %d: unknown %s %q", row.Line, field, value))
}
