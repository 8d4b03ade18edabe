package service

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

type detailedSlotsStub struct {
	filter models.TimeSlotFilter
	rows   []models.TimeSlotDetail
}

func (s *detailedSlotsStub) ListDetailed(ctx context.Context, f models.TimeSlotFilter) ([]models.TimeSlotDetail, error) {
	s.filter = f
	return s.rows, nil
}

func newExportServiceForTest(t *testing.T, slots *detailedSlotsStub) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	teachers := teacherReaderStub{teachers: map[string]*models.Teacher{"teacher-ivanova": {ID: "teacher-ivanova", FullName: "Ivanova"}}}
	return NewExportService(slots, tenAReferences(), tenAClasses(), teachers, store, signer, nil, zap.NewNop(), ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour})
}

func exportRows() []models.TimeSlotDetail {
	return []models.TimeSlotDetail{
		{TimeSlot: models.TimeSlot{Day: models.Tuesday}, ClassName: "10A", LessonNumber: 1, StartTime: "09:00", EndTime: "09:45", SubjectName: "Math", TeacherName: "Ivanova", RoomNumber: "101"},
		{TimeSlot: models.TimeSlot{Day: models.Monday}, ClassName: "10A", LessonNumber: 2, StartTime: "09:55", EndTime: "10:40", SubjectName: "Math", TeacherName: "Ivanova", RoomNumber: "102"},
	}
}

func tokenFrom(t *testing.T, link string) string {
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

func TestExportServiceCSVRoundTrip(t *testing.T) {
	slots := &detailedSlotsStub{rows: exportRows()}
	svc := newExportServiceForTest(t, slots)

	resp, err := svc.Export(context.Background(), dto.ExportRequest{ClassID: "class-10a", Format: dto.ExportCSV})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.URL, "/api/v1/timetable/exports/download?token="))
	assert.Equal(t, models.TimeSlotFilter{AcademicPeriodID: "period-1", ClassID: "class-10a"}, slots.filter)

	file, err := svc.Open(tokenFrom(t, resp.URL))
	require.NoError(t, err)
	defer file.File.Close()
	assert.Equal(t, "text/csv", file.ContentType)

	body, err := io.ReadAll(file.File)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "Monday,2,"))
	assert.True(t, strings.HasPrefix(lines[2], "Tuesday,1,"))
}

func TestExportServiceTeacherPDFAndXLSX(t *testing.T) {
	slots := &detailedSlotsStub{rows: exportRows()}
	svc := newExportServiceForTest(t, slots)

	for _, format := range []string{dto.ExportPDF, dto.ExportXLSX} {
		resp, err := svc.Export(context.Background(), dto.ExportRequest{TeacherID: "teacher-ivanova", Format: format})
		require.NoError(t, err)
		assert.Equal(t, "teacher-ivanova", slots.filter.TeacherID)

		file, err := svc.Open(tokenFrom(t, resp.URL))
		require.NoError(t, err)
		info, err := file.File.Stat()
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
		assert.True(t, strings.HasSuffix(file.Filename, "."+format))
		file.File.Close()
	}
}

func TestExportServiceValidation(t *testing.T) {
	svc := newExportServiceForTest(t, &detailedSlotsStub{})

	_, err := svc.Export(context.Background(), dto.ExportRequest{Format: dto.ExportCSV})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Export(context.Background(), dto.ExportRequest{ClassID: "class-10a", Format: "docx"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Export(context.Background(), dto.ExportRequest{ClassID: "missing", Format: dto.ExportCSV})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestExportServiceOpenRejectsTamperedToken(t *testing.T) {
	svc := newExportServiceForTest(t, &detailedSlotsStub{rows: exportRows()})
	resp, err := svc.Export(context.Background(), dto.ExportRequest{ClassID: "class-10a", Format: dto.ExportCSV})
	require.NoError(t, err)

	_, err = svc.Open(tokenFrom(t, resp.URL) + "00")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestExportServiceCleanupKeepsFreshFiles(t *testing.T) {
	svc := newExportServiceForTest(t, &detailedSlotsStub{rows: exportRows()})
	_, err := svc.Export(context.Background(), dto.ExportRequest{ClassID: "class-10a", Format: dto.ExportCSV})
	require.NoError(t, err)

	removed, err := svc.Cleanup(0)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
