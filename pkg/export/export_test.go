package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func timetableDataset() Dataset {
	return Dataset{
		Title:   "10A: Term 1",
		Headers: []string{"Day", "Lesson", "Subject"},
		Rows: []map[string]string{
			{"Day": "Monday", "Lesson": "1", "Subject": "Math"},
			{"Day": "Monday", "Lesson": "2", "Subject": "Science"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(timetableDataset())
	require.NoError(t, err)
	assert.Equal(t, "Day,Lesson,Subject\nMonday,1,Math\nMonday,2,Science\n", string(out))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(timetableDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	assert.Equal(t, "10A Term 1", sheet)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Monday", "2", "Science"}, rows[2])
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(timetableDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRejectEmptyHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewXLSXExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}
