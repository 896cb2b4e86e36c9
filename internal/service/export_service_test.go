package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
	appErrors "github.com/samuelcamilocosta/orion-tutoring-api/pkg/errors"
	"github.com/samuelcamilocosta/orion-tutoring-api/pkg/export"
)

type historyListerStub struct {
	details []models.LessonRequestDetail
}

func (s historyListerStub) List(ctx context.Context, filter models.LessonRequestFilter) ([]models.LessonRequestDetail, int, error) {
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(s.details) {
		return nil, len(s.details), nil
	}
	end := start + filter.PageSize
	if end > len(s.details) {
		end = len(s.details)
	}
	return s.details[start:end], len(s.details), nil
}

func newExportServiceForTest(t *testing.T) *ExportService {
	t.Helper()
	note := "precisa revisar frações"
	lister := historyListerStub{details: []models.LessonRequestDetail{
		{
			LessonRequest: models.LessonRequest{
				ID:             7,
				Reasons:        []string{string(models.ReasonReinforcement)},
				PreferredDates: []string{"10/10/2030 às 10:00"},
				Status:         models.LessonStatusAccepted,
				Note:           &note,
				CreatedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			},
			SubjectName: "Matemática",
			StudentName: "Ana",
		},
		{
			LessonRequest: models.LessonRequest{
				ID:             8,
				Reasons:        []string{string(models.ReasonExamOrPaper)},
				PreferredDates: []string{"12/10/2030 às 09:00", "13/10/2030 às 09:00"},
				Status:         models.LessonStatusPending,
				CreatedAt:      time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
			},
			SubjectName: "Física",
			StudentName: "Bia",
		},
	}}
	return NewExportService(lister, export.NewCSVExporter(), export.NewPDFExporter(), nil)
}

func TestExportLessonHistoryCSV(t *testing.T) {
	svc := newExportServiceForTest(t)

	file, err := svc.LessonHistory(context.Background(), models.LessonRequestFilter{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	content := string(file.Data)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Preferred Dates")
	assert.Contains(t, content, "Matemática")
	assert.Contains(t, content, "precisa revisar frações")
	assert.Contains(t, content, "12/10/2030 às 09:00; 13/10/2030 às 09:00")
}

func TestExportLessonHistoryPDF(t *testing.T) {
	svc := newExportServiceForTest(t)

	file, err := svc.LessonHistory(context.Background(), models.LessonRequestFilter{}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	require.NotEmpty(t, file.Data)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportLessonHistoryUnsupportedFormat(t *testing.T) {
	svc := newExportServiceForTest(t)

	_, err := svc.LessonHistory(context.Background(), models.LessonRequestFilter{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
