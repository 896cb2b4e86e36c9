package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
	appErrors "github.com/samuelcamilocosta/orion-tutoring-api/pkg/errors"
	"github.com/samuelcamilocosta/orion-tutoring-api/pkg/export"
)

type lessonHistoryLister interface {
	List(ctx context.Context, filter models.LessonRequestFilter) ([]models.LessonRequestDetail, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered document ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders lesson request history as downloadable documents.
type ExportService struct {
	requests lessonHistoryLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(requests lessonHistoryLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{requests: requests, csv: csv, pdf: pdf, logger: logger}
}

// LessonHistory renders the filtered lesson request history in the requested
// format. Supported formats are "csv" and "pdf".
func (s *ExportService) LessonHistory(ctx context.Context, filter models.LessonRequestFilter, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	exportFilter := filter
	exportFilter.Page = 1
	exportFilter.PageSize = 100
	var rows []map[string]string
	for {
		page, total, err := s.requests.List(ctx, exportFilter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson history")
		}
		for _, request := range page {
			rows = append(rows, historyRow(request))
		}
		if len(rows) >= total || len(page) == 0 {
			break
		}
		exportFilter.Page++
	}

	dataset := export.Dataset{
		Headers: []string{"ID", "Student", "Subject", "Status", "Reasons", "Preferred Dates", "Additional Info", "Created At"},
		Rows:    rows,
	}

	timestamp := time.Now().UTC().Format("20060102-150405")
	var file ExportFile
	switch format {
	case "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		file = ExportFile{
			Filename:    fmt.Sprintf("lesson-history-%s.csv", timestamp),
			ContentType: "text/csv",
			Data:        data,
		}
	case "pdf":
		data, err := s.pdf.Render(dataset, "Lesson Request History")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		file = ExportFile{
			Filename:    fmt.Sprintf("lesson-history-%s.pdf", timestamp),
			ContentType: "application/pdf",
			Data:        data,
		}
	}

	s.logger.Info("lesson history exported",
		zap.String("format", format),
		zap.Int("rows", len(rows)),
	)
	return &file, nil
}

func historyRow(request models.LessonRequestDetail) map[string]string {
	note := ""
	if request.Note != nil {
		note = *request.Note
	}
	return map[string]string{
		"ID":              fmt.Sprintf("%d", request.ID),
		"Student":         request.StudentName,
		"Subject":         request.SubjectName,
		"Status":          string(request.Status),
		"Reasons":         strings.Join(request.Reasons, "; "),
		"Preferred Dates": strings.Join(request.PreferredDates, "; "),
		"Additional Info": note,
		"Created At":      request.CreatedAt.Format(time.RFC3339),
	}
}
