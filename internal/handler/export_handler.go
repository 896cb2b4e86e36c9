package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
	"github.com/samuelcamilocosta/orion-tutoring-api/internal/service"
	"github.com/samuelcamilocosta/orion-tutoring-api/pkg/response"
)

// ExportHandler streams lesson history documents.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// LessonHistory godoc
// @Summary Export lesson request history
// @Description Download the filtered lesson request history as CSV or PDF
// @Tags Exports
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string true "Export format (csv or pdf)"
// @Param status query string false "Filter by status"
// @Param student_id query int false "Filter by student"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /exports/lesson-history [get]
func (h *ExportHandler) LessonHistory(c *gin.Context) {
	var filter models.LessonRequestFilter
	filter.Status = models.LessonRequestStatus(strings.TrimSpace(c.Query("status")))
	if studentID, err := strconv.ParseInt(c.Query("student_id"), 10, 64); err == nil {
		filter.StudentID = studentID
	}

	file, err := h.service.LessonHistory(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
