package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/samuelcamilocosta/orion-tutoring-api/internal/models"
	"github.com/samuelcamilocosta/orion-tutoring-api/internal/service"
	appErrors "github.com/samuelcamilocosta/orion-tutoring-api/pkg/errors"
	"github.com/samuelcamilocosta/orion-tutoring-api/pkg/response"
)

// LessonRequestHandler wires HTTP endpoints to the lesson request lifecycle.
type LessonRequestHandler struct {
	service *service.LessonRequestService
}

// NewLessonRequestHandler constructs the handler.
func NewLessonRequestHandler(svc *service.LessonRequestService) *LessonRequestHandler {
	return &LessonRequestHandler{service: svc}
}

// acceptRequest is the payload for a tutor acceptance.
type acceptRequest struct {
	ChosenDate string `json:"chosen_date" binding:"required"`
}

// updateStatusRequest is the payload for a direct status edit.
type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Create godoc
// @Summary Create lesson request
// @Description Open a new lesson request for the authenticated student
// @Tags Lesson Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateLessonRequest true "Lesson request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lesson-requests [post]
func (h *LessonRequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List lesson requests
// @Tags Lesson Requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param student_id query int false "Filter by student"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lesson-requests [get]
func (h *LessonRequestHandler) List(c *gin.Context) {
	var filter models.LessonRequestFilter
	filter.Status = models.LessonRequestStatus(strings.TrimSpace(c.Query("status")))
	if studentID, err := strconv.ParseInt(c.Query("student_id"), 10, 64); err == nil {
		filter.StudentID = studentID
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortOrder = c.Query("order")

	requests, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// ListMine godoc
// @Summary List the authenticated tutor's lesson requests
// @Tags Lesson Requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /lesson-requests/mine [get]
func (h *LessonRequestHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	requests, err := h.service.ListByTutor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get lesson request with assignments
// @Tags Lesson Requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lesson-requests/{id} [get]
func (h *LessonRequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid lesson request id"))
		return
	}

	view, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Accept godoc
// @Summary Accept lesson request
// @Description Record the authenticated tutor's claim on the request
// @Tags Lesson Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson request ID"
// @Param payload body acceptRequest true "Chosen date"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /lesson-requests/{id}/accept [post]
func (h *LessonRequestHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid lesson request id"))
		return
	}

	var req acceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.Accept(c.Request.Context(), id, claims.UserID, req.ChosenDate); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CancelAssignment godoc
// @Summary Cancel tutor assignment
// @Description Withdraw the authenticated tutor from the request
// @Tags Lesson Requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson request ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /lesson-requests/{id}/assignment [delete]
func (h *LessonRequestHandler) CancelAssignment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid lesson request id"))
		return
	}

	if err := h.service.CancelAssignment(c.Request.Context(), id, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Update lesson request status
// @Tags Lesson Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson request ID"
// @Param payload body updateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lesson-requests/{id}/status [patch]
func (h *LessonRequestHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid lesson request id"))
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.service.UpdateStatus(c.Request.Context(), id, models.LessonRequestStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// UpdateDetails godoc
// @Summary Update lesson request details
// @Description Edit reason, dates, note and subject of a pending request
// @Tags Lesson Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson request ID"
// @Param payload body service.UpdateLessonRequest true "Lesson request payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lesson-requests/{id} [put]
func (h *LessonRequestHandler) UpdateDetails(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid lesson request id"))
		return
	}

	var req service.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.service.UpdateDetails(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Delete godoc
// @Summary Delete lesson request
// @Tags Lesson Requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lesson request ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /lesson-requests/{id} [delete]
func (h *LessonRequestHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid lesson request id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
