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

// TutorHandler handles tutor account endpoints.
type TutorHandler struct {
	service *service.TutorService
}

// NewTutorHandler constructs a tutor handler.
func NewTutorHandler(svc *service.TutorService) *TutorHandler {
	return &TutorHandler{service: svc}
}

// List godoc
// @Summary List tutors
// @Tags Tutors
// @Produce json
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *TutorHandler) List(c *gin.Context) {
	var filter models.TutorFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	tutors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, pagination)
}

// Get godoc
// @Summary Get tutor by id
// @Tags Tutors
// @Produce json
// @Param id path int true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id} [get]
func (h *TutorHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid tutor id"))
		return
	}

	tutor, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// Register godoc
// @Summary Register tutor
// @Tags Tutors
// @Accept json
// @Produce json
// @Param payload body service.RegisterTutorRequest true "Tutor payload"
// @Success 201 {object} response.Envelope
// @Router /tutors [post]
func (h *TutorHandler) Register(c *gin.Context) {
	var req service.RegisterTutorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tutor, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tutor)
}

// Update godoc
// @Summary Update tutor profile
// @Tags Tutors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tutor ID"
// @Param payload body service.UpdateTutorRequest true "Tutor payload"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id} [put]
func (h *TutorHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid tutor id"))
		return
	}

	var req service.UpdateTutorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tutor, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// Deactivate godoc
// @Summary Deactivate tutor account
// @Tags Tutors
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tutor ID"
// @Success 204
// @Router /tutors/{id} [delete]
func (h *TutorHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid tutor id"))
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
