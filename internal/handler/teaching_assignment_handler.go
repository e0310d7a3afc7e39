package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-core/uni-records-api/internal/service"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
	"github.com/campus-core/uni-records-api/pkg/response"
)

// TeachingAssignmentHandler handles subject-teacher assignment endpoints.
type TeachingAssignmentHandler struct {
	service *service.TeachingAssignmentService
}

// NewTeachingAssignmentHandler constructs a teaching assignment handler.
func NewTeachingAssignmentHandler(svc *service.TeachingAssignmentService) *TeachingAssignmentHandler {
	return &TeachingAssignmentHandler{service: svc}
}

// List godoc
// @Summary List teaching assignments by subject or teacher
// @Tags TeachingAssignments
// @Produce json
// @Param subject query string false "Subject code"
// @Param teacher query string false "Teacher CI"
// @Success 200 {object} response.Envelope
// @Router /teaching-assignments [get]
func (h *TeachingAssignmentHandler) List(c *gin.Context) {
	if subject := c.Query("subject"); subject != "" {
		assignments, err := h.service.ListBySubject(c.Request.Context(), subject)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, assignments, nil)
		return
	}
	if teacher := c.Query("teacher"); teacher != "" {
		assignments, err := h.service.ListByTeacher(c.Request.Context(), teacher)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, assignments, nil)
		return
	}
	response.Error(c, appErrors.Clone(appErrors.ErrValidation, "either subject or teacher query parameter is required"))
}

// Get godoc
// @Summary Get teaching assignment by id
// @Tags TeachingAssignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /teaching-assignments/{id} [get]
func (h *TeachingAssignmentHandler) Get(c *gin.Context) {
	assignment, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Create godoc
// @Summary Assign teacher to subject
// @Tags TeachingAssignments
// @Accept json
// @Produce json
// @Param payload body service.TeachingAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /teaching-assignments [post]
func (h *TeachingAssignmentHandler) Create(c *gin.Context) {
	var req service.TeachingAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Update godoc
// @Summary Update teaching assignment
// @Tags TeachingAssignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.TeachingAssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /teaching-assignments/{id} [put]
func (h *TeachingAssignmentHandler) Update(c *gin.Context) {
	var req service.TeachingAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete godoc
// @Summary Delete teaching assignment
// @Tags TeachingAssignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /teaching-assignments/{id} [delete]
func (h *TeachingAssignmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
