package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-core/uni-records-api/internal/service"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
	"github.com/campus-core/uni-records-api/pkg/response"
)

// PrerequisiteHandler handles subject prerequisite endpoints.
type PrerequisiteHandler struct {
	service *service.PrerequisiteService
}

// NewPrerequisiteHandler constructs a prerequisite handler.
func NewPrerequisiteHandler(svc *service.PrerequisiteService) *PrerequisiteHandler {
	return &PrerequisiteHandler{service: svc}
}

// List godoc
// @Summary List prerequisite relations by subject or prerequisite
// @Tags Prerequisites
// @Produce json
// @Param subject query string false "Subject code"
// @Param prerequisite query string false "Prerequisite subject code"
// @Success 200 {object} response.Envelope
// @Router /prerequisites [get]
func (h *PrerequisiteHandler) List(c *gin.Context) {
	if subject := c.Query("subject"); subject != "" {
		relations, err := h.service.ListBySubject(c.Request.Context(), subject)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, relations, nil)
		return
	}
	if prerequisite := c.Query("prerequisite"); prerequisite != "" {
		relations, err := h.service.ListDependents(c.Request.Context(), prerequisite)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, relations, nil)
		return
	}
	response.Error(c, appErrors.Clone(appErrors.ErrValidation, "either subject or prerequisite query parameter is required"))
}

// Get godoc
// @Summary Get prerequisite relation by id
// @Tags Prerequisites
// @Produce json
// @Param id path string true "Prerequisite ID"
// @Success 200 {object} response.Envelope
// @Router /prerequisites/{id} [get]
func (h *PrerequisiteHandler) Get(c *gin.Context) {
	relation, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, relation, nil)
}

// Create godoc
// @Summary Register a prerequisite relation
// @Tags Prerequisites
// @Accept json
// @Produce json
// @Param payload body service.PrerequisiteRequest true "Prerequisite payload"
// @Success 201 {object} response.Envelope
// @Router /prerequisites [post]
func (h *PrerequisiteHandler) Create(c *gin.Context) {
	var req service.PrerequisiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	relation, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, relation)
}

// Update godoc
// @Summary Update prerequisite relation
// @Tags Prerequisites
// @Accept json
// @Produce json
// @Param id path string true "Prerequisite ID"
// @Param payload body service.PrerequisiteRequest true "Prerequisite payload"
// @Success 200 {object} response.Envelope
// @Router /prerequisites/{id} [put]
func (h *PrerequisiteHandler) Update(c *gin.Context) {
	var req service.PrerequisiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	relation, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, relation, nil)
}

// Delete godoc
// @Summary Delete prerequisite relation
// @Tags Prerequisites
// @Produce json
// @Param id path string true "Prerequisite ID"
// @Success 204
// @Router /prerequisites/{id} [delete]
func (h *PrerequisiteHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
