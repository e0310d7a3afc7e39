package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-core/uni-records-api/internal/service"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
	"github.com/campus-core/uni-records-api/pkg/response"
)

// OfferingHandler handles subject-course offering endpoints.
type OfferingHandler struct {
	service *service.OfferingService
}

// NewOfferingHandler constructs an offering handler.
func NewOfferingHandler(svc *service.OfferingService) *OfferingHandler {
	return &OfferingHandler{service: svc}
}

// List godoc
// @Summary List offerings by subject or course
// @Tags Offerings
// @Produce json
// @Param subject query string false "Subject code"
// @Param course query int false "Course ID"
// @Success 200 {object} response.Envelope
// @Router /offerings [get]
func (h *OfferingHandler) List(c *gin.Context) {
	if subject := c.Query("subject"); subject != "" {
		offerings, err := h.service.ListBySubject(c.Request.Context(), subject)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, offerings, nil)
		return
	}
	if course := c.Query("course"); course != "" {
		courseID, err := strconv.ParseInt(course, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course must be an integer"))
			return
		}
		offerings, err := h.service.ListByCourse(c.Request.Context(), courseID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, offerings, nil)
		return
	}
	response.Error(c, appErrors.Clone(appErrors.ErrValidation, "either subject or course query parameter is required"))
}

// Get godoc
// @Summary Get offering by id
// @Tags Offerings
// @Produce json
// @Param id path string true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id} [get]
func (h *OfferingHandler) Get(c *gin.Context) {
	offering, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Create godoc
// @Summary Offer subject in course
// @Tags Offerings
// @Accept json
// @Produce json
// @Param payload body service.OfferingRequest true "Offering payload"
// @Success 201 {object} response.Envelope
// @Router /offerings [post]
func (h *OfferingHandler) Create(c *gin.Context) {
	var req service.OfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// Update godoc
// @Summary Update offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Param id path string true "Offering ID"
// @Param payload body service.OfferingRequest true "Offering payload"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id} [put]
func (h *OfferingHandler) Update(c *gin.Context) {
	var req service.OfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Delete godoc
// @Summary Delete offering
// @Tags Offerings
// @Produce json
// @Param id path string true "Offering ID"
// @Success 204
// @Router /offerings/{id} [delete]
func (h *OfferingHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
