package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-core/uni-records-api/internal/service"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
	"github.com/campus-core/uni-records-api/pkg/response"
)

// EnrollmentHandler handles enrollment endpoints.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

type enrollmentPayload struct {
	StudentCI   string `json:"student_ci"`
	SubjectCode string `json:"subject_code"`
	EnrolledOn  string `json:"enrolled_on"`
}

func (p enrollmentPayload) toRequest() (service.EnrollmentRequest, error) {
	date, err := parseDate("enrolled_on", p.EnrolledOn)
	if err != nil {
		return service.EnrollmentRequest{}, err
	}
	return service.EnrollmentRequest{StudentCI: p.StudentCI, SubjectCode: p.SubjectCode, EnrolledOn: date}, nil
}

// List godoc
// @Summary List enrollments by student or subject
// @Tags Enrollments
// @Produce json
// @Param student query string false "Student CI"
// @Param subject query string false "Subject code"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	if student := c.Query("student"); student != "" {
		enrollments, err := h.service.ListByStudent(c.Request.Context(), student)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, enrollments, nil)
		return
	}
	if subject := c.Query("subject"); subject != "" {
		enrollments, err := h.service.ListBySubject(c.Request.Context(), subject)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, enrollments, nil)
		return
	}
	response.Error(c, appErrors.Clone(appErrors.ErrValidation, "either student or subject query parameter is required"))
}

// Get godoc
// @Summary Get enrollment by id
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Create godoc
// @Summary Enroll student in subject
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body enrollmentPayload true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var payload enrollmentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Update godoc
// @Summary Update enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body enrollmentPayload true "Enrollment payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [put]
func (h *EnrollmentHandler) Update(c *gin.Context) {
	var payload enrollmentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Delete godoc
// @Summary Delete enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteByPair godoc
// @Summary Withdraw latest enrollment of a student in a subject
// @Tags Enrollments
// @Produce json
// @Param student query string true "Student CI"
// @Param subject query string true "Subject code"
// @Success 204
// @Router /enrollments [delete]
func (h *EnrollmentHandler) DeleteByPair(c *gin.Context) {
	student := c.Query("student")
	subject := c.Query("subject")
	if student == "" || subject == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student and subject query parameters are required"))
		return
	}
	if err := h.service.DeleteByPair(c.Request.Context(), student, subject); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
