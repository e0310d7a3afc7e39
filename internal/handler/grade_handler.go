package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-core/uni-records-api/internal/service"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
	"github.com/campus-core/uni-records-api/pkg/response"
)

// GradeHandler handles grade record endpoints.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

type gradePayload struct {
	StudentCI  string  `json:"student_ci"`
	CourseID   int64   `json:"course_id"`
	Evaluation string  `json:"evaluation"`
	Score      float64 `json:"score"`
	RecordedOn string  `json:"recorded_on"`
}

func (p gradePayload) toRequest() (service.GradeRequest, error) {
	recordedOn, err := parseDate("recorded_on", p.RecordedOn)
	if err != nil {
		return service.GradeRequest{}, err
	}
	return service.GradeRequest{
		StudentCI:  p.StudentCI,
		CourseID:   p.CourseID,
		Evaluation: p.Evaluation,
		Score:      p.Score,
		RecordedOn: recordedOn,
	}, nil
}

// List godoc
// @Summary List grade records by student or course
// @Tags Grades
// @Produce json
// @Param student query string false "Student CI"
// @Param course query int false "Course ID"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	if student := c.Query("student"); student != "" {
		records, err := h.service.ListByStudent(c.Request.Context(), student)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, records, nil)
		return
	}
	if course := c.Query("course"); course != "" {
		courseID, err := strconv.ParseInt(course, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course must be an integer"))
			return
		}
		records, err := h.service.ListByCourse(c.Request.Context(), courseID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, records, nil)
		return
	}
	response.Error(c, appErrors.Clone(appErrors.ErrValidation, "either student or course query parameter is required"))
}

// Get godoc
// @Summary Get grade record by id
// @Tags Grades
// @Produce json
// @Param id path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Router /grades/{id} [get]
func (h *GradeHandler) Get(c *gin.Context) {
	record, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Record a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body gradePayload true "Grade payload"
// @Success 201 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	var payload gradePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Update grade record
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Grade ID"
// @Param payload body gradePayload true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /grades/{id} [put]
func (h *GradeHandler) Update(c *gin.Context) {
	var payload gradePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete grade record
// @Tags Grades
// @Produce json
// @Param id path string true "Grade ID"
// @Success 204
// @Router /grades/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
