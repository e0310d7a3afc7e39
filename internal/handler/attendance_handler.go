package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-core/uni-records-api/internal/service"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
	"github.com/campus-core/uni-records-api/pkg/response"
)

// AttendanceHandler handles attendance record endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

type attendancePayload struct {
	StudentCI string `json:"student_ci"`
	CourseID  int64  `json:"course_id"`
	Date      string `json:"date"`
	Present   bool   `json:"present"`
}

func (p attendancePayload) toRequest() (service.AttendanceRequest, error) {
	date, err := parseDate("date", p.Date)
	if err != nil {
		return service.AttendanceRequest{}, err
	}
	return service.AttendanceRequest{StudentCI: p.StudentCI, CourseID: p.CourseID, Date: date, Present: p.Present}, nil
}

// List godoc
// @Summary List attendance records by student or course
// @Tags Attendance
// @Produce json
// @Param student query string false "Student CI"
// @Param course query int false "Course ID"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
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
// @Summary Get attendance record by id
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Record attendance
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body attendancePayload true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Create(c *gin.Context) {
	var payload attendancePayload
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
// @Summary Update attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body attendancePayload true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var payload attendancePayload
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
// @Summary Delete attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
