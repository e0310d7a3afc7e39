package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-core/uni-records-api/internal/service"
	"github.com/campus-core/uni-records-api/pkg/response"
)

// LockHandler exposes the exclusive-access fetch endpoints. Each endpoint
// reads the target record under a held row lock, so overlapping calls for
// the same record serialize. Intended for admin tooling that needs to
// observe lock behavior against live data.
type LockHandler struct {
	service *service.LockService
}

// NewLockHandler constructs a lock handler.
func NewLockHandler(svc *service.LockService) *LockHandler {
	return &LockHandler{service: svc}
}

// FetchStudent godoc
// @Summary Fetch student under an exclusive lock
// @Tags Locks
// @Produce json
// @Param ci path string true "Student CI"
// @Success 200 {object} response.Envelope
// @Router /admin/students/{ci}/lock-fetch [post]
func (h *LockHandler) FetchStudent(c *gin.Context) {
	student, err := h.service.FetchStudentWithLock(c.Request.Context(), c.Param("ci"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// FetchTeacher godoc
// @Summary Fetch teacher under an exclusive lock
// @Tags Locks
// @Produce json
// @Param ci path string true "Teacher CI"
// @Success 200 {object} response.Envelope
// @Router /admin/teachers/{ci}/lock-fetch [post]
func (h *LockHandler) FetchTeacher(c *gin.Context) {
	teacher, err := h.service.FetchTeacherWithLock(c.Request.Context(), c.Param("ci"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// FetchSubject godoc
// @Summary Fetch subject under an exclusive lock
// @Tags Locks
// @Produce json
// @Param code path string true "Subject code"
// @Success 200 {object} response.Envelope
// @Router /admin/subjects/{code}/lock-fetch [post]
func (h *LockHandler) FetchSubject(c *gin.Context) {
	subject, err := h.service.FetchSubjectWithLock(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// FetchCourse godoc
// @Summary Fetch course under an exclusive lock
// @Tags Locks
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{id}/lock-fetch [post]
func (h *LockHandler) FetchCourse(c *gin.Context) {
	id, err := courseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.service.FetchCourseWithLock(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}
