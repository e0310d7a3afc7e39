package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campus-core/uni-records-api/internal/service"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
	"github.com/campus-core/uni-records-api/pkg/response"
)

// StudentHandler handles student endpoints.
type StudentHandler struct {
	service *service.StudentService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(svc *service.StudentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

type studentPayload struct {
	CI              string `json:"ci"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	BirthDate       string `json:"birth_date"`
	RegistrationNum string `json:"registration_num"`
}

func (p studentPayload) toRequest() (service.StudentRequest, error) {
	birthDate, err := parseDate("birth_date", p.BirthDate)
	if err != nil {
		return service.StudentRequest{}, err
	}
	return service.StudentRequest{
		CI:              p.CI,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Email:           p.Email,
		BirthDate:       birthDate,
		RegistrationNum: p.RegistrationNum,
	}, nil
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	students, pagination, err := h.service.List(c.Request.Context(), search, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student by CI
// @Tags Students
// @Produce json
// @Param ci path string true "Student CI"
// @Success 200 {object} response.Envelope
// @Router /students/{ci} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.GetByCI(c.Request.Context(), c.Param("ci"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Register student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body studentPayload true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var payload studentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param ci path string true "Student CI"
// @Param payload body studentPayload true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{ci} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var payload studentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if payload.CI == "" {
		payload.CI = c.Param("ci")
	}
	req, err := payload.toRequest()
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Update(c.Request.Context(), c.Param("ci"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Produce json
// @Param ci path string true "Student CI"
// @Success 204
// @Router /students/{ci} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("ci")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
