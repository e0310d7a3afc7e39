package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-core/uni-records-api/internal/service"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
	"github.com/campus-core/uni-records-api/pkg/response"
)

// ExportHandler exposes roster export jobs and their signed downloads.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

type exportPayload struct {
	Entity string `json:"entity"`
	Format string `json:"format"`
}

// Create godoc
// @Summary Request a roster export
// @Tags Exports
// @Accept json
// @Produce json
// @Param export body exportPayload true "Export request"
// @Success 201 {object} response.Envelope
// @Router /admin/exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var payload exportPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	job, err := h.service.Request(c.Request.Context(), payload.Entity, payload.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// Status godoc
// @Summary Check an export job
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /admin/exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	job, err := h.service.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a completed export
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter is required"))
		return
	}
	path, filename, err := h.service.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, filename)
}
