package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Likith-04/Tibl.ai/internal/dto"
	"github.com/Likith-04/Tibl.ai/internal/models"
	appErrors "github.com/Likith-04/Tibl.ai/pkg/errors"
	"github.com/Likith-04/Tibl.ai/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	Get(ctx context.Context, id string) (*models.Timetable, error)
	Latest(ctx context.Context) (*models.Timetable, error)
	List(ctx context.Context, limit int) ([]dto.RunSummary, error)
	Summary(ctx context.Context, id string) (*dto.TimetableSummaryResponse, error)
	TeacherSchedule(ctx context.Context, id, teacherID string) (*dto.TeacherScheduleResponse, error)
	Export(ctx context.Context, id, format string) ([]byte, string, string, error)
}

type artifactService interface {
	Status(runID string) (*dto.ArtifactsResponse, error)
	Open(name, token string) (*os.File, string, error)
}

// TimetableHandler exposes timetable generation and download endpoints.
type TimetableHandler struct {
	service   timetableService
	artifacts artifactService
}

// NewTimetableHandler constructs the handler. artifacts may be nil when file rendering is disabled.
func NewTimetableHandler(svc timetableService, artifacts artifactService) *TimetableHandler {
	return &TimetableHandler{service: svc, artifacts: artifacts}
}

// Generate godoc
// @Summary Generate a timetable
// @Description Runs the scheduler over the current catalog. Files are rendered in the background; poll the artifacts link.
// @Tags Timetables
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateTimetableRequest false "Run overrides"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
			return
		}
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Location", result.Links.Self)
	response.Created(c, result)
}

// List godoc
// @Summary List recent timetable runs
// @Tags Timetables
// @Produce json
// @Param limit query int false "Maximum runs (default 20, max 100)"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, runs, map[string]interface{}{"count": len(runs)})
}

// Latest godoc
// @Summary Get the most recent timetable
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/latest [get]
func (h *TimetableHandler) Latest(c *gin.Context) {
	tt, err := h.service.Latest(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tt)
}

// Get godoc
// @Summary Get a timetable run
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	tt, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tt)
}

// Summary godoc
// @Summary Total periods per subject
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/summary [get]
func (h *TimetableHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Teacher godoc
// @Summary One teacher's week in a run
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id}/teachers/{teacherId} [get]
func (h *TimetableHandler) Teacher(c *gin.Context) {
	schedule, err := h.service.TeacherSchedule(c.Request.Context(), c.Param("id"), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, schedule)
}

// Export godoc
// @Summary Download a timetable
// @Tags Timetables
// @Produce octet-stream
// @Param id path string true "Run ID"
// @Param format query string false "csv, pdf, xlsx or json (default csv)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /timetables/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", string(models.ExportFormatCSV))
	data, contentType, filename, err := h.service.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, contentType, data)
}

// Artifacts godoc
// @Summary Background render status and signed links
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/artifacts [get]
func (h *TimetableHandler) Artifacts(c *gin.Context) {
	if h.artifacts == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPrecondition, "artifact rendering is disabled"))
		return
	}
	id := c.Param("id")
	if _, err := h.service.Get(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.artifacts.Status(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// File godoc
// @Summary Download a rendered artifact via signed token
// @Tags Timetables
// @Produce octet-stream
// @Param name path string true "File name"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /timetables/files/{name} [get]
func (h *TimetableHandler) File(c *gin.Context) {
	if h.artifacts == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPrecondition, "artifact rendering is disabled"))
		return
	}
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	name := c.Param("name")
	file, contentType, err := h.artifacts.Open(name, token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read artifact"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", name))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
