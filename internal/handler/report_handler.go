package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "civicwatch/internal/errors"
	"civicwatch/internal/model"
	"civicwatch/internal/repository"
	"civicwatch/internal/service"
)

// maxReportImages caps attachments per submission.
const maxReportImages = 5

// ReportHandler handles report endpoints.
type ReportHandler struct {
	reportService service.ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ReportRequest represents a report create/update payload. Submissions are
// multipart/form-data so image blobs can ride along; plain JSON works when
// no images are attached.
type ReportRequest struct {
	Title        string  `json:"title" form:"title" validate:"required,max=200"`
	Description  string  `json:"description" form:"description" validate:"required,max=2000"`
	Category     string  `json:"category" form:"category" validate:"required,oneof=pothole streetlight garbage water-leak traffic-signal sidewalk graffiti noise other"`
	Priority     string  `json:"priority" form:"priority" validate:"omitempty,oneof=Low Medium High Critical"`
	Status       string  `json:"status" form:"status" validate:"omitempty,oneof=pending in-progress resolved rejected"`
	Address      string  `json:"address" form:"address" validate:"required,max=500"`
	Latitude     float64 `json:"latitude" form:"latitude" validate:"min=-90,max=90"`
	Longitude    float64 `json:"longitude" form:"longitude" validate:"min=-180,max=180"`
	Neighborhood string  `json:"neighborhood" form:"neighborhood" validate:"omitempty,max=255"`
	Ward         string  `json:"ward" form:"ward" validate:"omitempty,max=255"`
	IsAnonymous  bool    `json:"is_anonymous" form:"is_anonymous"`
}

func (r *ReportRequest) toInput(files []service.UploadFile) service.ReportInput {
	return service.ReportInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
		Status:      r.Status,
		Location: model.Location{
			Address:      r.Address,
			Latitude:     r.Latitude,
			Longitude:    r.Longitude,
			Neighborhood: r.Neighborhood,
			Ward:         r.Ward,
		},
		IsAnonymous: r.IsAnonymous,
		Files:       files,
	}
}

// readUploadFiles collects the "images" multipart field. A non-multipart
// request simply has no files.
func readUploadFiles(c echo.Context) ([]service.UploadFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	headers := form.File["images"]
	if len(headers) > maxReportImages {
		return nil, echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
			Error: "too many images, at most " + strconv.Itoa(maxReportImages) + " allowed",
			Code:  "TOO_MANY_IMAGES",
		})
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, header := range headers {
		src, err := header.Open()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable image upload")
		}
		data, err := io.ReadAll(src)
		_ = src.Close()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable image upload")
		}
		files = append(files, service.UploadFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

// Create godoc
// @Summary Submit a civic-issue report
// @Tags reports
// @Accept mpfd
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /reports [post]
// @Security BearerAuth
func (h *ReportHandler) Create(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}

	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	files, err := readUploadFiles(c)
	if err != nil {
		return err
	}

	report, err := h.reportService.Create(c.Request().Context(), actor, req.toInput(files))
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "report created successfully",
		"report":  report,
	})
}

// List godoc
// @Summary List reports with filters and pagination
// @Tags reports
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param status query string false "Filter by status"
// @Param category query string false "Filter by category"
// @Param priority query string false "Filter by priority"
// @Success 200 {object} service.ReportPage
// @Failure 401 {object} errors.ErrorResponse
// @Router /reports [get]
// @Security BearerAuth
func (h *ReportHandler) List(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	filter := repository.ReportFilter{
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
		Priority: c.QueryParam("priority"),
	}

	result, err := h.reportService.List(c.Request().Context(), actor, filter, page, limit)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, result)
}

// GetByID godoc
// @Summary Get a report by id
// @Tags reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /reports/{id} [get]
// @Security BearerAuth
func (h *ReportHandler) GetByID(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	report, err := h.reportService.GetByID(c.Request().Context(), actor, id)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"report": report})
}

// Update godoc
// @Summary Update a report
// @Tags reports
// @Accept mpfd
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /reports/{id} [patch]
// @Security BearerAuth
func (h *ReportHandler) Update(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	files, err := readUploadFiles(c)
	if err != nil {
		return err
	}

	report, err := h.reportService.Update(c.Request().Context(), actor, id, req.toInput(files))
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "report updated successfully",
		"report":  report,
	})
}

// Delete godoc
// @Summary Delete a report
// @Tags reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /reports/{id} [delete]
// @Security BearerAuth
func (h *ReportHandler) Delete(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.reportService.Delete(c.Request().Context(), actor, id); err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "report deleted successfully",
	})
}

// Analytics godoc
// @Summary Aggregate report analytics (admin only)
// @Tags reports
// @Produce json
// @Success 200 {object} service.Analytics
// @Failure 403 {object} errors.ErrorResponse
// @Router /reports/admin/analytics [get]
// @Security BearerAuth
func (h *ReportHandler) Analytics(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}

	analytics, err := h.reportService.GetAnalytics(c.Request().Context(), actor)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, analytics)
}

func parseUintParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
