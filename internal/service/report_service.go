package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"civicwatch/internal/cache"
	apperrors "civicwatch/internal/errors"
	"civicwatch/internal/model"
	"civicwatch/internal/repository"
)

const reportCacheTTL = 5 * time.Minute

// Actor is the authenticated identity a request acts as.
type Actor struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// ReportInput carries a pre-validated create/update payload. Files, when
// present, replace the report's images wholesale.
type ReportInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
	Status      string
	Location    model.Location
	IsAnonymous bool
	Files       []UploadFile
}

// ReportPage is one page of a filtered listing.
type ReportPage struct {
	Reports    []model.Report `json:"reports"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

// Analytics is a live projection over stored reports. It is computed on
// every call and never cached.
type Analytics struct {
	TotalReports int64                      `json:"total_reports"`
	ByStatus     []repository.FieldCount    `json:"by_status"`
	ByCategory   []repository.FieldCount    `json:"by_category"`
	ByPriority   []repository.FieldCount    `json:"by_priority"`
	TopReporters []repository.ReporterCount `json:"top_reporters"`
}

// ReportService owns the report workflow: the owner-or-admin access
// predicate, department routing, image handling and analytics.
type ReportService interface {
	Create(ctx context.Context, actor Actor, input ReportInput) (*model.Report, error)
	GetByID(ctx context.Context, actor Actor, id uint) (*model.Report, error)
	List(ctx context.Context, actor Actor, filter repository.ReportFilter, page, limit int) (*ReportPage, error)
	Update(ctx context.Context, actor Actor, id uint, input ReportInput) (*model.Report, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	GetAnalytics(ctx context.Context, actor Actor) (*Analytics, error)
}

type reportService struct {
	reports  repository.ReportRepository
	uploads  UploadService
	notifier NotificationService
	cache    *cache.Client
}

// NewReportService builds the report service.
func NewReportService(reports repository.ReportRepository, uploads UploadService, notifier NotificationService, cache *cache.Client) ReportService {
	return &reportService{reports: reports, uploads: uploads, notifier: notifier, cache: cache}
}

// canAccess is the single authorization predicate for read/update/delete.
func canAccess(actor Actor, report *model.Report) bool {
	return actor.IsAdmin() || actor.ID == report.ReportedBy
}

func validateLocation(loc model.Location) error {
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return apperrors.NewValidationError("latitude must be between -90 and 90, got %v", loc.Latitude)
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return apperrors.NewValidationError("longitude must be between -180 and 180, got %v", loc.Longitude)
	}
	return nil
}

func (s *reportService) cacheKey(id uint) string {
	return fmt.Sprintf("report:%d", id)
}

func (s *reportService) Create(ctx context.Context, actor Actor, input ReportInput) (*model.Report, error) {
	if err := validateLocation(input.Location); err != nil {
		return nil, err
	}

	images, err := s.uploads.Upload(ctx, input.Files)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = model.StatusPending
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityLow
	}

	report := &model.Report{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    priority,
		Status:      status,
		Location:    input.Location,
		Images:      images,
		ReportedBy:  actor.ID,
		Department:  model.DepartmentFor(input.Category),
		IsAnonymous: input.IsAnonymous,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		s.uploads.Discard(ctx, report.ImageURLs())
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

func (s *reportService) GetByID(ctx context.Context, actor Actor, id uint) (*model.Report, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.Report
		if err := json.Unmarshal(data, &cached); err == nil {
			if !canAccess(actor, &cached) {
				return nil, apperrors.ErrForbidden
			}
			return &cached, nil
		}
	}

	report, err := s.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, report) {
		return nil, apperrors.ErrForbidden
	}

	if payload, err := json.Marshal(report); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, reportCacheTTL)
	}
	return report, nil
}

func (s *reportService) List(ctx context.Context, actor Actor, filter repository.ReportFilter, page, limit int) (*ReportPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	// Non-admins only ever see their own reports.
	if !actor.IsAdmin() {
		filter.ReportedBy = actor.ID
	}

	reports, total, err := s.reports.List(ctx, filter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	return &ReportPage{
		Reports:    reports,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

func (s *reportService) Update(ctx context.Context, actor Actor, id uint, input ReportInput) (*model.Report, error) {
	report, err := s.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, report) {
		return nil, apperrors.ErrForbidden
	}

	// Triage fields are staff-only: owners edit content, admins move the
	// report through the workflow.
	statusChanged := input.Status != "" && input.Status != report.Status
	priorityChanged := input.Priority != "" && input.Priority != report.Priority
	if (statusChanged || priorityChanged) && !actor.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	if err := validateLocation(input.Location); err != nil {
		return nil, err
	}

	if len(input.Files) > 0 {
		// Old images are replaced wholesale; their removal must not block
		// the update.
		s.uploads.Discard(ctx, report.ImageURLs())
		images, err := s.uploads.Upload(ctx, input.Files)
		if err != nil {
			return nil, err
		}
		report.Images = images
	}

	oldStatus := report.Status
	report.Title = input.Title
	report.Description = input.Description
	report.Category = input.Category
	report.Location = input.Location
	report.IsAnonymous = input.IsAnonymous
	report.Department = model.DepartmentFor(input.Category)
	if input.Status != "" {
		report.Status = input.Status
	}
	if input.Priority != "" {
		report.Priority = input.Priority
	}
	if report.Status == model.StatusResolved && oldStatus != model.StatusResolved {
		now := time.Now().UTC()
		report.ActualResolutionDate = &now
	}

	if err := s.reports.Update(ctx, report); err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))

	if report.Status != oldStatus {
		s.notifier.NotifyStatusChange(ctx, report, oldStatus)
	}
	return report, nil
}

func (s *reportService) Delete(ctx context.Context, actor Actor, id uint) error {
	report, err := s.loadReport(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(actor, report) {
		return apperrors.ErrForbidden
	}

	s.uploads.Discard(ctx, report.ImageURLs())

	if err := s.reports.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

func (s *reportService) GetAnalytics(ctx context.Context, actor Actor) (*Analytics, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	total, err := s.reports.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	byStatus, err := s.reports.CountByField(ctx, "status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	byCategory, err := s.reports.CountByField(ctx, "category")
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	byPriority, err := s.reports.CountByField(ctx, "priority")
	if err != nil {
		return nil, fmt.Errorf("count by priority: %w", err)
	}
	topReporters, err := s.reports.TopReporters(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("top reporters: %w", err)
	}

	return &Analytics{
		TotalReports: total,
		ByStatus:     byStatus,
		ByCategory:   byCategory,
		ByPriority:   byPriority,
		TopReporters: topReporters,
	}, nil
}

func (s *reportService) loadReport(ctx context.Context, id uint) (*model.Report, error) {
	report, err := s.reports.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, fmt.Errorf("load report: %w", err)
	}
	return report, nil
}
