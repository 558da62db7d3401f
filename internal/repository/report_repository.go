package repository

import (
	"context"

	"gorm.io/gorm"

	"civicwatch/internal/model"
)

// ReportFilter narrows report listings. Zero values mean "any".
type ReportFilter struct {
	Status     string
	Category   string
	Priority   string
	ReportedBy uint
}

// FieldCount is one bucket of an aggregate-count projection.
type FieldCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// ReporterCount is the per-user bucket used for the top-reporters projection.
type ReporterCount struct {
	ReportedBy uint  `json:"reported_by"`
	Count      int64 `json:"count"`
}

// countableFields whitelists the columns aggregate counts may group by.
var countableFields = map[string]bool{
	"status":   true,
	"category": true,
	"priority": true,
}

// ReportRepository defines report persistence operations.
type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	FindByID(ctx context.Context, id uint) (*model.Report, error)
	List(ctx context.Context, filter ReportFilter, page, limit int) ([]model.Report, int64, error)
	Update(ctx context.Context, report *model.Report) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
	CountByField(ctx context.Context, field string) ([]FieldCount, error)
	TopReporters(ctx context.Context, limit int) ([]ReporterCount, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository builds a GORM-backed repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) FindByID(ctx context.Context, id uint) (*model.Report, error) {
	var report model.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) applyFilter(q *gorm.DB, filter ReportFilter) *gorm.DB {
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	if filter.ReportedBy != 0 {
		q = q.Where("reported_by = ?", filter.ReportedBy)
	}
	return q
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter, page, limit int) ([]model.Report, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&model.Report{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []model.Report
	if err := r.applyFilter(r.db.WithContext(ctx), filter).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (r *reportRepository) Update(ctx context.Context, report *model.Report) error {
	return r.db.WithContext(ctx).Save(report).Error
}

func (r *reportRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Report{}, id).Error
}

func (r *reportRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Report{}).Count(&total).Error
	return total, err
}

func (r *reportRepository) CountByField(ctx context.Context, field string) ([]FieldCount, error) {
	if !countableFields[field] {
		return nil, gorm.ErrInvalidField
	}
	var counts []FieldCount
	err := r.db.WithContext(ctx).Model(&model.Report{}).
		Select(field + " AS value, COUNT(*) AS count").
		Group(field).
		Scan(&counts).Error
	return counts, err
}

func (r *reportRepository) TopReporters(ctx context.Context, limit int) ([]ReporterCount, error) {
	var counts []ReporterCount
	err := r.db.WithContext(ctx).Model(&model.Report{}).
		Select("reported_by, COUNT(*) AS count").
		Group("reported_by").
		Order("count DESC").
		Limit(limit).
		Scan(&counts).Error
	return counts, err
}
