package model

import (
	"time"

	"gorm.io/datatypes"
)

// Report categories. The set is closed; request validation enforces it.
const (
	CategoryPothole       = "pothole"
	CategoryStreetlight   = "streetlight"
	CategoryGarbage       = "garbage"
	CategoryWaterLeak     = "water-leak"
	CategoryTrafficSignal = "traffic-signal"
	CategorySidewalk      = "sidewalk"
	CategoryGraffiti      = "graffiti"
	CategoryNoise         = "noise"
	CategoryOther         = "other"
)

// Report priorities.
const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// Report statuses. Any authorized status value may be set; there is no
// enforced transition table.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
)

// DefaultDepartment is the catch-all routing target for unmapped categories.
const DefaultDepartment = "City Management"

// categoryDepartments routes every category to exactly one department.
var categoryDepartments = map[string]string{
	CategoryPothole:       "Public Works",
	CategoryStreetlight:   "Public Works",
	CategoryGarbage:       "Environmental Services",
	CategoryWaterLeak:     "Water & Sewer",
	CategoryTrafficSignal: "Transportation",
	CategorySidewalk:      "Public Works",
	CategoryGraffiti:      "Code Enforcement",
	CategoryNoise:         "Police",
	CategoryOther:         DefaultDepartment,
}

// DepartmentFor resolves the department a category routes to. Unknown
// categories fall back to the catch-all department, never an error.
func DepartmentFor(category string) string {
	if dept, ok := categoryDepartments[category]; ok {
		return dept
	}
	return DefaultDepartment
}

// Location is the flattened geolocation block of a report.
type Location struct {
	Address      string  `json:"address" gorm:"size:500;not null"`
	Latitude     float64 `json:"latitude" gorm:"not null"`
	Longitude    float64 `json:"longitude" gorm:"not null"`
	Neighborhood string  `json:"neighborhood,omitempty" gorm:"size:255"`
	Ward         string  `json:"ward,omitempty" gorm:"size:255"`
}

// ReportImage is a stored reference to one uploaded attachment.
type ReportImage struct {
	URL        string    `json:"url"`
	Caption    string    `json:"caption,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Report is a civic-issue report submitted by a citizen.
type Report struct {
	ID          uint     `json:"id" gorm:"primaryKey"`
	Title       string   `json:"title" gorm:"size:200;not null"`
	Description string   `json:"description" gorm:"size:2000;not null"`
	Category    string   `json:"category" gorm:"size:50;not null;index"`
	Priority    string   `json:"priority" gorm:"size:20;default:'Low';index"`
	Status      string   `json:"status" gorm:"size:20;default:'pending';index"`
	Location    Location `json:"location" gorm:"embedded;embeddedPrefix:location_"`

	Images datatypes.JSONSlice[ReportImage] `json:"images"`

	ReportedBy uint  `json:"reported_by" gorm:"not null;index"`
	AssignedTo *uint `json:"assigned_to,omitempty"`

	Department string `json:"department" gorm:"size:100;not null"`

	EstimatedResolutionDate *time.Time `json:"estimated_resolution_date,omitempty"`
	ActualResolutionDate    *time.Time `json:"actual_resolution_date,omitempty"`
	ResolutionNotes         string     `json:"resolution_notes,omitempty" gorm:"size:2000"`

	IsAnonymous bool      `json:"is_anonymous" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ImageURLs returns the remote references of all stored images.
func (r *Report) ImageURLs() []string {
	urls := make([]string, 0, len(r.Images))
	for _, img := range r.Images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	return urls
}
