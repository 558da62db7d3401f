package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	apperrors "civicwatch/internal/errors"
	"civicwatch/internal/model"
	"civicwatch/internal/repository"
)

// MockReportRepository is a mock implementation of ReportRepository.
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, report *model.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) FindByID(ctx context.Context, id uint) (*model.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportRepository) List(ctx context.Context, filter repository.ReportFilter, page, limit int) ([]model.Report, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Report), args.Get(1).(int64), args.Error(2)
}

func (m *MockReportRepository) Update(ctx context.Context, report *model.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReportRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReportRepository) CountByField(ctx context.Context, field string) ([]repository.FieldCount, error) {
	args := m.Called(ctx, field)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.FieldCount), args.Error(1)
}

func (m *MockReportRepository) TopReporters(ctx context.Context, limit int) ([]repository.ReporterCount, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ReporterCount), args.Error(1)
}

// MockUploadService is a mock implementation of UploadService.
type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Upload(ctx context.Context, files []UploadFile) ([]model.ReportImage, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReportImage), args.Error(1)
}

func (m *MockUploadService) Discard(ctx context.Context, urls []string) {
	m.Called(ctx, urls)
}

// MockNotificationService is a mock implementation of NotificationService.
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) NotifyStatusChange(ctx context.Context, report *model.Report, oldStatus string) {
	m.Called(ctx, report, oldStatus)
}

func (m *MockNotificationService) ListForUser(ctx context.Context, userID uint) ([]model.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

func newReportFixture() (*MockReportRepository, *MockUploadService, *MockNotificationService, ReportService) {
	mockRepo := new(MockReportRepository)
	mockUploads := new(MockUploadService)
	mockNotifier := new(MockNotificationService)
	svc := NewReportService(mockRepo, mockUploads, mockNotifier, nil)
	return mockRepo, mockUploads, mockNotifier, svc
}

var (
	owner    = Actor{ID: 1, Role: model.RoleUser}
	stranger = Actor{ID: 2, Role: model.RoleUser}
	admin    = Actor{ID: 3, Role: model.RoleAdmin}
)

func validInput() ReportInput {
	return ReportInput{
		Title:       "Pothole on 5th Avenue",
		Description: "Deep pothole near the crosswalk",
		Category:    model.CategoryPothole,
		Location: model.Location{
			Address:   "5th Avenue & Main",
			Latitude:  40.7128,
			Longitude: -74.006,
		},
	}
}

func TestReportService_CreateDefaults(t *testing.T) {
	mockRepo, mockUploads, _, svc := newReportFixture()
	mockUploads.On("Upload", mock.Anything, mock.Anything).Return([]model.ReportImage{}, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Report")).Return(nil)

	report, err := svc.Create(context.Background(), owner, validInput())

	assert.NoError(t, err)
	assert.Equal(t, model.StatusPending, report.Status)
	assert.Equal(t, model.PriorityLow, report.Priority)
	assert.Equal(t, "Public Works", report.Department)
	assert.Equal(t, owner.ID, report.ReportedBy)
	mockRepo.AssertExpectations(t)
}

func TestReportService_CreateDepartmentRouting(t *testing.T) {
	tests := []struct {
		category   string
		department string
	}{
		{model.CategoryPothole, "Public Works"},
		{model.CategoryGarbage, "Environmental Services"},
		{model.CategoryWaterLeak, "Water & Sewer"},
		{model.CategoryTrafficSignal, "Transportation"},
		{model.CategoryGraffiti, "Code Enforcement"},
		{model.CategoryNoise, "Police"},
		{model.CategoryOther, model.DefaultDepartment},
		// Request validation normally rejects this; the routing table must
		// still fall back rather than fail.
		{"unknown-value", model.DefaultDepartment},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			mockRepo, mockUploads, _, svc := newReportFixture()
			mockUploads.On("Upload", mock.Anything, mock.Anything).Return([]model.ReportImage{}, nil)
			mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Report")).Return(nil)

			input := validInput()
			input.Category = tt.category

			report, err := svc.Create(context.Background(), owner, input)

			assert.NoError(t, err)
			assert.Equal(t, tt.department, report.Department)
		})
	}
}

func TestReportService_CreateRejectsOutOfRangeCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
	}{
		{"latitude too high", 91, 0},
		{"latitude too low", -91, 0},
		{"longitude too low", 0, -181},
		{"longitude too high", 0, 181},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo, mockUploads, _, svc := newReportFixture()

			input := validInput()
			input.Location.Latitude = tt.lat
			input.Location.Longitude = tt.lng

			_, err := svc.Create(context.Background(), owner, input)

			var validationErr *apperrors.ValidationError
			assert.ErrorAs(t, err, &validationErr)
			// Rejected before any upload or persistence happens.
			mockUploads.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestReportService_CreatePersistFailureDiscardsUploads(t *testing.T) {
	mockRepo, mockUploads, _, svc := newReportFixture()
	images := []model.ReportImage{{URL: "https://img.example/1"}}
	mockUploads.On("Upload", mock.Anything, mock.Anything).Return(images, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Report")).Return(errors.New("db down"))
	mockUploads.On("Discard", mock.Anything, []string{"https://img.example/1"}).Return()

	input := validInput()
	input.Files = []UploadFile{{Name: "a.jpg", ContentType: "image/jpeg", Data: []byte("x")}}

	_, err := svc.Create(context.Background(), owner, input)

	assert.Error(t, err)
	mockUploads.AssertExpectations(t)
}

func TestReportService_GetByIDAuthorization(t *testing.T) {
	stored := &model.Report{ID: 10, ReportedBy: owner.ID, Status: model.StatusPending}

	tests := []struct {
		name          string
		actor         Actor
		expectedError error
	}{
		{"owner can read", owner, nil},
		{"admin can read", admin, nil},
		{"stranger is forbidden", stranger, apperrors.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo, _, _, svc := newReportFixture()
			mockRepo.On("FindByID", mock.Anything, uint(10)).Return(stored, nil)

			report, err := svc.GetByID(context.Background(), tt.actor, 10)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, report)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, stored.ID, report.ID)
			}
		})
	}
}

func TestReportService_GetByIDNotFound(t *testing.T) {
	mockRepo, _, _, svc := newReportFixture()
	mockRepo.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.GetByID(context.Background(), owner, 99)

	// Missing reports are 404, distinct from the 403 access denial.
	assert.ErrorIs(t, err, apperrors.ErrReportNotFound)
	assert.NotErrorIs(t, err, apperrors.ErrForbidden)
}

func TestReportService_UpdateAuthorization(t *testing.T) {
	t.Run("stranger cannot update", func(t *testing.T) {
		mockRepo, _, _, svc := newReportFixture()
		mockRepo.On("FindByID", mock.Anything, uint(10)).
			Return(&model.Report{ID: 10, ReportedBy: owner.ID}, nil)

		_, err := svc.Update(context.Background(), stranger, 10, validInput())

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("owner cannot change status", func(t *testing.T) {
		mockRepo, _, _, svc := newReportFixture()
		mockRepo.On("FindByID", mock.Anything, uint(10)).
			Return(&model.Report{ID: 10, ReportedBy: owner.ID, Status: model.StatusPending}, nil)

		input := validInput()
		input.Status = model.StatusResolved

		_, err := svc.Update(context.Background(), owner, 10, input)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("owner cannot change priority", func(t *testing.T) {
		mockRepo, _, _, svc := newReportFixture()
		mockRepo.On("FindByID", mock.Anything, uint(10)).
			Return(&model.Report{ID: 10, ReportedBy: owner.ID, Priority: model.PriorityLow}, nil)

		input := validInput()
		input.Priority = model.PriorityCritical

		_, err := svc.Update(context.Background(), owner, 10, input)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("owner can edit content", func(t *testing.T) {
		mockRepo, _, _, svc := newReportFixture()
		mockRepo.On("FindByID", mock.Anything, uint(10)).
			Return(&model.Report{ID: 10, ReportedBy: owner.ID, Status: model.StatusPending, Priority: model.PriorityLow}, nil)
		mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.Report")).Return(nil)

		report, err := svc.Update(context.Background(), owner, 10, validInput())

		assert.NoError(t, err)
		assert.Equal(t, "Pothole on 5th Avenue", report.Title)
	})
}

func TestReportService_AdminStatusChangeNotifiesOwner(t *testing.T) {
	mockRepo, _, mockNotifier, svc := newReportFixture()
	mockRepo.On("FindByID", mock.Anything, uint(10)).
		Return(&model.Report{ID: 10, ReportedBy: owner.ID, Status: model.StatusPending, Priority: model.PriorityLow}, nil)
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.Report")).Return(nil)
	mockNotifier.On("NotifyStatusChange", mock.Anything, mock.AnythingOfType("*model.Report"), model.StatusPending).Return()

	input := validInput()
	input.Status = model.StatusResolved

	report, err := svc.Update(context.Background(), admin, 10, input)

	assert.NoError(t, err)
	assert.Equal(t, model.StatusResolved, report.Status)
	assert.NotNil(t, report.ActualResolutionDate)
	mockNotifier.AssertExpectations(t)
}

func TestReportService_UpdateReplacesImagesWholesale(t *testing.T) {
	mockRepo, mockUploads, _, svc := newReportFixture()
	mockRepo.On("FindByID", mock.Anything, uint(10)).Return(&model.Report{
		ID:         10,
		ReportedBy: owner.ID,
		Status:     model.StatusPending,
		Priority:   model.PriorityLow,
		Images:     []model.ReportImage{{URL: "https://img.example/old"}},
	}, nil)
	mockUploads.On("Discard", mock.Anything, []string{"https://img.example/old"}).Return()
	newImages := []model.ReportImage{{URL: "https://img.example/new"}}
	mockUploads.On("Upload", mock.Anything, mock.Anything).Return(newImages, nil)
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.Report")).Return(nil)

	input := validInput()
	input.Files = []UploadFile{{Name: "new.jpg", ContentType: "image/jpeg", Data: []byte("x")}}

	report, err := svc.Update(context.Background(), owner, 10, input)

	assert.NoError(t, err)
	assert.Equal(t, "https://img.example/new", report.Images[0].URL)
	mockUploads.AssertExpectations(t)
}

func TestReportService_DeleteCascadesToImages(t *testing.T) {
	t.Run("owner deletes with image cleanup", func(t *testing.T) {
		mockRepo, mockUploads, _, svc := newReportFixture()
		mockRepo.On("FindByID", mock.Anything, uint(10)).Return(&model.Report{
			ID:         10,
			ReportedBy: owner.ID,
			Images:     []model.ReportImage{{URL: "https://img.example/1"}, {URL: "https://img.example/2"}},
		}, nil)
		mockUploads.On("Discard", mock.Anything, []string{"https://img.example/1", "https://img.example/2"}).Return()
		mockRepo.On("Delete", mock.Anything, uint(10)).Return(nil)

		err := svc.Delete(context.Background(), owner, 10)

		assert.NoError(t, err)
		mockUploads.AssertExpectations(t)
		mockRepo.AssertExpectations(t)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		mockRepo, mockUploads, _, svc := newReportFixture()
		mockRepo.On("FindByID", mock.Anything, uint(10)).
			Return(&model.Report{ID: 10, ReportedBy: owner.ID}, nil)

		err := svc.Delete(context.Background(), stranger, 10)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mockUploads.AssertNotCalled(t, "Discard", mock.Anything, mock.Anything)
	})
}

func TestReportService_ListPagination(t *testing.T) {
	mockRepo, _, _, svc := newReportFixture()
	lastPage := make([]model.Report, 5)
	mockRepo.On("List", mock.Anything, repository.ReportFilter{ReportedBy: owner.ID}, 2, 10).
		Return(lastPage, int64(15), nil)

	result, err := svc.List(context.Background(), owner, repository.ReportFilter{}, 2, 10)

	assert.NoError(t, err)
	assert.Len(t, result.Reports, 5)
	assert.Equal(t, int64(15), result.Total)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 2, result.TotalPages)
}

func TestReportService_ListScopesNonAdminsToOwnReports(t *testing.T) {
	mockRepo, _, _, svc := newReportFixture()
	// The admin filter passes through untouched; the user filter gains an
	// owner scope.
	mockRepo.On("List", mock.Anything, repository.ReportFilter{Status: model.StatusPending}, 1, 10).
		Return([]model.Report{}, int64(0), nil).Once()
	mockRepo.On("List", mock.Anything, repository.ReportFilter{Status: model.StatusPending, ReportedBy: owner.ID}, 1, 10).
		Return([]model.Report{}, int64(0), nil).Once()

	_, err := svc.List(context.Background(), admin, repository.ReportFilter{Status: model.StatusPending}, 0, 0)
	assert.NoError(t, err)
	_, err = svc.List(context.Background(), owner, repository.ReportFilter{Status: model.StatusPending}, 0, 0)
	assert.NoError(t, err)

	mockRepo.AssertExpectations(t)
}

func TestReportService_AnalyticsIsAdminOnly(t *testing.T) {
	t.Run("non-admin is forbidden", func(t *testing.T) {
		mockRepo, _, _, svc := newReportFixture()

		_, err := svc.GetAnalytics(context.Background(), owner)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "Count", mock.Anything)
	})

	t.Run("admin gets live projection", func(t *testing.T) {
		mockRepo, _, _, svc := newReportFixture()
		mockRepo.On("Count", mock.Anything).Return(int64(3), nil)
		mockRepo.On("CountByField", mock.Anything, "status").
			Return([]repository.FieldCount{{Value: model.StatusPending, Count: 2}, {Value: model.StatusResolved, Count: 1}}, nil)
		mockRepo.On("CountByField", mock.Anything, "category").
			Return([]repository.FieldCount{{Value: model.CategoryPothole, Count: 3}}, nil)
		mockRepo.On("CountByField", mock.Anything, "priority").
			Return([]repository.FieldCount{{Value: model.PriorityLow, Count: 3}}, nil)
		mockRepo.On("TopReporters", mock.Anything, 10).
			Return([]repository.ReporterCount{{ReportedBy: owner.ID, Count: 3}}, nil)

		analytics, err := svc.GetAnalytics(context.Background(), admin)

		assert.NoError(t, err)
		assert.Equal(t, int64(3), analytics.TotalReports)
		assert.Len(t, analytics.ByStatus, 2)
		assert.Equal(t, owner.ID, analytics.TopReporters[0].ReportedBy)
		mockRepo.AssertExpectations(t)
	})
}
