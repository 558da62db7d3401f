package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "civicwatch/internal/errors"
)

// MockObjectStore is a mock implementation of storage.ObjectStore.
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func TestUploadService_EmptyBatch(t *testing.T) {
	mockStore := new(MockObjectStore)

	svc := NewUploadService(mockStore)
	images, err := svc.Upload(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, images)
	mockStore.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadService_EmptyBlobFailsWholeBatch(t *testing.T) {
	mockStore := new(MockObjectStore)

	svc := NewUploadService(mockStore)
	images, err := svc.Upload(context.Background(), []UploadFile{
		{Name: "a.jpg", ContentType: "image/jpeg", Data: []byte("valid")},
		{Name: "b.jpg", ContentType: "image/jpeg", Data: nil},
	})

	assert.Nil(t, images)
	var emptyErr *apperrors.EmptyFileError
	assert.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, 1, emptyErr.Index)
	assert.Equal(t, "b.jpg", emptyErr.Name)
	// Validation runs before anything is sent to remote storage.
	mockStore.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadService_PreservesInputOrder(t *testing.T) {
	mockStore := new(MockObjectStore)
	mockStore.On("Store", mock.Anything, []byte("first"), "image/jpeg").Return("https://img.example/1", nil)
	mockStore.On("Store", mock.Anything, []byte("second"), "image/png").Return("https://img.example/2", nil)
	mockStore.On("Store", mock.Anything, []byte("third"), "image/jpeg").Return("https://img.example/3", nil)

	svc := NewUploadService(mockStore)
	images, err := svc.Upload(context.Background(), []UploadFile{
		{Name: "a.jpg", ContentType: "image/jpeg", Data: []byte("first")},
		{Name: "b.png", ContentType: "image/png", Data: []byte("second")},
		{Name: "c.jpg", ContentType: "image/jpeg", Data: []byte("third")},
	})

	assert.NoError(t, err)
	assert.Len(t, images, 3)
	assert.Equal(t, "https://img.example/1", images[0].URL)
	assert.Equal(t, "https://img.example/2", images[1].URL)
	assert.Equal(t, "https://img.example/3", images[2].URL)
	mockStore.AssertExpectations(t)
}

func TestUploadService_RemoteFailureFailsBatchAndCleansUp(t *testing.T) {
	mockStore := new(MockObjectStore)
	mockStore.On("Store", mock.Anything, []byte("good"), "image/jpeg").Return("https://img.example/good", nil).Maybe()
	mockStore.On("Store", mock.Anything, []byte("bad"), "image/jpeg").Return("", errors.New("connection reset"))
	// Best-effort cleanup of the sibling that did land.
	mockStore.On("Delete", mock.Anything, "https://img.example/good").Return(nil).Maybe()

	svc := NewUploadService(mockStore)
	images, err := svc.Upload(context.Background(), []UploadFile{
		{Name: "good.jpg", ContentType: "image/jpeg", Data: []byte("good")},
		{Name: "bad.jpg", ContentType: "image/jpeg", Data: []byte("bad")},
	})

	assert.Nil(t, images)
	var uploadErr *apperrors.UploadFailedError
	assert.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "bad.jpg", uploadErr.Name)
}

func TestUploadService_DiscardSwallowsFailures(t *testing.T) {
	mockStore := new(MockObjectStore)
	mockStore.On("Delete", mock.Anything, "https://img.example/1").Return(errors.New("gone already"))
	mockStore.On("Delete", mock.Anything, "https://img.example/2").Return(nil)

	svc := NewUploadService(mockStore)
	// Must not panic or propagate the failure.
	svc.Discard(context.Background(), []string{"https://img.example/1", "", "https://img.example/2"})

	mockStore.AssertExpectations(t)
}
