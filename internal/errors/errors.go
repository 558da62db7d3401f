package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned for a lookup miss or password
	// mismatch. The message is deliberately identical for both cases.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when the email or username is taken.
	ErrUserAlreadyExists = errors.New("user with this email or username already exists")
	// ErrInvalidRefreshToken is returned when a refresh token is malformed,
	// expired, or no longer matches the stored hash.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrInvalidAccessToken is returned for a bad or expired access token.
	ErrInvalidAccessToken = errors.New("invalid or expired access token")
	// ErrForbidden is returned when an authenticated actor is not authorized.
	ErrForbidden = errors.New("not authorized to perform this action")
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrReportNotFound is returned when a report id does not resolve.
	ErrReportNotFound = errors.New("report not found")
	// ErrNotificationNotFound is returned when a notification id does not resolve.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrMissingSecret is returned when a token signing secret is not configured.
	ErrMissingSecret = errors.New("token signing secret is not configured")
)

// ValidationError reports malformed input detected before persistence.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// EmptyFileError identifies the empty attachment that failed an upload batch.
type EmptyFileError struct {
	Index int
	Name  string
}

func (e *EmptyFileError) Error() string {
	return fmt.Sprintf("file[%d] %s is empty", e.Index, e.Name)
}

// UploadFailedError names the attachment whose remote upload failed.
type UploadFailedError struct {
	Name string
	Err  error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("failed to upload file %s", e.Name)
}

func (e *UploadFailedError) Unwrap() error { return e.Err }

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Internal detail is never
// forwarded to the client for unexpected failures.
func MapErrorToHTTP(err error) *HTTPError {
	var validationErr *ValidationError
	var emptyFileErr *EmptyFileError
	var uploadErr *UploadFailedError

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUserAlreadyExists):
		return NewHTTPError(http.StatusConflict, err.Error(), "USER_ALREADY_EXISTS")
	case errors.Is(err, ErrInvalidRefreshToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_REFRESH_TOKEN")
	case errors.Is(err, ErrInvalidAccessToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_ACCESS_TOKEN")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrReportNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "REPORT_NOT_FOUND")
	case errors.Is(err, ErrNotificationNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOTIFICATION_NOT_FOUND")
	case errors.Is(err, ErrMissingSecret):
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "CONFIG_ERROR")
	case errors.As(err, &emptyFileErr):
		return NewHTTPError(http.StatusBadRequest, emptyFileErr.Error(), "EMPTY_FILE")
	case errors.As(err, &validationErr):
		return NewHTTPError(http.StatusBadRequest, validationErr.Error(), "VALIDATION_FAILED")
	case errors.As(err, &uploadErr):
		return NewHTTPError(http.StatusInternalServerError, uploadErr.Error(), "UPLOAD_FAILED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
