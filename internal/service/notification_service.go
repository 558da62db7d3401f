package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	apperrors "civicwatch/internal/errors"
	"civicwatch/internal/model"
	"civicwatch/internal/queue"
	"civicwatch/internal/repository"
)

// StatusPublisher is the broker boundary; nil disables event publishing.
type StatusPublisher interface {
	PublishStatusChanged(ctx context.Context, event queue.StatusChangedEvent) error
}

// NotificationService delivers in-app notifications to report owners and
// mirrors status changes onto the event queue. Delivery is best-effort
// relative to the mutation that triggered it.
type NotificationService interface {
	NotifyStatusChange(ctx context.Context, report *model.Report, oldStatus string)
	ListForUser(ctx context.Context, userID uint) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uint) error
}

type notificationService struct {
	notifications repository.NotificationRepository
	publisher     StatusPublisher
}

// NewNotificationService builds the notification service.
func NewNotificationService(notifications repository.NotificationRepository, publisher StatusPublisher) NotificationService {
	return &notificationService{notifications: notifications, publisher: publisher}
}

// NotifyStatusChange records a notification for the report owner and emits a
// queue event. Failures are logged; the owning update has already succeeded.
func (s *notificationService) NotifyStatusChange(ctx context.Context, report *model.Report, oldStatus string) {
	notification := &model.Notification{
		UserID:  report.ReportedBy,
		Message: fmt.Sprintf("Your report %q moved from %s to %s", report.Title, oldStatus, report.Status),
		Type:    model.NotificationStatusUpdate,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		log.Printf("notification: create for report %d: %v", report.ID, err)
	}

	if s.publisher == nil {
		return
	}
	_ = s.publisher.PublishStatusChanged(ctx, queue.StatusChangedEvent{
		ReportID:   report.ID,
		OwnerID:    report.ReportedBy,
		OldStatus:  oldStatus,
		NewStatus:  report.Status,
		Department: report.Department,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *notificationService) ListForUser(ctx context.Context, userID uint) ([]model.Notification, error) {
	return s.notifications.ListByUser(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	err := s.notifications.MarkRead(ctx, notificationID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotificationNotFound
	}
	return err
}
