package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/platform/mailer"
	"github.com/phrazzld/teamtask-api/internal/realtime"
	"github.com/phrazzld/teamtask-api/internal/worker"
)

// Job names used in delivery logs.
const (
	JobRealtimeDelivery = "notification_realtime"
	JobEmailDelivery    = "notification_email"
)

// RealtimePublisher pushes an event to a user's open connections.
type RealtimePublisher interface {
	Emit(userID uuid.UUID, event string, payload interface{}) error
}

// JobSubmitter queues background work.
type JobSubmitter interface {
	Submit(job worker.Job) error
}

type realtimeJob struct {
	publisher    RealtimePublisher
	notification *domain.Notification
}

func (j *realtimeJob) Name() string { return JobRealtimeDelivery }

func (j *realtimeJob) Run(ctx context.Context) error {
	err := j.publisher.Emit(j.notification.RecipientID, realtime.EventNotification, j.notification)
	if errors.Is(err, realtime.ErrNoConnection) {
		logger.FromContext(ctx).Debug("recipient offline, skipping real-time delivery",
			"notification_id", j.notification.ID,
			"recipient_id", j.notification.RecipientID)
		return nil
	}
	return err
}

type emailJob struct {
	sender  mailer.Sender
	message mailer.Message
	id      uuid.UUID
}

func (j *emailJob) Name() string { return JobEmailDelivery }

func (j *emailJob) Run(ctx context.Context) error {
	if err := j.sender.Send(ctx, j.message); err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("notification email sent", "notification_id", j.id)
	return nil
}
