package service

import (
	"context"
	"time"

	"support_chat/pkg/logger"
)

// CleanupJob периодически удаляет прочитанные уведомления старше срока хранения
type CleanupJob struct {
	notifications NotificationService
	retention     time.Duration
	interval      time.Duration
	now           func() time.Time
	log           logger.Logger
}

func NewCleanupJob(notifications NotificationService, retention, interval time.Duration, log logger.Logger) *CleanupJob {
	return &CleanupJob{
		notifications: notifications,
		retention:     retention,
		interval:      interval,
		now:           utcNow,
		log:           log,
	}
}

// Run выполняет очистку сразу и затем по таймеру, пока ctx не отменен
func (j *CleanupJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-ctx.Done():
			j.log.Info("Notification cleanup job stopped")
			return
		}
	}
}

func (j *CleanupJob) RunOnce(ctx context.Context) int64 {
	cutoff := j.now().Add(-j.retention)

	deleted, err := j.notifications.Cleanup(ctx, cutoff)
	if err != nil {
		j.log.Error("Notification cleanup failed", "error", err)
		return 0
	}
	return deleted
}
