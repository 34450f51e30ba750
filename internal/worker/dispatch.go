package worker

import (
	"context"
	"log/slog"

	"gallery-backend/internal/models"
	"gallery-backend/pkg/logger"
)

// Publisher puts a job message on the task queue.
type Publisher interface {
	Publish(ctx context.Context, msg models.TaskMessage) error
}

// Dispatcher emits the post-upload jobs for new photos. It never waits for
// the jobs and never reports their results.
type Dispatcher struct {
	pub Publisher
	log *slog.Logger
}

func NewDispatcher(pub Publisher) *Dispatcher {
	return &Dispatcher{pub: pub, log: logger.Component("dispatcher")}
}

// DispatchPostUploadTasks enqueues every post-upload job for photoID. A
// failed publish is logged and the remaining jobs are still sent.
func (d *Dispatcher) DispatchPostUploadTasks(ctx context.Context, photoID int64) {
	for _, job := range models.PostUploadJobs {
		msg := models.TaskMessage{Job: job, PhotoID: photoID}
		if err := d.pub.Publish(ctx, msg); err != nil {
			d.log.Error("failed to dispatch job", "job", job, "photo_id", photoID, "error", err)
		}
	}
}
