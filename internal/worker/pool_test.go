package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"gallery-backend/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type recordingAck struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *recordingAck) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !requeue {
		a.nacked = append(a.nacked, tag)
	}
	return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type recordingRunner struct {
	mu   sync.Mutex
	msgs []models.TaskMessage
}

func (r *recordingRunner) Run(ctx context.Context, msg models.TaskMessage) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	if msg.PhotoID == 2 {
		return Failed(assert.AnError)
	}
	return OK()
}

type panickingRunner struct {
	recordingRunner
}

func (r *panickingRunner) Run(ctx context.Context, msg models.TaskMessage) Outcome {
	if msg.PhotoID == 7 {
		panic("decoder bug")
	}
	return r.recordingRunner.Run(ctx, msg)
}

func TestPoolRecoversFromPanickingJob(t *testing.T) {
	ack := &recordingAck{}
	runner := &panickingRunner{}
	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{"job":"generate_thumbnail","photo_id":7}`)}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`{"job":"generate_thumbnail","photo_id":8}`)}
	close(deliveries)

	NewPool(runner, 1, time.Second).Serve(context.Background(), deliveries)

	assert.Equal(t, []uint64{1, 2}, ack.acked)
	assert.Empty(t, ack.nacked)
	assert.Len(t, runner.msgs, 1)
}

func TestPoolRunReportsPanicAsFailure(t *testing.T) {
	pool := NewPool(&panickingRunner{}, 1, time.Second)

	out := pool.run(context.Background(), models.TaskMessage{Job: models.JobExif, PhotoID: 7})

	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, "err:panic: decoder bug", out.Render())
}

func TestPoolAcksAfterOutcomeAndRejectsGarbage(t *testing.T) {
	ack := &recordingAck{}
	runner := &recordingRunner{}
	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{"job":"extract_exif","photo_id":1}`)}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`{"job":"extract_exif","photo_id":2}`)}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte(`{{{`)}
	close(deliveries)

	done := make(chan struct{})
	go func() {
		NewPool(runner, 2, time.Second).Serve(context.Background(), deliveries)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not stop after deliveries closed")
	}

	assert.ElementsMatch(t, []uint64{1, 2}, ack.acked)
	assert.Equal(t, []uint64{3}, ack.nacked)
	assert.Len(t, runner.msgs, 2)
}

func TestPoolStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	deliveries := make(chan amqp.Delivery)

	done := make(chan struct{})
	go func() {
		NewPool(&recordingRunner{}, 3, time.Second).Serve(ctx, deliveries)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not stop after cancel")
	}
}

type fakePublisher struct {
	msgs []models.TaskMessage
	fail models.JobName
}

func (p *fakePublisher) Publish(ctx context.Context, msg models.TaskMessage) error {
	if msg.Job == p.fail {
		return assert.AnError
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestDispatchPostUploadTasks(t *testing.T) {
	pub := &fakePublisher{}
	NewDispatcher(pub).DispatchPostUploadTasks(context.Background(), 42)

	assert.Equal(t, []models.TaskMessage{
		{Job: models.JobThumbnail, PhotoID: 42},
		{Job: models.JobExif, PhotoID: 42},
		{Job: models.JobLabels, PhotoID: 42},
		{Job: models.JobFaces, PhotoID: 42},
	}, pub.msgs)
}

func TestDispatchContinuesAfterPublishFailure(t *testing.T) {
	pub := &fakePublisher{fail: models.JobExif}
	NewDispatcher(pub).DispatchPostUploadTasks(context.Background(), 7)

	assert.Len(t, pub.msgs, 3)
}
