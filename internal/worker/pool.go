package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"gallery-backend/internal/models"
	"gallery-backend/internal/queue/rabbitmq"
	"gallery-backend/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Runner executes one job message.
type Runner interface {
	Run(ctx context.Context, msg models.TaskMessage) Outcome
}

// Pool runs deliveries on a fixed number of goroutines. A delivery is acked
// once its job returned an outcome, whatever the outcome; undecodable
// deliveries are rejected without requeue.
type Pool struct {
	runner  Runner
	size    int
	timeout time.Duration
	log     *slog.Logger
}

func NewPool(runner Runner, size int, timeout time.Duration) *Pool {
	if size <= 0 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Pool{runner: runner, size: size, timeout: timeout, log: logger.Component("pool")}
}

// Serve blocks until deliveries is closed or ctx is done, then waits for
// in-flight jobs to finish.
func (p *Pool) Serve(ctx context.Context, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.log.Debug("worker started", "worker", workerID)
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					p.handle(workerID, d)
				}
			}
		}(i + 1)
	}
	wg.Wait()
}

func (p *Pool) handle(workerID int, d amqp.Delivery) {
	msg, err := rabbitmq.DecodeTask(d.Body)
	if err != nil {
		p.log.Warn("discarding invalid message", "worker", workerID, "error", err)
		if err := d.Nack(false, false); err != nil {
			p.log.Error("failed to nack", "error", err)
		}
		return
	}

	// In-flight jobs are not cancelled on shutdown; only the job timeout bounds them.
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	start := time.Now()
	outcome := p.run(ctx, msg)
	cancel()

	p.log.Info("job finished",
		"worker", workerID,
		"job", msg.Job,
		"photo_id", msg.PhotoID,
		"outcome", outcome.Render(),
		"duration", time.Since(start),
	)
	if err := d.Ack(false); err != nil {
		p.log.Error("failed to ack", "job", msg.Job, "photo_id", msg.PhotoID, "error", err)
	}
}

// run converts a panicking job into a failed outcome so the delivery is
// still acked and the process keeps serving.
func (p *Pool) run(ctx context.Context, msg models.TaskMessage) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("job panicked",
				"job", msg.Job,
				"photo_id", msg.PhotoID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			outcome = Failed(fmt.Errorf("panic: %v", r))
		}
	}()
	return p.runner.Run(ctx, msg)
}
