package runtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"

	"taskloom/internal/logging"
)

// Consumer subscribes a Worker to one or more queues and runs every message
// it receives, acking, terming, or nak-ing depending on how the step failed.
type Consumer struct {
	engine Engine
	worker *Worker
	queues []string
}

func NewConsumer(engine Engine, worker *Worker, queues []string) *Consumer {
	return &Consumer{engine: engine, worker: worker, queues: queues}
}

// Start subscribes to every configured queue. Each queue's pull loop runs in
// its own goroutine (started by Engine.Subscribe); Start itself returns once
// every subscription is registered.
func (c *Consumer) Start(ctx context.Context) error {
	for _, queue := range c.queues {
		queue := queue
		if err := c.engine.Subscribe(queue, func(msg *nats.Msg) {
			c.handle(ctx, msg)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg *nats.Msg) {
	var task Task
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		logging.Error("runtime: discarding unparseable task message: %v", err)
		_ = msg.Term()
		return
	}

	attempt := 1
	if meta, metaErr := msg.Metadata(); metaErr == nil {
		attempt = int(meta.NumDelivered)
	}

	err := c.worker.Run(ctx, task, attempt, MaxDeliver)
	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.Is(err, ErrPrerequisiteFailed):
		// Fatal for this step: retrying would fail identically.
		logging.Error("runtime: task %s terminal prerequisite failure: %v", task.TaskID, err)
		_ = msg.Term()
	default:
		logging.Error("runtime: task %s failed, will retry: %v", task.TaskID, err)
		_ = msg.Nak()
	}
}
