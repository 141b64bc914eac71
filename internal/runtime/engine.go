// Package runtime implements the distributed task engine: the JetStream-
// backed queue (Engine), the level-by-level Dispatcher that submits steps to
// it, and the Worker/Consumer pair that pulls and executes them.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"taskloom/internal/logging"
	"taskloom/internal/workflows"
)

// MaxDeliver is the redelivery ceiling for every pull-consumer: a task is
// attempted at most this many times before the broker stops redelivering it.
// Worker.Run uses it to decide whether a retryable failure is terminal.
const MaxDeliver = 3

// TaskState is the terminal or in-flight state of a submitted task, as
// observed through the queue backend.
type TaskState struct {
	Ready      bool
	Successful bool
	Result     json.RawMessage
	Err        string
}

// Engine is the distributed queue abstraction a Dispatcher and Worker talk
// to. It stands in for the spec's broker-agnostic TaskBackend collaborator;
// NATSEngine is the only implementation, but callers only depend on this
// interface so a different broker could be swapped in without touching
// dispatch or worker logic.
type Engine interface {
	Submit(ctx context.Context, queue string, taskID string, task json.RawMessage) error
	SetResult(ctx context.Context, taskID string, result json.RawMessage, taskErr error) error
	Result(ctx context.Context, taskID string) (TaskState, error)
	Subscribe(queue string, handler func(msg *nats.Msg)) error
	Close()
}

// Options configures a NATSEngine.
type Options struct {
	URL           string // empty => start an embedded in-process server
	StoreDir      string // embedded server's JetStream storage dir; empty => memory-backed
	Stream        string
	SubjectPrefix string
}

func (o Options) withDefaults() Options {
	if o.Stream == "" {
		o.Stream = "TASKLOOM_TASKS"
	}
	if o.SubjectPrefix == "" {
		o.SubjectPrefix = "taskloom"
	}
	return o
}

// NATSEngine backs Engine with an embedded-or-external NATS JetStream
// broker. Results are kept in a JetStream KV bucket so GET /api/results can
// poll them regardless of which worker process completed the task.
type NATSEngine struct {
	opts   Options
	server *natsserver.Server
	conn   *nats.Conn
	js     nats.JetStreamContext
	kv     nats.KeyValue
}

// NewEngine connects to opts.URL, or starts an embedded JetStream-enabled
// server when opts.URL is empty.
func NewEngine(opts Options) (*NATSEngine, error) {
	opts = opts.withDefaults()
	engine := &NATSEngine{opts: opts}

	if opts.URL == "" {
		srv, err := natsserver.NewServer(&natsserver.Options{
			Port:      -1,
			JetStream: true,
			StoreDir:  opts.StoreDir,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded nats: %w", err)
		}
		go srv.Start()
		if !srv.ReadyForConnections(5 * time.Second) {
			return nil, fmt.Errorf("embedded nats failed to start")
		}
		engine.server = srv
		engine.opts.URL = fmt.Sprintf("nats://%s", srv.Addr().String())
	}

	conn, err := nats.Connect(engine.opts.URL)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	engine.conn = conn

	js, err := conn.JetStream()
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to init jetstream: %w", err)
	}
	engine.js = js

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     opts.Stream,
		Subjects: []string{fmt.Sprintf("%s.queue.>", opts.SubjectPrefix)},
		Storage:  nats.FileStorage,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		engine.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	kv, err := js.CreateKeyValue(&nats.KeyValueConfig{Bucket: "taskloom_results"})
	if err != nil {
		kv, err = js.KeyValue("taskloom_results")
		if err != nil {
			engine.Close()
			return nil, fmt.Errorf("failed to init results kv: %w", err)
		}
	}
	engine.kv = kv

	return engine, nil
}

func (e *NATSEngine) subject(queue string) string {
	return fmt.Sprintf("%s.queue.%s", e.opts.SubjectPrefix, queue)
}

// Submit publishes a task onto the named queue's JetStream subject and
// records it as pending in the results store. The message carries an
// idempotency-key header (workflow id + task id + attempt) so a consumer or
// downstream system can recognize redelivery of the same logical attempt.
func (e *NATSEngine) Submit(ctx context.Context, queue string, taskID string, task json.RawMessage) error {
	if err := e.kv.Put(taskID, mustJSON(TaskState{Ready: false})); err != nil {
		return fmt.Errorf("failed to record pending task: %w", err)
	}

	msg := &nats.Msg{Subject: e.subject(queue), Data: task}
	if workflowID := workflowIDFromTask(task); workflowID != "" {
		msg.Header = nats.Header{}
		msg.Header.Set("Taskloom-Idempotency-Key", workflows.IdempotencyKey(workflowID, taskID, 1))
	}

	_, err := e.js.PublishMsg(msg, nats.Context(ctx))
	if err != nil {
		logging.Error("runtime: failed to publish task %s to queue %s: %v", taskID, queue, err)
	}
	return err
}

func workflowIDFromTask(task json.RawMessage) string {
	var envelope struct {
		WorkflowID string `json:"workflow_id"`
	}
	if err := json.Unmarshal(task, &envelope); err != nil {
		return ""
	}
	return envelope.WorkflowID
}

// SetResult records a task's terminal outcome, making it visible to Result.
func (e *NATSEngine) SetResult(ctx context.Context, taskID string, result json.RawMessage, taskErr error) error {
	state := TaskState{Ready: true, Successful: taskErr == nil, Result: result}
	if taskErr != nil {
		state.Err = taskErr.Error()
	}
	_, err := e.kv.Put(taskID, mustJSON(state))
	return err
}

// Result returns the current state of taskID.
func (e *NATSEngine) Result(ctx context.Context, taskID string) (TaskState, error) {
	entry, err := e.kv.Get(taskID)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return TaskState{}, nil
		}
		return TaskState{}, err
	}

	var state TaskState
	if err := json.Unmarshal(entry.Value(), &state); err != nil {
		return TaskState{}, err
	}
	return state, nil
}

// Subscribe registers a durable pull-consumer handler for queue and starts
// pulling messages for it in a background goroutine.
func (e *NATSEngine) Subscribe(queue string, handler func(msg *nats.Msg)) error {
	subject := e.subject(queue)
	consumerName := fmt.Sprintf("worker-%s", queue)

	sub, err := e.js.PullSubscribe(
		subject,
		consumerName,
		nats.AckExplicit(),
		nats.ManualAck(),
		nats.DeliverAll(),
		nats.MaxDeliver(MaxDeliver),
		nats.AckWait(2*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("jetstream pull subscribe failed: %w", err)
	}

	go e.pullFetchLoop(sub, handler)
	return nil
}

func (e *NATSEngine) pullFetchLoop(sub *nats.Subscription, handler func(msg *nats.Msg)) {
	for {
		if !sub.IsValid() {
			return
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrConsumerDeleted) {
				return
			}
			logging.Error("runtime: fetch error on %s: %v", sub.Subject, err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for _, msg := range msgs {
			handler(msg)
		}
	}
}

func (e *NATSEngine) Close() {
	if e == nil {
		return
	}
	if e.conn != nil {
		e.conn.Drain()
		e.conn.Close()
	}
	if e.server != nil {
		e.server.Shutdown()
	}
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
