// Package queue starts workflow executions from messages pushed onto a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowgraph/pkg/protocol"
	redis "github.com/redis/go-redis/v9"
)

const DefaultQueue = "flowgraph:executions"

var ErrInvalidMessage = errors.New("invalid queue message")

// Message is the payload expected on the queue.
type Message struct {
	WorkflowID string `json:"workflow_id"`
	Data       any    `json:"data,omitempty"`
}

// DecodeMessage parses a raw queue entry.
func DecodeMessage(raw string) (*Message, error) {
	var message Message

	err := json.Unmarshal([]byte(raw), &message)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if message.WorkflowID == "" {
		return nil, fmt.Errorf("%w: workflow_id is required", ErrInvalidMessage)
	}

	return &message, nil
}

type Trigger struct {
	client      redis.UniversalClient
	queue       string
	pollTimeout time.Duration
	logger      *slog.Logger

	callback protocol.TriggerCallback
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewTrigger(client redis.UniversalClient, queue string, logger *slog.Logger) *Trigger {
	if queue == "" {
		queue = DefaultQueue
	}

	return &Trigger{
		client:      client,
		queue:       queue,
		pollTimeout: time.Second,
		stopCh:      make(chan struct{}),
		logger: logger.With(
			"module", "queue_trigger",
			"queue", queue,
		),
	}
}

// NewClient builds a Redis client from a redis:// URL.
func NewClient(url string) (redis.UniversalClient, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return redis.NewClient(options), nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := t.client.Ping(pingCtx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	t.logger.InfoContext(ctx, "Starting queue trigger")
	t.callback = callback

	t.wg.Add(1)

	go t.consume(context.WithoutCancel(ctx))

	return nil
}

func (t *Trigger) consume(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case <-t.stopCh:
			t.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		default:
			err := t.processMessage(ctx)
			if err != nil {
				t.logger.ErrorContext(ctx, "Error processing message", "error", err)

				select {
				case <-t.stopCh:
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func (t *Trigger) processMessage(ctx context.Context) error {
	result, err := t.client.BLPop(ctx, t.pollTimeout, t.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message, err := DecodeMessage(result[1])
	if err != nil {
		t.logger.WarnContext(ctx, "Dropping queue message", "error", err)

		return nil
	}

	t.logger.InfoContext(ctx, "Received message from queue", "workflow_id", message.WorkflowID)

	err = t.callback(ctx, message.WorkflowID, message.Data)
	if err != nil {
		t.logger.ErrorContext(ctx, "Error executing workflow for queue message", "workflow_id", message.WorkflowID, "error", err)
	}

	return nil
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping queue trigger")

	t.stopOnce.Do(func() { close(t.stopCh) })
	t.wg.Wait()

	return t.client.Close()
}
