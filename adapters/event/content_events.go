package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-portal/internal/config"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

// ContentEventPayload is published by the content backend whenever an editor
// saves something.
type ContentEventPayload struct {
	EventType string    `json:"event_type"`
	Model     string    `json:"model"`
	ObjectID  string    `json:"object_id"`
	At        time.Time `json:"at"`
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ContentEventsTrigger fires its subscribers for every content event on the
// topic, so the loader can re-sync after backend edits.
const (
	minRetryDelay = 100 * time.Millisecond
	maxRetryDelay = 5 * time.Second
)

type ContentEventsTrigger struct {
	reader messageReader
	topic  string
	logger logger.Logger

	minRetry time.Duration
	maxRetry time.Duration

	mu     sync.Mutex
	subs   map[int]func()
	nextID int
}

func NewContentEventsTrigger(cfg config.Config, log logger.Logger) (*ContentEventsTrigger, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.ContentTopic,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 1,
		MaxBytes: 1e6,
	})
	return newContentEventsTrigger(reader, cfg.Kafka.ContentTopic, log), nil
}

func newContentEventsTrigger(reader messageReader, topic string, log logger.Logger) *ContentEventsTrigger {
	return &ContentEventsTrigger{
		reader: reader,
		topic:  topic,
		logger:   log.With(zap.String("topic", topic)),
		minRetry: minRetryDelay,
		maxRetry: maxRetryDelay,
		subs:     make(map[int]func()),
	}
}

func (t *ContentEventsTrigger) Subscribe(fn func()) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Run consumes until ctx is done or the reader is closed. Read errors are
// retried with exponential backoff. Malformed events are logged and
// committed so they do not block the partition.
func (t *ContentEventsTrigger) Run(ctx context.Context) error {
	t.logger.Info("Listening for content events")
	delay := t.minRetry
	for {
		msg, err := t.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			t.logger.Error("Failed to read message from Kafka", err, zap.Duration("retry_in", delay))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay = min(delay*2, t.maxRetry)
			continue
		}
		delay = t.minRetry

		var payload ContentEventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			t.logger.Warn("Skipping malformed content event", zap.String("key", string(msg.Key)), zap.Error(err))
			t.commit(ctx, msg)
			continue
		}

		t.logger.Info("Content event received",
			zap.String("event_type", payload.EventType),
			zap.String("model", payload.Model),
			zap.String("object_id", payload.ObjectID))
		t.fire()
		t.commit(ctx, msg)
	}
}

func (t *ContentEventsTrigger) Close() error {
	return t.reader.Close()
}

func (t *ContentEventsTrigger) fire() {
	t.mu.Lock()
	fns := make([]func(), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (t *ContentEventsTrigger) commit(ctx context.Context, msg kafka.Message) {
	if err := t.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		t.logger.Error("Failed to commit message", err)
	}
}
